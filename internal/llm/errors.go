package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var errEmptyCompletion = errors.New("backend returned no completion text")

// RouterError carries the backend identity and raw status of a failed
// completion call. Status is 0 when the request never got a response.
type RouterError struct {
	Backend string
	Status  int
	Body    string
	Err     error
}

func (e *RouterError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Backend, e.Status, truncate(e.Body, 512))
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Backend, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	}
}

func (e *RouterError) Unwrap() error {
	return e.Err
}

// nonEmpty returns text unless a successful response carried none, which
// every backend reports as errEmptyCompletion.
func nonEmpty(backend, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &RouterError{Backend: backend, Status: http.StatusOK, Err: errEmptyCompletion}
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return cutRunes(s, n) + "..."
}

// cutRunes returns at most n bytes of s without splitting a UTF-8 sequence.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
