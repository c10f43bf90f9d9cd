package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 64 << 10

// postJSON sends body as JSON and decodes a 2xx response into out. Any
// other outcome is returned as a *RouterError.
func postJSON(ctx context.Context, client *http.Client, backend, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &RouterError{Backend: backend, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &RouterError{Backend: backend, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &RouterError{Backend: backend, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*16))
	if err != nil {
		return &RouterError{Backend: backend, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RouterError{
			Backend: backend,
			Status:  resp.StatusCode,
			Body:    cutRunes(string(raw), maxErrorBody),
			Err:     fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &RouterError{Backend: backend, Status: resp.StatusCode, Body: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
