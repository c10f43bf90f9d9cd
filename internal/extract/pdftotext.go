// Package extract turns uploaded PDF bytes into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var ErrToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrToolNotFound
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// PDFToText extracts text with poppler's pdftotext.
type PDFToText struct {
	runner CommandRunner
	binary string
}

func NewPDFToText() *PDFToText {
	return &PDFToText{runner: execRunner{}, binary: "pdftotext"}
}

func NewPDFToTextWithRunner(runner CommandRunner) *PDFToText {
	return &PDFToText{runner: runner, binary: "pdftotext"}
}

// ExtractText returns "" with no error for PDFs that contain no text layer.
func (p *PDFToText) ExtractText(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", nil
	}

	f, err := os.CreateTemp("", "ragdoc-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	out, err := p.runner.Run(ctx, p.binary, "-layout", "-enc", "UTF-8", f.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	text := string(out)
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}
