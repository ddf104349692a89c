package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// LlamaCPP runs a local llama.cpp binary against a GGUF model file as a
// subprocess. Useful when no model server is running.
type LlamaCPP struct {
	binary    string
	modelPath string
	timeout   time.Duration
}

// NewLlamaCPP creates a new llama.cpp subprocess client.
func NewLlamaCPP(binary, modelPath string) *LlamaCPP {
	return &LlamaCPP{
		binary:    binary,
		modelPath: modelPath,
		timeout:   300 * time.Second,
	}
}

// Complete runs the llama.cpp CLI with the prompt on stdin and returns its
// output. One invocation at a time; the model host owns the GPU.
func (l *LlamaCPP) Complete(ctx context.Context, prompt string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.binary,
		"-m", l.modelPath,
		"--temp", fmt.Sprintf("%g", genTemperature),
		"-n", strconv.Itoa(genMaxTokens),
		"--no-display-prompt",
		"-f", "/dev/stdin",
	)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("llama.cpp: %w (stderr: %s)", err, tail(stderr.String(), 400))
	}

	return &Response{
		Content:  strings.TrimSpace(stdout.String()),
		Provider: "llamacpp",
	}, nil
}

// tail returns the last n bytes of s; llama.cpp is chatty on stderr.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
