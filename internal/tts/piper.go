package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPiperTimeout bounds a single synthesis.
const DefaultPiperTimeout = 5 * time.Minute

// PiperConfig configures the piper CLI.
type PiperConfig struct {
	// Binary is a name looked up in PATH or a path. Defaults to "piper".
	Binary string

	// Timeout bounds each synthesis. Zero means DefaultPiperTimeout.
	Timeout time.Duration
}

// Piper synthesizes speech by running the piper CLI, one process per request.
type Piper struct {
	config PiperConfig
	logger *log.Logger
}

// NewPiper returns a piper synthesizer. The binary is resolved on first use
// so renders whose speech is already cached do not need piper installed.
func NewPiper(config PiperConfig, logger *log.Logger) *Piper {
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultPiperTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Piper{config: config, logger: logger}
}

// Binary resolves the piper executable.
func (p *Piper) Binary() (string, error) {
	path, err := exec.LookPath(p.config.Binary)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrPiperNotFound, p.config.Binary, err)
	}
	return path, nil
}

// Synthesize runs piper with the text on stdin and moves the finished wav
// into place at out.
func (p *Piper) Synthesize(ctx context.Context, req Request, out string) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ErrEmptyText
	}

	bin, err := p.Binary()
	if err != nil {
		return err
	}

	tmp := out + ".tmp"
	defer os.Remove(tmp) //nolint:errcheck

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin,
		"--model", req.Model,
		"--config", req.ConfigPath(),
		"--output_file", tmp,
	)
	// Stdin is set before start so piper never races the writer.
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second

	p.logger.Debug("Running piper", "binary", bin, "model", req.Model, "chars", len(text))
	start := time.Now()

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, p.config.Timeout)
		}
		return &SynthesisError{
			Model:  req.Model,
			Stderr: strings.TrimSpace(stderr.String()),
			Cause:  err,
		}
	}

	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		return &SynthesisError{
			Model:  req.Model,
			Stderr: strings.TrimSpace(stderr.String()),
			Cause:  fmt.Errorf("%w: no audio written", ErrSynthesisFailed),
		}
	}

	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("move synthesized audio into place: %w", err)
	}

	p.logger.Debug("Piper finished", "model", req.Model, "took", time.Since(start).Round(time.Millisecond))
	return nil
}
