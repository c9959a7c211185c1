package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"
)

// SpeechFile is the file name used inside each cache key directory.
const SpeechFile = "speech.wav"

// Service caches synthesized speech on disk, one directory per cache key.
type Service struct {
	synth  Synthesizer
	dir    string
	logger *log.Logger
}

// NewService returns a service storing audio under dir.
func NewService(synth Synthesizer, dir string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{synth: synth, dir: dir, logger: logger}
}

// OutputPath returns where the audio for req lives.
func (s *Service) OutputPath(req Request) (string, error) {
	key, err := req.CacheKey()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key, SpeechFile), nil
}

// Ensure makes sure the audio for req exists and returns its path.
// Existing audio is reused unless force is set; synthesized reports whether
// the synthesizer ran.
func (s *Service) Ensure(ctx context.Context, req Request, force bool) (path string, synthesized bool, err error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", false, ErrEmptyText
	}

	path, err = s.OutputPath(req)
	if err != nil {
		return "", false, err
	}

	if !force {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			s.logger.Debug("Speech cache hit", "path", path)
			return path, false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("create speech directory: %w", err)
	}

	s.logger.Info("Synthesizing speech", "text", preview(req.Text), "model", filepath.Base(req.Model), "force", force)
	if err := s.synth.Synthesize(ctx, req, path); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// preview flattens text to one line of at most 40 cells for logging.
func preview(text string) string {
	return truncate.StringWithTail(strings.Join(strings.Fields(text), " "), 40, "…")
}
