package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/savageogre/opengate/internal/paths"
)

// logConfig is read from OPENGATE_LOG_* variables.
type logConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
	File   string `env:"FILE"`
}

func setupLog() (func() error, error) {
	cfg, err := env.ParseAsWithOptions[logConfig](env.Options{Prefix: "OPENGATE_LOG_"})
	if err != nil {
		return nil, fmt.Errorf("error parsing log config: %w", err)
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	closer := func() error { return nil }
	if cfg.File != "" {
		path, err := paths.Expand(cfg.File)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w, closer = f, f.Close
	}

	log.SetOutput(w)
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(log.JSONFormatter)
	case "logfmt":
		log.SetFormatter(log.LogfmtFormatter)
	case "text":
		if cfg.File != "" || !term.IsTerminal(int(os.Stderr.Fd())) { //nolint:gosec
			log.SetFormatter(log.LogfmtFormatter)
			log.SetReportTimestamp(true)
		}
	default:
		_ = closer()
		return nil, fmt.Errorf("unknown log format %q: use text, logfmt or json", cfg.Format)
	}
	return closer, nil
}
