// Package models knows the piper voices opengate can fetch and downloads
// them into the models directory.
package models

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the piper-voices repository on Hugging Face.
const DefaultBaseURL = "https://huggingface.co/rhasspy/piper-voices/resolve/main"

// ErrUnknownVoice is returned by Find for names outside the catalogue.
var ErrUnknownVoice = errors.New("unknown voice")

// Voice identifies one piper voice model.
type Voice struct {
	ShortLang string // "en"
	Lang      string // "en_US"
	Name      string
	Size      string // low, medium or high
}

// ID is the voice's file stem, e.g. en_US-amy-medium.
func (v Voice) ID() string {
	return v.Lang + "-" + v.Name + "-" + v.Size
}

func (v Voice) String() string { return v.ID() }

// FileName is the model file name; the config is FileName + ".json".
func (v Voice) FileName() string {
	return v.ID() + ".onnx"
}

// URL returns the location of the model under base.
func (v Voice) URL(base string) string {
	return strings.Join([]string{
		strings.TrimRight(base, "/"),
		v.ShortLang, v.Lang, v.Name, v.Size,
		v.FileName(),
	}, "/")
}

// Catalogue lists the voices "models download --all" fetches.
func Catalogue() []Voice {
	return []Voice{
		{"en", "en_US", "kristin", "medium"},
		{"en", "en_US", "amy", "medium"},
		{"en", "en_US", "reza_ibrahim", "medium"},
		{"en", "en_US", "ryan", "high"},
		{"en", "en_US", "libritts", "high"},
	}
}

// Find looks a voice up in the catalogue by ID.
func Find(id string) (Voice, error) {
	for _, v := range Catalogue() {
		if v.ID() == id {
			return v, nil
		}
	}
	return Voice{}, fmt.Errorf("%w: %s", ErrUnknownVoice, id)
}

// Installed returns the IDs of every model in dir that has its config next
// to it, sorted.
func Installed(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".onnx") {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name+".json")); err != nil {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".onnx"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Downloader fetches voices over HTTP.
type Downloader struct {
	Client  *http.Client
	BaseURL string
	Logger  *log.Logger

	// Parallel bounds concurrent voice downloads in DownloadAll.
	Parallel int
}

func (d *Downloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d *Downloader) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

// Download fetches the model and its config into dir. Files land under
// their final names only once complete.
func (d *Downloader) Download(ctx context.Context, v Voice, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := cmp.Or(d.BaseURL, DefaultBaseURL)
	model := v.URL(base)

	for _, f := range []struct{ url, name string }{
		{model, v.FileName()},
		{model + ".json", v.FileName() + ".json"},
	} {
		if err := d.fetch(ctx, f.url, filepath.Join(dir, f.name)); err != nil {
			return fmt.Errorf("download %s: %w", v, err)
		}
	}
	d.logger().Info("Downloaded voice", "voice", v.ID(), "dir", dir)
	return nil
}

// DownloadAll fetches voices concurrently and stops at the first failure.
func (d *Downloader) DownloadAll(ctx context.Context, voices []Voice, dir string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.Parallel, 1))
	for _, v := range voices {
		g.Go(func() error {
			return d.Download(ctx, v, dir)
		})
	}
	return g.Wait()
}

func (d *Downloader) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	d.logger().Info("Downloading", "url", url)

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	pr := &progressReader{
		r:        resp.Body,
		total:    resp.ContentLength,
		name:     filepath.Base(dest),
		logger:   d.logger(),
		sometime: rate.Sometimes{Interval: 2 * time.Second},
	}
	n, err := io.Copy(tmp, pr)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return fmt.Errorf("GET %s: short body: %d of %d bytes", url, n, resp.ContentLength)
	}

	d.logger().Debug("Saved", "file", dest, "size", humanize.Bytes(uint64(n)))
	return os.Rename(tmp.Name(), dest)
}

type progressReader struct {
	r        io.Reader
	read     int64
	total    int64
	name     string
	logger   *log.Logger
	sometime rate.Sometimes
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	p.sometime.Do(func() {
		if p.total > 0 {
			p.logger.Info("Downloading", "file", p.name,
				"done", humanize.Bytes(uint64(p.read)), "of", humanize.Bytes(uint64(p.total)))
			return
		}
		p.logger.Info("Downloading", "file", p.name, "done", humanize.Bytes(uint64(p.read)))
	})
	return n, err
}
