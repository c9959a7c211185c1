package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/savageogre/opengate/internal/analysis"
	"github.com/savageogre/opengate/internal/plan"
)

func TestOutputPath(t *testing.T) {
	p := &plan.Plan{Out: "beats/session.flac", BaseDir: "/plans"}

	tests := []struct {
		name string
		flag string
		plan *plan.Plan
		want string
	}{
		{"flag wins", "cli.wav", p, "cli.wav"},
		{"plan out is relative to the plan", "", p, "/plans/beats/session.flac"},
		{"default", "", &plan.Plan{BaseDir: "/plans"}, defaultOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputPath(tt.flag, tt.plan)
			if err != nil {
				t.Fatal(err)
			}
			if got != filepath.FromSlash(tt.want) && got != tt.want {
				t.Errorf("outputPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigMatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		t.Fatal(err)
	}
	if v.GetString("piper.binary") != "piper" {
		t.Errorf("piper.binary = %q", v.GetString("piper.binary"))
	}
	if v.GetInt("render.sample_rate") != plan.DefaultSampleRate ||
		v.GetFloat64("render.gain") != plan.DefaultGain ||
		v.GetFloat64("render.fade_ms") != plan.DefaultFadeMs {
		t.Error("render defaults drifted from the plan package")
	}
	if v.GetDuration("piper.timeout").Minutes() != 5 {
		t.Errorf("piper.timeout = %v", v.GetDuration("piper.timeout"))
	}
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "nested", "opengate.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != defaultConfig {
		t.Error("default config not written")
	}

	configFile = filepath.Join(t.TempDir(), "opengate.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("non-yaml config must be rejected")
	}
}

func TestIsPlanChange(t *testing.T) {
	plan := filepath.Join(string(filepath.Separator), "plans", "a.yml")
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: plan, Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: plan, Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: plan, Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: filepath.Join(filepath.Dir(plan), "b.yml"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := isPlanChange(tt.event, plan); got != tt.want {
			t.Errorf("isPlanChange(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestFormatReport(t *testing.T) {
	out := formatReport(analysis.Report{Path: "x.wav", SampleRate: 8000, Frames: 8000, Left: 200, Right: 207})
	for _, want := range []string{"x.wav", "200.00 Hz", "207.00 Hz", "7.00 Hz"} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}

func testApp(t *testing.T) *app {
	t.Helper()
	s := settings{
		PiperBinary:      "piper",
		CacheDir:         t.TempDir(),
		SamplesEnabled:   true,
		SamplesMemoryMB:  1,
		SamplesDiskMB:    1,
		SamplesZstdLevel: 1,
		Render:           plan.DefaultRenderConfig(),
	}
	a, err := newApp(s, false, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func writePlan(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "plan.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAppRender(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()
	planPath := writePlan(t, dir, `
out: beats.wav
sample_rate: 8000
segments:
  - {type: tone, dur: 1, carrier: 200, hz: 7}
`)

	if err := a.render(context.Background(), planPath, ""); err != nil {
		t.Fatal(err)
	}
	r, err := analysis.AnalyzeFile(filepath.Join(dir, "beats.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Frames != 8000 || r.Beat() < 6 || r.Beat() > 8 {
		t.Errorf("report = %+v", r)
	}
}

func TestAppRenderRemovesPartialOutput(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.wav")
	if err := os.WriteFile(bad, []byte("not a wav file"), 0o644); err != nil {
		t.Fatal(err)
	}
	planPath := writePlan(t, dir, `
sample_rate: 8000
segments:
  - type: tone
    dur: 1
    hz: 7
    mixins: [{type: audio, path: bad.wav}]
`)
	out := filepath.Join(dir, "out.wav")
	if err := a.render(context.Background(), planPath, out); err == nil {
		t.Fatal("undecodable mixin must fail the render")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("partial output left behind: %v", err)
	}
}

func TestAppRenderKeepsOutputOnPlanningError(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()

	out := filepath.Join(dir, "out.wav")
	previous := []byte("previous render")
	if err := os.WriteFile(out, previous, 0o644); err != nil {
		t.Fatal(err)
	}
	planPath := writePlan(t, dir, "segments: [{type: tone, dur: 1, hz: 7, mixins: [{type: audio, path: missing.wav}]}]\n")

	if err := a.render(context.Background(), planPath, out); err == nil {
		t.Fatal("missing mixin must fail planning")
	}
	if b, _ := os.ReadFile(out); !bytes.Equal(b, previous) {
		t.Error("a planning failure must not touch an existing output")
	}
}
