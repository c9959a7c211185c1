// Package paths locates the per-user cache and config directories and
// resolves the file references found in render plans.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

// AppName names the per-user directories.
const AppName = "opengate"

// Layout is the cache directory tree:
//
//	<root>/models          downloaded piper voices
//	<root>/audio/<key>     synthesized speech, one directory per cache key
//	<root>/samples         decoded mixin sample cache
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at override, or at the per-user cache
// directory when override is empty. The root is created if missing.
func NewLayout(override string) (Layout, error) {
	root := override
	if root == "" {
		dir, err := gap.NewScope(gap.User, AppName).CacheDir()
		if err != nil {
			wd, werr := os.Getwd()
			if werr != nil {
				return Layout{}, fmt.Errorf("locate cache directory: %w", err)
			}
			dir = filepath.Join(wd, "."+AppName+"_cache")
		}
		root = dir
	}

	root, err := Expand(root)
	if err != nil {
		return Layout{}, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Layout{}, fmt.Errorf("create cache directory: %w", err)
	}
	return Layout{Root: root}, nil
}

// Models returns the models directory, creating it if needed.
func (l Layout) Models() (string, error) {
	return l.ensure("models")
}

// Audio returns the synthesized speech root, creating it if needed.
func (l Layout) Audio() (string, error) {
	return l.ensure("audio")
}

// Samples returns the sample cache directory, creating it if needed.
func (l Layout) Samples() (string, error) {
	return l.ensure("samples")
}

func (l Layout) ensure(name string) (string, error) {
	dir := filepath.Join(l.Root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s directory: %w", name, err)
	}
	return dir, nil
}

// ConfigDirs lists the directories searched for the settings file, most
// specific first.
func ConfigDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, err
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("OPENGATE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// Expand replaces a leading ~ with the user's home directory.
func Expand(p string) (string, error) {
	out, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return out, nil
}

// Resolve expands p and, if it is relative, joins it onto base.
// An empty p resolves to "".
func Resolve(base, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	expanded, err := Expand(p)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Join(base, expanded), nil
}

// Canonical returns the absolute, symlink-free path of an existing regular
// file.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", resolved)
	}
	return resolved, nil
}

// Exists reports whether p names an existing file.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
