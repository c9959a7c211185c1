package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Request is one piece of text to speak.
type Request struct {
	Text   string
	Model  string // path to the .onnx voice
	Config string // path to the voice config; defaults to Model + ".json"
	Key    string // explicit cache key; overrides the content hash
}

// ConfigPath returns the voice config path.
func (r Request) ConfigPath() string {
	if r.Config != "" {
		return r.Config
	}
	return r.Model + ".json"
}

// CacheKey returns the explicit key when set, otherwise the content hash.
func (r Request) CacheKey() (string, error) {
	if r.Key != "" {
		if err := ValidateKey(r.Key); err != nil {
			return "", err
		}
		return r.Key, nil
	}
	return CacheKey(r.Model, r.ConfigPath(), r.Text), nil
}

// CacheKey hashes model, config and trimmed text into a hex SHA-256 digest.
func CacheKey(model, config, text string) string {
	sum := sha256.Sum256([]byte(model + "::" + config + "::" + strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// ValidateKey rejects keys that would escape the audio directory.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case key == "." || strings.Contains(key, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}
