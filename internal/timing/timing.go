// Package timing converts between wall-clock quantities and sample counts
// and parses the duration notation used in render plans.
package timing

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDuration is returned for duration strings that cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

// MaxSeconds bounds a single duration: one week.
const MaxSeconds = 7 * 24 * 3600

// SecsToSamples converts seconds to a sample count at the given rate.
// Negative durations clamp to zero and counts past math.MaxInt saturate.
func SecsToSamples(secs float64, sampleRate int) int {
	if secs < 0 || math.IsNaN(secs) {
		return 0
	}
	v := math.Round(secs * float64(sampleRate))
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

// MsToSamples converts milliseconds to a sample count at the given rate.
func MsToSamples(ms float64, sampleRate int) int {
	return SecsToSamples(ms/1000, sampleRate)
}

// Each component must have a leading digit: "0.5m" is fine, ".5m" is not.
var hmsPattern = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)h)?(?:(\d+(?:\.\d+)?)m)?(?:(\d+(?:\.\d+)?)s)?$`)

// Seconds is a duration in (possibly fractional) seconds.
type Seconds float64

// ParseSeconds parses either a plain number of seconds ("90", "45.5") or an
// [h][m][s] composite ("1h2m3s", "0.5m", "30s"). Composites must total more
// than zero. Nothing may exceed MaxSeconds.
func ParseSeconds(s string) (Seconds, error) {
	s = strings.TrimSpace(s)

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		return checkMax(s, v)
	}

	m := hmsPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var secs float64
	for i, unit := range []float64{3600, 60, 1} {
		part := m[i+1]
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, s, err)
		}
		secs += v * unit
	}

	if secs <= 0 {
		return 0, fmt.Errorf("%w: %q totals %v seconds", ErrInvalidDuration, s, secs)
	}
	return checkMax(s, secs)
}

func checkMax(s string, secs float64) (Seconds, error) {
	if secs > MaxSeconds {
		return 0, fmt.Errorf("%w: %q is longer than %s", ErrInvalidDuration, s, Seconds(MaxSeconds))
	}
	return Seconds(secs), nil
}

// Samples converts the duration to a sample count.
func (s Seconds) Samples(sampleRate int) int {
	return SecsToSamples(float64(s), sampleRate)
}

// Duration returns the value as a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

func (s Seconds) String() string {
	return s.Duration().String()
}

// UnmarshalYAML accepts numbers and duration strings.
func (s *Seconds) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w: expected a scalar", node.Line, ErrInvalidDuration)
	}
	v, err := ParseSeconds(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = v
	return nil
}
