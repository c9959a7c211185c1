package tts

import "context"

// Synthesizer turns a request into a waveform file at out.
// Implementations must either leave a complete file at out or no file.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request, out string) error
}
