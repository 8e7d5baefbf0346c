package render

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Sink receives every composed frame.
type Sink interface {
	Present(f Frame) error
}

// TextSink prints frames to a writer, one row per line, with a blank line
// after each frame.
type TextSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: bufio.NewWriter(w)}
}

func (s *TextSink) Present(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range f.Rows {
		if _, err := fmt.Fprintln(s.w, row); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	if _, err := fmt.Fprintln(s.w); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return s.w.Flush()
}

// Recorder keeps every presented frame; useful for replays and tests.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *Recorder) Present(f Frame) error {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	return nil
}

// Frames returns a copy of every frame presented so far.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Last returns the most recent frame.
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}
