// Package input provides the line sources the input stage reads commands from.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosed is returned once a source has no more lines. The tick loop
// treats it as a clean end of the simulation.
var ErrClosed = errors.New("input closed")

// Source yields one command line per call. ReadLine blocks until a line is
// available, the source is exhausted (ErrClosed) or ctx is done.
type Source interface {
	ReadLine(ctx context.Context) (string, error)
}

// LineReader reads newline-terminated lines from an io.Reader. A background
// goroutine does the blocking reads so ReadLine can honor ctx.
type LineReader struct {
	lines chan string
	done  chan struct{}
	err   error // set before done is closed
}

func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go lr.readLoop(r)
	return lr
}

func (lr *LineReader) readLoop(r io.Reader) {
	defer close(lr.done)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)
	for scanner.Scan() {
		lr.lines <- scanner.Text()
	}
	lr.err = scanner.Err()
}

func (lr *LineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-lr.lines:
		return line, nil
	case <-lr.done:
		if lr.err != nil {
			return "", fmt.Errorf("%w: %v", ErrClosed, lr.err)
		}
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ChanSource is fed by another goroutine (a terminal UI, a network session).
type ChanSource struct {
	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func NewChanSource(size int) *ChanSource {
	return &ChanSource{
		lines:  make(chan string, size),
		closed: make(chan struct{}),
	}
}

// Push queues a line. It reports false if the source is closed or ctx ends first.
func (c *ChanSource) Push(ctx context.Context, line string) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.lines <- line:
		return true
	case <-c.closed:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close ends the source. Lines already queued are still delivered.
func (c *ChanSource) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *ChanSource) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-c.lines:
		return line, nil
	default:
	}
	select {
	case line := <-c.lines:
		return line, nil
	case <-c.closed:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Script replays a fixed list of lines, then reports ErrClosed.
type Script struct {
	lines []string
	next  int
}

func NewScript(lines ...string) *Script {
	return &Script{lines: lines}
}

func (s *Script) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.next >= len(s.lines) {
		return "", ErrClosed
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}
