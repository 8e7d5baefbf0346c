package net

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// lineIO is the line discipline a session reads through: a plain scanner
// for cooked TCP clients, an x/term Terminal for SSH sessions with a PTY.
type lineIO interface {
	ReadLine() (string, error)
	ReadPassword(prompt string) (string, error)
	io.Writer
}

// Session is one remote console connection. ReadLine is called only from
// the goroutine that attached the session; Send may be called from any
// goroutine.
type Session struct {
	ID     uint64
	Remote string

	// Authenticated is set when the transport already checked the
	// password (SSH password auth).
	Authenticated bool

	rwc          io.ReadWriteCloser
	lines        lineIO
	writeMu      sync.Mutex
	writeTimeout time.Duration
	idleTimeout  time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	PTY          bool // use an interactive terminal with echo and line editing
	Prompt       string
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func NewSession(rwc io.ReadWriteCloser, id uint64, remote string, opts SessionOptions, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		Remote:       remote,
		rwc:          rwc,
		writeTimeout: opts.WriteTimeout,
		idleTimeout:  opts.IdleTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint64("session", id), zap.String("remote", remote)),
	}
	if opts.PTY {
		s.lines = term.NewTerminal(rwc, opts.Prompt)
	} else {
		s.lines = newScanLines(rwc)
	}
	return s
}

// ReadLine blocks for the next line typed by the client. Surrounding
// whitespace and a trailing carriage return are stripped.
func (s *Session) ReadLine() (string, error) {
	s.armReadDeadline()
	line, err := s.lines.ReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r"), nil
}

// ReadPassword prompts and reads a line without echo (when the line
// discipline supports it).
func (s *Session) ReadPassword(prompt string) (string, error) {
	s.armReadDeadline()
	pw, err := s.lines.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(pw, "\r"), nil
}

// Send writes text to the client.
func (s *Session) Send(text string) error {
	if s.closed.Load() {
		return io.ErrClosedPipe
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if d, ok := s.rwc.(deadliner); ok && s.writeTimeout > 0 {
		d.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := io.WriteString(s.lines, text); err != nil {
		return fmt.Errorf("session %d write: %w", s.ID, err)
	}
	return nil
}

// Close gracefully shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.rwc.Close()
	})
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func (s *Session) armReadDeadline() {
	if d, ok := s.rwc.(deadliner); ok && s.idleTimeout > 0 {
		d.SetReadDeadline(time.Now().Add(s.idleTimeout))
	}
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// scanLines reads newline-terminated lines from a cooked client such as
// nc or telnet. Passwords are echoed by the client's own terminal.
type scanLines struct {
	scanner *bufio.Scanner
	w       io.Writer
}

func newScanLines(rw io.ReadWriter) *scanLines {
	sc := bufio.NewScanner(rw)
	sc.Buffer(make([]byte, 0, 1024), 16*1024)
	return &scanLines{scanner: sc, w: rw}
}

func (l *scanLines) ReadLine() (string, error) {
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return l.scanner.Text(), nil
}

func (l *scanLines) ReadPassword(prompt string) (string, error) {
	if _, err := io.WriteString(l.w, prompt); err != nil {
		return "", err
	}
	return l.ReadLine()
}

func (l *scanLines) Write(p []byte) (int, error) {
	return l.w.Write(p)
}
