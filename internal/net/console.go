package net

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/tileworld/internal/input"
	"github.com/l1jgo/tileworld/internal/render"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	busyNotice   = "another session is in control; try again later\n"
	deniedNotice = "access denied\n"
	greeting     = "connected. commands: left|right|up|down [n]\n"
)

// Console is the remote-control frontend. It is both the input source and
// the render sink of the simulation: one controlling session at a time
// feeds command lines and receives every frame. Other sessions are told
// the console is busy and disconnected. When the controller leaves, the
// input stage simply waits for the next one; the world keeps its state.
type Console struct {
	source   *input.ChanSource
	password []byte // bcrypt hash; nil disables the gate

	mu         sync.Mutex
	controller *Session
	lastFrame  string
	closed     bool

	nextID atomic.Uint64
	opts   SessionOptions
	log    *zap.Logger
}

// ConsoleOptions configures NewConsole.
type ConsoleOptions struct {
	PasswordHash  string
	LineQueueSize int
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

func NewConsole(opts ConsoleOptions, log *zap.Logger) (*Console, error) {
	c := &Console{
		source: input.NewChanSource(max(opts.LineQueueSize, 1)),
		opts: SessionOptions{
			Prompt:       "> ",
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		log: log,
	}
	if opts.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(opts.PasswordHash)); err != nil {
			return nil, errors.New("console: password_hash is not a bcrypt hash")
		}
		c.password = []byte(opts.PasswordHash)
	}
	return c, nil
}

// ReadLine implements input.Source.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	return c.source.ReadLine(ctx)
}

// Present implements render.Sink. A controller whose write fails is
// dropped; the simulation carries on without it.
func (c *Console) Present(f render.Frame) error {
	text := f.String() + "\n\n"

	c.mu.Lock()
	c.lastFrame = text
	ctrl := c.controller
	c.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	if err := ctrl.Send(text); err != nil {
		ctrl.log.Info("controller dropped", zap.Error(err))
		ctrl.Close()
	}
	return nil
}

// CheckPassword reports whether pw matches the configured hash. With no
// hash configured every password is accepted.
func (c *Console) CheckPassword(pw string) bool {
	if c.password == nil {
		return true
	}
	return bcrypt.CompareHashAndPassword(c.password, []byte(pw)) == nil
}

// RequiresPassword reports whether a password gate is configured.
func (c *Console) RequiresPassword() bool {
	return c.password != nil
}

// NewSession wraps a connection with a console-assigned ID.
func (c *Console) NewSession(rwc io.ReadWriteCloser, remote string, pty bool) *Session {
	opts := c.opts
	opts.PTY = pty
	return NewSession(rwc, c.nextID.Add(1), remote, opts, c.log)
}

// Attach runs sess until it disconnects. It blocks, so transports call it
// from the connection's own goroutine.
func (c *Console) Attach(sess *Session) {
	defer sess.Close()

	if !c.authenticate(sess) {
		sess.Send(deniedNotice)
		sess.log.Warn("console login failed")
		return
	}
	last, ok := c.claim(sess)
	if !ok {
		sess.Send(busyNotice)
		sess.log.Info("console busy, session refused")
		return
	}
	defer c.release(sess)

	sess.log.Info("console controller attached")
	sess.Send(greeting)
	if last != "" {
		sess.Send(last)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sess.Done()
		cancel()
	}()

	for {
		line, err := sess.ReadLine()
		if err != nil {
			if !sess.IsClosed() && !errors.Is(err, io.EOF) {
				sess.log.Debug("console read error", zap.Error(err))
			}
			return
		}
		if !c.source.Push(ctx, line) {
			return
		}
	}
}

func (c *Console) authenticate(sess *Session) bool {
	if c.password == nil || sess.Authenticated {
		return true
	}
	pw, err := sess.ReadPassword("password: ")
	if err != nil {
		return false
	}
	return c.CheckPassword(pw)
}

// claim makes sess the controller if there is none and returns the last
// frame for it.
func (c *Console) claim(sess *Session) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.controller != nil {
		return "", false
	}
	c.controller = sess
	return c.lastFrame, true
}

func (c *Console) release(sess *Session) {
	c.mu.Lock()
	if c.controller == sess {
		c.controller = nil
	}
	c.mu.Unlock()
	sess.log.Info("console controller detached")
}

// Controller returns the session in control, or nil.
func (c *Console) Controller() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

// Close ends input and disconnects the controller.
func (c *Console) Close() error {
	c.mu.Lock()
	c.closed = true
	ctrl := c.controller
	c.mu.Unlock()

	c.source.Close()
	if ctrl != nil {
		ctrl.Close()
	}
	return nil
}
