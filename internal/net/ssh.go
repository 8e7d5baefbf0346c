package net

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gossh "github.com/gliderlabs/ssh"
	"go.uber.org/zap"
	xssh "golang.org/x/crypto/ssh"
)

// SSHServer exposes the console over SSH. A session with a PTY gets line
// editing and echo from x/term; one without is read line by line.
type SSHServer struct {
	srv     *gossh.Server
	console *Console
	log     *zap.Logger
}

func NewSSHServer(addr, hostKeyPath string, console *Console, idle time.Duration, log *zap.Logger) (*SSHServer, error) {
	signer, err := loadOrCreateHostKey(hostKeyPath, log)
	if err != nil {
		return nil, err
	}
	s := &SSHServer{console: console, log: log}
	s.srv = &gossh.Server{
		Addr:        addr,
		Handler:     s.handle,
		HostSigners: []gossh.Signer{signer},
		IdleTimeout: idle,
		PtyCallback: func(_ gossh.Context, _ gossh.Pty) bool { return true },
	}
	if console.RequiresPassword() {
		s.srv.PasswordHandler = func(_ gossh.Context, pw string) bool {
			return console.CheckPassword(pw)
		}
	}
	return s, nil
}

// ListenAndServe blocks until Close.
func (s *SSHServer) ListenAndServe() error {
	s.log.Info("ssh console listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, gossh.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *SSHServer) Close() error {
	return s.srv.Close()
}

func (s *SSHServer) handle(gs gossh.Session) {
	_, _, hasPTY := gs.Pty()
	sess := s.console.NewSession(gs, gs.RemoteAddr().String(), hasPTY)
	sess.Authenticated = s.console.RequiresPassword()
	s.log.Info("ssh console connection",
		zap.Uint64("session", sess.ID),
		zap.String("remote", sess.Remote),
		zap.String("user", gs.User()),
		zap.Bool("pty", hasPTY),
	)
	s.console.Attach(sess)
}

// loadOrCreateHostKey loads a PEM private key from path, or generates and
// persists a new ed25519 key if the file is absent.
func loadOrCreateHostKey(path string, log *zap.Logger) (gossh.Signer, error) {
	if data, err := os.ReadFile(path); err == nil {
		signer, err := xssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse host key %s: %w", path, err)
		}
		log.Info("loaded ssh host key", zap.String("path", path))
		return signer, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read host key %s: %w", path, err)
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := xssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	block, err := xssh.MarshalPrivateKey(key, "tileworld console")
	if err != nil {
		return nil, fmt.Errorf("marshal host key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		log.Warn("host key not persisted", zap.String("path", path), zap.Error(err))
	} else if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		log.Warn("host key not persisted", zap.String("path", path), zap.Error(err))
	} else {
		log.Info("generated ssh host key", zap.String("path", path))
	}
	return signer, nil
}
