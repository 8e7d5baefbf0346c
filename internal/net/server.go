package net

import (
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Server accepts TCP connections and attaches each to the console in its
// own goroutine.
type Server struct {
	listener net.Listener
	console  *Console
	log      *zap.Logger
	closeCh  chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewServer(bindAddr string, console *Console, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		console:  console,
		log:      log,
		closeCh:  make(chan struct{}),
		sessions: make(map[*Session]struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		select {
		case <-s.closeCh:
			conn.Close()
			return
		default:
		}

		sess := s.console.NewSession(conn, conn.RemoteAddr().String(), false)
		s.log.Info("console connection", zap.Uint64("session", sess.ID), zap.String("remote", sess.Remote))

		s.mu.Lock()
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.console.Attach(sess)
			s.mu.Lock()
			delete(s.sessions, sess)
			s.mu.Unlock()
		}()
	}
}

// Shutdown stops accepting new connections, closes every open session and
// waits for their goroutines to return.
func (s *Server) Shutdown() error {
	var err error
	s.once.Do(func() {
		close(s.closeCh)
		err = s.listener.Close()
		s.mu.Lock()
		for sess := range s.sessions {
			sess.Close()
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
	return err
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
