// Package ipc exposes daemon control over a Unix domain socket. The
// protocol is a single raw token per connection with no acknowledgement,
// so anything that can write to a socket can drive the player.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"airwave/internal/logging"
)

// maxTokenBytes bounds a read; control tokens are short and anything
// larger is garbage.
const maxTokenBytes = 64

// readDeadline bounds how long a connected client may dawdle before
// sending its token.
const readDeadline = 2 * time.Second

// Handler receives each valid token read from the socket.
type Handler func(token string)

// Server accepts control connections on a Unix domain socket.
type Server struct {
	path     string
	handler  Handler
	logger   *slog.Logger
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the control server at the given socket path.
func NewServer(ctx context.Context, path string, handler Handler, logger *slog.Logger) (*Server, error) {
	if handler == nil {
		return nil, errors.New("ipc server requires a handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:     path,
		handler:  handler,
		logger:   logging.NewComponentLogger(logger, "ipc"),
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
	}, nil
}

// Serve starts accepting connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handleConn(c)
			}(conn)
		}
	}()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	buf := make([]byte, maxTokenBytes)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		s.logger.Debug("control read failed", logging.Error(err))
		return
	}

	token := strings.TrimSpace(string(buf[:n]))
	if token == "" {
		return
	}
	if !KnownToken(token) {
		s.logger.Warn("unknown control token", logging.String("token", token))
		return
	}
	s.logger.Debug("control token received", logging.String("token", token))
	s.handler(token)
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}
