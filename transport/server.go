package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"weightcast/weights"
)

// ServerConfig controls the owner transport.
type ServerConfig struct {
	// Address is the listen address, ":8988" when empty.
	Address string
	// Vector is the payload pushed to every connecting peer. Defaults to
	// the reference payload.
	Vector weights.Vector
	// Logger receives per-client fault reports. Defaults to slog.Default.
	Logger *slog.Logger
}

func (c ServerConfig) withDefaults() ServerConfig {
	out := c
	if out.Address == "" {
		out.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if out.Vector == nil {
		out.Vector = weights.Default()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Server is the owner transport: it pushes one encoded weight vector to
// every peer that connects.
type Server struct {
	listener net.Listener
	payload  []byte
	logger   *slog.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

// Listen binds the owner's listening socket. A bind failure is fatal to the
// transport and is returned as ErrBind; no accepts happen in that case.
func Listen(config ServerConfig) (*Server, error) {
	cfg := config.withDefaults()

	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: listen on %q: %v", ErrBind, cfg.Address, err)
	}

	return &Server{
		listener: listener,
		// The vector is encoded once per serving lifetime: every client
		// of this Server receives the identical payload.
		payload: Encode(cfg.Vector),
		logger:  cfg.Logger,
		closed:  make(chan struct{}),
	}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until the context is cancelled or the server is
// closed. Connections are served strictly sequentially: the payload is
// written to the accepted connection and the connection closed before the
// next accept, so a slow client delays all later clients. A fault on a
// single client is logged and the loop continues.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.Close()
	})
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return ctx.Err()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			s.logger.Warn("accept failed", "err", err)
			continue
		}

		s.send(conn)
	}
}

func (s *Server) send(conn net.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	if _, err := conn.Write(s.payload); err != nil {
		s.logger.Warn("send weights failed", "peer", conn.RemoteAddr().String(), "err", err)
		return
	}
	s.logger.Info("sent weights", "peer", conn.RemoteAddr().String(), "bytes", len(s.payload))
}

// Close stops the accept loop by closing the listening socket. There is no
// cooperative cancellation signal beyond this.
func (s *Server) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.closed)
		closeErr = s.listener.Close()
	})
	return closeErr
}
