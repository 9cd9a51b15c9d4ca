// Package session implements the TCP acceptor and the per-connection
// session state machine. Server owns the listener, the accept loop, and
// the name-keyed client registry the arbiter addresses sessions through;
// Client holds one connection's mutex-guarded mutable state; the
// handlers drive the finite state machine one inbound message at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/battleshipd/server/internal/arbiter"
	"github.com/battleshipd/server/internal/config"
	"github.com/battleshipd/server/internal/model"
	"github.com/battleshipd/server/internal/store"
	"github.com/battleshipd/server/internal/wire"
)

// Server is the TCP Acceptor: it binds the gameplay port, spawns a
// Session Manager per accepted connection, and maintains the guarded
// name→Client registry the Game Arbiter addresses through SessionNotifier.
type Server struct {
	cfg   config.GameServer
	store *store.Store
	arb   *arbiter.Arbiter
	fleet []model.ShipClass

	sendPool *wire.BytePool
	readPool *wire.BytePool

	mu       sync.Mutex
	clients  map[string]*Client
	listener net.Listener
}

func toModelFleet(fleet []config.ShipClass) []model.ShipClass {
	out := make([]model.ShipClass, len(fleet))
	for i, sc := range fleet {
		out[i] = model.ShipClass{Name: sc.Name, Length: sc.Length}
	}
	return out
}

// NewServer wires a TCP acceptor against the given store and arbiter.
// The arbiter's notifier is set to this Server, so arbiter-originated
// pushes reach clients through the same registry the acceptor maintains.
func NewServer(cfg config.GameServer, st *store.Store, arb *arbiter.Arbiter) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		arb:      arb,
		fleet:    toModelFleet(cfg.Fleet),
		sendPool: wire.NewBytePool(4096),
		readPool: wire.NewBytePool(4096),
		clients:  make(map[string]*Client),
	}
	arb.SetNotifier(s)
	return s
}

// Send implements arbiter.SessionNotifier: it looks up name in the
// registry and forwards env to that client's own connection.
func (s *Server) Send(name string, env wire.Envelope) error {
	s.mu.Lock()
	c, ok := s.clients[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("session: unknown session %q", name)
	}
	return c.Send(env)
}

// Close implements arbiter.SessionNotifier: it terminates name's connection.
func (s *Server) Close(name string) {
	s.mu.Lock()
	c, ok := s.clients[name]
	s.mu.Unlock()
	if ok {
		c.Close()
	}
}

func (s *Server) register(name string, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[name] = c
}

// unregister removes c from the registry and runs the disconnection
// path, but only if c is still the registered session for that name — a
// reconnect under the same name must not be torn down by the old
// connection's exit.
func (s *Server) unregister(name string, c *Client) {
	if name == "" {
		return
	}
	s.mu.Lock()
	current, ok := s.clients[name]
	if ok && current == c {
		delete(s.clients, name)
	}
	s.mu.Unlock()
	if ok && current == c {
		s.arb.HandleDisconnect(name)
	}
}

// Addr returns the address the server is listening on, or nil if Run/Serve
// has not been called yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run binds cfg.BindAddress:cfg.Port and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve runs the accept loop against an already-bound listener, useful
// for tests that bind an ephemeral port themselves.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("game server started", "address", ln.Addr())
		s.acceptLoop(ctx, &wg, ln)
	}()

	wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, wg *sync.WaitGroup, ln net.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("failed to accept connection", "err", err)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.handleConnection(ctx, conn)
			}()
		}
	}
}

// handleConnection drives one client's session loop until the socket
// closes, the client sends a terminal message, or ctx is done. A panic
// in one connection's handling is isolated: it cannot bring down the
// acceptor or any other session.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session handler panicked", "remote", conn.RemoteAddr(), "panic", r)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c := NewClient(conn, s.sendPool)
	c.SetWriteTimeout(s.cfg.WriteTimeout)
	defer func() { s.unregister(c.Name(), c) }()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		env, err := wire.ReceivePooled(conn, s.cfg.MaxFramePayloadBytes, s.readPool)
		if err != nil {
			if !errors.Is(err, wire.ErrEndOfStream) {
				slog.Debug("session read failed", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		if err := dispatch(s, c, env); err != nil {
			slog.Debug("session ended", "remote", conn.RemoteAddr(), "name", c.Name(), "err", err)
			return
		}
		if c.Phase() == PhaseClosed {
			return
		}
	}
}
