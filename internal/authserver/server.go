// Package authserver implements the auth listener: a UDP datagram
// endpoint that authenticates or registers a player and, on success,
// hands back the TCP gameplay rendezvous endpoint.
//
// Each datagram is dispatched to a bounded worker pool (a fixed-size
// channel of work closures); a blocking send into a full pool provides
// natural backpressure under load instead of unbounded goroutine fan-out.
package authserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/battleshipd/server/internal/authwire"
	"github.com/battleshipd/server/internal/config"
	"github.com/battleshipd/server/internal/store"
)

// maxDatagramSize is large enough for any legal AUTH_LOGIN/AUTH_REGISTER
// request; the protocol carries no binary payloads.
const maxDatagramSize = 1024

// Server is the Auth Listener: one UDP socket, a bounded worker pool, and
// the User Store it authenticates and registers against.
type Server struct {
	cfg   config.AuthServer
	store *store.Store

	work chan func()

	mu   sync.Mutex
	conn *net.UDPConn
}

// NewServer wires an Auth Listener against st, sized per cfg.
func NewServer(cfg config.AuthServer, st *store.Store) *Server {
	return &Server{
		cfg:   cfg,
		store: st,
		work:  make(chan func(), cfg.WorkerPoolSize*4),
	}
}

// Addr returns the socket's local address, or nil before Run/Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Run binds cfg.BindAddress:cfg.Port and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.cfg.BindAddress), Port: s.cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	return s.Serve(ctx, conn)
}

// Serve runs the datagram read loop and worker pool against an
// already-bound UDP connection, useful for tests that bind an ephemeral
// port themselves.
func (s *Server) Serve(ctx context.Context, conn *net.UDPConn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var wg sync.WaitGroup

	for i := 0; i < s.cfg.WorkerPoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runWorker(ctx)
		}()
	}

	slog.Info("auth server started", "address", conn.LocalAddr(), "workers", s.cfg.WorkerPoolSize)
	s.readLoop(ctx, conn)

	close(s.work)
	wg.Wait()
	return nil
}

func (s *Server) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-s.work:
			if !ok {
				return
			}
			fn()
		}
	}
}

// readLoop pulls datagrams off the socket and dispatches each to the
// worker pool. A full pool applies backpressure by blocking the read
// loop rather than spawning unbounded goroutines.
//
// A receive deadline is re-armed before every read so a quiet socket
// still wakes periodically to observe ctx cancellation instead of
// blocking forever on ReadFromUDP.
func (s *Server) readLoop(ctx context.Context, conn *net.UDPConn) {
	timeout := time.Duration(s.cfg.ReceiveTimeoutMS) * time.Millisecond
	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if timeout > 0 {
			conn.SetReadDeadline(time.Now().Add(timeout))
		}

		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if os.IsTimeout(err) {
				continue
			}
			slog.Error("auth datagram read failed", "err", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		select {
		case s.work <- func() { s.handleDatagram(conn, remote, payload) }:
		case <-ctx.Done():
			return
		}
	}
}

// handleDatagram parses one request, authenticates or registers it
// against the user store, and sends exactly one response datagram back
// to remote.
func (s *Server) handleDatagram(conn *net.UDPConn, remote *net.UDPAddr, payload []byte) {
	req, err := authwire.ParseRequest(payload)
	if err != nil {
		s.reply(conn, remote, authwire.Failure(err.Error()))
		return
	}

	switch req.Type {
	case authwire.RequestLogin:
		s.handleLogin(conn, remote, req)
	case authwire.RequestRegister:
		s.handleRegister(conn, remote, req)
	}
}

func (s *Server) handleLogin(conn *net.UDPConn, remote *net.UDPAddr, req authwire.Request) {
	if !s.store.Verify(req.Username, req.Password) {
		s.reply(conn, remote, authwire.Failure("invalid credentials"))
		return
	}
	s.reply(conn, remote, authwire.Success("authenticated", s.cfg.RendezvousHost, s.cfg.RendezvousPort, s.store.HasSavedGame(req.Username)))
}

func (s *Server) handleRegister(conn *net.UDPConn, remote *net.UDPAddr, req authwire.Request) {
	if err := s.store.Register(req.Username, req.Password, s.cfg.MinPasswordLength); err != nil {
		s.reply(conn, remote, authwire.Failure(err.Error()))
		return
	}
	s.reply(conn, remote, authwire.Success("registered", s.cfg.RendezvousHost, s.cfg.RendezvousPort, false))
}

func (s *Server) reply(conn *net.UDPConn, remote *net.UDPAddr, resp authwire.Response) {
	if _, err := conn.WriteToUDP(resp.Encode(), remote); err != nil {
		slog.Error("auth datagram reply failed", "remote", remote, "err", err)
	}
}
