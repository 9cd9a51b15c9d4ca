package session

import (
	"net"
	"sync"
	"time"

	"github.com/battleshipd/server/internal/model"
	"github.com/battleshipd/server/internal/wire"
)

// Client is the per-connection session state: the socket, the player's
// chosen name and mode, its local FSM phase, and (for vs_ai games) the
// locally-owned Game instance. Every exported accessor is guarded by mu.
// Send and the handler's own replies share a separate writeMu, so a
// push-style notification arriving from the Arbiter on another goroutine
// can never interleave mid-frame with a reply the handler loop is
// writing for this same connection.
type Client struct {
	conn         net.Conn
	sendPool     *wire.BytePool
	writeTimeout time.Duration

	writeMu sync.Mutex

	mu    sync.Mutex
	name  string
	mode  Mode
	phase Phase
	game  *model.Game // vs_ai only; vs_player games live in the Arbiter
}

// NewClient wraps conn in a fresh Client at the handshake phase.
// Outbound frames are assembled in buffers borrowed from sendPool,
// shared across every connection the acceptor owns.
func NewClient(conn net.Conn, sendPool *wire.BytePool) *Client {
	return &Client{conn: conn, sendPool: sendPool, phase: PhaseHandshake}
}

// SetWriteTimeout bounds every subsequent frame write with a deadline, so a
// stalled peer cannot block the Arbiter's notification path (or this
// connection's own handler loop) indefinitely. d <= 0 disables the deadline.
func (c *Client) SetWriteTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeTimeout = d
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Client) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}

func (c *Client) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Client) SetPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}

func (c *Client) Game() *model.Game {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

func (c *Client) SetGame(g *model.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.game = g
}

// Reply writes env to this client's own connection in response to a
// request this same connection just sent — it does not touch phase,
// since the handler loop that called Reply already knows (and sets) the
// resulting phase itself.
func (c *Client) Reply(env wire.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	timeout := c.writeTimeout
	c.mu.Unlock()
	if timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	return wire.SendPooled(c.conn, env, c.sendPool)
}

// Send writes env to this client's socket and, when env's type implies a
// phase transition, advances the client's own FSM phase — even though
// the call originates from the arbiter on another goroutine. Phase stays
// owned by this type; the arbiter only ever sees Send and Close.
func (c *Client) Send(env wire.Envelope) error {
	c.applyPhaseOnSend(env.Type)
	return c.Reply(env)
}

func (c *Client) applyPhaseOnSend(t wire.Type) {
	switch t {
	case wire.TypeAdversaireTrouve:
		c.SetPhase(PhasePlacement)
	case wire.TypeDebutPartie:
		c.SetPhase(PhasePlaying)
	case wire.TypeFinPartie:
		c.SetPhase(PhaseClosed)
	}
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Client) Close() error {
	return c.conn.Close()
}
