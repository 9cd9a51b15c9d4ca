package model

import (
	"errors"
	"fmt"
)

// State is one of the five lifecycle states a Game can be in.
type State string

const (
	Pending    State = "pending"
	InProgress State = "in_progress"
	Paused     State = "paused"
	Finished   State = "finished"
	Abandoned  State = "abandoned"
)

// ShotResult is the outcome of one resolved shot.
type ShotResult string

const (
	Rate     ShotResult = "RATE"
	Touche   ShotResult = "TOUCHE"
	Coule    ShotResult = "COULE"
	DejaTire ShotResult = "DEJA_TIRE"
)

// ErrOutOfBounds is returned by ApplyShot for a coordinate outside the
// grid. An out-of-bounds shot is rejected outright rather than counted
// as a miss: it costs no turn and mutates nothing.
var ErrOutOfBounds = errors.New("shot coordinate out of bounds")

// ErrNotInProgress is returned by ApplyShot when the game cannot accept
// shots in its current state.
var ErrNotInProgress = errors.New("game is not in progress")

// Game is two Players plus the arbitration state: lifecycle, turn flag,
// winner. Every method here assumes the caller already holds whatever
// lock protects concurrent access; Game itself performs no locking.
type Game struct {
	ID     string
	P1, P2 *Player
	State  State
	TurnP1 bool
	Winner string

	Fleet []ShipClass
}

// NewGame constructs a pending game between p1 and p2. p1 moves first by
// convention; the caller may flip TurnP1 before Start if that convention
// should differ.
func NewGame(id string, p1, p2 *Player, fleet []ShipClass) *Game {
	return &Game{
		ID:     id,
		P1:     p1,
		P2:     p2,
		State:  Pending,
		TurnP1: true,
		Fleet:  fleet,
	}
}

// Start transitions a pending (or paused, on resume) game to in_progress.
// Any ship either side left unplaced is placed at random; a side that
// already placed manually is left untouched.
func (g *Game) Start() error {
	if g.State != Pending && g.State != Paused {
		return fmt.Errorf("cannot start game in state %q", g.State)
	}
	if err := g.P1.RandomPlace(g.Fleet); err != nil {
		return fmt.Errorf("placing player1 fleet: %w", err)
	}
	if err := g.P2.RandomPlace(g.Fleet); err != nil {
		return fmt.Errorf("placing player2 fleet: %w", err)
	}
	g.State = InProgress
	return nil
}

// playerFor returns (shooter, target) given which side fired.
func (g *Game) playerFor(byP1 bool) (shooter, target *Player) {
	if byP1 {
		return g.P1, g.P2
	}
	return g.P2, g.P1
}

// ApplyShot resolves a shot fired by the P1 side (byP1=true) or the P2
// side (byP1=false) at (x,y) on the target's grid. Water becomes a miss,
// a ship cell becomes a hit, an already-resolved cell is DEJA_TIRE and
// changes nothing. The turn flips on every resolved shot except a
// duplicate or the finishing one.
func (g *Game) ApplyShot(byP1 bool, x, y int) (result ShotResult, sunk *Ship, finished bool, err error) {
	if g.State != InProgress {
		return "", nil, false, ErrNotInProgress
	}

	shooter, target := g.playerFor(byP1)
	c := Coord{X: x, Y: y}

	if !target.Own.InBounds(c) {
		return "", nil, false, ErrOutOfBounds
	}

	switch target.Own.At(c) {
	case Hit, Miss:
		return DejaTire, nil, false, nil

	case Water:
		target.Own.Set(c, Miss)
		shooter.Tracking.Set(c, Miss)
		result = Rate

	case ShipCell:
		target.Own.Set(c, Hit)
		shooter.Tracking.Set(c, Hit)
		ship := target.ShipAt(c)
		if ship == nil {
			return "", nil, false, fmt.Errorf("internal error: ship cell at %+v has no owning ship", c)
		}
		if err := ship.RegisterHit(c); err != nil {
			return "", nil, false, err
		}
		if ship.Sunk() {
			result = Coule
			sunk = ship
		} else {
			result = Touche
		}
	}

	if target.AllSunk() {
		g.State = Finished
		g.Winner = shooter.Name
		finished = true
	} else {
		g.TurnP1 = !byP1
	}

	return result, sunk, finished, nil
}

// Abandon marks the game abandoned with the opposite side as winner.
func (g *Game) Abandon(loserName string) {
	g.State = Abandoned
	if g.P1.Name == loserName {
		g.Winner = g.P2.Name
	} else {
		g.Winner = g.P1.Name
	}
}

// Opponent returns the other side's name given one player's name, or ""
// if name matches neither side.
func (g *Game) Opponent(name string) string {
	switch name {
	case g.P1.Name:
		return g.P2.Name
	case g.P2.Name:
		return g.P1.Name
	default:
		return ""
	}
}

// IsPlayer reports whether name is either side of this game, and if so
// whether it is the P1 side.
func (g *Game) IsPlayer(name string) (isP1 bool, ok bool) {
	switch name {
	case g.P1.Name:
		return true, true
	case g.P2.Name:
		return false, true
	default:
		return false, false
	}
}

// IsTurn reports whether it is currently name's turn to shoot.
func (g *Game) IsTurn(name string) bool {
	isP1, ok := g.IsPlayer(name)
	if !ok {
		return false
	}
	return isP1 == g.TurnP1
}
