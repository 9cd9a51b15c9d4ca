package model

import (
	"fmt"
	"math/rand/v2"
)

// ShipClass is one (name, length) fleet entry a player must place before
// play begins.
type ShipClass struct {
	Name   string
	Length int
}

// Placement is one ship placement request, as decoded from a
// PLACEMENT_NAVIRES message.
type Placement struct {
	Name        string
	Length      int
	X           int
	Y           int
	Orientation Orientation
}

// Player holds one side's board state: their own grid (where opponent
// shots land), their tracking grid (recording their own shots at the
// opponent), and their fleet.
type Player struct {
	Name     string
	Own      *Grid
	Tracking *Grid
	Ships    []*Ship
}

// NewPlayer returns an unplaced player on a fresh side x side board.
func NewPlayer(name string, side int) *Player {
	return &Player{
		Name:     name,
		Own:      NewGrid(side),
		Tracking: NewGrid(side),
	}
}

// PlaceFleet validates and applies a full set of placements against the
// required fleet definition. Fails closed: on any error, the player's
// board is left exactly as it was before the call, so a rejected
// placement can simply be retried.
func (p *Player) PlaceFleet(placements []Placement, fleet []ShipClass) error {
	if len(placements) != len(fleet) {
		return fmt.Errorf("expected %d ship placements, got %d", len(fleet), len(placements))
	}

	required := make(map[string]int, len(fleet))
	for _, sc := range fleet {
		required[sc.Name] = sc.Length
	}

	trial := NewGrid(p.Own.Side)
	ships := make([]*Ship, 0, len(placements))
	seen := make(map[string]bool, len(placements))

	for _, pl := range placements {
		length, ok := required[pl.Name]
		if !ok {
			return fmt.Errorf("unknown ship %q", pl.Name)
		}
		if seen[pl.Name] {
			return fmt.Errorf("ship %q placed twice", pl.Name)
		}
		if pl.Length != length {
			return fmt.Errorf("ship %q expected length %d, got %d", pl.Name, length, pl.Length)
		}
		if pl.Orientation != Horizontal && pl.Orientation != Vertical {
			return fmt.Errorf("ship %q has invalid orientation %q", pl.Name, pl.Orientation)
		}
		seen[pl.Name] = true

		ship := NewShip(pl.Name, pl.Length, Coord{X: pl.X, Y: pl.Y}, pl.Orientation)
		if err := trial.PlaceShip(ship); err != nil {
			return err
		}
		ships = append(ships, ship)
	}

	p.Own = trial
	p.Ships = ships
	return nil
}

// RandomPlace places every ship in fleet onto a fresh board at random,
// non-overlapping, in-bounds positions. Used for the AI opponent and to
// fill in any fleet a client left unplaced when Start() is called; a
// no-op for a player whose ships are already down.
//
// Up to 1000 attempts per ship are made. Exhausting them should never
// happen for the default fleet on a 10x10 grid, so it surfaces as an
// error rather than being retried.
func (p *Player) RandomPlace(fleet []ShipClass) error {
	if len(p.Ships) > 0 {
		return nil
	}

	grid := NewGrid(p.Own.Side)
	ships := make([]*Ship, 0, len(fleet))

	for _, sc := range fleet {
		placed := false
		for attempt := 0; attempt < 1000; attempt++ {
			orientation := Horizontal
			if rand.IntN(2) == 1 {
				orientation = Vertical
			}
			origin := Coord{X: rand.IntN(grid.Side), Y: rand.IntN(grid.Side)}
			ship := NewShip(sc.Name, sc.Length, origin, orientation)
			if err := grid.PlaceShip(ship); err == nil {
				ships = append(ships, ship)
				placed = true
				break
			}
		}
		if !placed {
			return fmt.Errorf("random placement: failed to place %q after 1000 attempts", sc.Name)
		}
	}

	p.Own = grid
	p.Ships = ships
	return nil
}

// AllSunk reports whether every ship this player owns has been sunk.
func (p *Player) AllSunk() bool {
	for _, s := range p.Ships {
		if !s.Sunk() {
			return false
		}
	}
	return len(p.Ships) > 0
}

// ShipAt returns the ship occupying c, or nil if none does.
func (p *Player) ShipAt(c Coord) *Ship {
	for _, s := range p.Ships {
		if s.Occupies(c) {
			return s
		}
	}
	return nil
}
