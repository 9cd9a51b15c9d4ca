// Package model implements the Battleship board game's data and rules:
// ships, grids, players, and the authoritative Game state machine. It
// has no knowledge of the network protocol or concurrency model above
// it; every exported method here assumes the caller has already
// serialized access to the Game it mutates.
package model

import "fmt"

// Orientation is how a ship's footprint extends from its origin cell.
type Orientation string

const (
	Horizontal Orientation = "H"
	Vertical   Orientation = "V"
)

// Coord is a single grid cell addressed by column (X) and row (Y), per
// the wire convention: X is the column (0..N-1), Y is the row (0..N-1).
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Ship tracks one vessel's footprint and the cells that have been hit on
// it. Invariant: len(Hits) <= Length; every hit lies on the footprint.
type Ship struct {
	Name        string
	Length      int
	Origin      Coord
	Orientation Orientation
	Hits        map[Coord]bool
}

// NewShip constructs a ship with an empty hit set.
func NewShip(name string, length int, origin Coord, orientation Orientation) *Ship {
	return &Ship{
		Name:        name,
		Length:      length,
		Origin:      origin,
		Orientation: orientation,
		Hits:        make(map[Coord]bool),
	}
}

// Footprint returns every cell this ship occupies.
func (s *Ship) Footprint() []Coord {
	cells := make([]Coord, s.Length)
	for i := range s.Length {
		if s.Orientation == Horizontal {
			cells[i] = Coord{X: s.Origin.X + i, Y: s.Origin.Y}
		} else {
			cells[i] = Coord{X: s.Origin.X, Y: s.Origin.Y + i}
		}
	}
	return cells
}

// Occupies reports whether c lies on this ship's footprint.
func (s *Ship) Occupies(c Coord) bool {
	for _, fc := range s.Footprint() {
		if fc == c {
			return true
		}
	}
	return false
}

// RegisterHit records a hit at c. Returns an error if c is not on the
// ship's footprint — callers are expected to check Occupies first, this
// is a last-line invariant guard.
func (s *Ship) RegisterHit(c Coord) error {
	if !s.Occupies(c) {
		return fmt.Errorf("coord %+v is not on ship %q's footprint", c, s.Name)
	}
	s.Hits[c] = true
	return nil
}

// Sunk reports whether every footprint cell has been hit.
func (s *Ship) Sunk() bool {
	return len(s.Hits) == s.Length
}
