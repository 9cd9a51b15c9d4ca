package model

import "fmt"

// CellState is the visible state of one grid cell.
type CellState int

const (
	Water CellState = iota
	ShipCell
	Hit
	Miss
)

func (c CellState) String() string {
	switch c {
	case Water:
		return "water"
	case ShipCell:
		return "ship"
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "unknown"
	}
}

// Grid is a square board of side N. Indexing is grid[y][x]: y is the row,
// x is the column, matching the wire protocol's (x,y) convention.
type Grid struct {
	Side  int
	Cells [][]CellState
}

// NewGrid returns a side x side grid with every cell set to Water.
func NewGrid(side int) *Grid {
	cells := make([][]CellState, side)
	for y := range cells {
		cells[y] = make([]CellState, side)
	}
	return &Grid{Side: side, Cells: cells}
}

// InBounds reports whether c lies within the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Side && c.Y >= 0 && c.Y < g.Side
}

// At returns the state of cell c. Panics if c is out of bounds — callers
// must check InBounds first.
func (g *Grid) At(c Coord) CellState {
	return g.Cells[c.Y][c.X]
}

// Set sets the state of cell c.
func (g *Grid) Set(c Coord, s CellState) {
	g.Cells[c.Y][c.X] = s
}

// PlaceShip marks a ship's footprint as ShipCell, failing if any footprint
// cell is out of bounds or already occupied by another ship.
func (g *Grid) PlaceShip(s *Ship) error {
	for _, c := range s.Footprint() {
		if !g.InBounds(c) {
			return fmt.Errorf("ship %q footprint cell %+v out of bounds", s.Name, c)
		}
		if g.At(c) == ShipCell {
			return fmt.Errorf("ship %q overlaps an existing ship at %+v", s.Name, c)
		}
	}
	for _, c := range s.Footprint() {
		g.Set(c, ShipCell)
	}
	return nil
}
