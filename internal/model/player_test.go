package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaceFleet_RejectsOverlap(t *testing.T) {
	p := NewPlayer("alice", 10)
	fleet := []ShipClass{
		{Name: "A", Length: 2},
		{Name: "B", Length: 2},
	}
	err := p.PlaceFleet([]Placement{
		{Name: "A", Length: 2, X: 0, Y: 0, Orientation: Horizontal},
		{Name: "B", Length: 2, X: 1, Y: 0, Orientation: Horizontal},
	}, fleet)
	require.Error(t, err)
	require.Nil(t, p.Ships, "a rejected placement must not mutate the player's board")
}

func TestPlaceFleet_RejectsOutOfBounds(t *testing.T) {
	p := NewPlayer("alice", 10)
	fleet := []ShipClass{{Name: "A", Length: 5}}
	err := p.PlaceFleet([]Placement{
		{Name: "A", Length: 5, X: 8, Y: 0, Orientation: Horizontal},
	}, fleet)
	require.Error(t, err)
}

func TestPlaceFleet_RejectsWrongCount(t *testing.T) {
	p := NewPlayer("alice", 10)
	fleet := []ShipClass{{Name: "A", Length: 2}, {Name: "B", Length: 3}}
	err := p.PlaceFleet([]Placement{
		{Name: "A", Length: 2, X: 0, Y: 0, Orientation: Horizontal},
	}, fleet)
	require.Error(t, err)
}

func TestPlaceFleet_Valid(t *testing.T) {
	p := NewPlayer("alice", 10)
	fleet := []ShipClass{{Name: "A", Length: 3}}
	err := p.PlaceFleet([]Placement{
		{Name: "A", Length: 3, X: 2, Y: 2, Orientation: Vertical},
	}, fleet)
	require.NoError(t, err)
	require.Len(t, p.Ships, 1)
	require.Equal(t, ShipCell, p.Own.At(Coord{X: 2, Y: 2}))
	require.Equal(t, ShipCell, p.Own.At(Coord{X: 2, Y: 4}))
}

func TestRandomPlace_FillsFleetWithoutOverlap(t *testing.T) {
	fleet := []ShipClass{
		{Name: "Porte-avions", Length: 5},
		{Name: "Cuirasse", Length: 4},
		{Name: "Croiseur", Length: 3},
		{Name: "Sous-marin", Length: 3},
		{Name: "Torpilleur", Length: 2},
	}
	p := NewPlayer("ai", 10)
	require.NoError(t, p.RandomPlace(fleet))
	require.Len(t, p.Ships, len(fleet))

	total := 0
	for _, s := range p.Ships {
		total += s.Length
	}
	shipCells := 0
	for _, row := range p.Own.Cells {
		for _, cell := range row {
			if cell == ShipCell {
				shipCells++
			}
		}
	}
	require.Equal(t, total, shipCells, "total ship cells must equal sum of ship lengths")
}

func TestRandomPlace_NoopAfterManualPlacement(t *testing.T) {
	fleet := []ShipClass{{Name: "A", Length: 2}}
	p := NewPlayer("alice", 10)
	require.NoError(t, p.PlaceFleet([]Placement{
		{Name: "A", Length: 2, X: 0, Y: 0, Orientation: Horizontal},
	}, fleet))

	require.NoError(t, p.RandomPlace(fleet))
	require.Len(t, p.Ships, 1)
	require.Equal(t, Coord{X: 0, Y: 0}, p.Ships[0].Origin, "random placement must not override a manual one")
}

func TestAllSunk(t *testing.T) {
	p := NewPlayer("alice", 10)
	fleet := []ShipClass{{Name: "A", Length: 2}}
	require.NoError(t, p.PlaceFleet([]Placement{
		{Name: "A", Length: 2, X: 0, Y: 0, Orientation: Horizontal},
	}, fleet))
	require.False(t, p.AllSunk())

	require.NoError(t, p.Ships[0].RegisterHit(Coord{X: 0, Y: 0}))
	require.False(t, p.AllSunk())
	require.NoError(t, p.Ships[0].RegisterHit(Coord{X: 1, Y: 0}))
	require.True(t, p.AllSunk())
}
