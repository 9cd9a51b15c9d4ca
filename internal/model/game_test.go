package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testFleet() []ShipClass {
	return []ShipClass{{Name: "Torpilleur", Length: 2}}
}

func placedPlayer(t *testing.T, name string, origin Coord, o Orientation) *Player {
	t.Helper()
	p := NewPlayer(name, 10)
	err := p.PlaceFleet([]Placement{
		{Name: "Torpilleur", Length: 2, X: origin.X, Y: origin.Y, Orientation: o},
	}, testFleet())
	require.NoError(t, err)
	return p
}

func TestApplyShot_HitSinkAndFinish(t *testing.T) {
	p1 := placedPlayer(t, "alice", Coord{0, 0}, Horizontal)
	p2 := placedPlayer(t, "bob", Coord{0, 0}, Horizontal)
	g := NewGame("g1", p1, p2, testFleet())
	require.NoError(t, g.Start())
	// Start() only places unplaced ships; both sides already placed, so
	// p1/p2 boards are unchanged.

	result, sunk, finished, err := g.ApplyShot(true, 0, 0)
	require.NoError(t, err)
	require.Equal(t, Touche, result)
	require.Nil(t, sunk)
	require.False(t, finished)
	require.False(t, g.TurnP1, "turn must flip after a non-duplicate shot")

	result, sunk, finished, err = g.ApplyShot(false, 1, 0)
	require.NoError(t, err)
	require.Equal(t, Touche, result, "p2 hitting the second cell of p1's ship")
	require.False(t, finished)

	result, sunk, finished, err = g.ApplyShot(true, 1, 0)
	require.NoError(t, err)
	require.Equal(t, Coule, result)
	require.NotNil(t, sunk)
	require.Equal(t, "Torpilleur", sunk.Name)
	require.True(t, finished)
	require.Equal(t, Finished, g.State)
	require.Equal(t, "alice", g.Winner)
}

func TestApplyShot_DuplicateIsIdempotent(t *testing.T) {
	p1 := placedPlayer(t, "alice", Coord{5, 5}, Horizontal)
	p2 := placedPlayer(t, "bob", Coord{5, 5}, Horizontal)
	g := NewGame("g1", p1, p2, testFleet())
	require.NoError(t, g.Start())

	result, _, _, err := g.ApplyShot(true, 3, 3)
	require.NoError(t, err)
	require.Equal(t, Rate, result)
	require.False(t, g.TurnP1)

	before := g.Serialize()

	result, _, finished, err := g.ApplyShot(true, 3, 3)
	require.NoError(t, err)
	require.Equal(t, DejaTire, result)
	require.False(t, finished)
	require.True(t, g.TurnP1 == false, "turn must not flip on a duplicate shot")

	after := g.Serialize()
	require.Equal(t, before, after, "duplicate shot must not mutate any state")
}

func TestApplyShot_OutOfBoundsIsRejected(t *testing.T) {
	p1 := placedPlayer(t, "alice", Coord{0, 0}, Horizontal)
	p2 := placedPlayer(t, "bob", Coord{0, 0}, Horizontal)
	g := NewGame("g1", p1, p2, testFleet())
	require.NoError(t, g.Start())

	_, _, _, err := g.ApplyShot(true, -1, 0)
	require.ErrorIs(t, err, ErrOutOfBounds)
	require.True(t, g.TurnP1, "a rejected shot must not flip the turn")
}

func TestApplyShot_RejectsWhenNotInProgress(t *testing.T) {
	p1 := placedPlayer(t, "alice", Coord{0, 0}, Horizontal)
	p2 := placedPlayer(t, "bob", Coord{0, 0}, Horizontal)
	g := NewGame("g1", p1, p2, testFleet())

	_, _, _, err := g.ApplyShot(true, 0, 0)
	require.True(t, errors.Is(err, ErrNotInProgress))
}

func TestSerializeRoundTrip(t *testing.T) {
	p1 := placedPlayer(t, "alice", Coord{0, 0}, Horizontal)
	p2 := placedPlayer(t, "bob", Coord{4, 4}, Vertical)
	g := NewGame("g1", p1, p2, testFleet())
	require.NoError(t, g.Start())
	_, _, _, err := g.ApplyShot(true, 4, 4)
	require.NoError(t, err)

	snap := g.Serialize()
	restored, err := DeserializeGame(g.ID, snap, testFleet())
	require.NoError(t, err)
	require.Equal(t, snap, restored.Serialize())
}

func TestAbandon(t *testing.T) {
	p1 := placedPlayer(t, "alice", Coord{0, 0}, Horizontal)
	p2 := placedPlayer(t, "bob", Coord{0, 0}, Horizontal)
	g := NewGame("g1", p1, p2, testFleet())
	require.NoError(t, g.Start())

	g.Abandon("bob")
	require.Equal(t, Abandoned, g.State)
	require.Equal(t, "alice", g.Winner)
}
