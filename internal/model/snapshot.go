package model

import "fmt"

// ShipSnapshot is one ship's serialized form.
type ShipSnapshot struct {
	Nom           string  `json:"nom"`
	Taille        int     `json:"taille"`
	X             int     `json:"x"`
	Y             int     `json:"y"`
	Orientation   string  `json:"orientation"`
	CasesTouchees []Coord `json:"cases_touchees"`
	Positionne    bool    `json:"positionne"`
}

// PlayerSnapshot is one side's serialized board state.
type PlayerSnapshot struct {
	Nom         string         `json:"nom"`
	Grille      [][]int        `json:"grille"`
	GrilleSuivi [][]int        `json:"grille_suivi"`
	Navires     []ShipSnapshot `json:"navires"`
}

// Snapshot is the full serialized form of a Game, sufficient to
// reconstruct it byte-identically.
type Snapshot struct {
	Joueur1     PlayerSnapshot `json:"joueur1"`
	Joueur2     PlayerSnapshot `json:"joueur2"`
	Etat        string         `json:"etat"`
	TourJoueur1 bool           `json:"tour_joueur1"`
	Gagnant     string         `json:"gagnant"`
}

func gridToInts(g *Grid) [][]int {
	out := make([][]int, g.Side)
	for y := range g.Cells {
		row := make([]int, g.Side)
		for x, cell := range g.Cells[y] {
			row[x] = int(cell)
		}
		out[y] = row
	}
	return out
}

func gridFromInts(rows [][]int) (*Grid, error) {
	side := len(rows)
	g := NewGrid(side)
	for y, row := range rows {
		if len(row) != side {
			return nil, fmt.Errorf("grid row %d has %d cells, want %d", y, len(row), side)
		}
		for x, v := range row {
			g.Cells[y][x] = CellState(v)
		}
	}
	return g, nil
}

func playerSnapshot(p *Player) PlayerSnapshot {
	ships := make([]ShipSnapshot, len(p.Ships))
	for i, s := range p.Ships {
		hits := make([]Coord, 0, len(s.Hits))
		for c := range s.Hits {
			hits = append(hits, c)
		}
		ships[i] = ShipSnapshot{
			Nom:           s.Name,
			Taille:        s.Length,
			X:             s.Origin.X,
			Y:             s.Origin.Y,
			Orientation:   string(s.Orientation),
			CasesTouchees: hits,
			Positionne:    true,
		}
	}
	return PlayerSnapshot{
		Nom:         p.Name,
		Grille:      gridToInts(p.Own),
		GrilleSuivi: gridToInts(p.Tracking),
		Navires:     ships,
	}
}

func playerFromSnapshot(ps PlayerSnapshot) (*Player, error) {
	own, err := gridFromInts(ps.Grille)
	if err != nil {
		return nil, fmt.Errorf("player %q own grid: %w", ps.Nom, err)
	}
	tracking, err := gridFromInts(ps.GrilleSuivi)
	if err != nil {
		return nil, fmt.Errorf("player %q tracking grid: %w", ps.Nom, err)
	}

	ships := make([]*Ship, 0, len(ps.Navires))
	for _, ss := range ps.Navires {
		if !ss.Positionne {
			continue
		}
		ship := NewShip(ss.Nom, ss.Taille, Coord{X: ss.X, Y: ss.Y}, Orientation(ss.Orientation))
		for _, c := range ss.CasesTouchees {
			ship.Hits[c] = true
		}
		ships = append(ships, ship)
	}

	return &Player{
		Name:     ps.Nom,
		Own:      own,
		Tracking: tracking,
		Ships:    ships,
	}, nil
}

// Serialize produces a Snapshot sufficient to reconstruct g.
func (g *Game) Serialize() Snapshot {
	return Snapshot{
		Joueur1:     playerSnapshot(g.P1),
		Joueur2:     playerSnapshot(g.P2),
		Etat:        string(g.State),
		TourJoueur1: g.TurnP1,
		Gagnant:     g.Winner,
	}
}

// DeserializeGame reconstructs a Game from a Snapshot. id is the registry
// key to assign (snapshots do not carry one); fleet is the fleet
// definition configured for this server, used if the game needs
// further random placement (it should not, for a valid snapshot).
func DeserializeGame(id string, snap Snapshot, fleet []ShipClass) (*Game, error) {
	p1, err := playerFromSnapshot(snap.Joueur1)
	if err != nil {
		return nil, err
	}
	p2, err := playerFromSnapshot(snap.Joueur2)
	if err != nil {
		return nil, err
	}
	return &Game{
		ID:     id,
		P1:     p1,
		P2:     p2,
		State:  State(snap.Etat),
		TurnP1: snap.TourJoueur1,
		Winner: snap.Gagnant,
		Fleet:  fleet,
	}, nil
}
