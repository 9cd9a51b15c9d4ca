package session

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/battleshipd/server/internal/model"
	"github.com/battleshipd/server/internal/wire"
)

type connexionPayload struct {
	Name string `json:"name"`
}

type choixModePayload struct {
	Mode string `json:"mode"`
}

type shipPlacementPayload struct {
	Name        string `json:"name"`
	Size        int    `json:"size"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Orientation string `json:"orientation"`
}

type placementNaviresPayload struct {
	Ships []shipPlacementPayload `json:"ships"`
}

type tirPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type chatPayload struct {
	Message string `json:"message"`
}

// dispatch routes one inbound envelope according to the client's current
// phase. A returned error ends the connection; handlers that reject a
// malformed or out-of-phase message close it, while domain rejections
// (bad placement, wrong turn, wrong mode) reply ERREUR and return nil so
// the session keeps running.
func dispatch(srv *Server, c *Client, env wire.Envelope) error {
	switch c.Phase() {
	case PhaseHandshake:
		return handleHandshake(srv, c, env)
	case PhaseResumePrompt:
		return handleResumePrompt(srv, c, env)
	case PhaseModeSelect:
		return handleModeSelect(srv, c, env)
	case PhasePlacement:
		return handlePlacement(srv, c, env)
	case PhasePlaying:
		return handlePlaying(srv, c, env)
	case PhaseAttendingOpponent:
		return errProtocol(c, "unexpected message while waiting for an opponent")
	default:
		return errProtocol(c, "connection is closed")
	}
}

func errProtocol(c *Client, message string) error {
	env, _ := wire.NewEnvelope(wire.TypeErreur, map[string]string{"message": message})
	c.Reply(env)
	return fmt.Errorf("protocol violation: %s", message)
}

func errDomain(c *Client, message string) error {
	env, _ := wire.NewEnvelope(wire.TypeErreur, map[string]string{"message": message})
	return c.Reply(env)
}

func handleHandshake(srv *Server, c *Client, env wire.Envelope) error {
	if env.Type != wire.TypeConnexion {
		return errProtocol(c, "expected CONNEXION")
	}
	var p connexionPayload
	if err := env.Decode(&p); err != nil || p.Name == "" {
		return errProtocol(c, "malformed CONNEXION")
	}

	c.SetName(p.Name)
	srv.register(p.Name, c)

	if srv.store.HasSavedGame(p.Name) {
		okEnv, _ := wire.NewEnvelope(wire.TypeConnexionOK, map[string]bool{"reprise": true})
		if err := c.Reply(okEnv); err != nil {
			return err
		}
		c.SetPhase(PhaseResumePrompt)
		return nil
	}

	okEnv, _ := wire.NewEnvelope(wire.TypeConnexionOK, nil)
	if err := c.Reply(okEnv); err != nil {
		return err
	}
	c.SetPhase(PhaseModeSelect)
	return nil
}

func handleResumePrompt(srv *Server, c *Client, env wire.Envelope) error {
	switch env.Type {
	case wire.TypeReprendrePartie:
		return resumeGame(srv, c)
	case wire.TypeNouvellePartie:
		if err := srv.store.DeleteSavedGame(c.Name()); err != nil {
			slog.Error("deleting saved game", "name", c.Name(), "err", err)
		}
		okEnv, _ := wire.NewEnvelope(wire.TypeConnexionOK, nil)
		if err := c.Reply(okEnv); err != nil {
			return err
		}
		newEnv, _ := wire.NewEnvelope(wire.TypeNouvellePartie, nil)
		if err := c.Reply(newEnv); err != nil {
			return err
		}
		c.SetPhase(PhaseModeSelect)
		return nil
	default:
		return errProtocol(c, "expected REPRENDRE_PARTIE or NOUVELLE_PARTIE")
	}
}

// resumeGame handles REPRENDRE_PARTIE: the opponent recorded in the
// snapshot decides whether this becomes a local vs_ai game
// (reconstructed immediately) or a vs_player one (the session waits in
// attending_opponent for the human opponent's own resume).
func resumeGame(srv *Server, c *Client) error {
	name := c.Name()
	snap, err := srv.store.LoadGame(name)
	if err != nil {
		return errDomain(c, "no saved game")
	}

	amP1 := snap.Joueur1.Nom == name
	mySnap, opponentName := snap.Joueur1, snap.Joueur2.Nom
	if !amP1 {
		mySnap, opponentName = snap.Joueur2, snap.Joueur1.Nom
	}

	if opponentName == srv.cfg.AIName {
		game, err := model.DeserializeGame("local-"+name, snap, srv.fleet)
		if err != nil {
			return errDomain(c, "saved game is corrupt")
		}
		game.State = model.InProgress
		c.SetMode(ModeVsAI)
		c.SetGame(game)

		reprise, _ := wire.NewEnvelope(wire.TypePartieReprise, map[string]any{
			"joueur_etat":    mySnap,
			"est_mon_tour":   game.TurnP1 == amP1,
			"nom_adversaire": opponentName,
		})
		if err := c.Reply(reprise); err != nil {
			return err
		}
		c.SetPhase(PhasePlaying)
		if !game.TurnP1 {
			return runAICounterShot(srv, c, game)
		}
		return nil
	}

	c.SetMode(ModeVsPlayer)
	matched := srv.arb.ResumeEnqueue(name, opponentName, snap)

	reprise, _ := wire.NewEnvelope(wire.TypePartieReprise, map[string]any{
		"joueur_etat":    mySnap,
		"est_mon_tour":   snap.TourJoueur1 == amP1,
		"nom_adversaire": opponentName,
	})
	if err := c.Reply(reprise); err != nil {
		return err
	}

	// If the pairing completed inline, the Arbiter already pushed
	// DEBUT_PARTIE/turn notifications and this client's phase is already
	// playing — don't stomp it back to attending_opponent.
	if !matched {
		c.SetPhase(PhaseAttendingOpponent)
	}
	return nil
}

func handleModeSelect(srv *Server, c *Client, env wire.Envelope) error {
	if env.Type != wire.TypeChoixMode {
		return errProtocol(c, "expected CHOIX_MODE")
	}
	var p choixModePayload
	if err := env.Decode(&p); err != nil {
		return errProtocol(c, "malformed CHOIX_MODE")
	}

	switch p.Mode {
	case "VS_SERVEUR":
		name := c.Name()
		game := model.NewGame("local-"+name, model.NewPlayer(name, srv.cfg.GridSize), model.NewPlayer(srv.cfg.AIName, srv.cfg.GridSize), srv.fleet)
		game.TurnP1 = rand.IntN(2) == 0
		c.SetMode(ModeVsAI)
		c.SetGame(game)

		debut, _ := wire.NewEnvelope(wire.TypeDebutPartie, map[string]string{"mode": "VS_SERVEUR"})
		if err := c.Reply(debut); err != nil {
			return err
		}
		c.SetPhase(PhasePlacement)
		return nil

	case "VS_JOUEUR":
		c.SetMode(ModeVsPlayer)
		matched := srv.arb.Enqueue(c.Name())
		if !matched {
			wait, _ := wire.NewEnvelope(wire.TypeAttenteAdversaire, nil)
			if err := c.Reply(wait); err != nil {
				return err
			}
			c.SetPhase(PhaseAttendingOpponent)
		}
		// If matched, the Arbiter already pushed ADVERSAIRE_TROUVE to both
		// sides, which moved this client's phase to placement reactively.
		return nil

	default:
		return errDomain(c, fmt.Sprintf("unknown mode %q", p.Mode))
	}
}

func handlePlacement(srv *Server, c *Client, env wire.Envelope) error {
	if env.Type != wire.TypePlacementNavires {
		return errProtocol(c, "expected PLACEMENT_NAVIRES")
	}
	var p placementNaviresPayload
	if err := env.Decode(&p); err != nil {
		return errProtocol(c, "malformed PLACEMENT_NAVIRES")
	}

	placements := make([]model.Placement, len(p.Ships))
	for i, s := range p.Ships {
		placements[i] = model.Placement{
			Name:        s.Name,
			Length:      s.Size,
			X:           s.X,
			Y:           s.Y,
			Orientation: model.Orientation(s.Orientation),
		}
	}

	switch c.Mode() {
	case ModeVsAI:
		game := c.Game()
		if err := game.P1.PlaceFleet(placements, srv.fleet); err != nil {
			return errDomain(c, err.Error())
		}
		if err := game.Start(); err != nil {
			return errDomain(c, err.Error())
		}

		ok, _ := wire.NewEnvelope(wire.TypePlacementOK, nil)
		if err := c.Reply(ok); err != nil {
			return err
		}

		turnType := wire.TypeTourAdversaire
		if game.TurnP1 {
			turnType = wire.TypeVotreTour
		}
		turnEnv, _ := wire.NewEnvelope(turnType, nil)
		if err := c.Reply(turnEnv); err != nil {
			return err
		}
		c.SetPhase(PhasePlaying)

		// When the opening turn lands on the AI side, the AI fires right
		// away: the client would otherwise sit on TOUR_ADVERSAIRE forever,
		// since the AI only ever moves in response to something.
		if !game.TurnP1 {
			return runAICounterShot(srv, c, game)
		}
		return nil

	case ModeVsPlayer:
		// Validate on a scratch board first so PLACEMENT_OK goes out before
		// the Arbiter, on the second side's placement, pushes DEBUT_PARTIE.
		if err := model.NewPlayer(c.Name(), srv.cfg.GridSize).PlaceFleet(placements, srv.fleet); err != nil {
			return errDomain(c, err.Error())
		}
		ok, _ := wire.NewEnvelope(wire.TypePlacementOK, nil)
		if err := c.Reply(ok); err != nil {
			return err
		}
		if err := srv.arb.PlaceFleet(c.Name(), placements); err != nil {
			return errDomain(c, err.Error())
		}
		return nil

	default:
		return errProtocol(c, "no game mode selected")
	}
}

func handlePlaying(srv *Server, c *Client, env wire.Envelope) error {
	switch env.Type {
	case wire.TypeTir:
		return handleShot(srv, c, env)

	case wire.TypeChat:
		var p chatPayload
		if err := env.Decode(&p); err != nil {
			return errProtocol(c, "malformed CHAT")
		}
		if c.Mode() == ModeVsPlayer {
			if err := srv.arb.RelayChat(c.Name(), p.Message); err != nil {
				slog.Debug("relaying chat", "name", c.Name(), "err", err)
			}
		}
		return nil

	case wire.TypeSauvegarderPartie:
		return handleSave(srv, c)

	case wire.TypeAbandon:
		return handleAbandonMsg(srv, c)

	case wire.TypeDeconnexion:
		c.SetPhase(PhaseClosed)
		return fmt.Errorf("client requested disconnection")

	default:
		return errProtocol(c, "unexpected message while playing")
	}
}

func handleShot(srv *Server, c *Client, env wire.Envelope) error {
	var p tirPayload
	if err := env.Decode(&p); err != nil {
		return errProtocol(c, "malformed TIR")
	}

	if c.Mode() == ModeVsPlayer {
		if err := srv.arb.HandleShot(c.Name(), p.X, p.Y); err != nil {
			slog.Debug("shot rejected", "name", c.Name(), "err", err)
		}
		return nil
	}

	game := c.Game()
	result, sunk, finished, err := game.ApplyShot(true, p.X, p.Y)
	if err != nil {
		return errDomain(c, err.Error())
	}

	payload := map[string]any{"resultat": string(result), "x": p.X, "y": p.Y}
	if sunk != nil {
		payload["bateau_coule"] = sunk.Name
	}
	respEnv, _ := wire.NewEnvelope(wire.TypeReponseTir, payload)
	if err := c.Reply(respEnv); err != nil {
		return err
	}

	if finished {
		return finishLocalGame(c, game)
	}
	if result == model.DejaTire {
		return nil
	}

	return runAICounterShot(srv, c, game)
}

// runAICounterShot picks a random untried cell on the AI's tracking grid
// and applies it. Purely random targeting, intentionally weak.
func runAICounterShot(srv *Server, c *Client, game *model.Game) error {
	x, y, ok := pickUntriedCell(game.P2.Tracking)
	if !ok {
		return errDomain(c, "AI has no untried cells left")
	}

	result, sunk, finished, err := game.ApplyShot(false, x, y)
	if err != nil {
		return fmt.Errorf("AI shot: %w", err)
	}

	payload := map[string]any{"resultat": string(result), "x": x, "y": y, "adversaire": srv.cfg.AIName}
	if sunk != nil {
		payload["bateau_coule"] = sunk.Name
	}
	recvEnv, _ := wire.NewEnvelope(wire.TypeReponseTirRecu, payload)
	if err := c.Reply(recvEnv); err != nil {
		return err
	}

	if finished {
		return finishLocalGame(c, game)
	}

	turnEnv, _ := wire.NewEnvelope(wire.TypeVotreTour, nil)
	return c.Reply(turnEnv)
}

func finishLocalGame(c *Client, game *model.Game) error {
	fin, _ := wire.NewEnvelope(wire.TypeFinPartie, map[string]string{"gagnant": game.Winner})
	if err := c.Reply(fin); err != nil {
		return err
	}
	c.SetPhase(PhaseClosed)
	return fmt.Errorf("game finished")
}

func pickUntriedCell(tracking *model.Grid) (x, y int, ok bool) {
	for attempt := 0; attempt < 1000; attempt++ {
		cx, cy := rand.IntN(tracking.Side), rand.IntN(tracking.Side)
		if tracking.At(model.Coord{X: cx, Y: cy}) == model.Water {
			return cx, cy, true
		}
	}
	return 0, 0, false
}

func handleSave(srv *Server, c *Client) error {
	var snap model.Snapshot
	switch c.Mode() {
	case ModeVsAI:
		snap = c.Game().Serialize()
	case ModeVsPlayer:
		s, ok := srv.arb.Snapshot(c.Name())
		if !ok {
			return errDomain(c, "no active game to save")
		}
		snap = s
	default:
		return errDomain(c, "no active game to save")
	}

	if err := srv.store.SaveGame(c.Name(), snap); err != nil {
		slog.Error("saving game", "name", c.Name(), "err", err)
		return errDomain(c, "failed to save game")
	}
	return nil
}

func handleAbandonMsg(srv *Server, c *Client) error {
	name := c.Name()
	switch c.Mode() {
	case ModeVsAI:
		c.Game().Abandon(name)
	case ModeVsPlayer:
		if err := srv.arb.HandleAbandon(name); err != nil {
			slog.Debug("handling abandon", "name", name, "err", err)
		}
	}

	if err := srv.store.DeleteSavedGame(name); err != nil {
		slog.Error("deleting saved game on abandon", "name", name, "err", err)
	}

	c.SetPhase(PhaseClosed)
	return fmt.Errorf("client abandoned")
}
