// Package arbiter implements the game arbiter: the process-wide registry
// of active PvP games, the matchmaking FIFO, the placement-ready ledger,
// and authoritative shot/chat/disconnect handling. It reaches sessions
// only through the narrow SessionNotifier interface, never through
// concrete session types.
//
// Locking: a single mutex guards the matchmaking queue, the game
// registry, the player index, and the placement-ready ledger, and is
// held across the whole shot-resolution critical section including the
// notification writes, so neither client can observe the new turn-owner
// before the shot's result. Two games share no state, so one coarse
// mutex avoids the lock-ordering hazards a finer-grained scheme would
// introduce without buying anything at this scale.
package arbiter

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/battleshipd/server/internal/model"
	"github.com/battleshipd/server/internal/wire"
)

// Arbiter owns every in-flight PvP game and the matchmaking queue feeding it.
type Arbiter struct {
	mu sync.Mutex

	gridSize int
	fleet    []model.ShipClass

	notifier SessionNotifier

	queue         []string          // FIFO of player names awaiting a PvP peer
	resumeWaiting map[string]string // player name -> expected opponent name, for resume-pending pairing

	games      map[string]*model.Game // game id -> game
	playerGame map[string]string      // player name -> game id
	ready      map[string]map[string]bool

	nextID int
}

// New constructs an Arbiter for the given grid size and fleet definition.
// Call SetNotifier before any matchmaking traffic arrives — it is split
// from New because the notifier (the session server) typically needs the
// Arbiter to already exist at construction time.
func New(gridSize int, fleet []model.ShipClass) *Arbiter {
	return &Arbiter{
		gridSize:      gridSize,
		fleet:         fleet,
		resumeWaiting: make(map[string]string),
		games:         make(map[string]*model.Game),
		playerGame:    make(map[string]string),
		ready:         make(map[string]map[string]bool),
	}
}

// SetNotifier wires the session-facing notifier.
func (a *Arbiter) SetNotifier(n SessionNotifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifier = n
}

// send delivers env to name and, when the write fails, treats the
// session as gone: its connection is closed and the disconnection path
// runs inline, so the surviving opponent learns of the abandon within
// the same critical section. Caller must hold a.mu.
func (a *Arbiter) send(name string, env wire.Envelope) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Send(name, env); err != nil {
		slog.Error("arbiter: failed to notify session", "name", name, "type", env.Type, "err", err)
		a.notifier.Close(name)
		a.disconnectLocked(name)
	}
}

// liveLocked reports whether game id is still registered. Notification
// sequences re-check it between writes: a failed write tears the game
// down, and the remaining notifications must not fire after that.
// Caller must hold a.mu.
func (a *Arbiter) liveLocked(id string) bool {
	_, ok := a.games[id]
	return ok
}

func (a *Arbiter) nextGameID() string {
	a.nextID++
	return "g" + strconv.Itoa(a.nextID)
}

// Enqueue adds name to the matchmaking FIFO. If the queue already holds
// a different player, that player is popped and paired with name into a
// fresh game; both sessions are notified ADVERSAIRE_TROUVE and matched
// is true. Otherwise name is appended and matched is false; the caller
// (the session state machine) is responsible for sending
// ATTENTE_ADVERSAIRE in that case. A session that triggers an immediate
// match never sees ATTENTE_ADVERSAIRE.
func (a *Arbiter) Enqueue(name string) (matched bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.queue) > 0 && a.queue[0] != name {
		opponent := a.queue[0]
		a.queue = a.queue[1:]
		a.pairLocked(opponent, name)
		return true
	}

	a.queue = append(a.queue, name)
	return false
}

// pairLocked creates a fresh pending game between p1 and p2 and notifies
// both. Caller must hold a.mu.
func (a *Arbiter) pairLocked(p1, p2 string) {
	id := a.nextGameID()
	game := model.NewGame(id, model.NewPlayer(p1, a.gridSize), model.NewPlayer(p2, a.gridSize), a.fleet)
	a.games[id] = game
	a.playerGame[p1] = id
	a.playerGame[p2] = id
	a.ready[id] = make(map[string]bool)

	env1, _ := wire.NewEnvelope(wire.TypeAdversaireTrouve, map[string]string{"adversaire": p2})
	env2, _ := wire.NewEnvelope(wire.TypeAdversaireTrouve, map[string]string{"adversaire": p1})
	a.send(p1, env1)
	if !a.liveLocked(id) {
		return
	}
	a.send(p2, env2)
}

// ResumeEnqueue registers name as waiting to resume a saved PvP game
// against expectedOpponent, using snap as the authoritative board state
// if this call completes the pairing. Resume pairing only matches the
// specific expected opponent, never a stranger from the fresh-game FIFO.
// Returns matched=true if expectedOpponent was already waiting on name.
func (a *Arbiter) ResumeEnqueue(name, expectedOpponent string, snap model.Snapshot) (matched bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resumeWaiting[expectedOpponent] == name {
		delete(a.resumeWaiting, expectedOpponent)
		a.resumeGameLocked(snap)
		return true
	}

	a.resumeWaiting[name] = expectedOpponent
	return false
}

func (a *Arbiter) resumeGameLocked(snap model.Snapshot) {
	id := a.nextGameID()
	game, err := model.DeserializeGame(id, snap, a.fleet)
	if err != nil {
		slog.Error("arbiter: failed to reconstruct resumed game", "err", err)
		return
	}
	game.State = model.InProgress

	a.games[id] = game
	a.playerGame[game.P1.Name] = id
	a.playerGame[game.P2.Name] = id
	a.ready[id] = map[string]bool{game.P1.Name: true, game.P2.Name: true}

	env1, _ := wire.NewEnvelope(wire.TypeDebutPartie, map[string]string{"mode": "VS_JOUEUR", "adversaire": game.P2.Name})
	env2, _ := wire.NewEnvelope(wire.TypeDebutPartie, map[string]string{"mode": "VS_JOUEUR", "adversaire": game.P1.Name})
	a.send(game.P1.Name, env1)
	if !a.liveLocked(id) {
		return
	}
	a.send(game.P2.Name, env2)
	if !a.liveLocked(id) {
		return
	}

	a.notifyTurnLocked(game)
}

// PlaceFleet validates and applies name's ship placements against the
// shared Game it is currently in, then marks this side ready exactly as
// MarkReady does. Sessions never mutate shared Game state directly;
// this is the one arbiter-mediated path for doing so.
func (a *Arbiter) PlaceFleet(name string, placements []model.Placement) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.playerGame[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoGame, name)
	}
	game := a.games[id]

	isP1, _ := game.IsPlayer(name)
	player := game.P2
	if isP1 {
		player = game.P1
	}

	if err := player.PlaceFleet(placements, a.fleet); err != nil {
		return err
	}

	return a.markReadyLocked(id, game, name)
}

// MarkReady records that name has finished placement for the game it is
// currently in. Once both sides are ready, the game starts.
func (a *Arbiter) MarkReady(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.playerGame[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoGame, name)
	}
	game := a.games[id]

	return a.markReadyLocked(id, game, name)
}

// markReadyLocked sets name's ready flag and, once both sides are ready,
// starts the game and notifies both sessions. Caller must hold a.mu.
func (a *Arbiter) markReadyLocked(id string, game *model.Game, name string) error {
	a.ready[id][name] = true
	if !a.ready[id][game.P1.Name] || !a.ready[id][game.P2.Name] {
		return nil
	}

	if err := game.Start(); err != nil {
		return fmt.Errorf("starting game %s: %w", id, err)
	}

	env1, _ := wire.NewEnvelope(wire.TypeDebutPartie, map[string]string{"mode": "VS_JOUEUR"})
	env2, _ := wire.NewEnvelope(wire.TypeDebutPartie, map[string]string{"mode": "VS_JOUEUR"})
	a.send(game.P1.Name, env1)
	if !a.liveLocked(id) {
		return nil
	}
	a.send(game.P2.Name, env2)
	if !a.liveLocked(id) {
		return nil
	}

	a.notifyTurnLocked(game)
	return nil
}

func (a *Arbiter) notifyTurnLocked(game *model.Game) {
	current, other := game.P1.Name, game.P2.Name
	if !game.TurnP1 {
		current, other = game.P2.Name, game.P1.Name
	}
	envTurn, _ := wire.NewEnvelope(wire.TypeVotreTour, nil)
	envWait, _ := wire.NewEnvelope(wire.TypeTourAdversaire, nil)
	a.send(current, envTurn)
	if !a.liveLocked(game.ID) {
		return
	}
	a.send(other, envWait)
}

// ErrNoGame is returned when an operation targets a player with no active game.
var ErrNoGame = fmt.Errorf("arbiter: player has no active game")

// ErrNotYourTurn is returned by HandleShot when it is not the shooter's turn.
var ErrNotYourTurn = fmt.Errorf("arbiter: not your turn")

// HandleShot resolves a shot fired by shooterName at (x,y),
// authoritatively. Notifications to both participants are sent while
// the arbiter's lock is held, so neither client can observe the new
// turn-owner before the shot's result.
func (a *Arbiter) HandleShot(shooterName string, x, y int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.playerGame[shooterName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoGame, shooterName)
	}
	game := a.games[id]

	if !game.IsTurn(shooterName) {
		env, _ := wire.NewEnvelope(wire.TypeErreur, map[string]string{"message": "not your turn"})
		a.send(shooterName, env)
		return ErrNotYourTurn
	}

	byP1, _ := game.IsPlayer(shooterName)
	opponent := game.Opponent(shooterName)

	result, sunk, finished, err := game.ApplyShot(byP1, x, y)
	if err != nil {
		env, _ := wire.NewEnvelope(wire.TypeErreur, map[string]string{"message": err.Error()})
		a.send(shooterName, env)
		return err
	}

	shooterPayload := map[string]any{"resultat": string(result), "x": x, "y": y}
	opponentPayload := map[string]any{"resultat": string(result), "x": x, "y": y, "adversaire": shooterName}
	if sunk != nil {
		shooterPayload["bateau_coule"] = sunk.Name
		opponentPayload["bateau_coule"] = sunk.Name
	}

	envShooter, _ := wire.NewEnvelope(wire.TypeReponseTir, shooterPayload)
	a.send(shooterName, envShooter)

	if result != model.DejaTire && a.liveLocked(id) {
		envOpponent, _ := wire.NewEnvelope(wire.TypeReponseTirRecu, opponentPayload)
		a.send(opponent, envOpponent)
	}
	if !a.liveLocked(id) {
		// A failed notification write already tore the game down.
		return nil
	}

	if finished {
		a.finishLocked(id, game, shooterName, opponent, "")
		return nil
	}

	if result != model.DejaTire {
		a.notifyTurnLocked(game)
	}
	return nil
}

// finishLocked ends game id, notifying winnerName VICTOIRE and
// loserName DEFAITE (or a disconnect-flavored reason), then removes the
// game from the registry. The registry entries are cleared before the
// notification writes: a failed write re-enters the disconnection path,
// which must already see the game as gone. Caller must hold a.mu.
func (a *Arbiter) finishLocked(id string, game *model.Game, winnerName, loserName, reason string) {
	delete(a.games, id)
	delete(a.playerGame, game.P1.Name)
	delete(a.playerGame, game.P2.Name)
	delete(a.ready, id)

	winPayload := map[string]string{"status": "VICTOIRE"}
	losePayload := map[string]string{"status": "DEFAITE"}
	if reason != "" {
		winPayload["message"] = reason
	}
	envWin, _ := wire.NewEnvelope(wire.TypeFinPartie, winPayload)
	envLose, _ := wire.NewEnvelope(wire.TypeFinPartie, losePayload)
	a.send(winnerName, envWin)
	if loserName != "" {
		a.send(loserName, envLose)
	}
}

// RelayChat forwards text from senderName to their opponent as
// CHAT_GLOBAL. The server never echoes the message back to the sender:
// the client renders its own outgoing message locally.
func (a *Arbiter) RelayChat(senderName, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.playerGame[senderName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoGame, senderName)
	}
	game := a.games[id]
	opponent := game.Opponent(senderName)

	env, _ := wire.NewEnvelope(wire.TypeChatGlobal, map[string]string{"envoyeur": senderName, "message": text})
	a.send(opponent, env)
	return nil
}

// HandleAbandon marks the game abandoned by name, notifies the opponent
// of a victory, and removes the game from the registry.
func (a *Arbiter) HandleAbandon(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.playerGame[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoGame, name)
	}
	game := a.games[id]
	opponent := game.Opponent(name)

	game.Abandon(name)
	a.finishLocked(id, game, opponent, name, "")
	return nil
}

// HandleDisconnect is invoked by the session/TCP layer when a
// participant's connection fails mid-game: the surviving opponent is
// notified of a victory and the game is removed. The same path runs
// inline from send when a notification write fails.
func (a *Arbiter) HandleDisconnect(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disconnectLocked(name)
}

// disconnectLocked drops name's matchmaking and resume-wait entries and,
// if name is mid-game, abandons it in the survivor's favor. Idempotent:
// a second entry for the same game finds the registry already cleared.
// Caller must hold a.mu.
func (a *Arbiter) disconnectLocked(name string) {
	a.removeWaitingQueueEntryLocked(name)

	id, ok := a.playerGame[name]
	if !ok {
		return
	}
	game := a.games[id]
	opponent := game.Opponent(name)
	if opponent == "" {
		delete(a.games, id)
		delete(a.playerGame, name)
		delete(a.ready, id)
		return
	}

	game.Abandon(name)
	a.finishLocked(id, game, opponent, "", "opponent disconnected")
}

// removeWaitingQueueEntryLocked drops name from the matchmaking FIFO and
// the resume-waiting ledger, in case it disconnected before being
// matched. Caller must hold a.mu.
func (a *Arbiter) removeWaitingQueueEntryLocked(name string) {
	filtered := a.queue[:0:0]
	for _, n := range a.queue {
		if n != name {
			filtered = append(filtered, n)
		}
	}
	a.queue = filtered
	delete(a.resumeWaiting, name)
}

// Remove drops both index entries and the game entry for name's game, if
// any. Idempotent.
func (a *Arbiter) Remove(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.playerGame[name]
	if !ok {
		return
	}
	game := a.games[id]
	delete(a.games, id)
	delete(a.playerGame, game.P1.Name)
	delete(a.playerGame, game.P2.Name)
	delete(a.ready, id)
}

// Game returns the game currently associated with name, if any.
func (a *Arbiter) Game(name string) (*model.Game, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.playerGame[name]
	if !ok {
		return nil, false
	}
	return a.games[id], true
}

// Snapshot serializes name's current game under the arbiter's lock, so
// the captured state can never interleave with a concurrent shot.
func (a *Arbiter) Snapshot(name string) (model.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.playerGame[name]
	if !ok {
		return model.Snapshot{}, false
	}
	return a.games[id].Serialize(), true
}
