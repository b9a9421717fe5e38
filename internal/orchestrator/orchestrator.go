// Package orchestrator drives AI seats between human moves, broadcasts
// state and events to every connected client, and handles disconnects
// and table termination, grounded on moonhole-HoldemIJ's
// apps/server/internal/table.Table actor.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"riverdeal/internal/poker"
	"riverdeal/internal/policy"
	"riverdeal/internal/replaylog"
	"riverdeal/internal/session"
)

// Orchestrator is the shared, stateless driver over a session.Store. All
// of its per-hand mutable state lives in the Session/Engine it's handed;
// the Orchestrator itself holds only configuration and collaborators.
type Orchestrator struct {
	Store        *session.Store
	Policy       policy.Policy
	TurnDelay    time.Duration
	HandEndPause time.Duration
	Seed         func() int64
	Log          *log.Logger
	Journal      *replaylog.Journal
}

// New builds an Orchestrator with sane defaults for any zero-valued
// fields (800ms turn delay, a uniform-random policy).
func New(store *session.Store) *Orchestrator {
	return &Orchestrator{
		Store:        store,
		Policy:       policy.NewUniform(1),
		TurnDelay:    800 * time.Millisecond,
		HandEndPause: 5000 * time.Millisecond,
		Seed:         func() int64 { return time.Now().UnixNano() },
		Log:          log.Default(),
	}
}

// Connect runs the connection handshake described in the external
// interfaces: it validates sessionId/seatId/mode, registers the client
// channel, starts the hand for a newly-created single-player session,
// and returns the session/seat so the caller can begin its read loop.
func (o *Orchestrator) Connect(sessionID string, seatRaw string, mode session.Mode, send chan<- []byte) (*session.Session, poker.SeatId, error) {
	seat := poker.SeatId(seatRaw)

	if mode == session.ModeMulti {
		if sessionID == "" {
			return nil, "", o.fail(ErrMissingTableID, "table id required for multi-mode")
		}
		sess, ok := o.Store.Get(sessionID)
		if !ok {
			return nil, "", o.fail(ErrTableNotFound, "table not found")
		}
		if sess.Mode != session.ModeMulti {
			return nil, "", o.fail(ErrInvalidTableMode, "table is not multiplayer")
		}
		if !sess.JoinedSeats[seat] {
			return nil, "", o.fail(ErrSeatNotJoined, "seat has not joined this table")
		}
		if !sess.Started {
			return nil, "", o.fail(ErrTableNotStarted, "table has not started")
		}
		if err := o.validateSeat(sess, seat); err != nil {
			return nil, "", err
		}
		o.Store.RegisterSocket(sessionID, seat, send)
		o.broadcastTo(sess, seat, send)
		o.RunAITurns(sess)
		return sess, seat, nil
	}

	if len(sessionID) >= 4 && sessionID[:4] == "TBL-" {
		return nil, "", o.fail(ErrInvalidSingleSession, "single-player sessions may not use a TBL- id")
	}
	sess, err := o.Store.GetOrCreate(sessionID, session.ModeSingle)
	if err != nil {
		return nil, "", o.fail(ErrTableNotFound, "table not found")
	}
	if err := o.validateSeat(sess, seat); err != nil {
		return nil, "", err
	}
	o.Store.RegisterSocket(sess.ID, seat, send)
	if !sess.Started {
		if err := sess.Engine.NewHand(joinedSeats(sess), o.Seed(), false); err != nil {
			return nil, "", fmt.Errorf("orchestrator: starting hand: %w", err)
		}
		sess.Started = true
	}
	o.broadcastTo(sess, seat, send)
	o.RunAITurns(sess)
	return sess, seat, nil
}

func (o *Orchestrator) validateSeat(sess *session.Session, seat poker.SeatId) error {
	for _, p := range sess.Engine.Betting.Players {
		if p == seat {
			return nil
		}
	}
	return o.fail(ErrInvalidPlayerID, "unknown player id")
}

func joinedSeats(sess *session.Session) []poker.SeatId {
	var out []poker.SeatId
	for _, seat := range sess.Engine.Betting.Players {
		if sess.JoinedSeats[seat] {
			out = append(out, seat)
		}
	}
	return out
}

// handshakeError carries one of the Err* codes so a transport layer
// (gateway) can translate a failed Connect into an ERROR message before
// the socket is ever registered.
type handshakeError struct {
	code, msg string
}

func (e *handshakeError) Error() string { return e.code + ": " + e.msg }

// Code returns the Err* constant carried by this handshake error.
func (e *handshakeError) Code() string { return e.code }

// HandshakeCode extracts the Err* code from an error returned by
// Connect, if any.
func HandshakeCode(err error) (string, bool) {
	he, ok := err.(*handshakeError)
	if !ok {
		return "", false
	}
	return he.code, true
}

func (o *Orchestrator) fail(code, msg string) error { return &handshakeError{code: code, msg: msg} }

// HandleInbound processes one inbound client message for seat within
// sess, per the MOVE/CONTINUE loop described in the external interface.
func (o *Orchestrator) HandleInbound(sess *session.Session, seat poker.SeatId, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		o.sendTo(sess, seat, errorMessage(ErrInvalidJSON, "malformed JSON"))
		return
	}

	switch msg.Type {
	case "MOVE":
		o.handleMove(sess, seat, msg)
	case "CONTINUE":
		o.handleContinue(sess, seat)
	default:
		o.sendTo(sess, seat, errorMessage(ErrValidationError, "unknown message type"))
	}
}

func (o *Orchestrator) handleMove(sess *session.Session, seat poker.SeatId, msg ClientMessage) {
	if sess.TableEnded {
		o.sendTo(sess, seat, errorMessage(ErrTableEnded, "table has ended"))
		return
	}
	if sess.Engine.Betting.CurrentPlayer != seat || !sess.Engine.Betting.HasCurrent {
		o.sendTo(sess, seat, errorMessage(ErrNotYourTurn, "not your turn"))
		return
	}
	action, err := msg.ToAction()
	if err != nil {
		o.sendTo(sess, seat, errorMessage(ErrValidationError, err.Error()))
		return
	}

	if _, err := sess.Engine.Step(action, seat); err != nil {
		o.sendTo(sess, seat, errorMessage(ErrInvalidAction, err.Error()))
		return
	}

	o.afterStep(sess)
	o.RunAITurns(sess)
}

func (o *Orchestrator) handleContinue(sess *session.Session, seat poker.SeatId) {
	if sess.TableEnded {
		o.sendTo(sess, seat, errorMessage(ErrTableEnded, "table has ended"))
		return
	}
	if !sess.Engine.Betting.HandOver || !sess.AwaitingHandContinue {
		o.sendTo(sess, seat, errorMessage(ErrHandContinueNotReady, "hand is not awaiting continue"))
		return
	}
	if sess.Mode == session.ModeMulti && fundedSeatCount(sess) <= 1 {
		o.sendTo(sess, seat, errorMessage(ErrTableEnded, "table has ended"))
		return
	}

	if err := sess.Engine.StartNextHand(sess.Engine.Betting.Players, o.Seed()); err != nil {
		o.sendTo(sess, seat, errorMessage(ErrValidationError, err.Error()))
		return
	}
	sess.AwaitingHandContinue = false
	o.broadcastNewHand(sess)
	o.afterStep(sess)
	o.RunAITurns(sess)
}

func fundedSeatCount(sess *session.Session) int {
	n := 0
	for _, s := range sess.Engine.Betting.Players {
		if sess.Engine.Betting.Stacks[s] > 0 {
			n++
		}
	}
	return n
}

// afterStep audits hand-end conditions and broadcasts queued events plus
// a fresh per-viewer state to every connected seat.
func (o *Orchestrator) afterStep(sess *session.Session) {
	if sess.Engine.Betting.HandOver {
		o.auditChipConservation(sess)
		if sess.Mode == session.ModeMulti && fundedSeatCount(sess) <= 1 {
			sess.TableEnded = true
			sess.TableWinners = fundedSeats(sess)
			o.broadcastAll(sess)
			o.broadcastEvent(sess, poker.Event{Type: "TABLE_END", Data: map[string]any{
				"winners": seatStrings(sess.TableWinners),
				"stacks":  sess.Engine.Betting.Stacks,
			}})
			return
		}
		sess.AwaitingHandContinue = true
	}
	o.broadcastAll(sess)
}

func fundedSeats(sess *session.Session) []poker.SeatId {
	var out []poker.SeatId
	for _, s := range sess.Engine.Betting.Players {
		if sess.Engine.Betting.Stacks[s] > 0 {
			out = append(out, s)
		}
	}
	return out
}

func seatStrings(seats []poker.SeatId) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = string(s)
	}
	return out
}

// auditChipConservation checks the only invariant observable from
// outside the engine after a hand ends: the pot has been fully paid out.
func (o *Orchestrator) auditChipConservation(sess *session.Session) {
	b := sess.Engine.Betting
	if b.Pot != 0 {
		o.Log.Warn("chip conservation audit: nonzero pot after hand end", "session", sess.ID, "pot", b.Pot)
	}
}

// RunAITurns drives AI-controlled seats between human moves: while the
// hand is live and the current actor is not human, ask the Policy for an
// action, apply it, broadcast, and pause briefly for UX pacing.
func (o *Orchestrator) RunAITurns(sess *session.Session) {
	numPlayers := len(sess.Engine.Betting.Players)
	maxIters := 4 * numPlayers
	if maxIters < 10 {
		maxIters = 10
	}

	for i := 0; i < maxIters; i++ {
		b := sess.Engine.Betting
		if b.HandOver {
			return
		}
		if !b.HasCurrent {
			return
		}
		if o.isHumanTurn(sess) {
			return
		}

		obs := sess.Engine.ToAIState()
		action := o.decide(obs)

		if _, err := sess.Engine.Step(action, obs.Seat); err != nil {
			fallback := policy.Fallback(obs)
			if _, err2 := sess.Engine.Step(fallback, obs.Seat); err2 != nil {
				o.Log.Warn("AI turn failed twice, stopping AI loop", "session", sess.ID, "seat", obs.Seat, "err", err2)
				return
			}
		}

		o.afterStep(sess)
		if sess.Engine.Betting.HandOver {
			return
		}
		if o.TurnDelay > 0 {
			time.Sleep(o.TurnDelay)
		}
	}
}

func (o *Orchestrator) decide(obs poker.AIObservation) (action poker.Action) {
	defer func() {
		if r := recover(); r != nil {
			o.Log.Warn("policy panicked, using fallback", "recover", r)
			action = policy.Fallback(obs)
		}
	}()
	return o.Policy.Decide(obs)
}

// isHumanTurn reports whether the current actor is either a connected
// human seat, or (in multi-mode) any joined seat at all.
func (o *Orchestrator) isHumanTurn(sess *session.Session) bool {
	seat := sess.Engine.Betting.CurrentPlayer
	if sess.Mode == session.ModeMulti {
		return sess.JoinedSeats[seat]
	}
	return sess.HumanPlayers[seat]
}

// broadcastAll sends queued events followed by a fresh per-viewer state
// to every connected socket.
func (o *Orchestrator) broadcastAll(sess *session.Session) {
	events := sess.Engine.DrainEvents()
	for seat, ch := range sess.PlayerSockets {
		o.sendEventsAndState(sess, seat, ch, events)
	}
	if o.Journal != nil {
		for _, ev := range events {
			o.Journal.Append(sess.ID, replaylog.Record{Kind: "EVENT", Type: string(ev.Type), Data: ev.Data})
		}
	}
}

func (o *Orchestrator) broadcastEvent(sess *session.Session, ev poker.Event) {
	for seat, ch := range sess.PlayerSockets {
		o.send(ch, eventMessage(ev), sess, seat)
	}
	if o.Journal != nil {
		o.Journal.Append(sess.ID, replaylog.Record{Kind: "EVENT", Type: string(ev.Type), Data: ev.Data})
	}
}

func (o *Orchestrator) broadcastTo(sess *session.Session, seat poker.SeatId, ch chan<- []byte) {
	o.sendEventsAndState(sess, seat, ch, nil)
}

func (o *Orchestrator) sendEventsAndState(sess *session.Session, seat poker.SeatId, ch chan<- []byte, events []poker.Event) {
	for _, ev := range events {
		o.send(ch, eventMessage(ev), sess, seat)
	}
	state := sess.Engine.ToPublicState(seat, sess.ID, sess.AwaitingHandContinue)
	o.send(ch, stateMessage(state), sess, seat)
}

// broadcastNewHand sends a NEW_HAND event to every connected seat, with
// player_hand redacted to that viewer's own hole cards: the real
// button/blind/current-actor seats come from Engine.Seating rather than
// a fabricated guess.
func (o *Orchestrator) broadcastNewHand(sess *session.Session) {
	button, sb, bb := sess.Engine.Seating()
	shared := map[string]any{
		"button":             string(button),
		"small_blind_player": string(sb),
		"big_blind_player":   string(bb),
		"current_player":     string(sess.Engine.Betting.CurrentPlayer),
	}
	for seat, ch := range sess.PlayerSockets {
		data := make(map[string]any, len(shared)+1)
		for k, v := range shared {
			data[k] = v
		}
		data["player_hand"] = sess.Engine.HoleCardStrings(seat)
		o.send(ch, eventMessage(poker.Event{Type: poker.EventNewHand, Data: data}), sess, seat)
	}
	if o.Journal != nil {
		o.Journal.Append(sess.ID, replaylog.Record{Kind: "EVENT", Type: string(poker.EventNewHand), Data: shared})
	}
}

func (o *Orchestrator) sendTo(sess *session.Session, seat poker.SeatId, msg ServerMessage) {
	ch, ok := sess.PlayerSockets[seat]
	if !ok {
		return
	}
	o.send(ch, msg, sess, seat)
}

// send marshals msg to JSON and writes it to ch. A failed/blocked send
// removes that seat's socket from the session's fan-out list; it never
// blocks sends to other seats.
func (o *Orchestrator) send(ch chan<- []byte, msg ServerMessage, sess *session.Session, seat poker.SeatId) {
	data, err := json.Marshal(msg)
	if err != nil {
		o.Log.Error("failed to marshal outbound message", "err", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.Store.RemoveSocket(sess.ID, seat)
		}
	}()
	select {
	case ch <- data:
	default:
		o.Store.RemoveSocket(sess.ID, seat)
	}
}
