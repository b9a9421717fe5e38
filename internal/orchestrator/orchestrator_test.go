package orchestrator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverdeal/internal/eval"
	"riverdeal/internal/poker"
	"riverdeal/internal/policy"
	"riverdeal/internal/session"
)

// checkCallPolicy always takes the most passive legal action, so a hand
// plays out deterministically to showdown without folding.
type checkCallPolicy struct{}

func (checkCallPolicy) Decide(obs poker.AIObservation) poker.Action {
	return policy.Fallback(obs)
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	evaluator := eval.New()
	newEngine := func(players []poker.SeatId) *poker.Engine {
		return poker.NewEngine(players, 5, 10, 1000, evaluator)
	}
	store := session.NewStore(time.Hour, newEngine)
	o := New(store)
	o.Policy = checkCallPolicy{}
	o.TurnDelay = 0
	o.HandEndPause = 0
	o.Seed = func() int64 { return 42 }
	return o
}

func recvMessage(t *testing.T, ch chan []byte) ServerMessage {
	t.Helper()
	select {
	case data := <-ch:
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatal("expected a queued message, found none")
		return ServerMessage{}
	}
}

func drainAll(ch chan []byte) []ServerMessage {
	var out []ServerMessage
	for {
		select {
		case data := <-ch:
			var msg ServerMessage
			_ = json.Unmarshal(data, &msg)
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestConnect_MultiMode_MissingTableID(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	_, _, err := o.Connect("", "p1", session.ModeMulti, ch)
	code, ok := HandshakeCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrMissingTableID, code)
}

func TestConnect_MultiMode_TableNotFound(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	_, _, err := o.Connect("TBL-DEADBEEF", "p1", session.ModeMulti, ch)
	code, ok := HandshakeCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrTableNotFound, code)
}

func TestConnect_MultiMode_TableNotMultiplayer(t *testing.T) {
	o := newTestOrchestrator(t)
	single, err := o.Store.GetOrCreate("", session.ModeSingle)
	require.NoError(t, err)

	ch := make(chan []byte, 8)
	_, _, err = o.Connect(single.ID, "p1", session.ModeMulti, ch)
	code, ok := HandshakeCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidTableMode, code)
}

func TestConnect_MultiMode_SeatNotJoined(t *testing.T) {
	o := newTestOrchestrator(t)
	sess := o.Store.CreateMultiplayerTable("alice")

	ch := make(chan []byte, 8)
	_, _, err := o.Connect(sess.ID, "p2", session.ModeMulti, ch)
	code, ok := HandshakeCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrSeatNotJoined, code)
}

func TestConnect_MultiMode_TableNotStarted(t *testing.T) {
	o := newTestOrchestrator(t)
	sess := o.Store.CreateMultiplayerTable("alice")

	ch := make(chan []byte, 8)
	_, _, err := o.Connect(sess.ID, "p1", session.ModeMulti, ch)
	code, ok := HandshakeCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrTableNotStarted, code)
}

func TestConnect_MultiMode_Success(t *testing.T) {
	o := newTestOrchestrator(t)
	sess := o.Store.CreateMultiplayerTable("alice")
	_, err := o.Store.JoinMultiplayerTable(sess.ID, "bob")
	require.NoError(t, err)
	require.NoError(t, o.Store.StartMultiplayerTable(sess.ID, "p1", 1))

	ch := make(chan []byte, 8)
	gotSess, seat, err := o.Connect(sess.ID, "p1", session.ModeMulti, ch)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, gotSess.ID)
	assert.Equal(t, poker.SeatId("p1"), seat)

	msgs := drainAll(ch)
	require.NotEmpty(t, msgs, "connecting sends at least the initial state")
	assert.Equal(t, "STATE", msgs[len(msgs)-1].Type)
}

func TestConnect_SingleMode_RejectsTBLPrefixedID(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	_, _, err := o.Connect("TBL-ABCDEF00", "p1", session.ModeSingle, ch)
	code, ok := HandshakeCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidSingleSession, code)
}

func TestConnect_SingleMode_AutoCreatesAndStartsHand(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	assert.Equal(t, poker.SeatId("p1"), seat)
	assert.True(t, sess.Started)
}

func TestConnect_SingleMode_InvalidPlayerID(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	_, _, err := o.Connect("", "p9", session.ModeSingle, ch)
	code, ok := HandshakeCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidPlayerID, code)
}

func TestHandleInbound_InvalidJSON(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	o.HandleInbound(sess, seat, []byte("not json"))
	msg := recvMessage(t, ch)
	assert.Equal(t, "ERROR", msg.Type)
}

func TestHandleMove_NotYourTurn(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, _, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	// p1 is the small blind and acts first heads-up, so p2 moving now is out
	// of turn. The error goes to the sender's own socket.
	p2ch := make(chan []byte, 8)
	require.NoError(t, o.Store.RegisterSocket(sess.ID, "p2", p2ch))
	o.HandleInbound(sess, "p2", []byte(`{"type":"MOVE","val":"call"}`))
	msg := recvMessage(t, p2ch)
	assert.Equal(t, "ERROR", msg.Type)
	payload, ok := msg.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ErrNotYourTurn, payload["code"])
}

func TestHandleMove_UnknownActionValue(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	o.HandleInbound(sess, seat, []byte(`{"type":"MOVE","val":"bogus"}`))
	msg := recvMessage(t, ch)
	assert.Equal(t, "ERROR", msg.Type)
	payload := msg.Payload.(map[string]any)
	assert.Equal(t, ErrValidationError, payload["code"])
}

func TestHandleMove_DealIsLegacyAliasForCall(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	o.HandleInbound(sess, seat, []byte(`{"type":"MOVE","val":"deal"}`))
	msgs := drainAll(ch)
	require.NotEmpty(t, msgs)
	for _, m := range msgs {
		assert.NotEqual(t, "ERROR", m.Type)
	}
}

func TestHandleMove_SuccessAdvancesBettingAndBroadcastsState(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	o.HandleInbound(sess, seat, []byte(`{"type":"MOVE","val":"call"}`))
	msgs := drainAll(ch)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "STATE", msgs[len(msgs)-1].Type)
}

func TestHandleContinue_NotReadyWhenHandStillLive(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	o.HandleInbound(sess, seat, []byte(`{"type":"CONTINUE"}`))
	msg := recvMessage(t, ch)
	assert.Equal(t, "ERROR", msg.Type)
	payload := msg.Payload.(map[string]any)
	assert.Equal(t, ErrHandContinueNotReady, payload["code"])
}

func TestHandleContinue_StartsNextHandOnceAwaiting(t *testing.T) {
	o := newTestOrchestrator(t)
	// Room for a whole hand's broadcasts: a full channel would drop p1's
	// socket and hand its seat to the AI.
	ch := make(chan []byte, 64)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	require.NoError(t, playHeadsUpToShowdown(o, sess))
	drainAll(ch)
	require.True(t, sess.AwaitingHandContinue)

	o.HandleInbound(sess, seat, []byte(`{"type":"CONTINUE"}`))
	assert.False(t, sess.AwaitingHandContinue)
	msgs := drainAll(ch)
	require.NotEmpty(t, msgs)
}

// playHeadsUpToShowdown calls once (closing the blind gap) then checks
// every following street, for whichever seat currently acts, until the
// hand ends naturally at showdown.
func playHeadsUpToShowdown(o *Orchestrator, sess *session.Session) error {
	if _, err := sess.Engine.Step(poker.Action{Kind: poker.ActionCall}, sess.Engine.Betting.CurrentPlayer); err != nil {
		return err
	}
	o.afterStep(sess)
	for !sess.Engine.Betting.HandOver {
		if _, err := sess.Engine.Step(poker.Action{Kind: poker.ActionCheck}, sess.Engine.Betting.CurrentPlayer); err != nil {
			return err
		}
		o.afterStep(sess)
	}
	return nil
}

func TestRunAITurns_StopsAtHumanTurn(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, _, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)

	// p1 is human (registered); p2 is AI. After connect, it's p1's turn
	// (small blind acts first heads-up), so the AI loop should not have moved.
	assert.Equal(t, poker.SeatId("p1"), sess.Engine.Betting.CurrentPlayer)
}

func TestRunAITurns_DrivesAIMoveOnceHumanActs(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := make(chan []byte, 8)
	sess, seat, err := o.Connect("", "p1", session.ModeSingle, ch)
	require.NoError(t, err)
	drainAll(ch)

	o.HandleInbound(sess, seat, []byte(`{"type":"MOVE","val":"call"}`))
	// p2 is AI-controlled (never registered a socket) and checkCallPolicy
	// always checks/calls, so after p1's call the round completes and the
	// engine advances to the flop without needing another human input.
	assert.Equal(t, poker.Flop, currentStreet(sess))
}

func currentStreet(sess *session.Session) poker.Street {
	return sess.Engine.Street()
}

func TestBroadcastAll_RemovesBlockedSocket(t *testing.T) {
	o := newTestOrchestrator(t)
	blocked := make(chan []byte) // unbuffered: the very next send blocks
	sess, err := o.Store.GetOrCreate("", session.ModeSingle)
	require.NoError(t, err)
	require.NoError(t, o.Store.RegisterSocket(sess.ID, "p1", blocked))
	require.NoError(t, sess.Engine.NewHand([]poker.SeatId{"p1", "p2"}, 1, false))

	o.broadcastAll(sess)

	_, stillRegistered := sess.PlayerSockets["p1"]
	assert.False(t, stillRegistered, "a socket whose channel is full/blocked is dropped rather than blocking the fan-out")
}

func TestAfterStep_MultiplayerEliminationEndsTable(t *testing.T) {
	o := newTestOrchestrator(t)
	sess := o.Store.CreateMultiplayerTable("alice")
	_, err := o.Store.JoinMultiplayerTable(sess.ID, "bob")
	require.NoError(t, err)
	require.NoError(t, o.Store.StartMultiplayerTable(sess.ID, "p1", 1))

	// Simulate a hand that just busted p2: only p1 remains funded.
	sess.Engine.Betting.HandOver = true
	sess.Engine.Betting.Pot = 0
	sess.Engine.Betting.Stacks["p2"] = 0

	o.afterStep(sess)

	assert.True(t, sess.TableEnded, "a multiplayer table with one funded seat left ends after the hand")
	assert.Equal(t, []poker.SeatId{"p1"}, sess.TableWinners)
}
