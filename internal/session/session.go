// Package session implements the keyed table registry: TTL eviction,
// seat-ownership tracking, and the host/join/start protocol for
// multiplayer tables plus single-player auto-create, grounded on
// moonhole-HoldemIJ's apps/server/internal/lobby.Lobby.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"riverdeal/internal/poker"
)

// Mode is the table's player-composition mode.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

var (
	ErrTableFull      = errors.New("session: table full")
	ErrTableEnded     = errors.New("session: table ended")
	ErrNotMultiplayer = errors.New("session: table is not multiplayer")
	ErrNotHost        = errors.New("session: requester is not the host seat")
	ErrNotFound       = errors.New("session: table not found")
)

var seatOrder = []poker.SeatId{"p1", "p2", "p3", "p4", "p5"}

// Session is one table's full runtime state.
type Session struct {
	ID     string
	Mode   Mode
	Engine *poker.Engine

	HostSeat             poker.SeatId
	JoinedSeats          map[poker.SeatId]bool
	SeatOwners           map[poker.SeatId]string
	HumanPlayers         map[poker.SeatId]bool
	PlayerSockets        map[poker.SeatId]chan<- []byte

	Started              bool
	TableEnded           bool
	TableWinners         []poker.SeatId
	AwaitingHandContinue bool

	CreatedAt time.Time
	LastSeen  time.Time
}

// Store is the concurrency-safe table registry. A single mutex
// serializes every mutating operation, per spec §5's shared-resource
// policy: Sessions themselves are only ever touched from their own
// message-processing context afterward.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	ttl        time.Duration
	newEngine  func(players []poker.SeatId) *poker.Engine
}

// NewStore builds a Store. newEngine constructs a fresh Engine for a
// table's fixed seat order (wiring in blinds/stacks/evaluator), kept as
// a constructor-injected factory rather than a global default.
func NewStore(ttl time.Duration, newEngine func(players []poker.SeatId) *poker.Engine) *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		newEngine: newEngine,
	}
}

func newTableID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("TBL-%s", strings.ToUpper(hex.EncodeToString(buf)))
}

// CreateMultiplayerTable creates a new multi-mode session, seating the
// host at p1.
func (s *Store) CreateMultiplayerTable(hostUserKey string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()

	id := newTableID()
	sess := &Session{
		ID:            id,
		Mode:          ModeMulti,
		Engine:        s.newEngine(seatOrder),
		HostSeat:      "p1",
		JoinedSeats:   map[poker.SeatId]bool{"p1": true},
		SeatOwners:    map[poker.SeatId]string{},
		HumanPlayers:  map[poker.SeatId]bool{},
		PlayerSockets: map[poker.SeatId]chan<- []byte{},
		CreatedAt:     time.Now(),
		LastSeen:      time.Now(),
	}
	if hostUserKey != "" {
		sess.SeatOwners["p1"] = hostUserKey
	}
	s.sessions[id] = sess
	return sess
}

// JoinMultiplayerTable assigns userKey a seat, or returns its existing
// seat idempotently if it already owns one.
func (s *Store) JoinMultiplayerTable(id, userKey string) (poker.SeatId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()

	sess, ok := s.sessions[id]
	if !ok {
		return "", ErrNotFound
	}
	if sess.Mode != ModeMulti {
		return "", ErrNotMultiplayer
	}
	if sess.TableEnded {
		return "", ErrTableEnded
	}
	sess.LastSeen = time.Now()

	if userKey != "" {
		for seat, owner := range sess.SeatOwners {
			if owner == userKey {
				return seat, nil
			}
		}
	}

	for _, seat := range seatOrder {
		if !sess.JoinedSeats[seat] {
			sess.JoinedSeats[seat] = true
			if userKey != "" {
				sess.SeatOwners[seat] = userKey
			}
			return seat, nil
		}
	}
	return "", ErrTableFull
}

// StartMultiplayerTable starts the first hand if not already started.
// Only the host seat may start it.
func (s *Store) StartMultiplayerTable(id string, requesterSeat poker.SeatId, seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if requesterSeat != sess.HostSeat {
		return ErrNotHost
	}
	sess.LastSeen = time.Now()
	if sess.Started {
		return nil
	}
	players := joinedSeatSlice(sess)
	if err := sess.Engine.NewHand(players, seed, false); err != nil {
		return err
	}
	sess.Started = true
	return nil
}

func joinedSeatSlice(sess *Session) []poker.SeatId {
	var out []poker.SeatId
	for _, s := range seatOrder {
		if sess.JoinedSeats[s] {
			out = append(out, s)
		}
	}
	return out
}

// GetOrCreate returns the session for id, auto-creating a single-player
// session when id is empty/missing and mode is "single".
func (s *Store) GetOrCreate(id string, mode Mode) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.LastSeen = time.Now()
			return sess, nil
		}
		if mode == ModeMulti {
			return nil, ErrNotFound
		}
	}
	if mode != ModeSingle {
		return nil, ErrNotFound
	}
	if id == "" {
		// Single-player ids carry no TBL- prefix: that prefix marks
		// multiplayer tables, and single-mode connects reject it.
		buf := make([]byte, 8)
		_, _ = rand.Read(buf)
		id = hex.EncodeToString(buf)
	}
	sess := &Session{
		ID:            id,
		Mode:          ModeSingle,
		Engine:        s.newEngine([]poker.SeatId{"p1", "p2"}),
		HostSeat:      "p1",
		JoinedSeats:   map[poker.SeatId]bool{"p1": true, "p2": true},
		SeatOwners:    map[poker.SeatId]string{},
		HumanPlayers:  map[poker.SeatId]bool{},
		PlayerSockets: map[poker.SeatId]chan<- []byte{},
		CreatedAt:     time.Now(),
		LastSeen:      time.Now(),
	}
	s.sessions[id] = sess
	return sess, nil
}

// Get returns a session without creating one.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	sess, ok := s.sessions[id]
	return sess, ok
}

// RegisterSocket binds a client channel to a seat, marking it human.
func (s *Store) RegisterSocket(id string, seat poker.SeatId, ch chan<- []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.LastSeen = time.Now()
	sess.PlayerSockets[seat] = ch
	sess.HumanPlayers[seat] = true
	return nil
}

// RemoveSocket unbinds a seat's client channel and clears its human
// membership, without evicting the session itself (it may reconnect).
func (s *Store) RemoveSocket(id string, seat poker.SeatId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(sess.PlayerSockets, seat)
	delete(sess.HumanPlayers, seat)
}

// Touch refreshes a session's TTL clock.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.LastSeen = time.Now()
	}
}

func (s *Store) evictExpiredLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
