// Package httpapi is the HTTP admin surface fronting the session store:
// table creation, lookup, joining, and starting, plus a health check.
// Grounded on the go-chi/chi router idiom used across the example pack's
// HTTP services (e.g. ai-thunderdome's manifest of chi-based handlers).
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"riverdeal/internal/poker"
	"riverdeal/internal/session"
)

func defaultSeed() int64 { return time.Now().UnixNano() }

// API wires a chi.Router over a session.Store.
type API struct {
	Store *session.Store
}

// New builds the HTTP admin router.
func New(store *session.Store) http.Handler {
	a := &API{Store: store}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", a.health)
	r.Route("/tables", func(r chi.Router) {
		r.Post("/create", a.createTable)
		r.Get("/{tableID}", a.getTable)
		r.Post("/{tableID}/join", a.joinTable)
		r.Post("/{tableID}/start", a.startTable)
	})
	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createTableRequest struct {
	UserKey string `json:"user_key,omitempty"`
}

type createTableResponse struct {
	TableID  string `json:"table_id"`
	PlayerID string `json:"player_id"`
	Status   string `json:"status"`
}

func (a *API) createTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	sess := a.Store.CreateMultiplayerTable(req.UserKey)
	writeJSON(w, http.StatusCreated, createTableResponse{
		TableID:  sess.ID,
		PlayerID: string(sess.HostSeat),
		Status:   "created",
	})
}

type tableView struct {
	TableID      string   `json:"table_id"`
	Mode         string   `json:"mode"`
	JoinedSeats  []string `json:"joined_seats"`
	Started      bool     `json:"started"`
	TableEnded   bool     `json:"table_ended"`
	HostSeat     string   `json:"host_seat"`
}

func (a *API) getTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tableID")
	sess, ok := a.Store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "TABLE_NOT_FOUND", "table not found")
		return
	}
	view := tableView{
		TableID:    sess.ID,
		Mode:       string(sess.Mode),
		Started:    sess.Started,
		TableEnded: sess.TableEnded,
		HostSeat:   string(sess.HostSeat),
	}
	for seat, joined := range sess.JoinedSeats {
		if joined {
			view.JoinedSeats = append(view.JoinedSeats, string(seat))
		}
	}
	writeJSON(w, http.StatusOK, view)
}

type joinTableRequest struct {
	UserKey string `json:"user_key,omitempty"`
}

type joinTableResponse struct {
	TableID  string `json:"table_id"`
	PlayerID string `json:"player_id"`
	Status   string `json:"status"`
}

func (a *API) joinTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tableID")
	var req joinTableRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	seat, err := a.Store.JoinMultiplayerTable(id, req.UserKey)
	if err != nil {
		writeError(w, statusFor(err), codeFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, joinTableResponse{TableID: id, PlayerID: string(seat), Status: "joined"})
}

type startTableRequest struct {
	Seat string `json:"seat"`
	Seed int64  `json:"seed,omitempty"`
}

func (a *API) startTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tableID")
	var req startTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "malformed JSON body")
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = defaultSeed()
	}
	if err := a.Store.StartMultiplayerTable(id, poker.SeatId(req.Seat), seed); err != nil {
		writeError(w, statusFor(err), codeFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func statusFor(err error) int {
	switch err {
	case session.ErrNotFound:
		return http.StatusNotFound
	case session.ErrNotHost:
		return http.StatusForbidden
	case session.ErrTableFull, session.ErrNotMultiplayer, session.ErrTableEnded:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func codeFor(err error) string {
	switch err {
	case session.ErrNotFound:
		return "TABLE_NOT_FOUND"
	case session.ErrNotHost:
		return "NOT_HOST"
	case session.ErrTableFull:
		return "TABLE_FULL"
	case session.ErrNotMultiplayer:
		return "INVALID_TABLE_MODE"
	case session.ErrTableEnded:
		return "TABLE_ENDED"
	default:
		return "VALIDATION_ERROR"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "message": msg})
}
