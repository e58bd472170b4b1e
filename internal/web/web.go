// Package web exposes the availability and pricing API consumed by the
// booking site.
package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"primavera/internal/availability"
	"primavera/internal/booking"
	"primavera/internal/dateutil"
	appLog "primavera/internal/log"
	"primavera/internal/pricing"
)

// availabilityCacheTTL bounds how often an availability request may trigger
// recomputation of the aggregate view.
const availabilityCacheTTL = 30 * time.Second

// Server wires the pricing engine, availability service, and inquiry
// submitter behind an http.ServeMux.
type Server struct {
	engine    *pricing.Engine
	avail     *availability.Service
	submitter *booking.Submitter
	mux       *http.ServeMux

	availMu    sync.RWMutex
	availCache *availabilityCache
}

type availabilityCache struct {
	resp      availabilityResponse
	updatedAt time.Time
}

// NewServer constructs the API server.
func NewServer(engine *pricing.Engine, avail *availability.Service, submitter *booking.Submitter) *Server {
	s := &Server{
		engine:    engine,
		avail:     avail,
		submitter: submitter,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with access-log and recover middleware
// applied.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, loggerMiddleware, recoverMiddleware)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.handleRooms)
	s.mux.HandleFunc("GET /api/quote", s.handleQuote)
	s.mux.HandleFunc("GET /api/availability", s.handleAvailability)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /api/inquiries", s.handleInquiry)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type roomDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Tier         int    `json:"tier"`
	NightlyPrice int    `json:"nightly_price"`
	BlockedCount int    `json:"blocked_count"`
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	today := time.Now()

	rooms := s.avail.Rooms()
	out := make([]roomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomDTO{
			ID:           r.ID,
			Name:         r.Name,
			Tier:         int(s.engine.TierFor(r.ID)),
			NightlyPrice: s.engine.NightlyPrice(r.ID, today),
			BlockedCount: len(s.avail.BlockedDates(r.ID)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleQuote prices a candidate stay.
//
// GET /api/quote?room=3&start=2025-01-10&end=2025-01-17
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room is required")
		return
	}

	start, err := dateutil.ParseISO(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := dateutil.ParseISO(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.TripQuote(roomID, start, end))
}

type availabilityResponse struct {
	Rooms       map[string][]string `json:"rooms"`
	FullyBooked []string            `json:"fully_booked"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()

	s.availMu.RLock()
	cached := s.availCache
	s.availMu.RUnlock()
	if cached != nil && now.Sub(cached.updatedAt) < availabilityCacheTTL {
		writeJSON(w, http.StatusOK, cached.resp)
		return
	}

	resp := availabilityResponse{
		Rooms:       make(map[string][]string, len(s.avail.Rooms())),
		FullyBooked: s.avail.Aggregate().Dates(),
	}
	for _, room := range s.avail.Rooms() {
		resp.Rooms[room.ID] = s.avail.BlockedDates(room.ID).Dates()
	}

	s.availMu.Lock()
	s.availCache = &availabilityCache{resp: resp, updatedAt: time.Now()}
	s.availMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	counts := s.avail.RefreshAll(r.Context())

	// Drop the cached availability view so the next read reflects the
	// refreshed sets.
	s.availMu.Lock()
	s.availCache = nil
	s.availMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"blocked_counts": counts})
}

type inquiryRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Guests   string `json:"guests"`
	Room     string `json:"room"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Message  string `json:"message"`
}

// handleInquiry validates the request, quotes the stay when both dates and a
// room are given, and forwards the inquiry to the webhook. Webhook failures
// surface as 502 so the guest sees the submission did not go through.
func (s *Server) handleInquiry(w http.ResponseWriter, r *http.Request) {
	var req inquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	inq := booking.Inquiry{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Guests:  req.Guests,
		Message: req.Message,
	}

	if req.CheckIn != "" {
		t, err := dateutil.ParseISO(req.CheckIn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "check_in must be YYYY-MM-DD")
			return
		}
		inq.CheckIn = t
	}
	if req.CheckOut != "" {
		t, err := dateutil.ParseISO(req.CheckOut)
		if err != nil {
			writeError(w, http.StatusBadRequest, "check_out must be YYYY-MM-DD")
			return
		}
		inq.CheckOut = t
	}

	if req.Room != "" {
		for _, room := range s.avail.Rooms() {
			if room.ID == req.Room {
				inq.RoomName = room.Name
				break
			}
		}
		if inq.RoomName == "" {
			writeError(w, http.StatusBadRequest, "unknown room")
			return
		}
		if !inq.CheckIn.IsZero() && !inq.CheckOut.IsZero() {
			inq.EstimatedTotal = s.engine.TripQuote(req.Room, inq.CheckIn, inq.CheckOut).Total
		}
	}

	if err := inq.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reference, err := s.submitter.Submit(r.Context(), inq)
	if err != nil {
		appLog.Error("inquiry submission failed", err)
		writeError(w, http.StatusBadGateway, "inquiry could not be delivered")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"reference": reference})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
