// Package api provides the HTTP API for observing a running market.
// GET endpoints are public and read-only. The intervention endpoint
// requires a bearer token and is disabled when no admin key is set.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/config"
	"github.com/talgya/housemarket/internal/engine"
	"github.com/talgya/housemarket/internal/persistence"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 5000
	defaultHouseLimit   = 200
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	DB       *persistence.DB // nil when the run is not recorded
	RunID    string
	Addr     string
	AdminKey string   // Bearer token for POST endpoints. Empty = POST disabled.
	Origins  []string // extra CORS origins; localhost dev servers are always allowed

	// HistoryLimiter throttles the database-backed history endpoint.
	HistoryLimiter *RateLimiter
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.RequestID, requestLogger, middleware.Recoverer)

	origins := append([]string{
		"http://localhost:5173",
		"http://localhost:4173",
		"http://localhost:3000",
	}, s.Origins...)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	limiter := s.HistoryLimiter
	if limiter == nil {
		limiter = NewRateLimiter(120, time.Minute)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/metrics", s.handleMetrics)
		r.With(limiter.Limit).Get("/metrics/history", s.handleHistory)
		r.Get("/houses", s.handleHouses)
		r.Get("/houses/{id}", s.handleHouse)

		r.With(s.adminOnly).Post("/intervention", s.handleIntervention)
	})
	return r
}

// Start begins serving the HTTP API in a goroutine. The returned server is
// shut down by Shutdown.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "", "recorder", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// Shutdown stops srv, waiting up to five seconds for in-flight requests.
func Shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HOUSESIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{}
	s.Sim.View(func(sim *engine.Simulation) {
		status["run_id"] = s.RunID
		status["tick"] = sim.Tick
		status["year"] = sim.Tick / sim.Config.TicksPerYear
		status["halted"] = sim.Halted
		status["halt_reason"] = sim.HaltReason
		status["scenario"] = sim.Config.Scenario
		status["houses"] = sim.Pop.Count(agents.KindHouse)
		status["owners"] = sim.Pop.Count(agents.KindOwner)
		status["realtors"] = sim.Pop.Count(agents.KindRealtor)
		status["records"] = sim.Pop.Count(agents.KindRecord)
	})
	writeJSON(w, status)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Metrics())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil || s.RunID == "" {
		http.Error(w, "run is not being recorded", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(v, maxHistoryLimit)
	}

	rows, err := s.DB.History(s.RunID, limit)
	if err != nil {
		slog.Error("metrics history query failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []engine.Metrics{}
	}
	writeJSON(w, rows)
}

type houseSummary struct {
	ID          agents.ID `json:"id"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	Owner       agents.ID `json:"owner,omitempty"`
	Quality     float64   `json:"quality"`
	ForSale     bool      `json:"for_sale"`
	SalePrice   float64   `json:"sale_price"`
	DateForSale int       `json:"date_for_sale,omitempty"`
	Realtor     agents.ID `json:"realtor,omitempty"`
	OfferedTo   agents.ID `json:"offered_to,omitempty"`
}

func summarize(h *agents.House) houseSummary {
	return houseSummary{
		ID:          h.ID,
		X:           h.Pos.X,
		Y:           h.Pos.Y,
		Owner:       h.Owner,
		Quality:     h.Quality,
		ForSale:     h.ForSale,
		SalePrice:   h.SalePrice,
		DateForSale: h.DateForSale,
		Realtor:     h.Realtor,
		OfferedTo:   h.OfferedTo,
	}
}

// handleHouses lists houses by ascending price. ?for_sale=true restricts the
// list to houses on the market; ?limit caps the result.
func (s *Server) handleHouses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	forSale := false
	if v := q.Get("for_sale"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "for_sale must be a boolean", http.StatusBadRequest)
			return
		}
		forSale = b
	}
	limit := defaultHouseLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var out []houseSummary
	s.Sim.View(func(sim *engine.Simulation) {
		houses := sim.Pop.Houses()
		if forSale {
			houses = sim.Pop.HousesForSale()
		}
		out = make([]houseSummary, 0, len(houses))
		for _, h := range houses {
			out = append(out, summarize(h))
		}
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].SalePrice < out[j].SalePrice })
	if len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, out)
}

func (s *Server) handleHouse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid house id", http.StatusBadRequest)
		return
	}

	var (
		found bool
		out   houseSummary
	)
	s.Sim.View(func(sim *engine.Simulation) {
		if h := sim.Pop.House(agents.ID(id)); h != nil {
			found = true
			out = summarize(h)
		}
	})
	if !found {
		http.Error(w, "house not found", http.StatusNotFound)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	sc, err := config.ParseScenario(req.Scenario)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	desc, err := s.Sim.ApplyScenario(sc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"success": true, "tick": s.Sim.CurrentTick(), "details": desc})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
