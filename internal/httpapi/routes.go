package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/hub"
	"github.com/DoyleJ11/party-lobby-backend/internal/ws"
)

// DefaultRoomCode is the room the auth/game/teams routes operate on when
// no explicit room code is given. The original deployment was one big
// lobby; extra rooms are opt-in via /api/rooms.
const DefaultRoomCode = "LOBBY"

// Options carries the tunables the REST and socket layers need beyond the
// hub itself. Zero values fall back to the defaults named here.
type Options struct {
	Rules          engine.Rules
	RoomCodeLength int // length of generated room codes; default 6
	ClientBuffer   int // per-client snapshot outbox size; default 8
}

type api struct {
	hub     *hub.Hub
	rules   engine.Rules
	codeLen int
	log     *zap.Logger
	started time.Time
}

func SetupRoutes(h *hub.Hub, opts Options, log *zap.Logger) http.Handler {
	if opts.RoomCodeLength <= 0 {
		opts.RoomCodeLength = 6
	}
	if opts.ClientBuffer <= 0 {
		opts.ClientBuffer = 8
	}
	a := &api{hub: h, rules: opts.Rules, codeLen: opts.RoomCodeLength, log: log, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/join", a.join)
			r.Get("/me", a.me)
			r.Post("/select-character", a.selectCharacter)
			r.Post("/toggle-ready", a.toggleReady)
		})
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", a.createRoom)
			r.Get("/{code}", a.roomState)
			r.Post("/{code}/reset", a.resetRoom)
		})
		r.Route("/teams", func(r chi.Router) {
			r.Post("/", a.createTeam)
			r.Post("/assign", a.assignTeam)
		})
		r.Route("/game", func(r chi.Router) {
			r.Post("/begin-selection", a.beginSelection)
			r.Post("/ready-check", a.readyCheck)
			r.Post("/start", a.startGame)
			r.Get("/state", a.gameState)
		})
		r.Get("/test", a.test)
	})
	r.Get("/health", a.health)
	r.Get("/ws", ws.Handler(h, opts.ClientBuffer, log))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Route not found"})
	})

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(a.started).Seconds(),
	})
}

func (a *api) test(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Backend is working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
