package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"colorfulez-server/commands"
	"colorfulez-server/config"
	"colorfulez-server/decoration"
	"colorfulez-server/stripes"
)

const tokenTTL = 12 * time.Hour

// Game is the round controller the admin API drives.
type Game interface {
	commands.Target
	Restart() (decoration.RebuildReport, error)
	Snapshot() stripes.Snapshot
}

// ClientCounter reports connected players.
type ClientCounter interface {
	ClientCount() int
}

// AdminHandler holds deps for the admin routes.
type AdminHandler struct {
	cfg     config.Config
	admin   *Admin
	game    Game
	clients ClientCounter
	started time.Time
}

func NewAdminHandler(cfg config.Config, admin *Admin, game Game, clients ClientCounter) *AdminHandler {
	return &AdminHandler{cfg: cfg, admin: admin, game: game, clients: clients, started: time.Now()}
}

// Routes registers the admin routes.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Get("/metrics", h.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.cfg.JWTSecret, h.cfg.JWTIssuer), RequireRole(RoleAdmin))
		r.Post("/commands", h.Command)
		r.Post("/round/restart", h.Restart)
	})
}

// Login verifies the admin credentials and returns a JWT.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	if err := h.admin.Verify(in.Username, in.Password); err != nil {
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := GenerateToken(h.cfg.JWTSecret, h.cfg.JWTIssuer, h.admin.Username, RoleAdmin, tokenTTL)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "could not generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Command runs one remote admin command. The body carries either an args
// list or a single command line.
func (h *AdminHandler) Command(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Args    []string `json:"args"`
		Command string   `json:"command"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	args := in.Args
	if len(args) == 0 {
		args = strings.Fields(in.Command)
	}
	writeJSON(w, http.StatusOK, commands.Execute(h.game, args))
}

type restartResponse struct {
	Files       int      `json:"files"`
	Prefabs     int      `json:"prefabs"`
	Rooms       int      `json:"rooms"`
	Objects     int      `json:"objects"`
	Ignored     int      `json:"ignored"`
	Undecorated int      `json:"undecorated"`
	Errors      []string `json:"errors"`
}

// Restart ends the current round and starts a fresh one.
func (h *AdminHandler) Restart(w http.ResponseWriter, r *http.Request) {
	report, err := h.game.Restart()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, stripes.ErrRoundActive) {
			status = http.StatusConflict
		}
		errorJSON(w, status, err.Error())
		return
	}
	out := restartResponse{
		Files:       report.Files,
		Prefabs:     report.Prefabs,
		Rooms:       report.Rooms,
		Objects:     report.Objects,
		Ignored:     report.Ignored,
		Undecorated: report.Undecorated,
		Errors:      []string{},
	}
	for _, e := range report.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, out)
}

type metricsResponse struct {
	Uptime  string           `json:"uptime"`
	Clients int              `json:"clients"`
	Round   stripes.Snapshot `json:"round"`
}

// Metrics reports the round counters and the connection count.
func (h *AdminHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metricsResponse{
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Clients: h.clients.ClientCount(),
		Round:   h.game.Snapshot(),
	})
}
