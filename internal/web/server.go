package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	corslib "github.com/rs/cors"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/offsets"
	"github.com/noahxzhu/bosswatch/internal/resolver"
	"github.com/noahxzhu/bosswatch/internal/schedule"
	"github.com/noahxzhu/bosswatch/internal/sound"
	"github.com/noahxzhu/bosswatch/internal/storage"
	"github.com/noahxzhu/bosswatch/internal/worker"
)

//go:embed templates/*
var templateFS embed.FS

const (
	maxBodyBytes        = 1 << 20
	defaultUpcomingSize = 10
)

type Offsets interface {
	Current() []model.ServerOffset
	Source() offsets.Source
	LastRefresh() time.Time
}

// Refresher triggers an immediate offset reload.
type Refresher interface {
	Refresh()
}

type Config struct {
	CORSOrigins []string
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int
	Location  *time.Location
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

type Server struct {
	router  chi.Router
	bosses  []model.Boss
	offsets Offsets
	store   *storage.Store
	worker  Refresher
	hub     *Hub
	player  *sound.Player
	cfg     Config
}

func NewServer(bosses []model.Boss, offs Offsets, store *storage.Store, w Refresher, hub *Hub, player *sound.Player, cfg Config) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		bosses:  bosses,
		offsets: offs,
		store:   store,
		worker:  w,
		hub:     hub,
		player:  player,
		cfg:     cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.cfg.Logger))
	r.Use(middleware.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := corslib.New(corslib.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	r.Use(c.Handler)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(s.cfg.RateLimit, time.Minute))
		}

		r.Get("/next", s.handleNext)
		r.Get("/upcoming", s.handleUpcoming)
		r.Get("/servers", s.handleServers)
		r.Get("/bosses", s.handleBosses)
		r.Post("/offsets/refresh", s.handleRefresh)
		r.Post("/sound/test", s.handleSoundTest)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", s.handleProfile)
			r.Post("/favorites/{name}", s.handleToggleFavorite)
			r.Post("/notifications", s.handleNotifications)
			r.Post("/notify-favorites", s.handleNotifyFavorites)
			r.Put("/sound", s.handleSound)
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) now() time.Time {
	return s.cfg.Clock.Now().In(s.cfg.Location)
}

// Handlers

type indexData struct {
	Profile     model.UserProfile
	Persistent  bool
	SoundTypes  []string
	HourOptions []schedule.HourOption
	Servers     []model.ServerOffset
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, "index.html", indexData{
		Profile:     s.store.Profile(),
		Persistent:  s.store.Persistent(),
		SoundTypes:  sound.Types(),
		HourOptions: schedule.FilterOptions(),
		Servers:     s.offsets.Current(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"offsets":    s.offsets.Source(),
		"clients":    s.hub.Clients(),
		"persistent": s.store.Persistent(),
	})
}

type nextResponse struct {
	Next      *model.SpawnInstance `json:"next"`
	Remaining string               `json:"remaining"`
	Awaiting  bool                 `json:"awaiting"`
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	next := resolver.ResolveNext(now, s.bosses, s.offsets.Current())
	resp := nextResponse{Next: next, Awaiting: next == nil, Remaining: "--:--:--"}
	if next != nil {
		resp.Remaining = worker.FormatRemaining(next.Remaining(now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := defaultUpcomingSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	upcoming := resolver.Upcoming(s.now(), s.bosses, s.offsets.Current(), limit)
	if upcoming == nil {
		upcoming = []model.SpawnInstance{}
	}
	writeJSON(w, http.StatusOK, upcoming)
}

func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"source":      s.offsets.Source(),
		"lastRefresh": s.offsets.LastRefresh(),
		"servers":     s.offsets.Current(),
	})
}

type bossView struct {
	model.Boss
	NextHour   int     `json:"nextHour"`
	Favorite   bool    `json:"favorite"`
	DropChance float64 `json:"dropChance,omitempty"`
}

func (s *Server) handleBosses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := schedule.Criteria{
		DropItem:      q.Get("drop"),
		FavoritesOnly: q.Get("favorites") == "true",
		IsFavorite:    s.store.IsFavorite,
	}
	if v := q.Get("hour"); v != "" {
		hour, err := strconv.Atoi(v)
		if err != nil || hour < 0 || hour > 23 {
			writeError(w, http.StatusBadRequest, "INVALID_HOUR", "hour must be between 0 and 23")
			return
		}
		criteria.Hour = &hour
	}

	now := s.now()
	sortBy := q.Get("sort")
	bosses := schedule.Sort(schedule.Filter(s.bosses, criteria), sortBy, now)

	out := make([]bossView, len(bosses))
	for i, b := range bosses {
		out[i] = bossView{
			Boss:     b,
			NextHour: schedule.NextAppearance(b.SpawnHours, now.Hour()) % 24,
			Favorite: s.store.IsFavorite(b.Name),
		}
		if sortBy != "" && sortBy != schedule.SortNextSpawn {
			out[i].DropChance = schedule.DropChance(b, sortBy)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.worker.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (s *Server) handleSoundTest(w http.ResponseWriter, r *http.Request) {
	played := s.player.PlayTest(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"played": played})
}

type profileResponse struct {
	Profile    model.UserProfile `json:"profile"`
	Persistent bool              `json:"persistent"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profileResponse{Profile: s.store.Profile(), Persistent: s.store.Persistent()})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	matches := schedule.Find(s.bosses, name)
	if len(matches) == 0 {
		writeError(w, http.StatusNotFound, "UNKNOWN_BOSS", fmt.Sprintf("boss %q not found", name))
		return
	}
	name = matches[0].Name
	favorite := s.store.ToggleFavorite(name)
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "favorite": favorite})
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "expected {\"enabled\": bool}", err.Error())
		return
	}
	s.store.SetNotificationsEnabled(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"notificationsEnabled": req.Enabled})
}

func (s *Server) handleNotifyFavorites(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "expected {\"enabled\": bool}", err.Error())
		return
	}
	s.store.SetNotifyOnlyFavorites(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"notifyOnlyFavorites": req.Enabled})
}

func (s *Server) handleSound(w http.ResponseWriter, r *http.Request) {
	var req model.SoundSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "invalid sound settings", err.Error())
		return
	}
	if req.Type != "" && !sound.Valid(req.Type) {
		writeError(w, http.StatusBadRequest, "UNKNOWN_SOUND", fmt.Sprintf("unknown sound type %q", req.Type))
		return
	}
	writeJSON(w, http.StatusOK, s.store.UpdateSound(req))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Export()
	if err != nil {
		s.cfg.Logger.Error("Failed to export profile", "error", err)
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", "failed to export profile")
		return
	}
	filename := fmt.Sprintf("bosswatch-profile-%s.json", s.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "import file too large")
		return
	}
	if err := s.store.Import(data); err != nil {
		if errors.Is(err, storage.ErrInvalidImport) {
			writeErrorDetail(w, http.StatusBadRequest, "INVALID_IMPORT", "invalid profile file", err.Error())
			return
		}
		s.cfg.Logger.Error("Failed to import profile", "error", err)
		writeError(w, http.StatusInternalServerError, "IMPORT_FAILED", "failed to import profile")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: s.store.Profile(), Persistent: s.store.Persistent()})
}

func (s *Server) renderTemplate(w http.ResponseWriter, tmplName string, data any) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+tmplName)
	if err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), 500)
		return
	}
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, fmt.Sprintf("Execute error: %v", err), 500)
	}
}
