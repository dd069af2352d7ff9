package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notify"
	"github.com/noahxzhu/bosswatch/internal/offsets"
	"github.com/noahxzhu/bosswatch/internal/resolver"
	"github.com/noahxzhu/bosswatch/internal/schedule"
)

const (
	DefaultTickInterval    = time.Second
	DefaultRenderInterval  = time.Minute
	DefaultRefreshInterval = 5 * time.Minute

	warningThreshold = 10 * time.Minute
)

type Offsets interface {
	Current() []model.ServerOffset
	Source() offsets.Source
	RefreshAsync(ctx context.Context) bool
}

type Profile interface {
	Profile() model.UserProfile
}

type Dispatcher interface {
	Dispatch(n model.Notification) bool
}

type Player interface {
	PlayClass(ctx context.Context, class string) bool
	Close() error
}

// Display receives what the dashboard shows.
type Display interface {
	ShowCountdown(s Snapshot)
	ShowBosses(bosses []model.Boss)
}

// Snapshot is the countdown state after one tick.
type Snapshot struct {
	Boss             string    `json:"boss,omitempty"`
	ServerID         string    `json:"server,omitempty"`
	Location         string    `json:"location,omitempty"`
	Image            string    `json:"image,omitempty"`
	SpawnTime        string    `json:"spawnTime,omitempty"`
	At               time.Time `json:"at,omitzero"`
	Remaining        string    `json:"remaining"`
	RemainingSeconds int       `json:"remainingSeconds"`
	Warning          bool      `json:"warning"`
	Awaiting         bool      `json:"awaiting"`
	Source           string    `json:"source"`
}

type Options struct {
	TickInterval    time.Duration
	RenderInterval  time.Duration
	RefreshInterval time.Duration
	Location        *time.Location
	Clock           clockwork.Clock
	Logger          *slog.Logger
}

type Worker struct {
	bosses     []model.Boss
	offsets    Offsets
	profile    Profile
	dispatcher Dispatcher
	player     Player
	display    Display
	engine     *notify.Engine
	opts       Options
	updateChan chan struct{}
}

func NewWorker(bosses []model.Boss, offs Offsets, profile Profile, dispatcher Dispatcher, player Player, display Display, opts Options) *Worker {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.RenderInterval <= 0 {
		opts.RenderInterval = DefaultRenderInterval
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Worker{
		bosses:     bosses,
		offsets:    offs,
		profile:    profile,
		dispatcher: dispatcher,
		player:     player,
		display:    display,
		engine:     notify.NewEngine(),
		opts:       opts,
		updateChan: make(chan struct{}, 1),
	}
}

// Refresh signals the worker to reload the server offsets immediately
func (w *Worker) Refresh() {
	select {
	case w.updateChan <- struct{}{}:
	default:
		// Channel already has a pending signal, no need to block
	}
}

func (w *Worker) Start(ctx context.Context) {
	log := w.opts.Logger
	log.Info("Worker started", "tick", w.opts.TickInterval, "render", w.opts.RenderInterval, "refresh", w.opts.RefreshInterval)

	tick := w.opts.Clock.NewTicker(w.opts.TickInterval)
	render := w.opts.Clock.NewTicker(w.opts.RenderInterval)
	refresh := w.opts.Clock.NewTicker(w.opts.RefreshInterval)
	defer func() {
		tick.Stop()
		render.Stop()
		refresh.Stop()
		if err := w.player.Close(); err != nil {
			log.Error("Failed to close sound output", "error", err)
		}
	}()

	w.offsets.RefreshAsync(ctx)
	w.tick(ctx)
	w.render()

	for {
		select {
		case <-ctx.Done():
			log.Info("Worker stopped")
			return
		case <-w.updateChan:
			log.Info("Worker received refresh signal")
			w.offsets.RefreshAsync(ctx)
		case <-tick.Chan():
			w.tick(ctx)
		case <-render.Chan():
			w.render()
		case <-refresh.Chan():
			if !w.offsets.RefreshAsync(ctx) {
				log.Debug("Offset refresh already in flight")
			}
		}
	}
}

func (w *Worker) now() time.Time {
	return w.opts.Clock.Now().In(w.opts.Location)
}

// tick resolves the next spawn, fires due notifications and updates the countdown.
func (w *Worker) tick(ctx context.Context) {
	now := w.now()
	next := resolver.ResolveNext(now, w.bosses, w.offsets.Current())

	p := w.profile.Profile()
	res := w.engine.OnTick(next, notify.Flags{
		FavoritesOnly: p.NotifyOnlyFavorites,
		IsFavorite:    p.IsFavorite,
		EarlyWarning:  p.Sound.EarlyWarning,
		FinalWarning:  p.Sound.Enabled,
	})

	for _, ev := range res.Events {
		n := ev.Notification()
		w.opts.Logger.Info("Spawn notification", "kind", n.Kind, "boss", n.Boss, "server", n.ServerID, "spawn", n.SpawnTime, "recovered", n.Recovered)
		if !w.dispatcher.Dispatch(n) {
			w.opts.Logger.Debug("Notification not queued", "boss", n.Boss, "kind", n.Kind)
		}
		w.player.PlayClass(ctx, n.SoundClass)
	}

	if w.display != nil {
		w.display.ShowCountdown(w.snapshot(next, now, res.Awaiting))
	}
}

func (w *Worker) snapshot(next *model.SpawnInstance, now time.Time, awaiting bool) Snapshot {
	s := Snapshot{Awaiting: awaiting, Source: string(w.offsets.Source()), Remaining: "--:--:--"}
	if next == nil {
		return s
	}
	left := next.Remaining(now).Truncate(time.Second)
	s.Boss = next.Boss.Name
	s.ServerID = next.ServerID
	s.Location = next.Boss.Location
	s.Image = next.Boss.Image
	s.SpawnTime = next.SpawnTime()
	s.At = next.At
	s.Remaining = FormatRemaining(left)
	s.RemainingSeconds = int(left / time.Second)
	s.Warning = left <= warningThreshold
	return s
}

func (w *Worker) render() {
	if w.display == nil {
		return
	}
	w.display.ShowBosses(schedule.Sort(w.bosses, schedule.SortNextSpawn, w.now()))
}

// FormatRemaining renders d as HH:MM:SS.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}
