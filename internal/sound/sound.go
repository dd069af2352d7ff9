// Package sound describes the alert tones and plays them through an Output,
// which in production is the dashboard websocket (the browser synthesises them).
package sound

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/noahxzhu/bosswatch/internal/model"
)

type Tone struct {
	Frequency float64       `json:"frequency"`
	Duration  time.Duration `json:"-"`
	Millis    int           `json:"ms"`
}

func seq(freqs []float64, millis []int) []Tone {
	tones := make([]Tone, len(freqs))
	for i := range freqs {
		tones[i] = Tone{Frequency: freqs[i], Duration: time.Duration(millis[i]) * time.Millisecond, Millis: millis[i]}
	}
	return tones
}

var patterns = map[string][]Tone{
	"beep":    seq([]float64{800}, []int{200}),
	"chime":   seq([]float64{523, 659, 784}, []int{150, 150, 300}),
	"alert":   seq([]float64{1000, 800, 1000}, []int{100, 100, 200}),
	"bell":    seq([]float64{400, 500, 600, 500, 400}, []int{150, 150, 150, 150, 200}),
	"horn":    seq([]float64{300, 350, 400}, []int{300, 300, 400}),
	"whistle": seq([]float64{1200, 1400, 1200}, []int{100, 200, 150}),
}

const (
	// Gap is the pause between tones of one cue.
	Gap                = 50 * time.Millisecond
	DefaultMinInterval = 500 * time.Millisecond
	sustainFactor      = 0.3
)

var ErrUnknownType = errors.New("unknown sound type")

// Types lists the known sound types, sorted.
func Types() []string {
	out := make([]string, 0, len(patterns))
	for t := range patterns {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func Valid(t string) bool {
	_, ok := patterns[t]
	return ok
}

// ClassSound returns the sound type played for a notification class.
// Unknown classes fall back to the alert.
func ClassSound(class string) string {
	if class == model.SoundClassChime {
		return "chime"
	}
	return "alert"
}

// Cue is one sound to play.
type Cue struct {
	Type   string  `json:"type"`
	Class  string  `json:"class,omitempty"`
	Tones  []Tone  `json:"tones"`
	Gain   float64 `json:"gain"`
	GapMS  int     `json:"gapMs"`
	Volume int     `json:"volume"`
}

// NewCue builds the cue for a sound type at a 0..100 volume.
func NewCue(soundType string, volume int) (Cue, error) {
	tones, ok := patterns[soundType]
	if !ok {
		return Cue{}, ErrUnknownType
	}
	volume = max(0, min(100, volume))
	return Cue{
		Type:   soundType,
		Tones:  append([]Tone(nil), tones...),
		Gain:   float64(volume) / 100 * sustainFactor,
		GapMS:  int(Gap / time.Millisecond),
		Volume: volume,
	}, nil
}

// Length is the total play time of the cue including gaps.
func (c Cue) Length() time.Duration {
	var d time.Duration
	for _, t := range c.Tones {
		d += t.Duration + time.Duration(c.GapMS)*time.Millisecond
	}
	return d
}

type Output interface {
	Play(ctx context.Context, cue Cue) error
	Close() error
}

// Player throttles cues and honours the profile's sound settings.
type Player struct {
	out         Output
	settings    func() model.SoundSettings
	clock       clockwork.Clock
	logger      *slog.Logger
	minInterval time.Duration

	mu       sync.Mutex
	lastPlay time.Time
	closed   bool
}

func NewPlayer(out Output, settings func() model.SoundSettings, clock clockwork.Clock, logger *slog.Logger) *Player {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		out:         out,
		settings:    settings,
		clock:       clock,
		logger:      logger,
		minInterval: DefaultMinInterval,
	}
}

// PlayClass plays the sound for a notification class (chime or alert) and
// reports whether anything was played.
func (p *Player) PlayClass(ctx context.Context, class string) bool {
	return p.play(ctx, ClassSound(class), class, false)
}

// PlayTest plays the user's selected sound type even when sound is disabled.
func (p *Player) PlayTest(ctx context.Context) bool {
	s := p.current()
	return p.play(ctx, s.Type, "", true)
}

func (p *Player) current() model.SoundSettings {
	if p.settings == nil {
		return model.SoundSettings{Type: model.DefaultSoundType, Volume: model.DefaultSoundVolume}
	}
	return p.settings()
}

func (p *Player) play(ctx context.Context, soundType, class string, force bool) bool {
	s := p.current()
	if !s.Enabled && !force {
		return false
	}

	p.mu.Lock()
	now := p.clock.Now()
	if p.closed || (!p.lastPlay.IsZero() && now.Sub(p.lastPlay) < p.minInterval) {
		p.mu.Unlock()
		return false
	}
	p.lastPlay = now
	p.mu.Unlock()

	cue, err := NewCue(soundType, s.Volume)
	if err != nil {
		p.logger.Warn("Sound type not found", "type", soundType)
		return false
	}
	cue.Class = class
	if err := p.out.Play(ctx, cue); err != nil {
		p.logger.Error("Failed to play sound", "type", soundType, "error", err)
		return false
	}
	return true
}

// Close releases the output. Further plays are ignored.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.out.Close()
}

// LogOutput writes cues to the log; used when no dashboard is attached.
type LogOutput struct {
	Logger *slog.Logger
}

func (o LogOutput) Play(_ context.Context, cue Cue) error {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Sound cue", "type", cue.Type, "class", cue.Class, "volume", cue.Volume, "length", cue.Length())
	return nil
}

func (LogOutput) Close() error { return nil }
