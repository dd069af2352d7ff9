package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/noahxzhu/bosswatch/internal/model"
)

const (
	keyPrimary   = "profile"
	keyBackup    = "profile.backup"
	keyPreImport = "profile.pre-import"
	keyLegacy    = "legacy"

	ExportVersion = "1.0"
)

var (
	ErrInvalidImport = errors.New("invalid import data")
	ErrMemoryOnly    = errors.New("profile storage unavailable, running in memory")
)

type Options struct {
	Clock    clockwork.Clock
	Debounce time.Duration
	Logger   *slog.Logger
}

// Store owns the user profile. Mutations are persisted after a debounce; every
// save writes the primary document and a backup copy.
type Store struct {
	mu         sync.RWMutex
	backend    Backend
	clock      clockwork.Clock
	debounce   time.Duration
	logger     *slog.Logger
	profile    model.UserProfile
	persistent bool
	pending    clockwork.Timer
}

func NewStore(backend Backend, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		backend:    backend,
		clock:      opts.Clock,
		debounce:   opts.Debounce,
		logger:     opts.Logger,
		profile:    model.DefaultProfile(),
		persistent: true,
	}
}

// Load reads the profile, recovering from the backup copy and finally from
// defaults. It never fails; Persistent reports whether storage is usable.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.readDocument(keyPrimary)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		profile = s.migrateLegacy()
	default:
		s.logger.Warn("Primary profile unreadable, trying backup", "error", err)
		backup, berr := s.readDocument(keyBackup)
		if berr != nil {
			s.logger.Error("Profile backup unreadable, using defaults in memory", "error", berr)
			profile = model.DefaultProfile()
			s.persistent = false
		} else {
			profile = backup
		}
	}

	profile.Normalize()
	profile.Stats.TotalVisits++
	profile.LastAccess = s.clock.Now()
	s.profile = profile
	s.scheduleSaveLocked()
	return nil
}

func (s *Store) readDocument(key string) (model.UserProfile, error) {
	data, err := s.backend.Read(key)
	if err != nil {
		return model.UserProfile{}, err
	}
	if len(data) == 0 {
		return model.UserProfile{}, ErrNotFound
	}
	profile := model.DefaultProfile()
	if err := json.Unmarshal(data, &profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return profile, nil
}

type legacyDocument struct {
	Favorites     []string             `json:"favorites"`
	SoundSettings *model.SoundSettings `json:"soundSettings"`
	Visits        int                  `json:"visits"`
}

// migrateLegacy converts the old {favorites, soundSettings, visits} document,
// or returns defaults when there is none.
func (s *Store) migrateLegacy() model.UserProfile {
	profile := model.DefaultProfile()
	data, err := s.backend.Read(keyLegacy)
	if err != nil || len(data) == 0 {
		return profile
	}
	var old legacyDocument
	if err := json.Unmarshal(data, &old); err != nil {
		s.logger.Warn("Ignoring unreadable legacy profile", "error", err)
		return profile
	}
	profile.FavoriteBosses = old.Favorites
	if old.SoundSettings != nil {
		profile.Sound = *old.SoundSettings
	}
	profile.Stats.TotalVisits = old.Visits
	if err := s.backend.Delete(keyLegacy); err != nil {
		s.logger.Warn("Failed to remove legacy profile", "error", err)
	}
	s.logger.Info("Migrated legacy profile", "favorites", len(old.Favorites))
	return profile
}

// Save writes the profile and its backup immediately.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if !s.persistent {
		return ErrMemoryOnly
	}
	data, err := json.MarshalIndent(s.profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.backend.Write(keyPrimary, data); err != nil {
		return err
	}
	if err := s.backend.Write(keyBackup, data); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func (s *Store) scheduleSaveLocked() {
	if !s.persistent {
		return
	}
	if s.debounce <= 0 {
		if err := s.saveLocked(); err != nil {
			s.logger.Error("Failed to save profile", "error", err)
		}
		return
	}
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = s.clock.AfterFunc(s.debounce, func() {
		if err := s.Flush(); err != nil {
			s.logger.Error("Failed to save profile", "error", err)
		}
	})
}

// Flush persists a pending debounced save, if any.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	return s.saveLocked()
}

// Close flushes pending writes and releases the backend.
func (s *Store) Close() error {
	flushErr := s.Flush()
	if errors.Is(flushErr, ErrMemoryOnly) {
		flushErr = nil
	}
	return errors.Join(flushErr, s.backend.Close())
}

func (s *Store) Persistent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent
}

// Profile returns a copy of the current profile.
func (s *Store) Profile() model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

func (s *Store) IsFavorite(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.IsFavorite(name)
}

// Update applies fn to the profile and schedules a save.
func (s *Store) Update(fn func(p *model.UserProfile)) model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.profile)
	s.profile.Normalize()
	s.scheduleSaveLocked()
	return s.profile.Clone()
}

func (s *Store) ToggleFavorite(name string) bool {
	var fav bool
	s.Update(func(p *model.UserProfile) { fav = p.ToggleFavorite(name) })
	return fav
}

func (s *Store) NotificationsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.NotificationsEnabled
}

func (s *Store) SetNotificationsEnabled(enabled bool) {
	s.Update(func(p *model.UserProfile) { p.NotificationsEnabled = enabled })
}

// DisableNotifications turns notifications off after the platform refused them.
func (s *Store) DisableNotifications() {
	s.SetNotificationsEnabled(false)
}

func (s *Store) SetNotifyOnlyFavorites(enabled bool) {
	s.Update(func(p *model.UserProfile) { p.NotifyOnlyFavorites = enabled })
}

func (s *Store) UpdateSound(settings model.SoundSettings) model.SoundSettings {
	return s.Update(func(p *model.UserProfile) { p.Sound = settings }).Sound
}

// Reset restores defaults, keeping the visit counter.
func (s *Store) Reset() model.UserProfile {
	return s.Update(func(p *model.UserProfile) {
		visits := p.Stats.TotalVisits
		*p = model.DefaultProfile()
		p.Stats.TotalVisits = visits
		p.LastAccess = s.clock.Now()
	})
}

// ExportEnvelope is the portable profile document.
type ExportEnvelope struct {
	ID         string            `json:"id"`
	ExportDate time.Time         `json:"exportDate"`
	Version    string            `json:"version"`
	Profile    model.UserProfile `json:"profile"`
	Metadata   ExportMetadata    `json:"metadata"`
}

type ExportMetadata struct {
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

func (s *Store) Export() ([]byte, error) {
	now := s.clock.Now()
	env := ExportEnvelope{
		ID:         uuid.New().String(),
		ExportDate: now,
		Version:    ExportVersion,
		Profile:    s.Profile(),
		Metadata:   ExportMetadata{Timestamp: now.UnixMilli(), Source: "bosswatch"},
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}

// Import replaces the profile with the one in data, merged over defaults.
// Malformed data is rejected and the current profile is left untouched.
func (s *Store) Import(data []byte) error {
	var env struct {
		Version string          `json:"version"`
		Profile json.RawMessage `json:"profile"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(env.Profile) == 0 || string(env.Profile) == "null" {
		return fmt.Errorf("%w: missing profile", ErrInvalidImport)
	}
	imported := model.DefaultProfile()
	if err := json.Unmarshal(env.Profile, &imported); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	imported.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistent {
		if prev, err := json.Marshal(s.profile); err == nil {
			if err := s.backend.Write(keyPreImport, prev); err != nil {
				s.logger.Warn("Failed to write pre-import backup", "error", err)
			}
		}
	}
	imported.Stats.TotalVisits = max(imported.Stats.TotalVisits, s.profile.Stats.TotalVisits)
	imported.LastAccess = s.clock.Now()
	s.profile = imported
	s.logger.Info("Profile imported", "version", env.Version, "favorites", len(imported.FavoriteBosses))
	if err := s.saveLocked(); err != nil && !errors.Is(err, ErrMemoryOnly) {
		return err
	}
	return nil
}
