package model

import "time"

const (
	DefaultSoundType   = "beep"
	DefaultSoundVolume = 50
)

type SoundSettings struct {
	Enabled      bool   `json:"enabled"`
	Type         string `json:"type"`
	Volume       int    `json:"volume"` // 0..100
	EarlyWarning bool   `json:"earlyWarning"`
}

type Stats struct {
	TotalVisits    int `json:"totalVisits"`
	FavoritesCount int `json:"favoritesCount"`
}

// UserProfile is the persisted user document.
type UserProfile struct {
	FavoriteBosses       []string      `json:"favoritesBosses"`
	Sound                SoundSettings `json:"soundSettings"`
	NotificationsEnabled bool          `json:"notificationsEnabled"`
	NotifyOnlyFavorites  bool          `json:"notifyOnlyFavorites"`
	LastAccess           time.Time     `json:"lastAccess"`
	Stats                Stats         `json:"stats"`
}

func DefaultProfile() UserProfile {
	return UserProfile{
		FavoriteBosses: []string{},
		Sound: SoundSettings{
			Type:   DefaultSoundType,
			Volume: DefaultSoundVolume,
		},
	}
}

func (p UserProfile) IsFavorite(name string) bool {
	for _, f := range p.FavoriteBosses {
		if f == name {
			return true
		}
	}
	return false
}

// ToggleFavorite adds or removes name and reports whether it is now a favorite.
func (p *UserProfile) ToggleFavorite(name string) bool {
	for i, f := range p.FavoriteBosses {
		if f == name {
			p.FavoriteBosses = append(p.FavoriteBosses[:i], p.FavoriteBosses[i+1:]...)
			p.Stats.FavoritesCount = len(p.FavoriteBosses)
			return false
		}
	}
	p.FavoriteBosses = append(p.FavoriteBosses, name)
	p.Stats.FavoritesCount = len(p.FavoriteBosses)
	return true
}

// Normalize fills missing values, clamps the volume and drops duplicate favorites.
func (p *UserProfile) Normalize() {
	seen := make(map[string]struct{}, len(p.FavoriteBosses))
	favs := make([]string, 0, len(p.FavoriteBosses))
	for _, f := range p.FavoriteBosses {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		favs = append(favs, f)
	}
	p.FavoriteBosses = favs
	p.Stats.FavoritesCount = len(favs)

	if p.Sound.Type == "" {
		p.Sound.Type = DefaultSoundType
	}
	if p.Sound.Volume < 0 {
		p.Sound.Volume = 0
	}
	if p.Sound.Volume > 100 {
		p.Sound.Volume = 100
	}
}

// Clone returns a deep copy safe to hand out of a locked store.
func (p UserProfile) Clone() UserProfile {
	c := p
	c.FavoriteBosses = append([]string(nil), p.FavoriteBosses...)
	if c.FavoriteBosses == nil {
		c.FavoriteBosses = []string{}
	}
	return c
}
