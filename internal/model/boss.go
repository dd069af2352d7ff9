package model

import (
	"errors"
	"fmt"
)

var ErrInvalidBoss = errors.New("invalid boss definition")

// DamageTiers holds the reward roulette text per damage tier. Opaque to the resolver.
type DamageTiers struct {
	Tier1 []string `json:"tier1,omitempty" yaml:"tier1"`
	Tier2 []string `json:"tier2,omitempty" yaml:"tier2"`
	Tier3 []string `json:"tier3,omitempty" yaml:"tier3"`
}

type Boss struct {
	Name       string      `json:"name" yaml:"name"`
	Location   string      `json:"location" yaml:"location"`
	SpawnHours []int       `json:"spawnHours" yaml:"hours"`
	Level      int         `json:"level" yaml:"level"`
	Drops      []string    `json:"drops,omitempty" yaml:"drops"`
	Damage     DamageTiers `json:"damage" yaml:"damage"`
	Image      string      `json:"image,omitempty" yaml:"image"`
	MapImage   string      `json:"mapImage,omitempty" yaml:"map_image"`
}

// Validate checks that the boss has a name and at least one spawn hour in [0,23].
func (b Boss) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidBoss)
	}
	if len(b.SpawnHours) == 0 {
		return fmt.Errorf("%w: %s has no spawn hours", ErrInvalidBoss, b.Name)
	}
	for _, h := range b.SpawnHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: %s has spawn hour %d out of range", ErrInvalidBoss, b.Name, h)
		}
	}
	return nil
}

// HasHour reports whether the boss spawns at the given hour.
func (b Boss) HasHour(hour int) bool {
	for _, h := range b.SpawnHours {
		if h == hour {
			return true
		}
	}
	return false
}

// ServerOffset maps a game server to the minute of the hour its bosses spawn at.
type ServerOffset struct {
	ServerID string `json:"id"`
	Minute   int    `json:"minute"`
}

func (o ServerOffset) Valid() bool {
	return o.ServerID != "" && o.Minute >= 0 && o.Minute <= 59
}
