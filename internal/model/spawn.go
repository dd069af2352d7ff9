package model

import (
	"fmt"
	"time"
)

// SpawnInstance is one concrete (boss, server, hour, minute) occurrence as seen
// from ResolvedAt. It is recomputed on every resolution and never persisted.
type SpawnInstance struct {
	Boss         Boss      `json:"boss"`
	ServerID     string    `json:"server"`
	Hour         int       `json:"hour"`
	Minute       int       `json:"minute"`
	MinutesUntil int       `json:"minutesUntil"`
	Key          string    `json:"key"`
	At           time.Time `json:"at"`
	ResolvedAt   time.Time `json:"resolvedAt"`
}

// SpawnTime formats the occurrence as HH:MM.
func (s SpawnInstance) SpawnTime() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Remaining is the time left until At, never negative.
func (s SpawnInstance) Remaining(now time.Time) time.Duration {
	d := s.At.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
