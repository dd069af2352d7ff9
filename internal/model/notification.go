package model

import "time"

type EventKind string

const (
	KindEarlyWarning  EventKind = "early_warning"
	KindFinalWarning  EventKind = "final_warning"
	KindSpawnOccurred EventKind = "spawn"
)

// Sound classes a notification maps to.
const (
	SoundClassChime = "chime"
	SoundClassAlert = "alert"
)

// Notification is a rendered message handed to the outbound sinks.
type Notification struct {
	Kind               EventKind `json:"kind"`
	Boss               string    `json:"boss"`
	ServerID           string    `json:"server"`
	Location           string    `json:"location"`
	SpawnTime          string    `json:"spawnTime"`
	At                 time.Time `json:"at"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Tag                string    `json:"tag"`
	Icon               string    `json:"icon"`
	Badge              string    `json:"badge"`
	Vibrate            []int     `json:"vibrate"`
	RequireInteraction bool      `json:"requireInteraction"`
	SoundClass         string    `json:"soundClass"`
	Favorite           bool      `json:"favorite"`
	Recovered          bool      `json:"recovered,omitempty"`
}
