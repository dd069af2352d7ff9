// Package notify decides which spawn notifications to emit on each countdown
// tick. Every early warning, final warning and spawn notice fires at most once
// per occurrence. The engine does no I/O and must be driven from one goroutine.
package notify

import (
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
)

const (
	earlyWarningMinutes = 5
	finalWarningMinutes = 1

	// recoveryWindow bounds how late a missed spawn notice may still be sent.
	recoveryWindow = 2 * time.Minute
)

// Flags carries the user toggles consulted on each tick. A nil IsFavorite
// disables the favorites filter.
type Flags struct {
	FavoritesOnly bool
	IsFavorite    func(name string) bool
	EarlyWarning  bool
	FinalWarning  bool
}

func (f Flags) favorite(name string) bool {
	return f.IsFavorite != nil && f.IsFavorite(name)
}

func (f Flags) suppressed(name string) bool {
	return f.FavoritesOnly && f.IsFavorite != nil && !f.IsFavorite(name)
}

type Event struct {
	Kind      model.EventKind
	Instance  model.SpawnInstance
	Favorite  bool
	Recovered bool
}

type Result struct {
	Events []Event
	// Awaiting is set when there was nothing to resolve yet.
	Awaiting bool
}

type tracking struct {
	earlySent bool
	finalSent bool
	spawnSent bool
}

type Engine struct {
	tracked map[string]*tracking
	prev    *model.SpawnInstance
}

func NewEngine() *Engine {
	return &Engine{tracked: make(map[string]*tracking)}
}

// OnTick advances the tracking state with the nearest occurrence and returns
// the notifications due this tick.
func (e *Engine) OnTick(current *model.SpawnInstance, f Flags) Result {
	if current == nil {
		return Result{Awaiting: true}
	}

	var events []Event
	prevKey := ""
	if e.prev != nil {
		prevKey = e.prev.Key
		if prevKey != current.Key {
			if ev, ok := e.recover(*e.prev, *current, f); ok {
				events = append(events, ev)
			}
		}
	}

	st := e.state(current.Key)
	name := current.Boss.Name
	if !f.suppressed(name) {
		fav := f.favorite(name)
		if current.MinutesUntil == earlyWarningMinutes && f.EarlyWarning && !st.earlySent {
			st.earlySent = true
			events = append(events, Event{Kind: model.KindEarlyWarning, Instance: *current, Favorite: fav})
		}
		if current.MinutesUntil == finalWarningMinutes && f.FinalWarning && !st.finalSent {
			st.finalSent = true
			events = append(events, Event{Kind: model.KindFinalWarning, Instance: *current, Favorite: fav})
		}
		// <= 0 tolerates a late tick that skipped the exact zero.
		if current.MinutesUntil <= 0 && !st.spawnSent {
			st.spawnSent = true
			events = append(events, Event{Kind: model.KindSpawnOccurred, Instance: *current, Favorite: fav})
		}
	}

	e.evict(current.Key, prevKey)
	cur := *current
	e.prev = &cur
	return Result{Events: events}
}

// recover emits the spawn notice for the previous occurrence when the display
// moved past it without ever observing minutesUntil <= 0. Occurrences more
// than recoveryWindow in the past are dropped silently. The favorites filter
// applies to the previous boss, not the current one.
func (e *Engine) recover(prev, current model.SpawnInstance, f Flags) (Event, bool) {
	st := e.state(prev.Key)
	if st.spawnSent {
		return Event{}, false
	}
	passed := !prev.At.IsZero() && !current.ResolvedAt.Before(prev.At)
	if prev.MinutesUntil > finalWarningMinutes && !passed {
		return Event{}, false
	}
	if !prev.At.IsZero() && !current.ResolvedAt.IsZero() && current.ResolvedAt.Sub(prev.At) >= recoveryWindow {
		return Event{}, false
	}
	if f.suppressed(prev.Boss.Name) {
		return Event{}, false
	}
	st.spawnSent = true
	return Event{
		Kind:      model.KindSpawnOccurred,
		Instance:  prev,
		Favorite:  f.favorite(prev.Boss.Name),
		Recovered: true,
	}, true
}

func (e *Engine) state(key string) *tracking {
	st, ok := e.tracked[key]
	if !ok {
		st = &tracking{}
		e.tracked[key] = st
	}
	return st
}

func (e *Engine) evict(keep ...string) {
	for key := range e.tracked {
		retained := false
		for _, k := range keep {
			if k != "" && key == k {
				retained = true
				break
			}
		}
		if !retained {
			delete(e.tracked, key)
		}
	}
}

// Tracked reports how many occurrences the engine currently remembers.
func (e *Engine) Tracked() int {
	return len(e.tracked)
}
