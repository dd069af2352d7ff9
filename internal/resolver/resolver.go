// Package resolver computes which boss spawns next across every server.
package resolver

import (
	"sort"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
)

const minutesPerDay = 24 * 60

// ResolveNext returns the nearest spawn occurrence seen from now, or nil when
// there are no candidates (no offsets yet, or an empty schedule).
// Ties on minutesUntil go to the higher level, then to input order.
func ResolveNext(now time.Time, bosses []model.Boss, offsets []model.ServerOffset) *model.SpawnInstance {
	candidates := candidatesFor(now, bosses, offsets)
	if len(candidates) == 0 {
		return nil
	}
	next := candidates[0]
	return &next
}

// Upcoming returns every candidate occurrence in resolution order, truncated to
// limit when limit > 0.
func Upcoming(now time.Time, bosses []model.Boss, offsets []model.ServerOffset, limit int) []model.SpawnInstance {
	candidates := candidatesFor(now, bosses, offsets)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// MinutesUntil returns the minutes from cur to cand, both minutes of the day.
// A candidate equal to cur is due now; an earlier one wraps to tomorrow.
func MinutesUntil(cur, cand int) int {
	switch {
	case cand > cur:
		return cand - cur
	case cand == cur:
		return 0
	default:
		return minutesPerDay - cur + cand
	}
}

// OccurrenceKey identifies one concrete daily occurrence of a boss slot.
// It is stable while the occurrence is pending and changes with the date, so
// tomorrow's recurrence is tracked separately.
func OccurrenceKey(name string, at time.Time) string {
	return name + "@" + at.Format("2006-01-02T15:04")
}

func candidatesFor(now time.Time, bosses []model.Boss, offsets []model.ServerOffset) []model.SpawnInstance {
	if len(offsets) == 0 || len(bosses) == 0 {
		return nil
	}
	cur := now.Hour()*60 + now.Minute()
	y, m, d := now.Date()
	loc := now.Location()

	out := make([]model.SpawnInstance, 0, len(offsets)*len(bosses)*4)
	for _, srv := range offsets {
		if !srv.Valid() {
			continue
		}
		for _, boss := range bosses {
			for _, hour := range boss.SpawnHours {
				if hour < 0 || hour > 23 {
					continue
				}
				cand := hour*60 + srv.Minute
				until := MinutesUntil(cur, cand)
				day := d
				if cand < cur {
					day++
				}
				at := time.Date(y, m, day, hour, srv.Minute, 0, 0, loc)
				out = append(out, model.SpawnInstance{
					Boss:         boss,
					ServerID:     srv.ServerID,
					Hour:         hour,
					Minute:       srv.Minute,
					MinutesUntil: until,
					Key:          OccurrenceKey(boss.Name, at),
					At:           at,
					ResolvedAt:   now,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MinutesUntil != out[j].MinutesUntil {
			return out[i].MinutesUntil < out[j].MinutesUntil
		}
		return out[i].Boss.Level > out[j].Boss.Level
	})
	return out
}
