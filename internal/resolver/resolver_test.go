package resolver

import (
	"testing"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
)

var saoPaulo = mustLoad("America/Sao_Paulo")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 10, hour, minute, 30, 0, saoPaulo)
}

var draxos = model.Boss{Name: "Draxos", Location: "Laboratório Secreto (Lab)", SpawnHours: []int{9, 19}, Level: 135}

func TestDraxosScenario(t *testing.T) {
	offsets := []model.ServerOffset{{ServerID: "ALFA", Minute: 7}}

	next := ResolveNext(at(8, 50), []model.Boss{draxos}, offsets)
	if next == nil {
		t.Fatal("expected an occurrence")
	}
	if next.Hour != 9 || next.Minute != 7 || next.MinutesUntil != 17 {
		t.Fatalf("expected 09:07 in 17 minutes, got %s in %d", next.SpawnTime(), next.MinutesUntil)
	}

	next = ResolveNext(at(9, 8), []model.Boss{draxos}, offsets)
	if next.Hour != 19 || next.Minute != 7 || next.MinutesUntil != 599 {
		t.Fatalf("expected 19:07 in 599 minutes, got %s in %d", next.SpawnTime(), next.MinutesUntil)
	}
}

func TestDueNowIsZero(t *testing.T) {
	offsets := []model.ServerOffset{{ServerID: "ALFA", Minute: 7}}
	next := ResolveNext(at(9, 7), []model.Boss{draxos}, offsets)
	if next.MinutesUntil != 0 || next.Hour != 9 {
		t.Fatalf("expected due-now 09:07, got %s in %d", next.SpawnTime(), next.MinutesUntil)
	}
}

func TestTieBreakPrefersHigherLevel(t *testing.T) {
	low := model.Boss{Name: "Low", SpawnHours: []int{12}, Level: 100}
	high := model.Boss{Name: "High", SpawnHours: []int{12}, Level: 150}
	offsets := []model.ServerOffset{{ServerID: "ALFA", Minute: 1}}

	next := ResolveNext(at(11, 30), []model.Boss{low, high}, offsets)
	if next.Boss.Name != "High" {
		t.Fatalf("expected level 150 boss, got %s", next.Boss.Name)
	}
}

func TestNilWithoutOffsets(t *testing.T) {
	if next := ResolveNext(at(10, 0), []model.Boss{draxos}, nil); next != nil {
		t.Fatalf("expected nil, got %+v", next)
	}
}

func TestRangeAndDeterminism(t *testing.T) {
	bosses := []model.Boss{
		draxos,
		{Name: "Yagditha", SpawnHours: []int{20}, Level: 160},
		{Name: "Babel", SpawnHours: []int{0, 3, 6, 9, 12, 15, 18, 21}, Level: 100},
	}
	offsets := []model.ServerOffset{{ServerID: "ALFA", Minute: 1}, {ServerID: "BETA", Minute: 59}}

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, saoPaulo)
	for i := 0; i < minutesPerDay; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		a := ResolveNext(now, bosses, offsets)
		b := ResolveNext(now, bosses, offsets)
		if a == nil || b == nil {
			t.Fatalf("nil at %s", now)
		}
		if a.MinutesUntil < 0 || a.MinutesUntil > 1439 {
			t.Fatalf("minutesUntil %d out of range at %s", a.MinutesUntil, now)
		}
		if a.Key != b.Key || a.ServerID != b.ServerID {
			t.Fatalf("non-deterministic result at %s: %s vs %s", now, a.Key, b.Key)
		}
	}
}

func TestOnlyHourWrapsFullDay(t *testing.T) {
	yag := model.Boss{Name: "Yagditha", SpawnHours: []int{20}, Level: 160}
	offsets := []model.ServerOffset{{ServerID: "ALFA", Minute: 1}}

	next := ResolveNext(at(20, 30), []model.Boss{yag}, offsets)
	if next.MinutesUntil != 1440-29 {
		t.Fatalf("expected %d, got %d", 1440-29, next.MinutesUntil)
	}
	if next.At.Day() != 11 {
		t.Fatalf("expected occurrence tomorrow, got %s", next.At)
	}
}

func TestKeyStableAndDistinctAcrossDays(t *testing.T) {
	offsets := []model.ServerOffset{{ServerID: "ALFA", Minute: 7}}

	a := ResolveNext(at(8, 0), []model.Boss{draxos}, offsets)
	b := ResolveNext(at(8, 59), []model.Boss{draxos}, offsets)
	if a.Key != b.Key {
		t.Fatalf("key changed for the same occurrence: %s vs %s", a.Key, b.Key)
	}

	tomorrow := ResolveNext(at(8, 0).AddDate(0, 0, 1), []model.Boss{draxos}, offsets)
	if tomorrow.Key == a.Key {
		t.Fatalf("expected a distinct key for the next day, got %s", tomorrow.Key)
	}
}

func TestUpcomingLimit(t *testing.T) {
	offsets := []model.ServerOffset{{ServerID: "ALFA", Minute: 7}, {ServerID: "BETA", Minute: 9}}
	all := Upcoming(at(8, 0), []model.Boss{draxos}, offsets, 0)
	if len(all) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].MinutesUntil < all[i-1].MinutesUntil {
			t.Fatalf("candidates not sorted at %d", i)
		}
	}
	if got := Upcoming(at(8, 0), []model.Boss{draxos}, offsets, 2); len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
}
