package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
)

const SortNextSpawn = "next-spawn"

// Criteria narrows the boss list. Zero values disable each filter.
type Criteria struct {
	DropItem      string
	FavoritesOnly bool
	IsFavorite    func(name string) bool
	Hour          *int
}

// Filter returns the bosses matching every active criterion, in table order.
func Filter(bosses []model.Boss, c Criteria) []model.Boss {
	out := make([]model.Boss, 0, len(bosses))
	for _, b := range bosses {
		if c.DropItem != "" && !strings.Contains(strings.Join(b.Drops, " "), c.DropItem) {
			continue
		}
		if c.FavoritesOnly && c.IsFavorite != nil && !c.IsFavorite(b.Name) {
			continue
		}
		if c.Hour != nil && !b.HasHour(*c.Hour) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Sort orders a copy of bosses. SortNextSpawn sorts by the next spawn hour seen
// from now; any other value is a drop item name and sorts by its chance, highest first.
func Sort(bosses []model.Boss, by string, now time.Time) []model.Boss {
	sorted := append([]model.Boss(nil), bosses...)
	if by == "" || by == SortNextSpawn {
		hour := now.Hour()
		sort.SliceStable(sorted, func(i, j int) bool {
			return NextAppearance(sorted[i].SpawnHours, hour) < NextAppearance(sorted[j].SpawnHours, hour)
		})
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return DropChance(sorted[i], by) > DropChance(sorted[j], by)
	})
	return sorted
}

// NextAppearance returns the first spawn hour at or after hour, or the earliest
// hour plus 24 when the boss is done for the day.
func NextAppearance(hours []int, hour int) int {
	if len(hours) == 0 {
		return 48
	}
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)
	for _, h := range sorted {
		if h >= hour {
			return h
		}
	}
	return sorted[0] + 24
}

// DropChance extracts the percentage following item in the drop text,
// e.g. "Receita de Relíquias (1,60% de chance)" gives 1.6.
func DropChance(b model.Boss, item string) float64 {
	if item == "" || len(b.Drops) == 0 {
		return 0
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(item) + `\s*\(([^)]+)%`)
	if err != nil {
		return 0
	}
	m := re.FindStringSubmatch(strings.Join(b.Drops, " "))
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(m[1]), ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// Hours lists the distinct spawn hours of the table, ascending.
func Hours(bosses []model.Boss) []int {
	set := make(map[int]struct{})
	for _, b := range bosses {
		for _, h := range b.SpawnHours {
			set[h] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

// HourOption is one entry of the hour filter, labelled like "09hXX".
type HourOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// FilterOptions returns the hour filter entries for every hour of the day.
func FilterOptions() []HourOption {
	out := make([]HourOption, 24)
	for h := range out {
		out[h] = HourOption{Value: h, Label: fmt.Sprintf("%02dhXX", h)}
	}
	return out
}
