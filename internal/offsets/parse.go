package offsets

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/noahxzhu/bosswatch/internal/model"
)

var ErrNoOffsets = errors.New("no valid server offsets")

// fallbackServers is used whenever the endpoint is unreachable.
var fallbackServers = []string{
	"ALFA", "BETA", "GAMA", "DELTA", "EPSILON", "ZETA", "ETA",
	"THETA", "IOTA", "KAPPA", "LAMBDA", "MI", "NU", "XI",
}

const fallbackMinute = 1

func Fallback() []model.ServerOffset {
	out := make([]model.ServerOffset, 0, len(fallbackServers))
	for _, id := range fallbackServers {
		out = append(out, model.ServerOffset{ServerID: id, Minute: fallbackMinute})
	}
	return out
}

// row accepts both {id, minute} and the legacy {Idhas, Horario} shape;
// the minute may be a JSON string or number.
type row struct {
	ID      string          `json:"id"`
	Idhas   string          `json:"Idhas"`
	Minute  json.RawMessage `json:"minute"`
	Horario json.RawMessage `json:"Horario"`
}

// Parse decodes the endpoint payload. Invalid rows are skipped and duplicate
// ids keep the first occurrence.
func Parse(data []byte) ([]model.ServerOffset, error) {
	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode offsets: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]model.ServerOffset, 0, len(rows))
	for _, r := range rows {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = strings.TrimSpace(r.Idhas)
		}
		raw := r.Minute
		if len(raw) == 0 {
			raw = r.Horario
		}
		minute, ok := parseMinute(raw)
		off := model.ServerOffset{ServerID: id, Minute: minute}
		if !ok || !off.Valid() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, off)
	}
	if len(out) == 0 {
		return nil, ErrNoOffsets
	}
	return out, nil
}

func parseMinute(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := strconv.Atoi(n.String()); err == nil {
			return v, true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return leadingInt(strings.TrimSpace(s))
}

// leadingInt parses the leading decimal digits of s, so "07" and "07min" give 7.
func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}
