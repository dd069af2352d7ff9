package notify

import (
	"fmt"

	"github.com/noahxzhu/bosswatch/internal/model"
)

const (
	DefaultIcon  = "img/bosses/miniaturas/mini_babel.webp"
	DefaultBadge = "img/bosses/miniaturas/mini_valento.webp"
)

var (
	favoriteVibration = []int{200, 100, 200}
	regularVibration  = []int{100, 50, 100}
)

// SoundClass maps an event kind to the sound played with it.
func SoundClass(kind model.EventKind) string {
	if kind == model.KindEarlyWarning {
		return model.SoundClassChime
	}
	return model.SoundClassAlert
}

// Notification renders the event into a message for the outbound sinks.
// The tag is per boss so a newer notice replaces the previous one.
func (ev Event) Notification() model.Notification {
	inst := ev.Instance
	var title string
	switch ev.Kind {
	case model.KindEarlyWarning:
		title = fmt.Sprintf("⚠️ (%s) - %s spawns in %d minutes!", inst.ServerID, inst.Boss.Name, earlyWarningMinutes)
	case model.KindFinalWarning:
		title = fmt.Sprintf("🚨 (%s) - %s spawns in %d minute!", inst.ServerID, inst.Boss.Name, finalWarningMinutes)
	default:
		title = fmt.Sprintf("🐉 (%s) - %s has spawned!", inst.ServerID, inst.Boss.Name)
	}

	icon := inst.Boss.Image
	if icon == "" {
		icon = DefaultIcon
	}
	vibrate := regularVibration
	if ev.Favorite {
		vibrate = favoriteVibration
	}

	return model.Notification{
		Kind:               ev.Kind,
		Boss:               inst.Boss.Name,
		ServerID:           inst.ServerID,
		Location:           inst.Boss.Location,
		SpawnTime:          inst.SpawnTime(),
		At:                 inst.At,
		Title:              title,
		Body:               fmt.Sprintf("%s at %s", inst.Boss.Location, inst.SpawnTime()),
		Tag:                "boss-" + inst.Boss.Name,
		Icon:               icon,
		Badge:              DefaultBadge,
		Vibrate:            append([]int(nil), vibrate...),
		RequireInteraction: ev.Favorite,
		SoundClass:         SoundClass(ev.Kind),
		Favorite:           ev.Favorite,
		Recovered:          ev.Recovered,
	}
}
