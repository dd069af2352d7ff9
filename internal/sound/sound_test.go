package sound

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/noahxzhu/bosswatch/internal/model"
)

type recordingOutput struct {
	cues   []Cue
	closed int
}

func (r *recordingOutput) Play(_ context.Context, c Cue) error {
	r.cues = append(r.cues, c)
	return nil
}

func (r *recordingOutput) Close() error {
	r.closed++
	return nil
}

func TestNewCue(t *testing.T) {
	cue, err := NewCue("chime", 50)
	if err != nil {
		t.Fatalf("NewCue: %v", err)
	}
	if len(cue.Tones) != 3 || cue.Tones[2].Frequency != 784 {
		t.Fatalf("unexpected chime %+v", cue.Tones)
	}
	if cue.Gain != 0.15 {
		t.Fatalf("expected gain 0.15, got %v", cue.Gain)
	}
	if cue.Length() != 750*time.Millisecond {
		t.Fatalf("unexpected length %s", cue.Length())
	}
	if _, err := NewCue("kazoo", 50); err != ErrUnknownType {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if len(Types()) != 6 || !Valid("whistle") {
		t.Fatalf("unexpected types %v", Types())
	}
}

func TestPlayerThrottleAndSettings(t *testing.T) {
	out := &recordingOutput{}
	clock := clockwork.NewFakeClock()
	settings := model.SoundSettings{Enabled: false, Type: "bell", Volume: 80}
	p := NewPlayer(out, func() model.SoundSettings { return settings }, clock, nil)
	ctx := context.Background()

	if p.PlayClass(ctx, model.SoundClassAlert) {
		t.Fatal("expected disabled sound to be skipped")
	}
	if !p.PlayTest(ctx) || out.cues[0].Type != "bell" {
		t.Fatalf("expected test sound with the user's type, got %+v", out.cues)
	}

	settings.Enabled = true
	if p.PlayClass(ctx, model.SoundClassAlert) {
		t.Fatal("expected throttle within the minimum interval")
	}
	clock.Advance(DefaultMinInterval)
	if !p.PlayClass(ctx, model.SoundClassAlert) {
		t.Fatal("expected alert after the interval")
	}
	if out.cues[1].Type != "alert" || out.cues[1].Class != model.SoundClassAlert {
		t.Fatalf("unexpected cue %+v", out.cues[1])
	}

	p.Close()
	p.Close()
	clock.Advance(time.Second)
	if p.PlayClass(ctx, model.SoundClassChime) || out.closed != 1 {
		t.Fatalf("expected closed player, closed=%d", out.closed)
	}
}

func TestClassSound(t *testing.T) {
	if ClassSound(model.SoundClassChime) != "chime" || ClassSound(model.SoundClassAlert) != "alert" {
		t.Fatal("unexpected class mapping")
	}
	if ClassSound("unknown") != "alert" {
		t.Fatal("unknown class should fall back to alert")
	}
}
