package watch

import "testing"

func newPlayer(duration float64) *Player {
	p := NewPlayer(New("a-1", DefaultThresholds()), PlaybackAnalytics{}, false)
	p.Apply(Event{Type: EventMetadata, Duration: duration})
	return p
}

func playerTo(p *Player, from, to float64) Outcome {
	var out Outcome
	for pos := from; pos <= to; pos++ {
		out = p.Apply(Event{Type: EventTimeUpdate, Position: pos, Playing: true})
	}
	return out
}

func TestPlayer_MetadataInitializes(t *testing.T) {
	p := newPlayer(100)
	if got := p.Engine().TotalDuration(); got != 100 {
		t.Fatalf("expected duration 100, got %v", got)
	}
	if p.Engine().State().MinimumWatchTime != 90 {
		t.Fatalf("expected minimum watch time 90, got %v", p.Engine().State().MinimumWatchTime)
	}
}

func TestPlayer_EventsWithoutPositionKeepPosition(t *testing.T) {
	tests := []EventType{EventPause, EventPlay, EventEnded, EventMetadata}
	for _, typ := range tests {
		t.Run(string(typ), func(t *testing.T) {
			p := newPlayer(100)
			playerTo(p, 0, 50)
			p.Apply(Event{Type: typ})

			if p.Position() != 50 {
				t.Fatalf("expected position 50, got %v", p.Position())
			}
			if p.CompletionPercent() != 50 {
				t.Fatalf("expected 50%%, got %v", p.CompletionPercent())
			}
		})
	}
}

func TestPlayer_SeekedMovesPosition(t *testing.T) {
	p := newPlayer(100)
	playerTo(p, 0, 5)
	out := p.Apply(Event{Type: EventSeeked, Position: 80, Playing: true})

	if !out.Skipped {
		t.Fatal("expected the seek to be a skip")
	}
	if p.Position() != 80 {
		t.Fatalf("expected position 80, got %v", p.Position())
	}
	if a := p.Analytics(); a.SeekCount != 1 {
		t.Fatalf("expected one seek, got %d", a.SeekCount)
	}
}

func TestPlayer_PauseAndEndedSave(t *testing.T) {
	p := newPlayer(100)
	p.Apply(Event{Type: EventPlay})
	if !p.Playing() {
		t.Fatal("expected playing after play")
	}
	playerTo(p, 0, 10)

	out := p.Apply(Event{Type: EventPause})
	if !out.Save || out.Ended || p.Playing() {
		t.Fatalf("pause: unexpected outcome %+v playing=%v", out, p.Playing())
	}
	if len(p.Engine().State().WatchSegments) != 1 {
		t.Fatal("pause must close the open segment")
	}
	if p.Analytics().PauseCount != 1 {
		t.Fatalf("expected one pause, got %d", p.Analytics().PauseCount)
	}

	out = p.Apply(Event{Type: EventEnded})
	if !out.Save || !out.Ended {
		t.Fatalf("ended: unexpected outcome %+v", out)
	}
}

func TestPlayer_EligibilitySavesOnce(t *testing.T) {
	p := newPlayer(100)
	if out := playerTo(p, 0, 89); out.Save {
		t.Fatal("no save expected before the time requirement")
	}
	if out := p.Apply(Event{Type: EventTimeUpdate, Position: 90, Playing: true}); !out.Save || out.Completed {
		t.Fatalf("expected a save on eligibility without completion, got %+v", out)
	}
	if out := p.Apply(Event{Type: EventTimeUpdate, Position: 91, Playing: true}); out.Save {
		t.Fatalf("eligibility must only save on the transition, got %+v", out)
	}
}

func TestPlayer_CompletesOnce(t *testing.T) {
	p := newPlayer(100)
	playerTo(p, 0, 94)
	if p.Completed() {
		t.Fatal("must not complete below 95%")
	}

	out := p.Apply(Event{Type: EventTimeUpdate, Position: 95, Playing: true})
	if !out.Completed || !out.Save || !p.Completed() {
		t.Fatalf("expected completion at 95%%, got %+v", out)
	}
	if out := p.Apply(Event{Type: EventEnded}); out.Completed {
		t.Fatal("completion must fire only once")
	}
}

func TestPlayer_EndedCompletesEligibleSession(t *testing.T) {
	p := newPlayer(100)
	playerTo(p, 0, 90)

	out := p.Apply(Event{Type: EventEnded})
	if !out.Completed {
		t.Fatal("ended must complete an eligible session below the playback threshold")
	}
}

func TestPlayer_Restored(t *testing.T) {
	src := newPlayer(100)
	playerTo(src, 0, 40)
	src.Finish()

	p := NewPlayer(Restore(src.Engine().State(), DefaultThresholds()), src.Analytics(), true)
	if p.Position() != 40 {
		t.Fatalf("expected to resume at 40, got %v", p.Position())
	}
	if !p.Completed() {
		t.Fatal("expected completion flag to carry over")
	}
	if p.Analytics() != src.Analytics() {
		t.Fatalf("counters not carried over: %+v", p.Analytics())
	}
	if out := p.Apply(Event{Type: EventEnded}); out.Completed {
		t.Fatal("a completed attempt must not complete again")
	}
}

func TestPlayer_FinishStopsPlayback(t *testing.T) {
	p := newPlayer(100)
	p.Apply(Event{Type: EventPlay})
	playerTo(p, 0, 10)
	p.Finish()

	if p.Playing() || p.Engine().HasOpenSegment() {
		t.Fatal("finish must stop playback and close the segment")
	}
}

func TestEventType_Valid(t *testing.T) {
	for _, typ := range []EventType{EventMetadata, EventPlay, EventTimeUpdate, EventSeeked, EventPause, EventEnded} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if EventType("rewind").Valid() {
		t.Error("rewind should not be valid")
	}
}
