// Package replay runs recorded playback traces through the watch engine
// offline, for tuning thresholds and reproducing disputes.
package replay

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/msomdec/coursewatch/internal/domain"
	"github.com/msomdec/coursewatch/internal/watch"
)

// maxExpanded bounds how many samples a single ranged event may produce.
const maxExpanded = 100000

// Event is one player event in a trace. A timeupdate with To and Step set
// stands for a run of samples from Position to To, Step seconds apart.
type Event struct {
	Type     string  `yaml:"type" json:"type"`
	Position float64 `yaml:"position" json:"position"`
	Duration float64 `yaml:"duration,omitempty" json:"duration,omitempty"`
	Playing  *bool   `yaml:"playing,omitempty" json:"playing,omitempty"`
	To       float64 `yaml:"to,omitempty" json:"to,omitempty"`
	Step     float64 `yaml:"step,omitempty" json:"step,omitempty"`
}

// Trace is a recorded watch session. JSON traces are accepted as well, since
// JSON is valid YAML.
type Trace struct {
	Name     string  `yaml:"name" json:"name"`
	Duration float64 `yaml:"duration" json:"duration"`
	Events   []Event `yaml:"events" json:"events"`
}

// LoadFile reads and parses a trace file.
func LoadFile(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return Parse(data)
}

// Parse decodes a trace and validates its events. Unknown fields are rejected
// so typos in hand-written traces surface early.
func Parse(data []byte) (*Trace, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Trace
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: decode trace: %v", domain.ErrInvalidInput, err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Trace) validate() error {
	if math.IsNaN(t.Duration) || math.IsInf(t.Duration, 0) || t.Duration < 0 {
		return fmt.Errorf("%w: duration must be a non-negative number", domain.ErrInvalidInput)
	}
	if len(t.Events) == 0 {
		return fmt.Errorf("%w: trace has no events", domain.ErrInvalidInput)
	}
	for i, ev := range t.Events {
		if !watch.EventType(ev.Type).Valid() {
			return fmt.Errorf("%w: event %d: unknown type %q", domain.ErrInvalidInput, i, ev.Type)
		}
		if math.IsNaN(ev.Duration) || math.IsInf(ev.Duration, 0) || ev.Duration < 0 {
			return fmt.Errorf("%w: event %d: duration must be a non-negative number", domain.ErrInvalidInput, i)
		}
		if ev.Step < 0 {
			return fmt.Errorf("%w: event %d: step must not be negative", domain.ErrInvalidInput, i)
		}
		if ev.Step > 0 {
			if ev.Type != string(watch.EventTimeUpdate) {
				return fmt.Errorf("%w: event %d: only timeupdate events can be ranged", domain.ErrInvalidInput, i)
			}
			if ev.To < ev.Position {
				return fmt.Errorf("%w: event %d: range ends before it starts", domain.ErrInvalidInput, i)
			}
			if (ev.To-ev.Position)/ev.Step > maxExpanded {
				return fmt.Errorf("%w: event %d: range expands to too many samples", domain.ErrInvalidInput, i)
			}
		}
	}
	return nil
}

// Samples flattens ranged events into single samples. Events without an
// explicit playing flag inherit the player state implied by earlier
// play/pause/ended events.
func (t *Trace) Samples() []Sample {
	var (
		out     []Sample
		playing bool
	)
	for _, ev := range t.Events {
		switch watch.EventType(ev.Type) {
		case watch.EventPlay:
			playing = true
		case watch.EventPause, watch.EventEnded:
			playing = false
		}
		p := playing
		if ev.Playing != nil {
			p = *ev.Playing
		}
		if ev.Step <= 0 {
			out = append(out, Sample{Type: ev.Type, Position: ev.Position, Duration: ev.Duration, Playing: p})
			continue
		}
		n := int(math.Floor((ev.To-ev.Position)/ev.Step + 1e-9))
		for i := 0; i <= n; i++ {
			out = append(out, Sample{Type: ev.Type, Position: ev.Position + float64(i)*ev.Step, Playing: p})
		}
		if last := ev.Position + float64(n)*ev.Step; last < ev.To {
			out = append(out, Sample{Type: ev.Type, Position: ev.To, Playing: p})
		}
	}
	return out
}

// Sample is a single flattened trace event.
type Sample struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration,omitempty"`
	Playing  bool    `json:"playing"`
}

// Event converts the sample into the player event it stands for.
func (s Sample) Event() watch.Event {
	return watch.Event{
		Type:     watch.EventType(s.Type),
		Position: s.Position,
		Duration: s.Duration,
		Playing:  s.Playing,
	}
}
