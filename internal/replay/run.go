package replay

import (
	"github.com/msomdec/coursewatch/internal/domain"
	"github.com/msomdec/coursewatch/internal/watch"
)

// Step is the engine state after one sample.
type Step struct {
	Index             int              `json:"index"`
	Type              string           `json:"type"`
	Position          float64          `json:"position"`
	Skipped           bool             `json:"skipped"`
	ValidWatchTime    float64          `json:"validWatchTime"`
	ActualTime        float64          `json:"actualWatchTime"`
	CheatScore        int              `json:"cheatScore"`
	Status            watch.StatusKind `json:"status"`
	CanComplete       bool             `json:"canComplete"`
	CompletionPercent float64          `json:"completionPercent"`
}

// Analytics mirrors the descriptive counters a live session would store.
type Analytics struct {
	TotalWatchTime     float64 `json:"totalWatchTime"`
	PauseCount         int     `json:"pauseCount"`
	SeekCount          int     `json:"seekCount"`
	RewindCount        int     `json:"rewindCount"`
	MaxProgressReached float64 `json:"maxProgressReached"`
}

// Result is the outcome of replaying a trace.
type Result struct {
	Name      string                 `json:"name,omitempty"`
	Steps     []Step                 `json:"steps"`
	State     domain.ValidationState `json:"state"`
	Status    watch.Status           `json:"status"`
	Message   string                 `json:"message"`
	Analytics Analytics              `json:"analytics"`
	// CompletedAt is the index of the sample that fired completion, or -1.
	CompletedAt int  `json:"completedAt"`
	Completed   bool `json:"completed"`
}

// Run feeds every sample of t through a fresh watch.Player, the same event
// mapping live sessions use, and closes the session at the end. The trace
// duration, when set, is applied as a leading metadata event.
func Run(t *Trace, th watch.Thresholds) Result {
	p := watch.NewPlayer(watch.New("replay", th), watch.PlaybackAnalytics{}, false)
	if t.Duration > 0 {
		p.Apply(watch.Event{Type: watch.EventMetadata, Duration: t.Duration})
	}

	res := Result{Name: t.Name, CompletedAt: -1}
	for i, s := range t.Samples() {
		out := p.Apply(s.Event())
		if out.Completed {
			res.Completed = true
			res.CompletedAt = i
		}

		st := p.Engine().State()
		res.Steps = append(res.Steps, Step{
			Index:             i,
			Type:              s.Type,
			Position:          s.Position,
			Skipped:           out.Skipped,
			ValidWatchTime:    st.ValidWatchTime,
			ActualTime:        st.ActualWatchTime,
			CheatScore:        st.CheatScore,
			Status:            p.Engine().Status().Kind,
			CanComplete:       st.CanComplete,
			CompletionPercent: p.CompletionPercent(),
		})
	}
	p.Finish()

	a := p.Analytics()
	res.State = p.Engine().State()
	res.Status = p.Engine().Status()
	res.Message = res.Status.Message()
	res.Analytics = Analytics{
		TotalWatchTime:     a.TotalWatchTime,
		PauseCount:         a.PauseCount,
		SeekCount:          a.SeekCount,
		RewindCount:        a.RewindCount,
		MaxProgressReached: a.MaxProgressReached,
	}
	return res
}
