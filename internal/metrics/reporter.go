package metrics

import (
	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
)

// Reporter is a scroll.Reporter that records Prometheus metrics and logs
// finished scrolls at debug level.
// Like every reporter it is only called from the scheduler goroutine.
type Reporter struct {
	running map[*scroll.Session]bool
	next    scroll.Reporter
}

// NewReporter returns a Reporter that also forwards to next, if non-nil.
func NewReporter(next scroll.Reporter) *Reporter {
	return &Reporter{
		running: make(map[*scroll.Session]bool),
		next:    next,
	}
}

// FrameSample implements scroll.Reporter.
func (r *Reporter) FrameSample(f scroll.Frame) {
	FramesTotal.Inc()
	if f.Start {
		ScrollsStarted.Inc()
		if !r.running[f.Session] {
			r.running[f.Session] = true
			ActiveAnimations.Inc()
		}
	}
	if r.next != nil {
		r.next.FrameSample(f)
	}
}

// SessionEnded implements scroll.Reporter.
// Scrolls that ended before their first frame, such as instant scrolls, are
// counted as started here so started and finished stay comparable.
func (r *Reporter) SessionEnded(res scroll.Result) {
	outcome := Outcome(res)
	if r.running[res.Session] {
		delete(r.running, res.Session)
		ActiveAnimations.Dec()
	} else if outcome != OutcomeNoop {
		ScrollsStarted.Inc()
	}

	ScrollsFinished.WithLabelValues(outcome).Inc()
	if res.Interrupted() {
		ScrollInterruptions.WithLabelValues(res.InterruptedBy).Inc()
	}
	if outcome != OutcomeNoop {
		ScrollDuration.WithLabelValues(outcome).Observe(res.Elapsed.Seconds())
		ScrollDistance.Observe(res.Distance)
	}

	log.Debug().
		Str("container", containerID(res)).
		Str("outcome", outcome).
		Str("interrupted_by", res.InterruptedBy).
		Float64("distance", res.Distance).
		Dur("elapsed", res.Elapsed).
		Dur("duration", res.Duration).
		Msg("Scroll finished")

	if r.next != nil {
		r.next.SessionEnded(res)
	}
}

// Running returns the number of animations that have started and not ended.
func (r *Reporter) Running() int {
	return len(r.running)
}

// Outcome classifies a result for the outcome label.
func Outcome(res scroll.Result) string {
	switch {
	case res.Interrupted():
		return OutcomeInterrupted
	case res.Distance < 1:
		return OutcomeNoop
	default:
		return OutcomeCompleted
	}
}

func containerID(res scroll.Result) string {
	if res.Container == nil {
		return ""
	}
	return res.Container.ID()
}
