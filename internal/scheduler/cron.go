// Package scheduler turns persisted backup job definitions into live cron
// timers, runs the backup pipeline when they fire, and reclaims expired
// artifacts according to each job's retention window.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Timer is a live, cancellable schedule registered with the cron runtime.
// The registry exclusively owns these handles.
type Timer interface {
	// Next returns the next time the timer will fire.
	Next() time.Time
	// Cancel removes the timer. In-flight executions are not interrupted.
	Cancel()
}

// CronRuntime is the narrow surface of the cron facility the scheduler
// depends on. All expressions are 5-field (minute granularity) and are
// evaluated in UTC to avoid daylight-saving ambiguity.
type CronRuntime interface {
	Validate(expr string) bool
	Schedule(expr string, fn func()) (Timer, error)
}

// Runtime implements CronRuntime on robfig/cron. Callbacks run on the
// cron dispatch goroutine's own workers, so a slow job never stalls
// other jobs' fires.
type Runtime struct {
	parser cron.Parser
	cron   *cron.Cron
}

// NewRuntime creates and starts the cron runtime.
func NewRuntime() *Runtime {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))
	c.Start()
	return &Runtime{parser: parser, cron: c}
}

// Validate reports whether expr parses as a 5-field cron expression.
func (r *Runtime) Validate(expr string) bool {
	_, err := r.parser.Parse(expr)
	return err == nil
}

// Schedule registers fn to run on the given expression.
func (r *Runtime) Schedule(expr string, fn func()) (Timer, error) {
	id, err := r.cron.AddFunc(expr, fn)
	if err != nil {
		return nil, err
	}
	return &cronTimer{cron: r.cron, id: id}, nil
}

// Stop halts timer dispatch and waits for in-flight callbacks to drain.
func (r *Runtime) Stop() {
	<-r.cron.Stop().Done()
}

type cronTimer struct {
	cron *cron.Cron
	id   cron.EntryID
}

func (t *cronTimer) Next() time.Time {
	return t.cron.Entry(t.id).Next
}

func (t *cronTimer) Cancel() {
	t.cron.Remove(t.id)
}
