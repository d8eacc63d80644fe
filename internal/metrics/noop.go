package metrics

import "time"

// NoopSink is the Sink used when metrics are disabled; avoids nil checks
// at every call site.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (*NoopSink) RunStarted()                                        {}
func (*NoopSink) RunCompleted(duration time.Duration, sizeBytes int64) {}
func (*NoopSink) RunFailed()                                         {}
func (*NoopSink) RunSkipped()                                        {}
func (*NoopSink) ArtifactsReaped(count int)                          {}
func (*NoopSink) CleanupFailed()                                     {}
func (*NoopSink) ScheduledJobs(count int)                            {}
