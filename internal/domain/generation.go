package domain

import (
	"strings"
	"time"
)

// Resolution is the output resolution tier.
type Resolution string

const (
	Resolution1K Resolution = "1K"
	Resolution2K Resolution = "2K"
	Resolution4K Resolution = "4K"
)

// Valid reports whether the resolution is a known tier.
func (r Resolution) Valid() bool {
	switch r {
	case Resolution1K, Resolution2K, Resolution4K:
		return true
	}
	return false
}

// Cost returns the credit price of one generation at this resolution.
func (r Resolution) Cost() int64 {
	if r == Resolution4K {
		return 100
	}
	return 50
}

// Aspect ratios accepted by the generation backends.
var validAspectRatios = map[string]bool{
	"1:1": true, "3:4": true, "4:3": true,
	"9:16": true, "16:9": true, "2:3": true, "3:2": true,
}

// ValidAspectRatio reports whether ratio is in the accepted set.
func ValidAspectRatio(ratio string) bool {
	return validAspectRatios[ratio]
}

// ImageRef is one reference image keyed by semantic role. The value is
// either a data URI with inline base64 content or an http(s) URL.
type ImageRef string

// Inline reports whether the reference carries inline base64 content.
func (r ImageRef) Inline() bool {
	return strings.HasPrefix(string(r), "data:")
}

// GenerateInput is the normalized request handed to the orchestrator.
type GenerateInput struct {
	Prompt          string
	Images          map[string]ImageRef
	AspectRatio     string
	Resolution      Resolution
	Seed            *int64
	NegativePrompt  string
	EnableWebSearch bool
}

// GenerateResult is the only form in which generated output leaves the
// orchestrator. AssetURL is durable: it outlives the originating provider's
// own retention window.
type GenerateResult struct {
	AssetURL string
	Provider string
	Seed     int64
}

// ProviderOutput is the normalized terminal result of one provider call.
// Exactly one of URL and Data is set.
type ProviderOutput struct {
	URL  string
	Data []byte
}

// Empty reports whether the provider returned a success with no artifact.
func (o *ProviderOutput) Empty() bool {
	return o == nil || (o.URL == "" && len(o.Data) == 0)
}

// JobState is one state of a generation job's lifecycle.
type JobState string

const (
	JobStatePending         JobState = "PENDING"
	JobStateInputNormalized JobState = "INPUT_NORMALIZED"
	JobStateDispatched      JobState = "DISPATCHED"
	JobStatePolling         JobState = "POLLING"
	JobStateSyncComplete    JobState = "SYNC_COMPLETE"
	JobStateSucceeded       JobState = "SUCCEEDED"
	JobStateFailed          JobState = "FAILED"
	JobStateTimeout         JobState = "TIMEOUT"
)

// Terminal reports whether no further provider calls may occur.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateTimeout:
		return true
	}
	return false
}

// jobRank orders states so transitions can be checked for monotonicity.
// POLLING self-loops; terminal states share the highest rank.
var jobRank = map[JobState]int{
	JobStatePending:         0,
	JobStateInputNormalized: 1,
	JobStateDispatched:      2,
	JobStatePolling:         3,
	JobStateSyncComplete:    3,
	JobStateSucceeded:       4,
	JobStateFailed:          4,
	JobStateTimeout:         4,
}

// Job tracks one generation request. Jobs are request-scoped and never
// persisted beyond logs; a job is discarded once it reaches a terminal state.
type Job struct {
	ID        string
	Provider  string
	State     JobState
	Attempts  int
	StartedAt time.Time
}

// NewJob constructs a job in the PENDING state.
func NewJob(id string) *Job {
	return &Job{
		ID:        id,
		State:     JobStatePending,
		StartedAt: time.Now().UTC(),
	}
}

// Advance moves the job to next. Transitions are one-directional: a job
// never re-enters an earlier state, and terminal states admit no exit.
// Illegal transitions panic, since they indicate a bug in the orchestrator
// rather than a runtime condition.
func (j *Job) Advance(next JobState) {
	if j.State.Terminal() {
		panic("generation job: transition out of terminal state " + string(j.State))
	}
	if next == JobStatePolling {
		j.Attempts++
		if j.State == JobStatePolling {
			return
		}
	}
	if jobRank[next] <= jobRank[j.State] {
		panic("generation job: transition " + string(j.State) + " -> " + string(next) + " goes backward")
	}
	j.State = next
}
