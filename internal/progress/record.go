package progress

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// TTL is the age after which a record is considered stale.
const TTL = time.Hour

// StorageKey is the key holding the full progress state.
const StorageKey = "syncgraph.progress"

// Status is the derived state of a tracked job.
type Status string

// The available statuses are listed below.
const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Update is a progress payload pushed while a job runs. Only is_complete and
// is_failed are interpreted; everything else is kept verbatim.
type Update map[string]any

type updateFlags struct {
	IsComplete bool `mapstructure:"is_complete"`
	IsFailed   bool `mapstructure:"is_failed"`
}

// Status derives the job status from the update flags. A failure wins over
// completion when both are set. Flags that cannot be read as booleans count
// as unset.
func (u Update) Status() Status {
	var flags updateFlags
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &flags,
	})
	if err != nil {
		return StatusActive
	}
	if err := dec.Decode(map[string]any(u)); err != nil {
		// A partially decoded flag is still honored.
		flags = decodeLeniently(u)
	}

	switch {
	case flags.IsFailed:
		return StatusFailed
	case flags.IsComplete:
		return StatusCompleted
	default:
		return StatusActive
	}
}

// decodeLeniently reads each flag on its own so one malformed field does not
// hide the other.
func decodeLeniently(u Update) updateFlags {
	var flags updateFlags
	if v, ok := u["is_complete"]; ok {
		_ = mapstructure.WeakDecode(v, &flags.IsComplete)
	}
	if v, ok := u["is_failed"]; ok {
		_ = mapstructure.WeakDecode(v, &flags.IsFailed)
	}
	return flags
}

// Record is the tracked state of one pipeline connection.
type Record struct {
	JobID      string `json:"jobId"`
	LastUpdate Update `json:"lastUpdate"`
	// Wall-clock time of the last write, in epoch milliseconds.
	Timestamp int64  `json:"timestamp"`
	Status    Status `json:"status"`
}

// Expired reports whether the record is at least TTL old at now.
func (r Record) Expired(now time.Time) bool {
	return now.UnixMilli()-r.Timestamp >= TTL.Milliseconds()
}
