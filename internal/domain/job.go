package domain

import (
	"encoding/json"
	"time"
)

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImage   JobKind = "image"
	JobKindVideo   JobKind = "video"
	JobKindSegment JobKind = "segment"
)

// Valid reports whether k is one of the known kinds.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindImage, JobKindVideo, JobKindSegment:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusSuccess JobStatus = "success"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// GenerationJob tracks one externally executed generation job. RunID is the
// provider's correlation id and the primary lookup key.
type GenerationJob struct {
	ID          string
	Kind        JobKind
	RunID       string
	Status      JobStatus
	WorkbenchID string
	Payload     json.RawMessage
	ResultURL   string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a copy that does not alias the payload bytes.
func (j *GenerationJob) Clone() *GenerationJob {
	if j == nil {
		return nil
	}
	c := *j
	c.Payload = append(json.RawMessage(nil), j.Payload...)
	return &c
}

// JobPatch is the terminal update applied by a resolution.
type JobPatch struct {
	Status    JobStatus
	ResultURL string
	Error     string
	UpdatedAt time.Time
}
