// Package reconcile turns provider notifications and status polls into
// ledger operations.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"editorcore/internal/domain"
	"editorcore/internal/ledger"
	"editorcore/internal/providers/compute"
)

// ErrNoUsableOutput is recorded as the job error when a successful run
// produced nothing the kind's matcher accepts.
var ErrNoUsableOutput = errors.New("provider returned no usable output")

// JobLedger is the subset of *ledger.Ledger the gateway drives.
type JobLedger interface {
	Resolve(ctx context.Context, runID string, out ledger.Outcome) (*ledger.Resolution, error)
	Lookup(ctx context.Context, runID string) (*domain.GenerationJob, error)
}

// NotificationValidator authenticates and parses a provider webhook.
type NotificationValidator interface {
	Validate(r *http.Request) (*compute.Notification, error)
}

// Ack summarises how a notification was handled.
type Ack struct {
	RunID    string
	Status   string
	Terminal bool
	Applied  bool
	Conflict bool
}

// StatusView is the pull-side projection of a job.
type StatusView struct {
	RunID     string           `json:"run_id"`
	JobID     string           `json:"job_id"`
	Kind      domain.JobKind   `json:"kind"`
	Status    domain.JobStatus `json:"status"`
	ResultURL string           `json:"result_url,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Gateway reconciles provider notifications and status polls against the
// job ledger.
type Gateway struct {
	ledger    JobLedger
	validator NotificationValidator
	rules     Rules
	log       zerolog.Logger
}

// NewGateway wires a Gateway to its ledger, validator and output rules.
func NewGateway(l JobLedger, v NotificationValidator, rules Rules, log zerolog.Logger) *Gateway {
	return &Gateway{ledger: l, validator: v, rules: rules, log: log}
}

// HandleNotification validates a webhook request and applies it. Errors wrap
// domain.ErrInvalidSignature, domain.ErrMalformedPayload or domain.ErrNotFound
// for requests the caller should reject; anything else is a persistence
// failure and the provider should retry.
func (g *Gateway) HandleNotification(ctx context.Context, r *http.Request) (*Ack, error) {
	n, err := g.validator.Validate(r)
	if err != nil {
		return nil, err
	}
	ack := &Ack{RunID: n.RunID, Status: n.Status}

	status, terminal := mapStatus(n.Status)
	if !terminal {
		g.log.Debug().Str("run_id", n.RunID).Str("status", n.Status).Msg("non-terminal run update acknowledged")
		return ack, nil
	}
	ack.Terminal = true

	job, err := g.ledger.Lookup(ctx, n.RunID)
	if err != nil {
		return nil, err
	}

	out := ledger.Outcome{Status: status}
	if status == domain.JobStatusSuccess {
		if f, ok := g.rules.Match(job.Kind, n.Files()); ok {
			out.ResultURL = f.URL
		} else {
			out.Status = domain.JobStatusError
			out.Error = ErrNoUsableOutput.Error()
		}
	} else {
		out.Error = n.Error
		if out.Error == "" {
			out.Error = fmt.Sprintf("run %s", n.Status)
		}
	}

	res, err := g.ledger.Resolve(ctx, n.RunID, out)
	if err != nil {
		return nil, err
	}
	ack.Applied = res.Applied
	ack.Conflict = res.Conflict
	return ack, nil
}

// Status answers a poll from the ledger alone.
func (g *Gateway) Status(ctx context.Context, runID string) (*StatusView, error) {
	job, err := g.ledger.Lookup(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		RunID:     job.RunID,
		JobID:     job.ID,
		Kind:      job.Kind,
		Status:    job.Status,
		ResultURL: job.ResultURL,
		Error:     job.Error,
	}, nil
}

func mapStatus(s string) (domain.JobStatus, bool) {
	switch s {
	case "success", "succeeded", "completed":
		return domain.JobStatusSuccess, true
	case "failed", "error", "cancelled", "canceled", "timeout":
		return domain.JobStatusError, true
	default:
		return domain.JobStatusPending, false
	}
}
