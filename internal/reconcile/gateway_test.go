package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"editorcore/internal/adapter/repo"
	"editorcore/internal/domain"
	"editorcore/internal/ledger"
	"editorcore/internal/providers/compute"
)

type fixedDispatcher struct{ runID string }

func (d fixedDispatcher) Dispatch(context.Context, domain.JobKind, json.RawMessage) (string, error) {
	return d.runID, nil
}

const secret = "hook-secret"

type harness struct {
	gw     *Gateway
	ledger *ledger.Ledger
	store  *repo.JobRepositoryMemory
}

func newHarness(t *testing.T, kind domain.JobKind, runID string) *harness {
	t.Helper()
	store := repo.NewJobRepositoryMemory()
	l := ledger.New(store, fixedDispatcher{runID: runID})
	if _, err := l.Submit(context.Background(), ledger.SubmitRequest{Kind: kind, Payload: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return &harness{
		gw:     NewGateway(l, compute.NewValidator(secret), DefaultRules(), zerolog.Nop()),
		ledger: l,
		store:  store,
	}
}

func signed(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/webhooks/compute", strings.NewReader(body))
	r.Header.Set(compute.SignatureHeader, compute.SignatureValue([]byte(secret), []byte(body)))
	return r
}

func TestVideoWebhookResolvesToMP4(t *testing.T) {
	h := newHarness(t, domain.JobKindVideo, "R")
	ctx := context.Background()

	view, err := h.gw.Status(ctx, "R")
	if err != nil || view.Status != domain.JobStatusPending || view.ResultURL != "" {
		t.Fatalf("status before webhook = %+v, err = %v", view, err)
	}

	body := `{"run_id":"R","status":"success","outputs":[{"data":{"gifs":[{"filename":"x.gif","url":"https://cdn/x.gif"},{"filename":"x.mp4","url":"https://cdn/x.mp4"}]}}]}`
	ack, err := h.gw.HandleNotification(ctx, signed(body))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if !ack.Applied || !ack.Terminal {
		t.Fatalf("ack = %+v", ack)
	}

	view, err = h.gw.Status(ctx, "R")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != domain.JobStatusSuccess || view.ResultURL != "https://cdn/x.mp4" {
		t.Fatalf("view = %+v", view)
	}
}

func TestPollBeforeWebhookDoesNotMutate(t *testing.T) {
	h := newHarness(t, domain.JobKindImage, "R")
	before := h.store.Writes()
	for i := 0; i < 3; i++ {
		view, err := h.gw.Status(context.Background(), "R")
		if err != nil || view.Status != domain.JobStatusPending {
			t.Fatalf("view = %+v, err = %v", view, err)
		}
	}
	if h.store.Writes() != before {
		t.Fatalf("polling wrote to the store")
	}
}

func TestDuplicateWebhookIsAcknowledged(t *testing.T) {
	h := newHarness(t, domain.JobKindImage, "R")
	body := `{"run_id":"R","status":"success","outputs":[{"data":{"images":[{"filename":"a.png","url":"https://cdn/a.png"}]}}]}`
	if _, err := h.gw.HandleNotification(context.Background(), signed(body)); err != nil {
		t.Fatalf("first: %v", err)
	}
	ack, err := h.gw.HandleNotification(context.Background(), signed(body))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if ack.Applied || !ack.Conflict {
		t.Fatalf("ack = %+v", ack)
	}
	if h.store.Writes() != 2 {
		t.Fatalf("writes = %d", h.store.Writes())
	}
}

func TestFailureThenSuccessKeepsError(t *testing.T) {
	h := newHarness(t, domain.JobKindImage, "R")
	ctx := context.Background()
	if _, err := h.gw.HandleNotification(ctx, signed(`{"run_id":"R","status":"failed","error":"oom"}`)); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if _, err := h.gw.HandleNotification(ctx, signed(`{"run_id":"R","status":"success","outputs":[{"data":{"images":[{"filename":"a.png","url":"https://cdn/a.png"}]}}]}`)); err != nil {
		t.Fatalf("success: %v", err)
	}
	view, _ := h.gw.Status(ctx, "R")
	if view.Status != domain.JobStatusError || view.Error != "oom" || view.ResultURL != "" {
		t.Fatalf("view = %+v", view)
	}
}

func TestSuccessWithoutUsableOutputIsError(t *testing.T) {
	h := newHarness(t, domain.JobKindVideo, "R")
	ctx := context.Background()
	body := `{"run_id":"R","status":"success","outputs":[{"data":{"files":[{"filename":"log.txt","url":"https://cdn/log.txt"}]}}]}`
	if _, err := h.gw.HandleNotification(ctx, signed(body)); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	view, _ := h.gw.Status(ctx, "R")
	if view.Status != domain.JobStatusError || view.Error != ErrNoUsableOutput.Error() {
		t.Fatalf("view = %+v", view)
	}
}

func TestNonTerminalUpdateLeavesLedgerAlone(t *testing.T) {
	h := newHarness(t, domain.JobKindImage, "R")
	before := h.store.Writes()
	ack, err := h.gw.HandleNotification(context.Background(), signed(`{"run_id":"R","status":"running"}`))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if ack.Terminal || ack.Applied {
		t.Fatalf("ack = %+v", ack)
	}
	if h.store.Writes() != before {
		t.Fatalf("non-terminal update wrote to the store")
	}
}

func TestNotificationRejections(t *testing.T) {
	h := newHarness(t, domain.JobKindImage, "R")
	ctx := context.Background()

	unsigned := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"run_id":"R","status":"success"}`))
	if _, err := h.gw.HandleNotification(ctx, unsigned); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("unsigned err = %v", err)
	}
	if _, err := h.gw.HandleNotification(ctx, signed(`{oops`)); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("malformed err = %v", err)
	}
	if _, err := h.gw.HandleNotification(ctx, signed(`{"run_id":"other","status":"success"}`)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown run err = %v", err)
	}
	if _, err := h.gw.Status(ctx, "other"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown status err = %v", err)
	}
}
