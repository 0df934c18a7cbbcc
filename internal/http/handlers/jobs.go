package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"editorcore/internal/domain"
	"editorcore/internal/ledger"
	"editorcore/internal/trajectory"
)

const defaultSmoothingWindow = 5

type trajectoryRequest struct {
	Keyframes  []trajectory.Keyframe `json:"keyframes"`
	FrameCount int                   `json:"frame_count"`
	Window     int                   `json:"window"`
	Mode       string                `json:"mode"`
}

func (t trajectoryRequest) cameraPath(limits Limits) ([]trajectory.CameraFrame, error) {
	if err := limits.checkFrames(t.FrameCount); err != nil {
		return nil, err
	}
	traj, err := trajectory.New(t.Keyframes, trajectory.WithMode(trajectory.ParseMode(t.Mode)))
	if err != nil {
		return nil, err
	}
	window := t.Window
	if window == 0 {
		window = defaultSmoothingWindow
	}
	return traj.CameraPath(t.FrameCount, window)
}

type jobSubmitRequest struct {
	Kind        domain.JobKind     `json:"kind"`
	Payload     json.RawMessage    `json:"payload"`
	WorkbenchID string             `json:"workbench_id"`
	Trajectory  *trajectoryRequest `json:"trajectory,omitempty"`
}

type jobSubmitResponse struct {
	JobID  string           `json:"job_id"`
	RunID  string           `json:"run_id"`
	Status domain.JobStatus `json:"status"`
}

func (a *App) JobsSubmit(w http.ResponseWriter, r *http.Request) {
	var req jobSubmitRequest
	if !a.decode(w, r, &req) {
		return
	}
	if !req.Kind.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "kind must be image, video or segment")
		return
	}
	payload := req.Payload
	if req.Trajectory != nil {
		if req.Kind != domain.JobKindVideo {
			a.error(w, http.StatusBadRequest, "bad_request", "trajectory is only accepted for video jobs")
			return
		}
		frames, err := req.Trajectory.cameraPath(a.Limits.withDefaults())
		if errors.Is(err, domain.ErrLimitExceeded) {
			a.fail(w, err)
			return
		}
		if err != nil {
			a.error(w, http.StatusBadRequest, "invalid_trajectory", err.Error())
			return
		}
		payload, err = withCameraPath(payload, frames)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}

	job, err := a.Jobs.Submit(r.Context(), ledger.SubmitRequest{
		Kind:        req.Kind,
		Payload:     payload,
		WorkbenchID: req.WorkbenchID,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, jobSubmitResponse{JobID: job.ID, RunID: job.RunID, Status: job.Status})
}

func withCameraPath(payload json.RawMessage, frames []trajectory.CameraFrame) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}
	path, err := json.Marshal(frames)
	if err != nil {
		return nil, err
	}
	fields["camera_path"] = path
	return json.Marshal(fields)
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if runID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "run_id required")
		return
	}
	view, err := a.Reconciler.Status(r.Context(), runID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, view)
}
