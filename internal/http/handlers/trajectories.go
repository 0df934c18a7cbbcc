package handlers

import "net/http"

func (a *App) TrajectoryPath(w http.ResponseWriter, r *http.Request) {
	var req trajectoryRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Window == 0 {
		req.Window = 1
	}
	frames, err := req.cameraPath(a.Limits.withDefaults())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"frames": frames})
}
