package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"editorcore/internal/segmentation"
	"editorcore/pkg/zip"
)

type tensorRequest struct {
	ImageBase64   string              `json:"image_base64"`
	Region        *segmentation.Rect  `json:"region,omitempty"`
	Regions       []segmentation.Rect `json:"regions,omitempty"`
	Shape         *segmentation.Shape `json:"shape,omitempty"`
	Normalization string              `json:"normalization,omitempty"`
}

func (a *App) defaultShape() segmentation.Shape {
	size := a.SegmentSize
	if size <= 0 {
		size = 1024
	}
	return segmentation.Shape{Channels: 3, Height: size, Width: size}
}

func normalization(name string) (segmentation.Normalization, error) {
	switch name {
	case "", "imagenet":
		return segmentation.ImageNetNormalization, nil
	case "unit":
		return segmentation.UnitNormalization, nil
	default:
		return segmentation.Normalization{}, fmt.Errorf("unknown normalization %q", name)
	}
}

// SegmentTensor converts one or more image regions into model input tensors.
func (a *App) SegmentTensor(w http.ResponseWriter, r *http.Request) {
	var req tensorRequest
	if !a.decode(w, r, &req) {
		return
	}
	src, ok := a.decodeImage(w, req.ImageBase64)
	if !ok {
		return
	}
	norm, err := normalization(req.Normalization)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	shape := a.defaultShape()
	if req.Shape != nil {
		shape = *req.Shape
	}

	rects := req.Regions
	if req.Region != nil {
		rects = append([]segmentation.Rect{*req.Region}, rects...)
	}
	if len(rects) == 0 {
		b := src.Bounds()
		rects = []segmentation.Rect{{Width: b.Dx(), Height: b.Dy()}}
	}
	if err := a.Limits.withDefaults().checkTensors(shape, len(rects)); err != nil {
		a.fail(w, err)
		return
	}
	regions := make([]segmentation.PixelRegion, len(rects))
	for i, rect := range rects {
		regions[i] = segmentation.PixelRegion{Source: src, Rect: rect}
	}

	encoded, err := segmentation.RegionsToTensors(r.Context(), regions, shape, norm)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": encoded})
}

type maskInput struct {
	Tensor    segmentation.Tensor     `json:"tensor"`
	Channel   *int                    `json:"channel,omitempty"`
	Scores    []float32               `json:"scores,omitempty"`
	Threshold *float32                `json:"threshold,omitempty"`
	Transform *segmentation.Transform `json:"transform,omitempty"`
}

type cutoutRequest struct {
	ImageBase64 string      `json:"image_base64"`
	Masks       []maskInput `json:"masks"`
	WorkbenchID string      `json:"workbench_id,omitempty"`
}

type cutoutResponse struct {
	CutoutBase64 string            `json:"cutout_base64"`
	MaskBase64   string            `json:"mask_base64"`
	Bounds       segmentation.Rect `json:"bounds"`
	Selections   int               `json:"selections,omitempty"`
	URL          string            `json:"url,omitempty"`
}

// canvasMask turns one model output into a binary mask the size of the
// source canvas.
func canvasMask(in maskInput, width, height int) (*segmentation.Mask, error) {
	t, err := segmentation.NewTensor(in.Tensor.Shape, in.Tensor.Data)
	if err != nil {
		return nil, err
	}
	if t.Shape.Channels > 1 {
		channel := 0
		switch {
		case in.Channel != nil:
			channel = *in.Channel
		case len(in.Scores) > 0:
			channel = segmentation.BestChannel(in.Scores)
		}
		if t, err = segmentation.SliceTensor(t, channel); err != nil {
			return nil, err
		}
	}
	threshold := segmentation.DefaultThreshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	m, err := segmentation.TensorToMask(t, threshold)
	if err != nil {
		return nil, err
	}
	if in.Transform != nil {
		return in.Transform.ToCanvas(m, width, height)
	}
	if m.Width != width || m.Height != height {
		m = m.Resize(width, height)
	}
	return m, nil
}

// SegmentCutout merges model masks, applies them to the source image and
// returns the cut-out. With a workbench id the masks extend that workbench's
// running selection. ?format=zip returns cutout.png and mask.png as a zip.
func (a *App) SegmentCutout(w http.ResponseWriter, r *http.Request) {
	var req cutoutRequest
	if !a.decode(w, r, &req) {
		return
	}
	src, ok := a.decodeImage(w, req.ImageBase64)
	if !ok {
		return
	}
	if len(req.Masks) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one mask is required")
		return
	}
	if err := a.Limits.withDefaults().checkRegions(len(req.Masks)); err != nil {
		a.fail(w, err)
		return
	}
	b := src.Bounds()
	masks := make([]*segmentation.Mask, 0, len(req.Masks))
	for _, in := range req.Masks {
		m, err := canvasMask(in, b.Dx(), b.Dy())
		if err != nil {
			a.fail(w, err)
			return
		}
		masks = append(masks, m)
	}
	merged, err := segmentation.MergeMasks(masks...)
	if err != nil {
		a.fail(w, err)
		return
	}

	resp := cutoutResponse{}
	if req.WorkbenchID != "" {
		running, count, err := a.selections().Add(req.WorkbenchID, merged)
		if err != nil {
			a.fail(w, err)
			return
		}
		merged = running
		resp.Selections = count
	}

	cutout, err := segmentation.MaskToCutout(merged, src)
	if err != nil {
		a.fail(w, err)
		return
	}
	cutoutPNG, err := segmentation.EncodePNG(cutout)
	if err != nil {
		a.fail(w, err)
		return
	}
	maskPNG, err := segmentation.EncodePNG(merged.Gray())
	if err != nil {
		a.fail(w, err)
		return
	}
	resp.Bounds = segmentation.RectFrom(merged.Bounds())

	if r.URL.Query().Get("format") == "zip" {
		archive, err := zip.ArchiveAssets([]zip.Asset{
			{Filename: "cutout.png", MIME: "image/png", Data: cutoutPNG},
			{Filename: "mask.png", MIME: "image/png", Data: maskPNG},
		})
		if err != nil {
			a.fail(w, err)
			return
		}
		if url, ok := a.export(r, req.WorkbenchID, "cutout.zip", archive); ok {
			w.Header().Set("Content-Location", url)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="cutout.zip"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(archive)
		return
	}

	if url, ok := a.export(r, req.WorkbenchID, "cutout.png", cutoutPNG); ok {
		resp.URL = url
	}
	resp.CutoutBase64 = base64.StdEncoding.EncodeToString(cutoutPNG)
	resp.MaskBase64 = base64.StdEncoding.EncodeToString(maskPNG)
	a.json(w, http.StatusOK, resp)
}

// export stores data in the file store when one is configured.
func (a *App) export(r *http.Request, workbenchID, name string, data []byte) (string, bool) {
	if a.Store == nil {
		return "", false
	}
	owner := workbenchID
	if owner == "" {
		owner = "anonymous"
	}
	key := fmt.Sprintf("exports/%s/%s/%s", owner, uuid.NewString(), name)
	stored, err := a.Store.Write(r.Context(), key, data)
	if err != nil {
		a.Logger.Warn().Err(err).Str("key", key).Msg("cut-out export not stored")
		return "", false
	}
	return a.Store.URL(stored), true
}

// SelectionClear drops a workbench's running selection.
func (a *App) SelectionClear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workbench_id")
	a.selections().Delete(id)
	w.WriteHeader(http.StatusNoContent)
}
