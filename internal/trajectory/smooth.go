package trajectory

import "fmt"

// Smooth applies a centred moving average of the given window. The window
// shrinks symmetrically near the edges and the first and last samples are
// copied unchanged, so the path starts and ends where it was authored.
func Smooth(samples []Sample, window int) ([]Sample, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: window %d", ErrInvalidArgument, window)
	}
	out := make([]Sample, len(samples))
	copy(out, samples)
	n := len(samples)
	half := window / 2
	if n < 3 || half == 0 {
		return out, nil
	}
	for i := 1; i < n-1; i++ {
		r := min(half, i, n-1-i)
		var acc Sample
		for j := i - r; j <= i+r; j++ {
			acc.X += samples[j].X
			acc.Y += samples[j].Y
			acc.Scale += samples[j].Scale
		}
		k := float64(2*r + 1)
		out[i] = Sample{X: acc.X / k, Y: acc.Y / k, Scale: acc.Scale / k}
	}
	return out, nil
}

// Smooth interpolates frameCount samples and smooths them.
func (t *Trajectory) Smooth(frameCount, window int) ([]Sample, error) {
	samples, err := t.Samples(frameCount)
	if err != nil {
		return nil, err
	}
	return Smooth(samples, window)
}

// CameraFrame is one entry of the per-frame camera path sent with a video
// generation request.
type CameraFrame struct {
	Frame int     `json:"frame"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// CameraPath builds the smoothed per-frame camera path.
func (t *Trajectory) CameraPath(frameCount, window int) ([]CameraFrame, error) {
	if window < 1 {
		window = 1
	}
	samples, err := t.Smooth(frameCount, window)
	if err != nil {
		return nil, err
	}
	frames := make([]CameraFrame, len(samples))
	for i, s := range samples {
		frames[i] = CameraFrame{Frame: i, X: s.X, Y: s.Y, Scale: s.Scale}
	}
	return frames, nil
}
