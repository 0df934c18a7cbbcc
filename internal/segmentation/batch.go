package segmentation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RegionsToTensors encodes independent regions concurrently. Results keep the
// input order; the first failure cancels the remaining work.
func RegionsToTensors(ctx context.Context, regions []PixelRegion, shape Shape, norm Normalization) ([]*Encoded, error) {
	out := make([]*Encoded, len(regions))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, region := range regions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			enc, err := RegionToTensor(region, shape, norm)
			if err != nil {
				return err
			}
			out[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
