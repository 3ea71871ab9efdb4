package cpu

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"

	"terrainstream/internal/compute"
	"terrainstream/internal/lightcull"
	"terrainstream/internal/spatial"
)

// LightCullKernel runs one task per screen tile.
type LightCullKernel struct {
	pool pond.Pool
}

func NewLightCullKernel(pool pond.Pool) *LightCullKernel {
	return &LightCullKernel{pool: pool}
}

func (k *LightCullKernel) Dispatch(ctx context.Context, prog *compute.Program, groups compute.Groups, in compute.LightCullInputs) (compute.Fence[compute.TileLights], error) {
	if prog.Spec.Kind != compute.KindLightCull {
		return nil, fmt.Errorf("program %s is %s, not light culling", prog.Spec.Name, prog.Spec.Kind)
	}
	if in.TileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive")
	}
	tilesX, tilesY := int(groups[0]), int(groups[1])
	if tilesX*in.TileSize < in.Depth.Width || tilesY*in.TileSize < in.Depth.Height {
		return nil, fmt.Errorf("%dx%d tiles do not cover a %dx%d screen", tilesX, tilesY, in.Depth.Width, in.Depth.Height)
	}

	inv := spatial.InvPerspective(in.Projection)
	lists := make([][]uint32, tilesX*tilesY)
	task := func(x, y, _ int) error {
		lists[y*tilesX+x] = lightcull.CullTile(in, inv, x, y)
		return nil
	}
	collect := func() compute.TileLights {
		return compute.TileLights{TilesX: tilesX, TilesY: tilesY, Lights: lists}
	}
	return dispatchGroups(ctx, k.pool, compute.Groups{groups[0], groups[1], 1}, task, collect), nil
}
