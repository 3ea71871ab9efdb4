package lightcull

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/compute"
)

type Pipeline = compute.Pipeline[compute.LightCullInputs, compute.TileLights]

// Culler runs tile light culling once per frame.
type Culler struct {
	pipeline *Pipeline
	tileSize int
}

func NewCuller(p *Pipeline, tileSize int) *Culler {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	return &Culler{pipeline: p, tileSize: tileSize}
}

func (c *Culler) Available() bool { return c.pipeline.Available() }

// Cull dispatches one workgroup per tile and waits for the tile lists.
func (c *Culler) Cull(ctx context.Context, depth compute.DepthMap, lights []compute.PointLight, proj, view mgl32.Mat4) (compute.TileLights, error) {
	if depth.Width <= 0 || depth.Height <= 0 || len(depth.Depth) != depth.Width*depth.Height {
		return compute.TileLights{}, errors.New("depth map size does not match its texels")
	}
	in := compute.LightCullInputs{
		Depth:      depth,
		Lights:     lights,
		Projection: proj,
		View:       view,
		TileSize:   c.tileSize,
	}
	groups := compute.Groups{
		uint32(compute.TileCount(depth.Width, c.tileSize)),
		uint32(compute.TileCount(depth.Height, c.tileSize)),
		1,
	}
	out, err := c.pipeline.Run(ctx, groups, in)
	if err != nil {
		return compute.TileLights{}, fmt.Errorf("light cull: %w", err)
	}
	return out, nil
}
