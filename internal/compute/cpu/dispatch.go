package cpu

import (
	"context"

	"github.com/alitto/pond/v2"

	"terrainstream/internal/compute"
)

// dispatchGroups submits one task per workgroup and returns a fence that
// signals once the whole group has finished. collect runs after the barrier.
func dispatchGroups[Out any](ctx context.Context, pool pond.Pool, groups compute.Groups, task func(x, y, z int) error, collect func() Out) compute.Fence[Out] {
	group := pool.NewGroup()
	for z := 0; z < int(groups[2]); z++ {
		for y := 0; y < int(groups[1]); y++ {
			for x := 0; x < int(groups[0]); x++ {
				x, y, z := x, y, z
				group.SubmitErr(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					return task(x, y, z)
				})
			}
		}
	}

	done := make(chan struct{})
	var err error
	go func() {
		err = group.Wait()
		close(done)
	}()

	return compute.NewFence(done, func() (Out, error) {
		if err != nil {
			var zero Out
			return zero, err
		}
		return collect(), nil
	})
}
