package command

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DualWrite runs publish and store concurrently and waits for both. It
// returns nil only if both succeed, otherwise a *DualWriteError naming the
// failed side. One side failing does not cancel the other.
//
// Parameters:
//   - ctx: Passed to both sides
//   - publish: Usually a Publisher call followed by Ack.Wait
//   - store: The matching repository write
//
// Returns:
//   - error: nil, or a *DualWriteError with Publish and Store set
func DualWrite(ctx context.Context, publish, store func(context.Context) error) error {
	var (
		g                errgroup.Group
		pubErr, storeErr error
	)
	g.Go(func() error {
		pubErr = publish(ctx)
		return nil
	})
	g.Go(func() error {
		storeErr = store(ctx)
		return nil
	})
	_ = g.Wait()

	if pubErr != nil || storeErr != nil {
		return &DualWriteError{Publish: pubErr, Store: storeErr}
	}
	return nil
}
