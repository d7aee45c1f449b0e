package spectralmesh

import (
	"context"
	"errors"
	"time"
)

// Run ticks the engine fps times a second and hands each frame to sink until
// ctx is done, then shuts the automation down. Frame dt is measured from the
// wall clock, so a late tick advances phases by the time actually elapsed.
func (e *Engine) Run(ctx context.Context, fps int, sink func(Frame)) error {
	if fps <= 0 {
		return errors.New("fps must be positive")
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	defer e.Shutdown()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			f := e.Tick(now.Sub(last))
			last = now
			if sink != nil {
				sink(f)
			}
		}
	}
}
