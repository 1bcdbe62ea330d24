package observer

import (
	"context"

	"github.com/vizier-sh/vizier/internal/schema"
)

// Windows has no native probes wired yet; both shims pass the baseline
// result through unchanged.

type windowsObserver struct {
	*Baseline
}

func newWindowsObserver(base *Baseline) *windowsObserver {
	return &windowsObserver{Baseline: base}
}

type windowsWaker struct {
	*BaselineWaker
}

func newWindowsWaker(base *BaselineWaker) *windowsWaker {
	return &windowsWaker{BaselineWaker: base}
}

func (w *windowsWaker) Wake(ctx context.Context) (*schema.WakeObservation, error) {
	return w.BaselineWaker.Wake(ctx)
}
