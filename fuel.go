package texttemplate

import (
	"math"
	"sync/atomic"
)

// fuelTracker bounds the number of nodes one execution may evaluate. Every
// visited node and every loop iteration consumes one unit.
type fuelTracker struct {
	initial   uint64
	remaining atomic.Int64
}

func newFuelTracker(fuel uint64) *fuelTracker {
	if fuel == 0 {
		return nil
	}
	if fuel > math.MaxInt64 {
		fuel = math.MaxInt64
	}
	tracker := &fuelTracker{initial: fuel}
	tracker.remaining.Store(int64(fuel))
	return tracker
}

// consume is a no-op on a nil tracker.
func (f *fuelTracker) consume(amount int64) error {
	if f == nil || amount == 0 {
		return nil
	}
	if f.remaining.Add(-amount) < 0 {
		return errorf(ErrOutOfFuel, "execution exceeded its budget of %d steps", f.initial)
	}
	return nil
}

func (f *fuelTracker) consumedFuel() uint64 {
	if f == nil {
		return 0
	}
	remaining := f.remaining.Load()
	if remaining <= 0 {
		return f.initial
	}
	return f.initial - uint64(remaining)
}
