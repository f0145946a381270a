package telemetry

import (
	"context"
	"errors"
)

// Multi returns an emitter that forwards each event to every non-nil emitter and joins their errors.
// It returns nil when no emitter is given.
func Multi(emitters ...EventEmitter) EventEmitter {
	var out multiEmitter
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

type multiEmitter []EventEmitter

func (m multiEmitter) Emit(ctx context.Context, event *DecisionEvent) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
