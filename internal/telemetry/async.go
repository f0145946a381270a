package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// emitTimeout is the max time allowed for a single async emit. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after gRPC GracefulStop before shutting down OTel providers,
// so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the request is not blocked.
//
// emitter and event may be nil; EmitAsync returns immediately without starting a goroutine.
// The goroutine detaches from ctx cancellation so a finished request does not abort its own event.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *DecisionEvent) {
	if emitter == nil || event == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Warn().Err(err).Str("method", event.Method).Msg("telemetry: async emit failed")
		}
	}()
}
