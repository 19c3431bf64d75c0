// Package metrics records API and generation metrics to Sentry and CloudWatch.
package metrics

import (
	"context"
	"time"
)

// Recorder receives one event per finished orchestration
type Recorder interface {
	RecordGeneration(ctx context.Context, generatorID string, steps int, duration time.Duration, success bool)
}

// Recorders fans an event out to every recorder
type Recorders []Recorder

// RecordGeneration forwards to each non-nil recorder
func (rs Recorders) RecordGeneration(ctx context.Context, generatorID string, steps int, duration time.Duration, success bool) {
	for _, r := range rs {
		if r != nil {
			r.RecordGeneration(ctx, generatorID, steps, duration, success)
		}
	}
}
