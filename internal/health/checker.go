// Package health reports readiness through the standard gRPC health service. The overall status ("") is
// SERVING only while every registered dependency answers its ping.
package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultInterval is how often Run re-checks dependencies.
const DefaultInterval = 10 * time.Second

// pingTimeout bounds a single dependency ping.
const pingTimeout = 2 * time.Second

// Pinger checks that a dependency is reachable (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// RedisPinger adapts a go-redis client to Pinger.
func RedisPinger(c redis.Cmdable) Pinger {
	return PingFunc(func(ctx context.Context) error { return c.Ping(ctx).Err() })
}

var _ Pinger = (*sql.DB)(nil)

// Checker pings registered dependencies and publishes the result on a gRPC health server.
type Checker struct {
	server *grpchealth.Server

	mu   sync.Mutex
	deps map[string]Pinger
}

// NewChecker returns a Checker publishing to server. The overall status starts NOT_SERVING until the first
// Check.
func NewChecker(server *grpchealth.Server) *Checker {
	server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &Checker{server: server, deps: make(map[string]Pinger)}
}

// Add registers a dependency under name. A nil pinger is ignored.
func (c *Checker) Add(name string, p Pinger) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps[name] = p
}

// Check pings every dependency, updates each dependency's status and the overall status, and returns the
// joined ping errors.
func (c *Checker) Check(ctx context.Context) error {
	c.mu.Lock()
	names := make([]string, 0, len(c.deps))
	for name := range c.deps {
		names = append(names, name)
	}
	deps := make(map[string]Pinger, len(c.deps))
	for k, v := range c.deps {
		deps[k] = v
	}
	c.mu.Unlock()
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := deps[name].PingContext(pctx)
		cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		c.server.SetServingStatus(name, st)
	}

	if len(errs) > 0 {
		c.server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return errors.Join(errs...)
	}
	c.server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run checks immediately and then every interval until ctx is done. Failures are logged once per change.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	healthy := true
	check := func() {
		err := c.Check(ctx)
		switch {
		case err != nil && healthy:
			log.Warn().Err(err).Msg("health: dependency not ready")
		case err == nil && !healthy:
			log.Info().Msg("health: dependencies ready")
		}
		healthy = err == nil
	}
	check()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}

// Shutdown marks every status NOT_SERVING so load balancers drain the instance.
func (c *Checker) Shutdown() {
	c.server.Shutdown()
}
