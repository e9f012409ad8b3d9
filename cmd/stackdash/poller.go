// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stackdash/stackdash/services/dashboard/datatypes"
)

// =============================================================================
// POLLING
// =============================================================================

// View identifies which slice of dashboard state a poll targets.
type View string

const (
	// ViewSetup polls the readiness snapshot. During initial setup the
	// picture changes quickly, so it refreshes often.
	ViewSetup View = "setup"

	// ViewServices polls per-service status. Steady-state monitoring
	// tolerates a slower cadence.
	ViewServices View = "services"
)

// Default per-view refresh intervals.
const (
	DefaultSetupInterval    = 5 * time.Second
	DefaultServicesInterval = 30 * time.Second
)

// dashboardAPI is the slice of APIClient the poller needs.
type dashboardAPI interface {
	GetSetupStatus(ctx context.Context) (*datatypes.SetupReadiness, error)
	GetServices(ctx context.Context) ([]datatypes.ServiceStatus, error)
}

// SetupSnapshot is a readiness snapshot with fetch metadata.
//
// When a poll fails, the poller hands back the last snapshot that
// succeeded with Stale set. Readiness is nil only when no poll has ever
// succeeded.
type SetupSnapshot struct {
	Readiness *datatypes.SetupReadiness
	FetchedAt time.Time
	Stale     bool
}

// ServicesSnapshot is a service-status snapshot with fetch metadata.
type ServicesSnapshot struct {
	Services  []datatypes.ServiceStatus
	FetchedAt time.Time
	Stale     bool
}

// PollerConfig tunes the poller's per-view refresh intervals.
// Zero values fall back to the defaults.
type PollerConfig struct {
	SetupInterval    time.Duration
	ServicesInterval time.Duration
}

// Poller fetches dashboard state on a per-view cadence.
//
// # Description
//
// Concurrent polls of the same view are deduplicated with singleflight:
// when a fetch is already in flight, later callers wait for its result
// instead of issuing another request. The poller also retains the last
// successful snapshot per view so a transient dashboard outage degrades
// to stale data instead of a blank screen.
//
// # Thread Safety
//
// Safe for concurrent use.
type Poller struct {
	client dashboardAPI
	cfg    PollerConfig

	flight singleflight.Group

	mu           sync.Mutex
	lastSetup    SetupSnapshot
	lastServices ServicesSnapshot
}

// NewPoller creates a poller over the given client.
func NewPoller(client dashboardAPI, cfg PollerConfig) *Poller {
	if cfg.SetupInterval <= 0 {
		cfg.SetupInterval = DefaultSetupInterval
	}
	if cfg.ServicesInterval <= 0 {
		cfg.ServicesInterval = DefaultServicesInterval
	}
	return &Poller{client: client, cfg: cfg}
}

// Interval returns the refresh interval for a view.
func (p *Poller) Interval(view View) time.Duration {
	if view == ViewServices {
		return p.cfg.ServicesInterval
	}
	return p.cfg.SetupInterval
}

// PollSetup fetches the readiness snapshot, deduplicating concurrent
// calls. On failure it returns the last-known-good snapshot marked
// stale together with the fetch error.
func (p *Poller) PollSetup(ctx context.Context) (SetupSnapshot, error) {
	v, err, _ := p.flight.Do(string(ViewSetup), func() (any, error) {
		readiness, err := p.client.GetSetupStatus(ctx)
		if err != nil {
			return nil, err
		}
		snap := SetupSnapshot{Readiness: readiness, FetchedAt: time.Now()}
		p.mu.Lock()
		p.lastSetup = snap
		p.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		p.mu.Lock()
		snap := p.lastSetup
		p.mu.Unlock()
		snap.Stale = true
		return snap, err
	}
	return v.(SetupSnapshot), nil
}

// PollServices fetches per-service status, deduplicating concurrent
// calls. On failure it returns the last-known-good snapshot marked
// stale together with the fetch error.
func (p *Poller) PollServices(ctx context.Context) (ServicesSnapshot, error) {
	v, err, _ := p.flight.Do(string(ViewServices), func() (any, error) {
		services, err := p.client.GetServices(ctx)
		if err != nil {
			return nil, err
		}
		snap := ServicesSnapshot{Services: services, FetchedAt: time.Now()}
		p.mu.Lock()
		p.lastServices = snap
		p.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		p.mu.Lock()
		snap := p.lastServices
		p.mu.Unlock()
		snap.Stale = true
		return snap, err
	}
	return v.(ServicesSnapshot), nil
}

// WatchSetup polls the setup view on its interval until ctx is done,
// calling onUpdate after every poll (including failed ones, which carry
// a stale snapshot). The first poll happens immediately.
func (p *Poller) WatchSetup(ctx context.Context, onUpdate func(SetupSnapshot, error)) {
	ticker := time.NewTicker(p.Interval(ViewSetup))
	defer ticker.Stop()

	for {
		snap, err := p.PollSetup(ctx)
		onUpdate(snap, err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
