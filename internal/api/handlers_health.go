// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthLive handles liveness probe requests (Kubernetes-style).
// It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// DependencyStatus is the readiness result of one dependency.
type DependencyStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// It returns 503 unless every dependency answers Ping within pingTimeout.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	statuses := make([]DependencyStatus, len(h.dependencies))

	var mu sync.Mutex
	ready := true
	g, ctx := errgroup.WithContext(r.Context())
	for i, dep := range h.dependencies {
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, h.pingTimeout)
			defer cancel()

			status := DependencyStatus{Name: dep.Name, Ready: true}
			if err := dep.Pinger.Ping(pingCtx); err != nil {
				status.Ready = false
				status.Error = sanitizeLogValue(err.Error())
				mu.Lock()
				ready = false
				mu.Unlock()
			}
			statuses[i] = status
			return nil
		})
	}
	_ = g.Wait()

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, code, map[string]interface{}{
		"ready":        ready,
		"dependencies": statuses,
		"uptime":       time.Since(h.startTime).Seconds(),
	})
}
