// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import "time"

// Snapshot is a point-in-time view of a Registry for status reporting.
type Snapshot struct {
	Limits Limits          `json:"limits"`
	Points []PointSnapshot `json:"points"`
}

// PointSnapshot describes one live point.
type PointSnapshot struct {
	Index     int       `json:"index"`
	Path      string    `json:"path"`
	Refcount  int       `json:"refcount"`
	Readers   int       `json:"readers"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot returns the live points in registry order. Reader counts
// are sampled while the registry lock is held, but a concurrent
// read-open may claim a slot without the lock, so a count can lag by
// an in-flight open.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := Snapshot{Limits: r.limits, Points: []PointSnapshot{}}
	for i := range r.points {
		p := &r.points[i]
		if p.path == "" {
			continue
		}
		readers := 0
		for j := range p.slots {
			if p.slots[j].writeEnd.Load() != nil {
				readers++
			}
		}
		snapshot.Points = append(snapshot.Points, PointSnapshot{
			Index:     i,
			Path:      p.path,
			Refcount:  p.refcount,
			Readers:   readers,
			CreatedAt: p.createdAt,
		})
	}
	return snapshot
}
