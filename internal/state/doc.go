// Package state provides thread-safe state management for the Gantry
// application.
//
// # Overview
//
// This package implements a simple but thread-safe store for sharing printer
// state between the Repetier-Server connection and the UI. It acts as the
// coordination point where connection events meet UI rendering.
//
// # Architecture
//
// The package follows a producer-consumer pattern:
//
//	Producer (Connection):          Consumer (UI):
//	┌─────────────────────┐        ┌──────────────────┐
//	│ status/job polls    │        │                  │
//	│ camera snapshots    │        │                  │
//	│ upload progress     │        │                  │
//	│        ↓            │        │                  │
//	│ Publisher methods   │───────→│ store.Snapshot() │
//	│ (implemented here)  │ (mutex)│        ↓         │
//	└─────────────────────┘        │    render UI     │
//	                               └──────────────────┘
//
// Store implements repetier.Publisher, so the connection publishes directly
// into it without knowing anything about the UI. Each publisher callback
// updates one facet of the snapshot under a write lock.
//
// # Update Semantics
//
// Facets are independent: a job update never touches temperatures and vice
// versa. Two exceptions keep the snapshot honest:
//
//   - Leaving the connected state clears HasTemps and HasJob, so the UI
//     never renders readings from before a disconnect as current.
//   - Notices form a bounded ring (newest last); older entries fall off.
//
// # Defensive Copying
//
// Snapshot returns by value with the camera frame and notice slice cloned.
// The connection's event loop and the UI refresh loop never share mutable
// memory. Frames arrive a few times per second at tens of kilobytes, so the
// copy cost is negligible.
//
// # Testing Considerations
//
// The Store is safe to construct with zero value:
//
//	store := &state.Store{}  // ready to use immediately
//
// Snapshot() returns a zero Snapshot (Connection == StateClosed) until the
// first publisher callback arrives.
package state
