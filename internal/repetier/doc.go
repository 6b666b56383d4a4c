// Package repetier drives a single Repetier-Server instance over its HTTP
// API: status and job polling, camera snapshots, job upload, and basic
// printer commands.
//
// # Architecture
//
// A Connection owns everything. Its event loop is the only goroutine that
// mutates connection state; the Transport performs requests on background
// goroutines and reports each outcome as exactly one Completion message on a
// shared channel, which the loop consumes. Public methods (StartPrint, Pause,
// SetBedTarget, ...) hand closures to the loop, so the core needs no locks.
//
//	tick ────────────> issue requests ───> Transport (goroutine per request)
//	                                            │
//	loop <── Completion / UploadProgress ───────┘
//	  │
//	  └─> Publisher (state, temperatures, job, upload, frames, notices)
//
// # Liveness
//
// Each poll tick compares the time since the last response against the
// timeout window (default 5s). A stalled connection enters the error state
// once, remembers the state it interrupted, and is restored the moment any
// response arrives. Camera snapshots and upload progress count as responses,
// which keeps long uploads from being misread as stalls. A stall that keeps
// outlasting window × missCount gets its transport discarded and rebuilt,
// defending against a client that reports connected but is dead underneath.
// Responses to requests issued against a discarded transport are ignored by
// request-identity mismatch.
package repetier
