// Package app provides the orchestration layer for the Gantry application.
//
// # Overview
//
// This package wires together configuration, the Repetier-Server connection,
// state management, and the UI to create the complete Gantry TUI experience.
// It serves as the composition root where all dependencies are initialized
// and connected.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()            Read gantry config
//	       ├─────> prefs.Load()             Read UI preferences
//	       ├─────> state.Store{}            Shared state container
//	       ├─────> repetier.NewConnection() Printer connection (store is its Publisher)
//	       ├─────> conn.Connect()           Launch polling event loop
//	       └─────> ui.Run()                 Start TUI (blocks)
//
//	Connection event loop:
//	┌───────────────────────────────────────────┐
//	│ poll status/job, camera, uploads          │
//	│  └─> store (Publisher callbacks, atomic)  │
//	│      └─> UI reads store.Snapshot()        │
//	└───────────────────────────────────────────┘
//
// The connection publishes into the store on its own schedule; the UI reads
// snapshots at its own refresh rate. This separation keeps the UI responsive
// while the printer is slow or unreachable.
//
// # Logging
//
// The standard logger is discarded by default because the TUI owns the
// terminal. Pass Options.DebugLog to capture connection diagnostics in a
// file instead.
package app
