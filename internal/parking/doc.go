// Package parking implements lot inventory and the spot reservation
// state machine.
//
// # Architecture
//
//	┌─────────────┐     ┌──────────────┐
//	│  API / MQTT  │────▶│   Service    │
//	└─────────────┘     └──────┬───────┘
//	                           │
//	        ┌──────────┬───────┼────────┬───────────┐
//	        ▼          ▼       ▼        ▼           ▼
//	   Repository  graph.Store Scheduler events.Bus telemetry
//	   (SQLite)    (in-memory) (TTL)    (fan-out)   (optional)
//
// The Service is the single writer for spot status. Every transition runs
// under a per-node lock, persists to SQLite first, then mutates the
// in-memory graph, then arms the expiry timer (reservations only), then
// publishes a status update on the bus. The database row is the source of
// truth; the graph is a routable cache rebuilt from it on startup.
//
// # State machine
//
//	AVAILABLE ──reserve──▶ RESERVED ──occupy──▶ OCCUPIED
//	    ▲                      │                    │
//	    │◀──── TTL expiry ─────┘                    │
//	    └────────────── free ───────────────────────┘
//
// A lapsed RESERVED spot (expires_at in the past) may be re-reserved
// directly; any other transition is a conflict. The Scheduler reverts
// lapsed reservations in the background, re-checking the persisted row
// before acting so stale timers are harmless.
package parking
