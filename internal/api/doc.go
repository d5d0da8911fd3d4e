// Package api implements the HTTP REST API and real-time transports for
// ParkPilot Core.
//
// This package provides:
//   - REST endpoints for lot summaries, routing, spot transitions and analytics
//   - SSE event streams and a WebSocket hub for live spot status broadcasts
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between clients (mobile guidance apps, signage, the
// operator dashboard) and the parking service. Spot transitions flow through
// the reservation state machine in internal/parking; every transition is
// published on the event bus, and this package fans those updates out over
// SSE and WebSocket.
//
// # Security
//
// Authentication uses JWT access tokens issued by POST /auth/login against
// the users table. Routes that mutate state or expose per-user data require
// a valid token; admin-only routes additionally check the role claim.
// WebSocket connections use single-use tickets to prevent token leakage in
// URLs.
//
// # Graceful Degradation
//
// The server operates without a user repository or analytics services —
// the read-only parking surface and event streams keep working, only the
// endpoints backed by the missing dependency fail.
package api
