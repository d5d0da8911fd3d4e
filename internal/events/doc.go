// Package events provides the in-process event bus for spot status changes.
//
// The parking service publishes a StatusUpdate every time a spot transitions
// state (reserve, occupy, free, expiry revert, sensor override). Transports
// subscribe and forward the updates to clients: the API layer frames them as
// Server-Sent Events and WebSocket messages.
//
// # Delivery semantics
//
// Delivery is best-effort fan-out. Each subscriber owns a buffered channel;
// Publish never blocks, so a subscriber that stops draining its channel loses
// updates rather than stalling the publisher. Subscribers filter by lot at
// subscribe time — a nil lot ID receives updates for every lot.
//
// Usage:
//
//	bus := events.NewBus(logger)
//	sub := bus.Subscribe(&lotID)
//	defer sub.Close()
//	for update := range sub.C() {
//	    // forward to client
//	}
package events
