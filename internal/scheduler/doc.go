// Package scheduler runs the fixed-rate tick loop that drives stoves.
//
// One goroutine owns every stove in the registry. In the authoritative role
// each tick advances every stove, then handles the ones that changed: the
// sync payload goes to MQTT and the WebSocket hub immediately, the database
// write is batched every PersistInterval ticks. In the presentation role each
// tick only emits effects for the replica stoves and forwards the resulting
// particles to the hub.
//
// Anything else that touches a stove (API requests, replica updates) is
// queued with Do or Post and runs between ticks on the same goroutine.
// Network I/O happens on a separate outbox goroutine so a slow broker never
// stretches a tick.
package scheduler
