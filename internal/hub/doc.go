// Package hub is the broadcast core of the relay: it tracks which sessions
// joined which rooms and fans incoming events out to the matching
// connections. All state lives in a single goroutine; both ingestion paths
// (Redis subscription and the internal push endpoint) funnel through
// Hub.Broadcast, which is the one validation gate for event envelopes.
package hub
