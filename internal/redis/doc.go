// Package redis provides the bus side of the relay: client construction
// and the pub/sub subscriber that feeds received envelopes into the hub.
package redis
