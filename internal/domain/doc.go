// Package domain holds the shared wire types of the relay: the event
// envelope accepted from ingestion paths and the frames written to clients.
package domain
