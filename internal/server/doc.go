// Package server is the HTTP surface of the relay: the websocket endpoint
// clients connect to, the authenticated internal push endpoint, and the
// health and metrics endpoints. Built on Echo.
package server
