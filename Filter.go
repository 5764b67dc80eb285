/*
File Name:  Filter.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Filters allow the caller to intercept events. The filter functions must not modify any data.
*/

package core

import (
	"github.com/kadmesh/overlay/dht"
)

// Filters contains all functions to install the hook. Use nil for unused.
// The functions are called sequentially and block execution; if the filter takes a long time it should start a Go routine.
type Filters struct {
	// LogError is called for any error.
	LogError func(function, format string, v ...interface{})

	// NewPeer is called whenever a peer is announced into the routing table for the first time.
	NewPeer func(peer *dht.Peer)

	// PeerSuspect is called when a peer's failure count crosses Config.PeerFailureThreshold.
	PeerSuspect func(peer *dht.Peer)

	// BucketEviction is called whenever a peer is evicted from a k-bucket after failing its liveness ping.
	BucketEviction func(peer *dht.Peer)

	// LookupStatus reports live progress of an iterative lookup.
	LookupStatus func(function, format string, v ...interface{})

	// PacketIn is a low-level filter for incoming packets after framing/decryption.
	PacketIn func(kind string, from dht.NodeId)

	// PacketOut is a low-level filter for outgoing packets before they are sent.
	PacketOut func(kind string, to dht.NodeId)
}

func (backend *Backend) initFilters() {
	// Set default filters to blank functions so they can be safely called without constant nil checks.
	if backend.Filters.LogError == nil {
		backend.Filters.LogError = func(function, format string, v ...interface{}) {}
	}
	if backend.Filters.NewPeer == nil {
		backend.Filters.NewPeer = func(peer *dht.Peer) {}
	}
	if backend.Filters.PeerSuspect == nil {
		backend.Filters.PeerSuspect = func(peer *dht.Peer) {}
	}
	if backend.Filters.BucketEviction == nil {
		backend.Filters.BucketEviction = func(peer *dht.Peer) {}
	}
	if backend.Filters.LookupStatus == nil {
		backend.Filters.LookupStatus = func(function, format string, v ...interface{}) {}
	}
	if backend.Filters.PacketIn == nil {
		backend.Filters.PacketIn = func(kind string, from dht.NodeId) {}
	}
	if backend.Filters.PacketOut == nil {
		backend.Filters.PacketOut = func(kind string, to dht.NodeId) {}
	}
}
