/*
File Name:  Ping.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/kadmesh/overlay/protocol"
)

// defaultPingInterval is how often every known peer is pinged to validate liveness and address currency.
const defaultPingInterval = 10 * time.Minute

// autoPingAll sends out regular ping messages to every peer in the routing table. Unresponsive peers are
// demoted: DirectlyConnected is cleared and their address forgotten.
func (backend *Backend) autoPingAll() {
	interval := defaultPingInterval
	if backend.Config.PingIntervalSeconds > 0 {
		interval = time.Duration(backend.Config.PingIntervalSeconds) * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		for _, peer := range backend.RoutingTable.AllPeers() {
			if !backend.pingPeer(peer) {
				peer.Address = ""
				peer.DirectlyConnected = false
				continue
			}
			backend.sendPacket(peer.Address, protocol.KindPing, uuid.New(), nil)
		}
	}
}
