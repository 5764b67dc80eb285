/*
File Name:  Command.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package protocol

// Packet kind identifiers, registered with the packet registry at startup. The strings are wire-stable:
// interoperating nodes must agree on the handshake-related ones.
const (
	KindHandshake     = "core.handshake"
	KindAnnouncement  = "core.announcement"
	KindPing          = "core.ping"
	KindPong          = "core.pong"
	KindFindNodeReq   = "core.findnode.request"
	KindFindNodeResp  = "core.findnode.response"
	KindBroadcast     = "core.broadcast"
	KindChallenge     = "core.challenge"
	KindChallengeResp = "core.challenge.response"
)

// broadcastKinds marks which registered kinds carry a TTL in their frame, per the packet codec (C2):
// the codec reads a short TTL right after the packet UUID for these kinds only.
var broadcastKinds = map[string]bool{
	KindBroadcast: true,
}

// IsBroadcastKind reports whether a registered kind carries a TTL field.
func IsBroadcastKind(kind string) bool {
	return broadcastKinds[kind]
}
