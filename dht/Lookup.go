/*
File Name:  Lookup.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

The iterative lookup engine (C5): a concurrent, partial-failure-tolerant alpha-parallel search for the
peers closest to a target id. Each lookup is owned by a single goroutine that processes responses,
per-query timeouts, and the global expiration deadline off one channel, the same shape as the
level-based search client in the original implementation, but restructured around the round-based
state machine this design calls for instead of "levels".
*/

package dht

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Alpha is the lookup parallelism parameter.
const Alpha = 3

// DefaultPerQueryTimeout bounds how long the engine waits for any single FindNode round-trip.
const DefaultPerQueryTimeout = 2 * time.Second

// DefaultExpiration is the total wall-clock budget for a lookup absent an explicit override.
const DefaultExpiration = 10 * time.Second

// LookupStateKind is the terminal/non-terminal status of a LookupState.
type LookupStateKind int

const (
	Pending LookupStateKind = iota
	Fulfilled
	Expired
)

func (s LookupStateKind) String() string {
	switch s {
	case Fulfilled:
		return "Fulfilled"
	case Expired:
		return "Expired"
	default:
		return "Pending"
	}
}

// SendFindNodeFunc dispatches a FindNode(target) request to peer, stamped with lookupID for response
// correlation. It must not block the caller for the full round trip; the engine tracks its own timeout.
type SendFindNodeFunc func(peer *Peer, target NodeId, lookupID uuid.UUID)

// LookupSnapshot is a consistent, read-only copy of a LookupState at the moment it was taken.
type LookupSnapshot struct {
	ID          uuid.UUID
	Target      NodeId
	State       LookupStateKind
	Queried     []NodeId
	Discovered  []*Peer
	TargetFound *Peer
}

// Lookup is the caller-visible handle to a committed lookup.
type Lookup struct {
	al *activeLookup
}

// Snapshot returns the lookup's current state.
func (l *Lookup) Snapshot() LookupSnapshot { return l.al.snapshot() }

// Cancel transitions the lookup to Expired immediately. Outstanding requests are abandoned; on_failure
// fires unless the lookup already reached Fulfilled. Cancelling an already-terminal lookup is a no-op.
func (l *Lookup) Cancel() { l.al.cancel() }

// LookupBuilder configures a lookup before committing it. A fresh builder is created per lookup; no
// identity-based chaining is required.
type LookupBuilder struct {
	engine     *Engine
	target     NodeId
	recursive  bool
	expiration time.Duration
	onSuccess  func(*Peer)
	onFailure  func()
}

// NewLookup starts building a lookup for target.
func (e *Engine) NewLookup(target NodeId) *LookupBuilder {
	return &LookupBuilder{
		engine:     e,
		target:     target,
		expiration: DefaultExpiration,
	}
}

// Recursive enables continued polling of newly discovered closer peers until progress stalls.
func (b *LookupBuilder) Recursive(recursive bool) *LookupBuilder {
	b.recursive = recursive
	return b
}

// Expiration overrides the wall-clock deadline.
func (b *LookupBuilder) Expiration(d time.Duration) *LookupBuilder {
	b.expiration = d
	return b
}

// OnSuccess registers the callback invoked exactly once when the exact target is confirmed.
func (b *LookupBuilder) OnSuccess(f func(*Peer)) *LookupBuilder {
	b.onSuccess = f
	return b
}

// OnFailure registers the callback invoked exactly once on expiry without success.
func (b *LookupBuilder) OnFailure(f func()) *LookupBuilder {
	b.onFailure = f
	return b
}

// Commit finalizes the LookupState and starts the search. It may resolve synchronously (target already
// known locally, or no seeds available) or asynchronously via the registered callbacks.
func (b *LookupBuilder) Commit() *Lookup {
	e := b.engine

	al := &activeLookup{
		id:              uuid.New(),
		target:          b.target,
		rt:              e.rt,
		k:               e.K,
		alpha:           e.Alpha,
		perQueryTimeout: e.PerQueryTimeout,
		recursive:       b.recursive,
		onSuccess:       b.onSuccess,
		onFailure:       b.onFailure,
		send:            e.Send,
		responses:       make(chan response, e.Alpha*4),
		doneCh:          make(chan struct{}),
		queried:         make(map[NodeId]bool),
		outstanding:     make(map[NodeId]bool),
		fulfilled:       make(map[NodeId]bool),
		discovered:      make(map[NodeId]*Peer),
		engine:          e,
	}

	// LookupError case: the target is already a known peer. Resolve synchronously as Fulfilled.
	if existing := e.rt.GetNode(b.target); existing != nil {
		al.state = Fulfilled
		al.targetFound = existing
		al.fireSuccessOnce(existing)
		al.markDone()
		return &Lookup{al: al}
	}

	seeds := e.rt.GetClosestNodes(b.target, al.k, al.alpha*al.k)
	if len(seeds) == 0 {
		// LookupError::NoSeeds: resolve as Expired immediately.
		al.state = Expired
		al.fireFailureOnce()
		al.markDone()
		return &Lookup{al: al}
	}
	for _, p := range seeds {
		al.discovered[p.ID] = p
	}

	e.register(al)

	expiration := b.expiration
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	al.expiresAt = time.Now().Add(expiration)

	go al.run()

	return &Lookup{al: al}
}

// response is how an inbound FindNode reply, or a per-query timeout standing in for one, reaches the
// lookup's owning goroutine.
type response struct {
	from  NodeId
	peers []*Peer
	ok    bool // false: the peer did not respond within the per-query timeout
}

// activeLookup is the internal, single-goroutine-owned state machine behind a LookupState.
type activeLookup struct {
	id              uuid.UUID
	target          NodeId
	rt              *RoutingTable
	k, alpha        int
	perQueryTimeout time.Duration
	expiresAt       time.Time
	recursive       bool
	onSuccess       func(*Peer)
	onFailure       func()
	send            SendFindNodeFunc
	engine          *Engine

	responses chan response
	doneCh    chan struct{}
	closeOnce sync.Once
	fireOnce  sync.Once

	mu          sync.Mutex
	state       LookupStateKind
	rounds      int
	queried     map[NodeId]bool
	outstanding map[NodeId]bool
	fulfilled   map[NodeId]bool
	discovered  map[NodeId]*Peer
	targetFound *Peer
}

func (al *activeLookup) snapshot() LookupSnapshot {
	al.mu.Lock()
	defer al.mu.Unlock()
	s := LookupSnapshot{ID: al.id, Target: al.target, State: al.state, TargetFound: al.targetFound}
	for id := range al.queried {
		s.Queried = append(s.Queried, id)
	}
	for _, p := range al.discovered {
		s.Discovered = append(s.Discovered, p)
	}
	return s
}

func (al *activeLookup) fireSuccessOnce(p *Peer) {
	al.fireOnce.Do(func() {
		if al.onSuccess != nil {
			al.onSuccess(p)
		}
	})
}

func (al *activeLookup) fireFailureOnce() {
	al.fireOnce.Do(func() {
		if al.onFailure != nil {
			al.onFailure()
		}
	})
}

func (al *activeLookup) markDone() {
	al.closeOnce.Do(func() {
		// Remove from the engine's active table before closing doneCh, so a concurrent
		// Engine.HandleResponse either still finds this lookup registered (and races deliver's
		// own doneCh fallback, which merges into the routing table either way) or no longer finds
		// it at all (and falls back to the engine's own unknown-lookup Announce path).
		if al.engine != nil {
			al.engine.unregister(al.id)
		}
		close(al.doneCh)
		if al.engine != nil && al.engine.OnResolved != nil {
			al.mu.Lock()
			rounds, outcome := al.rounds, al.state
			al.mu.Unlock()
			al.engine.OnResolved(rounds, outcome)
		}
	})
}

// cancel implements Lookup.Cancel: transition to Expired and fire on_failure unless already Fulfilled.
func (al *activeLookup) cancel() {
	al.mu.Lock()
	if al.state != Pending {
		al.mu.Unlock()
		return
	}
	al.state = Expired
	al.mu.Unlock()

	al.fireFailureOnce()
	al.markDone()
}

// deliver routes an inbound response to this lookup's owning goroutine. Called from Engine.HandleResponse.
// If the lookup has already reached a terminal state (run's goroutine has returned, or is about to),
// the response can't be handed off for processing; per spec, it is still merged into the routing table
// for future use, it just doesn't get a chance to re-trigger callbacks (markDone already fired those).
func (al *activeLookup) deliver(from NodeId, peers []*Peer) {
	select {
	case al.responses <- response{from: from, peers: peers, ok: true}:
		return
	case <-al.doneCh:
	}
	for _, p := range peers {
		al.rt.Announce(p, p.Address)
	}
}

// run is the single goroutine owning this lookup's state for its entire lifetime.
func (al *activeLookup) run() {
	expirationTimer := time.NewTimer(time.Until(al.expiresAt))
	defer expirationTimer.Stop()

	bestUnqueried := al.closestUnqueriedDistance()

	for {
		al.mu.Lock()
		al.rounds++
		al.mu.Unlock()

		outstandingThisRound := al.startRound()
		if outstandingThisRound == 0 {
			// Nothing to query: either a cold routing table mid-lookup, or every discovered peer has
			// already been queried. Treat like a completed round with no progress.
			if al.finishRound(bestUnqueried, expirationTimer) {
				return
			}
			bestUnqueried = al.closestUnqueriedDistance()
			continue
		}

		for outstandingThisRound > 0 {
			select {
			case r := <-al.responses:
				outstandingThisRound--
				if al.handleResponse(r) {
					return // target found, Fulfilled, done
				}

			case <-expirationTimer.C:
				al.expire()
				return
			}
		}

		if al.finishRound(bestUnqueried, expirationTimer) {
			return
		}
		bestUnqueried = al.closestUnqueriedDistance()
	}
}

// closestUnqueriedDistance returns the smallest Distance(peer, target) among discovered\queried peers,
// or -1 if none remain.
func (al *activeLookup) closestUnqueriedDistance() int {
	al.mu.Lock()
	defer al.mu.Unlock()
	best := -1
	for id := range al.discovered {
		if al.queried[id] {
			continue
		}
		d := Distance(id, al.target)
		if best == -1 || d < best {
			best = d
		}
	}
	return best
}

// startRound selects up to alpha peers to query this round and dispatches FindNode requests, arming a
// per-peer timeout for each. It returns how many requests are now outstanding for this round.
func (al *activeLookup) startRound() int {
	al.mu.Lock()

	bestQueried := -1
	for id := range al.queried {
		d := Distance(id, al.target)
		if bestQueried == -1 || d < bestQueried {
			bestQueried = d
		}
	}

	var closer, all []lookupCandidate
	for id := range al.discovered {
		if al.queried[id] {
			continue
		}
		d := Distance(id, al.target)
		c := lookupCandidate{id: id, d: d}
		all = append(all, c)
		if bestQueried == -1 || d < bestQueried {
			closer = append(closer, c)
		}
	}

	pool := closer
	if len(pool) == 0 {
		pool = all
	}
	sortCandidates(pool)
	if len(pool) > al.alpha {
		pool = pool[:al.alpha]
	}

	peers := make([]*Peer, 0, len(pool))
	for _, c := range pool {
		p := al.discovered[c.id]
		al.queried[c.id] = true
		al.outstanding[c.id] = true
		peers = append(peers, p)
	}
	al.mu.Unlock()

	for _, p := range peers {
		al.send(p, al.target, al.id)
		go al.armTimeout(p.ID)
	}

	return len(peers)
}

// lookupCandidate is an unqueried discovered peer considered for the next round, paired with its
// distance to the lookup target so the selection sort doesn't recompute it repeatedly.
type lookupCandidate struct {
	id NodeId
	d  int
}

func sortCandidates(c []lookupCandidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0; j-- {
			a, b := c[j-1], c[j]
			swap := a.d > b.d || (a.d == b.d && less(b.id, a.id))
			if !swap {
				break
			}
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}

// armTimeout waits out the per-query timeout for a single outstanding peer; if the peer hasn't answered
// by then, it is "accounted for" with an empty, unsuccessful response.
func (al *activeLookup) armTimeout(id NodeId) {
	timer := time.NewTimer(al.perQueryTimeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		al.mu.Lock()
		stillOutstanding := al.outstanding[id]
		al.mu.Unlock()
		if !stillOutstanding {
			return
		}
		select {
		case al.responses <- response{from: id, ok: false}:
		case <-al.doneCh:
		}
	case <-al.doneCh:
	}
}

// handleResponse applies one response (success or timeout) to the lookup state. It returns true if the
// lookup reached a terminal state (target found) and run() should stop.
func (al *activeLookup) handleResponse(r response) bool {
	al.mu.Lock()
	delete(al.outstanding, r.from)
	al.fulfilled[r.from] = true

	var found *Peer
	if r.ok {
		for _, p := range r.peers {
			if _, known := al.discovered[p.ID]; !known {
				al.discovered[p.ID] = p
			}
			if p.ID == al.target {
				found = p
			}
		}
	}
	al.mu.Unlock()

	if r.ok {
		for _, p := range r.peers {
			al.rt.Announce(p, p.Address)
		}
	}

	if found != nil {
		al.mu.Lock()
		if al.state == Pending {
			al.state = Fulfilled
			al.targetFound = found
		}
		al.mu.Unlock()
		al.fireSuccessOnce(found)
		al.markDone()
		return true
	}
	return false
}

// finishRound decides whether to continue (recursive progress) or resolve as Expired. It returns true if
// the lookup is now terminal.
func (al *activeLookup) finishRound(bestBefore int, expirationTimer *time.Timer) bool {
	if !al.recursive {
		al.expire()
		return true
	}

	bestAfter := al.closestUnqueriedDistance()
	if bestAfter != -1 && (bestBefore == -1 || bestAfter < bestBefore) {
		// Progress: a strictly closer peer was learned this round. Keep going, subject to expiration.
		select {
		case <-expirationTimer.C:
			al.expire()
			return true
		default:
			return false
		}
	}

	al.expire()
	return true
}

// expire transitions a still-Pending lookup to Expired and fires on_failure.
func (al *activeLookup) expire() {
	al.mu.Lock()
	if al.state == Pending {
		al.state = Expired
	}
	al.mu.Unlock()
	al.fireFailureOnce()
	al.markDone()
}

// Engine owns the routing table reference, lookup parameters, and the table of in-flight lookups keyed
// by LookupId so inbound responses can be routed back to the goroutine awaiting them.
type Engine struct {
	rt *RoutingTable

	K               int
	Alpha           int
	PerQueryTimeout time.Duration
	Send            SendFindNodeFunc

	// OnResolved, if set, is called exactly once per lookup when it reaches a terminal state, reporting
	// how many rounds it took and whether it Fulfilled or Expired. Used by the glue layer to feed
	// lookup-outcome metrics; purely observational, never gates the callbacks in LookupBuilder.
	OnResolved func(rounds int, outcome LookupStateKind)

	mu     sync.Mutex
	active map[uuid.UUID]*activeLookup
}

// NewEngine creates a lookup engine bound to rt. Send must be set by the caller before committing a
// lookup.
func NewEngine(rt *RoutingTable) *Engine {
	return &Engine{
		rt:              rt,
		K:               DefaultBucketSize,
		Alpha:           Alpha,
		PerQueryTimeout: DefaultPerQueryTimeout,
		active:          make(map[uuid.UUID]*activeLookup),
	}
}

func (e *Engine) register(al *activeLookup) {
	e.mu.Lock()
	e.active[al.id] = al
	e.mu.Unlock()
}

func (e *Engine) unregister(id uuid.UUID) {
	e.mu.Lock()
	delete(e.active, id)
	e.mu.Unlock()
}

// HandleResponse routes an inbound FindNode response to the lookup identified by lookupID. Responses for
// an unknown, already-resolved, or cancelled lookup id are merged into the routing table (so the
// information isn't wasted) but do not re-trigger any callback.
func (e *Engine) HandleResponse(lookupID uuid.UUID, from NodeId, peers []*Peer) {
	e.mu.Lock()
	al, ok := e.active[lookupID]
	e.mu.Unlock()

	if !ok {
		for _, p := range peers {
			e.rt.Announce(p, p.Address)
		}
		return
	}
	al.deliver(from, peers)
}
