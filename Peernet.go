/*
File Name:  Peernet.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package core

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
	"github.com/kadmesh/overlay/dht"
	"github.com/kadmesh/overlay/protocol"
)

// Init initializes the node. If the config file does not exist, a default one will be created.
// The User Agent must be provided in the form "Application Name/1.0".
// The returned status is of type ExitX. Anything other than ExitSuccess indicates a fatal failure.
func Init(UserAgent string, ConfigFilename string, Filters *Filters, ConfigOut interface{}) (backend *Backend, status int, err error) {
	if UserAgent == "" {
		return nil, ExitErrorConfigParse, nil
	}

	backend = &Backend{
		ConfigFilename:    ConfigFilename,
		Config:            &Config{},
		userAgent:         UserAgent,
		Stdout:            newMultiWriter(),
		Transport:         noopTransport{},
		pendingChallenges: make(map[uuid.UUID]pendingChallenge),
	}

	if Filters != nil {
		backend.Filters = *Filters
	}

	if status, err = LoadConfig(ConfigFilename, backend.Config); status != ExitSuccess {
		return nil, status, err
	}
	if ConfigOut != nil {
		if status, err = LoadConfig(ConfigFilename, ConfigOut); status != ExitSuccess {
			return nil, status, err
		}
		backend.ConfigClient = ConfigOut
	}

	backend.initFilters()

	if err = backend.initIdentity(); err != nil {
		return nil, ExitErrorIdentityInit, err
	}

	backend.initKademlia()

	if backend.Registry, err = protocol.DefaultRegistry(); err != nil {
		return nil, ExitErrorConfigParse, err
	}

	dedupSize := backend.Config.BroadcastDedupSize
	if dedupSize == 0 {
		dedupSize = 4096
	}
	if backend.broadcastSeen, err = lru.New[uuid.UUID, struct{}](dedupSize); err != nil {
		return nil, ExitErrorConfigParse, err
	}

	return backend, ExitSuccess, nil
}

// Connect starts the periodic maintenance goroutines: liveness pinging and bucket refresh. Bootstrapping
// from a root server or seed list is an external collaborator's responsibility, not performed here.
func (backend *Backend) Connect() {
	go backend.autoPingAll()
	go backend.autoBucketRefresh()
}

// Backend represents an instance of an overlay node to be used by a frontend.
type Backend struct {
	ConfigFilename string
	Config         *Config
	ConfigClient   interface{}
	Filters        Filters
	userAgent      string

	Identity      *protocol.LocalIdentity
	RoutingTable  *dht.RoutingTable
	Engine        *dht.Engine
	Registry      *protocol.Registry
	Transport     Transport
	PingFunc      func(peer *dht.Peer) bool
	broadcastSeen *lru.Cache[uuid.UUID, struct{}]

	challengeMu       sync.Mutex
	pendingChallenges map[uuid.UUID]pendingChallenge

	// Stdout bundles any output for the end-user. Writers may subscribe/unsubscribe.
	Stdout *multiWriter
}
