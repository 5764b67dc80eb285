/*
File Name:  Settings.go
Copyright:  2021 Peernet Foundation s.r.o.
Author:     Peter Kleissner
*/

package core

import (
	_ "embed"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the current core library version.
const Version = "0.1"

//go:embed DefaultConfig.yaml
var defaultConfig []byte

// Config is the full set of settings a node loads on startup. Listen addresses are informational only:
// binding a transport is the caller's responsibility.
type Config struct {
	LogFile string `yaml:"LogFile"`

	Listen        []string `yaml:"Listen"`
	ListenWorkers int      `yaml:"ListenWorkers"`

	// PrivateKey is the hex-encoded PKCS#1 DER of the node's RSA private key, so it can be copied
	// manually between machines. Generated on first run if empty.
	PrivateKey string `yaml:"PrivateKey"`
	RSABits    int    `yaml:"RSABits"`

	BucketSize              int     `yaml:"BucketSize"`
	Alpha                   int     `yaml:"Alpha"`
	LookupPerQueryTimeoutMs int     `yaml:"LookupPerQueryTimeoutMs"`
	LookupExpirationMs      int     `yaml:"LookupExpirationMs"`
	PeerFailureThreshold    uint32  `yaml:"PeerFailureThreshold"`
	PingIntervalSeconds     int     `yaml:"PingIntervalSeconds"`
	BroadcastDedupSize      int     `yaml:"BroadcastDedupSize"`

	// SeedList is the set of bootstrap peers dialed externally; connecting to them is out of scope here.
	SeedList []ConfigPeerSeed `yaml:"SeedList"`
}

// ConfigPeerSeed is a single bootstrap peer entry.
type ConfigPeerSeed struct {
	PublicKey string   `yaml:"PublicKey"` // X.509 SubjectPublicKeyInfo, hex encoded.
	Address   []string `yaml:"Address"`
}

// LoadConfig reads filename as YAML into out. If filename does not exist, the embedded default is used
// (and written to filename so subsequent runs can be edited).
func LoadConfig(filename string, out interface{}) (status int, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return ExitErrorConfigAccess, err
		}
		data = defaultConfig
		if writeErr := os.WriteFile(filename, data, 0644); writeErr != nil {
			return ExitErrorConfigAccess, writeErr
		}
	}

	if err = yaml.Unmarshal(data, out); err != nil {
		return ExitErrorConfigParse, err
	}

	return ExitSuccess, nil
}

// SaveConfig serializes cfg back to filename as YAML.
func SaveConfig(filename string, cfg interface{}) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
