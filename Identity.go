/*
File Name:  Identity.go
Copyright:  2021 Peernet Foundation s.r.o.
Author:     Peter Kleissner
*/

package core

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"log"

	"github.com/kadmesh/overlay/protocol"
)

func (backend *Backend) initIdentity() (err error) {
	if len(backend.Config.PrivateKey) > 0 {
		der, err := hex.DecodeString(backend.Config.PrivateKey)
		if err != nil {
			log.Printf("Private key in config is corrupted! Error: %s\n", err.Error())
			return err
		}

		priv, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			log.Printf("Private key in config is corrupted! Error: %s\n", err.Error())
			return err
		}

		backend.Identity, err = protocol.NewLocalIdentity(priv)
		return err
	}

	bits := backend.Config.RSABits
	if bits == 0 {
		bits = protocol.MinRSAKeyBits
	}

	backend.Identity, err = protocol.GenerateLocalIdentity(bits)
	if err != nil {
		log.Printf("Error generating RSA key pair: %s\n", err.Error())
		return err
	}

	backend.Config.PrivateKey = hex.EncodeToString(x509.MarshalPKCS1PrivateKey(backend.Identity.PrivateKey))
	if err := SaveConfig(backend.ConfigFilename, backend.Config); err != nil {
		backend.Filters.LogError("initIdentity", "saving generated key: %s", err.Error())
	}

	return nil
}

// ExportPrivateKey returns the local node's RSA key pair.
func (backend *Backend) ExportPrivateKey() (privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey) {
	return backend.Identity.PrivateKey, backend.Identity.PublicKey
}
