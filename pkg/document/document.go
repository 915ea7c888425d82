/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package document defines the external DID document shape the processor
// and composer mutate (spec §3/§4.4). Public keys and services are kept as
// slices, not maps, so that insertion order — which the composer's output
// contract requires — is preserved for free.
package document

import (
	"github.com/jinzhu/copier"

	"github.com/sidetree-node/core/pkg/internal/jwk"
)

// KeyUsage is the purpose a public key was added for. Only "recovery" has
// protocol-level significance: a recovery key cannot be removed by Update
// (spec §4.4 patch action 2).
type KeyUsage string

const (
	// KeyUsageRecovery marks the DID's current recovery key.
	KeyUsageRecovery KeyUsage = "recovery"
	// KeyUsageSigning marks a key usable to authorize Update operations.
	KeyUsageSigning KeyUsage = "signing"
)

// PublicKey is a single entry in a DID document's publicKey array.
type PublicKey struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Controller   string   `json:"controller"`
	Usage        KeyUsage `json:"usage,omitempty"`
	PublicKeyJwk *jwk.JWK `json:"publicKeyJwk,omitempty"`
}

// ServiceEndpoint is the "hub" style service-endpoint descriptor spec §4.4
// patch actions 3/4 mutate.
type ServiceEndpoint struct {
	Context   string   `json:"@context"`
	Type      string   `json:"@type"`
	Instances []string `json:"instances"`
}

// Service is a single entry in a DID document's service array.
type Service struct {
	Type            string          `json:"type"`
	ServiceEndpoint ServiceEndpoint `json:"serviceEndpoint"`
}

// Document is the external DID document produced by Create and mutated by
// Update/Recover.
type Document struct {
	ID        string      `json:"id,omitempty"`
	PublicKey []PublicKey `json:"publicKey,omitempty"`
	Service   []Service   `json:"service,omitempty"`
}

// Clone returns a deep copy of the document so a composer or processor can
// mutate a working copy without affecting the caller's resolution model
// until the mutation is known to succeed (spec §5 atomicity).
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	var out Document

	// copier.Option{DeepCopy: true} walks nested slices and pointers
	// (publicKey/service/instances, and each key's embedded JWK) so the
	// clone shares no backing array or pointer with d.
	if err := copier.CopyWithOption(&out, d, copier.Option{DeepCopy: true}); err != nil {
		panic("document: clone of identically-typed struct failed: " + err.Error())
	}

	return &out
}

// SigningKey returns the public key with the given id and usage=signing,
// or false if none matches (spec §4.5 Update key lookup).
func (d *Document) SigningKey(id string) (*PublicKey, bool) {
	for i := range d.PublicKey {
		pk := &d.PublicKey[i]
		if pk.ID == id && pk.Usage == KeyUsageSigning {
			return pk, true
		}
	}

	return nil, false
}
