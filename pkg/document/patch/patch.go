/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package patch implements the tagged-variant patch design suggested by
// spec §9: an Update operation's patch list is untyped JSON on the wire,
// parsed here into one of {AddPublicKeys, RemovePublicKeys,
// AddServiceEndpoints, RemoveServiceEndpoints, Unknown}. Unknown is a
// no-op, so a future patch action never breaks replay of an old batch.
package patch

import (
	"encoding/json"

	"github.com/sidetree-node/core/pkg/document"
)

// Action is a patch action tag.
type Action string

const (
	ActionAddPublicKeys          Action = "add-public-keys"
	ActionRemovePublicKeys       Action = "remove-public-keys"
	ActionAddServiceEndpoints    Action = "add-service-endpoints"
	ActionRemoveServiceEndpoints Action = "remove-service-endpoints"
	actionUnknown                Action = ""
)

// Patch is a single document patch, already dispatched to its concrete
// shape by Action.
type Patch struct {
	Action Action `json:"action"`

	// PublicKeys carries full key objects for add-public-keys.
	PublicKeys []document.PublicKey `json:"publicKeys,omitempty"`

	// PublicKeyIDs carries bare key ids for remove-public-keys. The wire
	// property is still named "publicKeys", but its elements are strings,
	// not objects — see spec §9's open question on this exact asymmetry.
	PublicKeyIDs []string `json:"-"`

	// ServiceType names the service entry add/remove-service-endpoints
	// operates on.
	ServiceType string `json:"serviceType,omitempty"`

	// ServiceEndpoints carries the endpoint URIs being added or removed.
	ServiceEndpoints []string `json:"serviceEndpoints,omitempty"`
}

// wireEnvelope mirrors Patch's JSON shape, except that publicKeys is left
// as raw JSON so UnmarshalJSON can decide, per action, whether it holds
// objects (add) or bare id strings (remove).
type wireEnvelope struct {
	Action           Action          `json:"action"`
	PublicKeys       json.RawMessage `json:"publicKeys,omitempty"`
	ServiceType      string          `json:"serviceType,omitempty"`
	ServiceEndpoints []string        `json:"serviceEndpoints,omitempty"`
}

// UnmarshalJSON dispatches on the "action" property.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var env wireEnvelope

	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	*p = Patch{
		Action:           env.Action,
		ServiceType:      env.ServiceType,
		ServiceEndpoints: env.ServiceEndpoints,
	}

	if len(env.PublicKeys) == 0 {
		return nil
	}

	switch env.Action {
	case ActionAddPublicKeys:
		var keys []document.PublicKey
		if err := json.Unmarshal(env.PublicKeys, &keys); err != nil {
			return err
		}

		p.PublicKeys = keys
	case ActionRemovePublicKeys:
		var ids []string
		if err := json.Unmarshal(env.PublicKeys, &ids); err != nil {
			return err
		}

		p.PublicKeyIDs = ids
	}

	return nil
}

// MarshalJSON re-serializes the patch, choosing the publicKeys shape based
// on Action.
func (p Patch) MarshalJSON() ([]byte, error) {
	env := wireEnvelope{
		Action:           p.Action,
		ServiceType:      p.ServiceType,
		ServiceEndpoints: p.ServiceEndpoints,
	}

	switch p.Action {
	case ActionAddPublicKeys:
		raw, err := json.Marshal(p.PublicKeys)
		if err != nil {
			return nil, err
		}

		env.PublicKeys = raw
	case ActionRemovePublicKeys:
		raw, err := json.Marshal(p.PublicKeyIDs)
		if err != nil {
			return nil, err
		}

		env.PublicKeys = raw
	}

	return json.Marshal(env)
}

// IsKnown reports whether Action is one of the four defined patch actions.
// An unknown action is a forward-compatible no-op (spec §4.4, §9).
func (p Patch) IsKnown() bool {
	switch p.Action {
	case ActionAddPublicKeys, ActionRemovePublicKeys, ActionAddServiceEndpoints, ActionRemoveServiceEndpoints:
		return true
	default:
		return false
	}
}
