/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package doccomposer implements the document patch composer (C4): it
// applies an ordered patch list to a working copy of a DID document. See
// spec §4.4 for the four supported patch actions.
package doccomposer

import (
	"github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"

	"github.com/sidetree-node/core/pkg/document"
	"github.com/sidetree-node/core/pkg/document/patch"
)

const hubContext = "schema.identity.foundation/hub"
const hubServiceEndpointType = "UserServiceEndpoint"

// ErrInvalidServiceContext is returned when a service endpoint carries an
// @context that does not expand as valid JSON-LD.
var ErrInvalidServiceContext = errors.New("service endpoint context is not valid JSON-LD")

// ApplyPatches applies patches, in order, to a copy of doc and returns the
// resulting document. doc is never mutated; the input is cloned first so a
// caller holding the pre-image is unaffected regardless of outcome (spec
// §4.4/§5 atomicity).
func ApplyPatches(doc *document.Document, patches []patch.Patch) (*document.Document, error) {
	working := doc.Clone()

	for _, p := range patches {
		switch p.Action {
		case patch.ActionAddPublicKeys:
			addPublicKeys(working, p.PublicKeys)
		case patch.ActionRemovePublicKeys:
			removePublicKeys(working, p.PublicKeyIDs)
		case patch.ActionAddServiceEndpoints:
			if err := addServiceEndpoints(working, p.ServiceType, p.ServiceEndpoints); err != nil {
				return nil, err
			}
		case patch.ActionRemoveServiceEndpoints:
			removeServiceEndpoints(working, p.ServiceType, p.ServiceEndpoints)
		default:
			// unknown action: forward-compatible no-op (spec §4.4, §9).
		}
	}

	return working, nil
}

// addPublicKeys appends each key whose id is not already present. The
// controller is always server-enforced to the document's own id; a
// client-supplied controller is discarded. Duplicates by id are skipped.
func addPublicKeys(doc *document.Document, keys []document.PublicKey) {
	existing := make(map[string]bool, len(doc.PublicKey))
	for _, pk := range doc.PublicKey {
		existing[pk.ID] = true
	}

	for _, pk := range keys {
		if existing[pk.ID] {
			continue
		}

		pk.Controller = doc.ID
		doc.PublicKey = append(doc.PublicKey, pk)
		existing[pk.ID] = true
	}
}

// removePublicKeys removes each listed key id unless its usage is
// recovery: recovery keys can only be removed by Recover, never Update.
func removePublicKeys(doc *document.Document, ids []string) {
	if len(ids) == 0 {
		return
	}

	toRemove := make(map[string]bool, len(ids))
	for _, id := range ids {
		toRemove[id] = true
	}

	kept := doc.PublicKey[:0]

	for _, pk := range doc.PublicKey {
		if toRemove[pk.ID] && pk.Usage != document.KeyUsageRecovery {
			continue
		}

		kept = append(kept, pk)
	}

	doc.PublicKey = kept
}

// addServiceEndpoints finds (or creates) the service entry for
// serviceType and appends each endpoint not already present in its
// instances list.
func addServiceEndpoints(doc *document.Document, serviceType string, endpoints []string) error {
	if serviceType == "" || len(endpoints) == 0 {
		return nil
	}

	svc := findService(doc, serviceType)
	if svc == nil {
		if err := validateServiceContext(hubContext); err != nil {
			return err
		}

		doc.Service = append(doc.Service, document.Service{
			Type: serviceType,
			ServiceEndpoint: document.ServiceEndpoint{
				Context:   hubContext,
				Type:      hubServiceEndpointType,
				Instances: []string{},
			},
		})
		svc = &doc.Service[len(doc.Service)-1]
	}

	present := make(map[string]bool, len(svc.ServiceEndpoint.Instances))
	for _, inst := range svc.ServiceEndpoint.Instances {
		present[inst] = true
	}

	for _, ep := range endpoints {
		if present[ep] {
			continue
		}

		svc.ServiceEndpoint.Instances = append(svc.ServiceEndpoint.Instances, ep)
		present[ep] = true
	}

	return nil
}

// removeServiceEndpoints removes the listed endpoints from the service's
// instances list. A missing service is a no-op.
func removeServiceEndpoints(doc *document.Document, serviceType string, endpoints []string) {
	svc := findService(doc, serviceType)
	if svc == nil || len(endpoints) == 0 {
		return
	}

	toRemove := make(map[string]bool, len(endpoints))
	for _, ep := range endpoints {
		toRemove[ep] = true
	}

	kept := svc.ServiceEndpoint.Instances[:0]

	for _, inst := range svc.ServiceEndpoint.Instances {
		if toRemove[inst] {
			continue
		}

		kept = append(kept, inst)
	}

	svc.ServiceEndpoint.Instances = kept
}

func findService(doc *document.Document, serviceType string) *document.Service {
	for i := range doc.Service {
		if doc.Service[i].Type == serviceType {
			return &doc.Service[i]
		}
	}

	return nil
}

// validateServiceContext expands the hub service-endpoint @context through
// json-gold as a structural sanity check before a new service entry is
// created. This is additive (SPEC_FULL §4.4): it never changes patch
// semantics, it only rejects a malformed context earlier than resolution.
//
// The context document is served from an embedded static loader rather
// than fetched over the network: resolution must stay deterministic and
// offline (spec §3 invariant 4), so json-gold is never allowed to dial out.
func validateServiceContext(context string) error {
	contextURL := "https://" + context

	doc := map[string]interface{}{
		"@context": contextURL,
		"@type":    hubServiceEndpointType,
	}

	proc := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.DocumentLoader = newStaticLoader(contextURL, hubContextDocument)

	if _, err := proc.Expand(doc, options); err != nil {
		return errors.Wrap(ErrInvalidServiceContext, err.Error())
	}

	return nil
}

// hubContextDocument is the embedded JSON-LD context for the hub
// service-endpoint descriptor (spec §4.4).
var hubContextDocument = map[string]interface{}{
	"@context": map[string]interface{}{
		"@version":  1.1,
		"instances": map[string]interface{}{"@id": "https://schema.identity.foundation/hub#instances"},
	},
}

// staticLoader serves a single preloaded JSON-LD context document without
// touching the network, for one fixed URL.
type staticLoader struct {
	url string
	doc interface{}
}

func newStaticLoader(url string, doc interface{}) *staticLoader {
	return &staticLoader{url: url, doc: doc}
}

// LoadDocument implements ld.DocumentLoader.
func (l *staticLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	if u != l.url {
		return nil, errors.Errorf("static loader has no document for %s", u)
	}

	return &ld.RemoteDocument{DocumentURL: u, Document: l.doc}, nil
}
