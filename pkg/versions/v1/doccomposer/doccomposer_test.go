/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package doccomposer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidetree-node/core/pkg/document"
	"github.com/sidetree-node/core/pkg/document/patch"
)

func baseDoc() *document.Document {
	return &document.Document{
		ID: "did:example:abc",
		PublicKey: []document.PublicKey{
			{ID: "#recovery", Usage: document.KeyUsageRecovery},
			{ID: "#signing", Usage: document.KeyUsageSigning},
		},
	}
}

func TestApplyPatches_AddPublicKeys(t *testing.T) {
	doc := baseDoc()

	patches := []patch.Patch{
		{
			Action: patch.ActionAddPublicKeys,
			PublicKeys: []document.PublicKey{
				{ID: "#k2", Usage: document.KeyUsageSigning, Controller: "should-be-discarded"},
				{ID: "#signing"}, // duplicate id, silently skipped
			},
		},
	}

	out, err := ApplyPatches(doc, patches)
	require.NoError(t, err)
	require.Len(t, out.PublicKey, 3)
	require.Equal(t, "#k2", out.PublicKey[2].ID)
	require.Equal(t, "did:example:abc", out.PublicKey[2].Controller)

	// input untouched
	require.Len(t, doc.PublicKey, 2)
}

func TestApplyPatches_RemovePublicKeys_RecoveryKeySurvives(t *testing.T) {
	doc := baseDoc()

	patches := []patch.Patch{
		{Action: patch.ActionRemovePublicKeys, PublicKeyIDs: []string{"#recovery", "#signing"}},
	}

	out, err := ApplyPatches(doc, patches)
	require.NoError(t, err)
	require.Len(t, out.PublicKey, 1)
	require.Equal(t, "#recovery", out.PublicKey[0].ID)
}

func TestApplyPatches_AddThenRemoveServiceEndpoints(t *testing.T) {
	doc := baseDoc()

	add := patch.Patch{
		Action:           patch.ActionAddServiceEndpoints,
		ServiceType:      "hub",
		ServiceEndpoints: []string{"https://hub.example.com", "https://hub.example.com", "https://hub2.example.com"},
	}

	out, err := ApplyPatches(doc, []patch.Patch{add})
	require.NoError(t, err)
	require.Len(t, out.Service, 1)
	require.Equal(t, hubContext, out.Service[0].ServiceEndpoint.Context)
	require.Equal(t, []string{"https://hub.example.com", "https://hub2.example.com"}, out.Service[0].ServiceEndpoint.Instances)

	remove := patch.Patch{
		Action:           patch.ActionRemoveServiceEndpoints,
		ServiceType:      "hub",
		ServiceEndpoints: []string{"https://hub.example.com"},
	}

	out2, err := ApplyPatches(out, []patch.Patch{remove})
	require.NoError(t, err)
	require.Equal(t, []string{"https://hub2.example.com"}, out2.Service[0].ServiceEndpoint.Instances)
}

func TestApplyPatches_RemoveServiceEndpoints_MissingServiceIsNoOp(t *testing.T) {
	doc := baseDoc()

	remove := patch.Patch{Action: patch.ActionRemoveServiceEndpoints, ServiceType: "hub", ServiceEndpoints: []string{"x"}}

	out, err := ApplyPatches(doc, []patch.Patch{remove})
	require.NoError(t, err)
	require.Empty(t, out.Service)
}

func TestApplyPatches_UnknownActionIsNoOp(t *testing.T) {
	doc := baseDoc()

	out, err := ApplyPatches(doc, []patch.Patch{{Action: "future-action"}})
	require.NoError(t, err)
	require.Equal(t, doc.PublicKey, out.PublicKey)
}
