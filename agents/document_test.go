package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow-systems/hospital-core/domain/document"
	"github.com/careflow-systems/hospital-core/repos/inmem"
	"github.com/careflow-systems/hospital-core/runtime/toolregistry"
)

func newTestDocumentAgent() (*DocumentAgent, *toolregistry.Registry) {
	a := NewDocumentAgent(inmem.NewDocumentRepository())
	reg := toolregistry.New()
	if err := a.Register(reg); err != nil {
		panic(err)
	}
	return a, reg
}

func TestCreateDocumentAndSaveEntities(t *testing.T) {
	_, reg := newTestDocumentAgent()
	ctx := context.Background()

	res := reg.Call(ctx, "document.create_document", json.RawMessage(`{"name": "referral.pdf", "format": "pdf", "text": "patient has a fever"}`))
	require.True(t, res.OK, "%+v", res)
	doc := res.Data.(document.Document)

	res = reg.Call(ctx, "document.save_extracted_entities", json.RawMessage(`{
		"document_id": "`+doc.ID+`",
		"entities": [{"kind": "symptom", "value": "fever", "valid": true}]
	}`))
	require.True(t, res.OK, "%+v", res)

	res = reg.Call(ctx, "document.list_extracted_entities", json.RawMessage(`{"document_id": "`+doc.ID+`"}`))
	require.True(t, res.OK, "%+v", res)
	entities := res.Data.([]document.ExtractedEntity)
	require.Len(t, entities, 1)
	require.Equal(t, "fever", entities[0].Value)
}

func TestSaveExtractedEntitiesUnknownDocument(t *testing.T) {
	_, reg := newTestDocumentAgent()
	res := reg.Call(context.Background(), "document.save_extracted_entities", json.RawMessage(`{
		"document_id": "missing", "entities": []
	}`))
	require.False(t, res.OK)
}
