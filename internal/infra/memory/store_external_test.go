package memory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLiteral(t *testing.T) {
	assert.Nil(t, vectorLiteral(nil))
	assert.Equal(t, "[1,-0.5,0.25]", vectorLiteral([]float32{1, -0.5, 0.25}))
}

func TestParseVector(t *testing.T) {
	assert.Equal(t, []float32{1, -0.5, 0.25}, parseVector("[1, -0.5,0.25]"))
	assert.Nil(t, parseVector("[]"))
	assert.Nil(t, parseVector(""))
	assert.Equal(t, []float32{2}, parseVector("[x,2]"))
}

func TestDecodeMetadata(t *testing.T) {
	assert.Equal(t, map[string]any{"a": "b"}, decodeMetadata(`{"a":"b"}`))
	assert.Equal(t, map[string]any{}, decodeMetadata(""))
	assert.Equal(t, map[string]any{}, decodeMetadata("not json"))
	assert.Equal(t, map[string]any{}, nonNilMetadata(nil))
}

func TestMongoMemoryDocument_ToDomain(t *testing.T) {
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	doc := mongoMemoryDocument{
		ID:        "id1",
		Document:  "text",
		Metadata:  `{"type":"user_query"}`,
		Embedding: []float64{0.5, 1},
		CreatedAt: at,
	}.toDomain()

	assert.Equal(t, "id1", doc.ID)
	assert.Equal(t, "user_query", doc.Metadata["type"])
	assert.Equal(t, []float32{0.5, 1}, doc.Embedding)
	assert.Equal(t, at, doc.CreatedAt)
}

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("GENUI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GENUI_TEST_POSTGRES_DSN not set")
	}
	store, err := NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("GENUI_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GENUI_TEST_MONGO_URI not set")
	}
	store, err := NewMongoStore(context.Background(), uri, "genui_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}
