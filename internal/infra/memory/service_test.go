package memory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genui/internal/domain"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// keywordEmbedder maps texts mentioning "revenue" onto one axis and
// everything else onto the other.
type keywordEmbedder struct {
	fail  bool
	tasks []domain.EmbeddingTask
}

func (e *keywordEmbedder) Embed(_ context.Context, text string, task domain.EmbeddingTask) ([]float32, error) {
	e.tasks = append(e.tasks, task)
	if e.fail {
		return nil, errors.New("provider down")
	}
	if strings.Contains(strings.ToLower(text), "revenue") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

type opMetrics struct {
	domain.NoopMetrics
	mu  sync.Mutex
	ops map[string]int
}

func (m *opMetrics) ObserveMemoryOperation(op string, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = map[string]int{}
	}
	m.ops[op]++
}

func newTestService(t *testing.T, embedder Embedder) (*Service, Store) {
	t.Helper()
	store := NewEphemeralStore()
	clock := &stepClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(context.Background(), Options{
		Store:     store,
		Embedder:  embedder,
		SessionID: "abc12345",
		Now:       clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store
}

func TestNewService_CreatesSessionCollections(t *testing.T) {
	svc, store := newTestService(t, nil)
	ephemeral := store.(*EphemeralStore)

	assert.Equal(t, "abc12345", svc.SessionID())
	assert.Equal(t, domain.MemoryBackendEphemeral, svc.Mode())
	for _, key := range domain.OrderedMemoryCollections {
		_, ok := ephemeral.collections["session_abc12345_"+domain.MemoryCollections[key]]
		assert.True(t, ok, key)
	}
}

func TestNewService_GeneratesSessionID(t *testing.T) {
	svc, err := NewService(context.Background(), Options{Store: NewEphemeralStore()})
	require.NoError(t, err)
	assert.Len(t, svc.SessionID(), 8)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(context.Background(), Options{})
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidArgument, code)
}

func TestService_StoreInteraction(t *testing.T) {
	embedder := &keywordEmbedder{}
	svc, store := newTestService(t, embedder)
	ctx := context.Background()

	id, err := svc.StoreInteraction(ctx, "user_query", "show revenue", map[string]any{"turn": 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "user_query_"))

	docs, err := store.List(ctx, svc.CollectionName(domain.CollectionInteractions), nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, "show revenue", doc.Document)
	assert.Equal(t, "user_query", doc.Metadata["type"])
	assert.Equal(t, "abc12345", doc.Metadata["session_id"])
	assert.Equal(t, "2025-03-01T12:00:02.000000", doc.Metadata["timestamp"])
	assert.Equal(t, float64(1), doc.Metadata["turn"])
	assert.Equal(t, []float32{1, 0}, doc.Embedding)
	assert.Equal(t, []domain.EmbeddingTask{domain.TaskRetrievalDocument}, embedder.tasks)
}

func TestService_EmbeddingFailureStillStores(t *testing.T) {
	svc, store := newTestService(t, &keywordEmbedder{fail: true})
	ctx := context.Background()

	_, err := svc.StoreObservation(ctx, "user prefers dark themes", "", 0)
	require.NoError(t, err)

	docs, err := store.List(ctx, svc.CollectionName(domain.CollectionObservations), nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Nil(t, docs[0].Embedding)
	assert.Equal(t, "general", docs[0].Metadata["category"])
	assert.Equal(t, float64(1), docs[0].Metadata["importance"])
}

func TestService_StoreToolOutput(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.StoreToolOutput(ctx, "upsert_ui_element", map[string]any{"id": "rev"}, map[string]any{"status": "success"}, true)
	require.NoError(t, err)

	docs, err := store.List(ctx, svc.CollectionName(domain.CollectionTools), nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(docs[0].Document), &payload))
	assert.Equal(t, "upsert_ui_element", payload["tool"])
	assert.Equal(t, map[string]any{"id": "rev"}, payload["inputs"])
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "upsert_ui_element", docs[0].Metadata["tool_name"])
	assert.Equal(t, true, docs[0].Metadata["success"])
}

func TestService_CurrentStateKeepsLatestPerKey(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.StoreStateChange(ctx, "theme_color", "red", nil)
	require.NoError(t, err)
	_, err = svc.StoreStateChange(ctx, "theme_color", "blue", "red")
	require.NoError(t, err)
	_, err = svc.StoreStateChange(ctx, "element_count", 3, nil)
	require.NoError(t, err)

	state, err := svc.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"theme_color": "blue", "element_count": float64(3)}, state)
}

func TestService_RecentInteractionsNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three", "four"} {
		_, err := svc.StoreInteraction(ctx, "user_query", text, nil)
		require.NoError(t, err)
	}

	recent, err := svc.RecentInteractions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "four", recent[0].Document)
	assert.Equal(t, "three", recent[1].Document)
	assert.Equal(t, "two", recent[2].Document)

	all, err := svc.RecentInteractions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestService_SearchContextSemantic(t *testing.T) {
	embedder := &keywordEmbedder{}
	svc, _ := newTestService(t, embedder)
	ctx := context.Background()

	_, err := svc.StoreContext(ctx, "the dashboard tracks quarterly revenue", nil)
	require.NoError(t, err)
	_, err = svc.StoreContext(ctx, "the user likes green", nil)
	require.NoError(t, err)

	matches, err := svc.SearchContext(ctx, "Revenue numbers", domain.CollectionContext, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "the dashboard tracks quarterly revenue", matches[0].Document)
	assert.Equal(t, domain.TaskRetrievalQuery, embedder.tasks[len(embedder.tasks)-1])
}

func TestService_SearchContextLexicalWithFilter(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.StoreObservation(ctx, "revenue card is important", "layout", 3)
	require.NoError(t, err)
	_, err = svc.StoreObservation(ctx, "revenue card moved", "history", 1)
	require.NoError(t, err)

	matches, err := svc.SearchContext(ctx, "revenue card", domain.CollectionObservations, 0, map[string]any{"importance": 3})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "revenue card is important", matches[0].Document)
}

func TestService_SearchContextUnknownCollection(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.SearchContext(context.Background(), "x", "bogus", 5, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownCollection)
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidArgument, code)
}

func TestService_SearchContextBackendFailureIsEmpty(t *testing.T) {
	svc, store := newTestService(t, nil)
	require.NoError(t, store.Close())

	matches, err := svc.SearchContext(context.Background(), "anything", domain.CollectionInteractions, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestService_SummaryAndClear(t *testing.T) {
	metrics := &opMetrics{}
	store := NewEphemeralStore()
	clock := &stepClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(context.Background(), Options{
		Store:     store,
		SessionID: "s1",
		Mode:      domain.MemoryBackendPersistent,
		Metrics:   metrics,
		Now:       clock.Now,
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.StoreInteraction(ctx, "user_query", "hello", nil)
	require.NoError(t, err)
	_, err = svc.StoreStateChange(ctx, "theme_color", "#ff0000", nil)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", summary.SessionID)
	assert.Equal(t, "2025-03-01T12:00:01.000000", summary.CreatedAt)
	assert.Equal(t, domain.MemoryBackendPersistent, summary.Mode)
	assert.Equal(t, map[string]int{
		"interactions": 1,
		"state":        1,
		"context":      0,
		"tools":        0,
		"observations": 0,
	}, summary.Collections)
	assert.Equal(t, map[string]any{"theme_color": "#ff0000"}, summary.CurrentState)

	require.NoError(t, svc.Clear(ctx))
	summary, err = svc.Summary(ctx)
	require.NoError(t, err)
	for key, n := range summary.Collections {
		assert.Zero(t, n, key)
	}
	assert.Empty(t, summary.CurrentState)

	assert.Equal(t, 1, metrics.ops["store_interaction"])
	assert.Equal(t, 1, metrics.ops["store_state"])
	assert.Equal(t, 1, metrics.ops["clear"])
	assert.Equal(t, 2, metrics.ops["summary"])
}

func TestOpen_DisabledReturnsNil(t *testing.T) {
	svc, err := Open(context.Background(), domain.MemoryConfig{Enabled: false}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestOpen_Ephemeral(t *testing.T) {
	svc, err := Open(context.Background(), domain.MemoryConfig{
		Enabled:   true,
		SessionID: "fixed",
		Embedding: domain.EmbeddingConfig{Provider: "none"},
	}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	assert.Equal(t, "fixed", svc.SessionID())
	assert.Equal(t, domain.MemoryBackendEphemeral, svc.Mode())
}

func TestOpen_UnknownEmbeddingProvider(t *testing.T) {
	_, err := Open(context.Background(), domain.MemoryConfig{
		Enabled:   true,
		Embedding: domain.EmbeddingConfig{Provider: "cohere"},
	}, nil, nil)
	require.Error(t, err)
}

type closingEmbedder struct {
	keywordEmbedder
	closed int
	err    error
}

func (e *closingEmbedder) Close() error {
	e.closed++
	return e.err
}

func TestService_CloseReleasesEmbedder(t *testing.T) {
	embedder := &closingEmbedder{}
	svc, err := NewService(context.Background(), Options{Store: NewEphemeralStore(), Embedder: embedder})
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	assert.Equal(t, 1, embedder.closed)

	failing := &closingEmbedder{err: errors.New("client already closed")}
	svc, err = NewService(context.Background(), Options{Store: NewEphemeralStore(), Embedder: failing})
	require.NoError(t, err)
	require.ErrorContains(t, svc.Close(), "client already closed")
}
