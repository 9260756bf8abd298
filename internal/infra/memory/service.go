package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"genui/internal/domain"
)

// timestampLayout sorts lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000"

type Options struct {
	Store     Store
	Embedder  Embedder
	SessionID string
	Mode      domain.MemoryBackend
	Logger    *zap.Logger
	Metrics   domain.Metrics
	Now       func() time.Time
}

// Service records agent interactions, state changes and tool results for
// one session and searches them.
type Service struct {
	store     Store
	embedder  Embedder
	sessionID string
	mode      domain.MemoryBackend
	createdAt string
	logger    *zap.Logger
	metrics   domain.Metrics
	now       func() time.Time
}

// NewService creates the session collections in store.
func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, domain.E(domain.CodeInvalidArgument, "memory.NewService", "store is required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.DefaultMemoryBackend
	}

	s := &Service{
		store:     opts.Store,
		embedder:  opts.Embedder,
		sessionID: sessionID,
		mode:      mode,
		createdAt: now().UTC().Format(timestampLayout),
		logger:    logger.Named("memory"),
		metrics:   metrics,
		now:       now,
	}
	if err := s.ensureCollections(ctx); err != nil {
		return nil, err
	}
	if s.embedder == nil {
		s.logger.Warn("embedding provider not configured, search falls back to lexical matching")
	}
	s.logger.Info("session memory initialized",
		zap.String("mode", string(mode)),
		zap.String("session", sessionID),
	)
	return s, nil
}

// NewSessionID returns a short random session id.
func NewSessionID() string {
	return uuid.NewString()[:8]
}

func (s *Service) SessionID() string {
	return s.sessionID
}

func (s *Service) Mode() domain.MemoryBackend {
	return s.mode
}

// CollectionName returns the stored name of a collection for this session.
func (s *Service) CollectionName(collection domain.MemoryCollection) string {
	return fmt.Sprintf("session_%s_%s", s.sessionID, domain.MemoryCollections[collection])
}

func (s *Service) ensureCollections(ctx context.Context) error {
	for _, key := range domain.OrderedMemoryCollections {
		if err := s.store.EnsureCollection(ctx, s.CollectionName(key)); err != nil {
			return domain.Wrap(domain.CodeUnavailable, "memory.ensureCollections", err)
		}
	}
	return nil
}

// StoreInteraction records a user query, agent response or tool call.
func (s *Service) StoreInteraction(ctx context.Context, interactionType, content string, metadata map[string]any) (string, error) {
	now := s.now().UTC()
	meta := copyMetadata(metadata)
	meta["type"] = interactionType
	meta["timestamp"] = now.Format(timestampLayout)
	meta["session_id"] = s.sessionID

	doc := domain.MemoryDocument{
		ID:        documentID(interactionType, now),
		Document:  content,
		Metadata:  meta,
		Embedding: s.embed(ctx, content, domain.TaskRetrievalDocument),
		CreatedAt: now,
	}
	return s.put(ctx, "store_interaction", domain.CollectionInteractions, doc)
}

// StoreStateChange records a new value for an environment state key.
func (s *Service) StoreStateChange(ctx context.Context, key string, value, previous any) (string, error) {
	now := s.now().UTC()
	content, err := json.Marshal(map[string]any{"key": key, "value": value, "previous": previous})
	if err != nil {
		return "", domain.E(domain.CodeInvalidArgument, "memory.StoreStateChange", "state value is not serializable", err)
	}
	doc := domain.MemoryDocument{
		ID:       documentID("state_"+key, now),
		Document: string(content),
		Metadata: map[string]any{
			"state_key":    key,
			"timestamp":    now.Format(timestampLayout),
			"session_id":   s.sessionID,
			"has_previous": previous != nil,
		},
		CreatedAt: now,
	}
	return s.put(ctx, "store_state", domain.CollectionState, doc)
}

// StoreToolOutput records one tool execution.
func (s *Service) StoreToolOutput(ctx context.Context, toolName string, inputs map[string]any, output any, success bool) (string, error) {
	now := s.now().UTC()
	if inputs == nil {
		inputs = map[string]any{}
	}
	content, err := json.Marshal(map[string]any{"tool": toolName, "inputs": inputs, "output": output, "success": success})
	if err != nil {
		return "", domain.E(domain.CodeInvalidArgument, "memory.StoreToolOutput", "tool output is not serializable", err)
	}
	inputsJSON, _ := json.Marshal(inputs)
	doc := domain.MemoryDocument{
		ID:       documentID("tool_"+toolName, now),
		Document: string(content),
		Metadata: map[string]any{
			"tool_name":  toolName,
			"success":    success,
			"timestamp":  now.Format(timestampLayout),
			"session_id": s.sessionID,
		},
		Embedding: s.embed(ctx, toolName+": "+string(inputsJSON), domain.TaskRetrievalDocument),
		CreatedAt: now,
	}
	return s.put(ctx, "store_tool", domain.CollectionTools, doc)
}

// StoreObservation records an insight. Empty category defaults to "general"
// and importance below 1 defaults to 1.
func (s *Service) StoreObservation(ctx context.Context, observation, category string, importance int) (string, error) {
	now := s.now().UTC()
	if category == "" {
		category = "general"
	}
	if importance < 1 {
		importance = 1
	}
	doc := domain.MemoryDocument{
		ID:       documentID("obs_"+category, now),
		Document: observation,
		Metadata: map[string]any{
			"category":   category,
			"importance": importance,
			"timestamp":  now.Format(timestampLayout),
			"session_id": s.sessionID,
		},
		Embedding: s.embed(ctx, observation, domain.TaskRetrievalDocument),
		CreatedAt: now,
	}
	return s.put(ctx, "store_observation", domain.CollectionObservations, doc)
}

// StoreContext records agent context or a reasoning trace.
func (s *Service) StoreContext(ctx context.Context, text string, metadata map[string]any) (string, error) {
	now := s.now().UTC()
	meta := copyMetadata(metadata)
	meta["timestamp"] = now.Format(timestampLayout)
	meta["session_id"] = s.sessionID
	doc := domain.MemoryDocument{
		ID:        documentID("ctx", now),
		Document:  text,
		Metadata:  meta,
		Embedding: s.embed(ctx, text, domain.TaskRetrievalDocument),
		CreatedAt: now,
	}
	return s.put(ctx, "store_context", domain.CollectionContext, doc)
}

// SearchContext finds documents related to query. Backend failures are
// logged and yield an empty result; only an unknown collection is an error.
func (s *Service) SearchContext(ctx context.Context, query string, collection domain.MemoryCollection, limit int, where map[string]any) ([]domain.MemoryMatch, error) {
	if collection == "" {
		collection = domain.CollectionInteractions
	}
	if _, ok := domain.MemoryCollections[collection]; !ok {
		err := domain.E(domain.CodeInvalidArgument, "memory.SearchContext", fmt.Sprintf("unknown collection: %s", collection), domain.ErrUnknownCollection)
		s.metrics.ObserveMemoryOperation("search", err)
		return nil, err
	}
	if limit <= 0 {
		limit = domain.DefaultSearchResults
	}

	matches, err := s.store.Query(ctx, s.CollectionName(collection), Query{
		Text:      query,
		Embedding: s.embed(ctx, query, domain.TaskRetrievalQuery),
		Limit:     limit,
		Where:     normalizeMetadata(where),
	})
	s.metrics.ObserveMemoryOperation("search", err)
	if err != nil {
		s.logger.Warn("search failed", zap.String("collection", string(collection)), zap.Error(err))
		return []domain.MemoryMatch{}, nil
	}
	if matches == nil {
		matches = []domain.MemoryMatch{}
	}
	return matches, nil
}

// RecentInteractions returns up to limit interactions, newest first.
func (s *Service) RecentInteractions(ctx context.Context, limit int) ([]domain.MemoryEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultRecentInteractionLimit
	}
	docs, err := s.store.List(ctx, s.CollectionName(domain.CollectionInteractions), nil)
	s.metrics.ObserveMemoryOperation("recent", err)
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "memory.RecentInteractions", err)
	}
	sortNewestFirst(docs)
	if len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]domain.MemoryEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.MemoryEntry{Document: doc.Document, Metadata: doc.Metadata})
	}
	return out, nil
}

// CurrentState returns the most recent value recorded for each state key.
func (s *Service) CurrentState(ctx context.Context) (map[string]any, error) {
	docs, err := s.store.List(ctx, s.CollectionName(domain.CollectionState), nil)
	s.metrics.ObserveMemoryOperation("state", err)
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "memory.CurrentState", err)
	}
	sortNewestFirst(docs)

	state := make(map[string]any)
	for _, doc := range docs {
		key, _ := doc.Metadata["state_key"].(string)
		if key == "" {
			continue
		}
		if _, seen := state[key]; seen {
			continue
		}
		var payload struct {
			Value any `json:"value"`
		}
		if err := json.Unmarshal([]byte(doc.Document), &payload); err != nil {
			state[key] = doc.Document
			continue
		}
		state[key] = payload.Value
	}
	return state, nil
}

// Summary reports the session id, collection sizes and current state.
func (s *Service) Summary(ctx context.Context) (domain.SessionSummary, error) {
	counts := make(map[string]int, len(domain.OrderedMemoryCollections))
	for _, key := range domain.OrderedMemoryCollections {
		n, err := s.store.Count(ctx, s.CollectionName(key))
		if err != nil {
			s.metrics.ObserveMemoryOperation("summary", err)
			return domain.SessionSummary{}, domain.Wrap(domain.CodeUnavailable, "memory.Summary", err)
		}
		counts[string(key)] = n
	}
	state, err := s.CurrentState(ctx)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	s.metrics.ObserveMemoryOperation("summary", nil)
	return domain.SessionSummary{
		SessionID:    s.sessionID,
		CreatedAt:    s.createdAt,
		Mode:         s.mode,
		Collections:  counts,
		CurrentState: state,
	}, nil
}

// Clear drops and recreates every session collection.
func (s *Service) Clear(ctx context.Context) error {
	for _, key := range domain.OrderedMemoryCollections {
		if err := s.store.DropCollection(ctx, s.CollectionName(key)); err != nil {
			s.logger.Warn("drop collection failed", zap.String("collection", string(key)), zap.Error(err))
		}
	}
	err := s.ensureCollections(ctx)
	s.metrics.ObserveMemoryOperation("clear", err)
	if err != nil {
		return err
	}
	s.logger.Info("session cleared", zap.String("session", s.sessionID))
	return nil
}

// Close releases the store and, when it holds a client, the embedder.
func (s *Service) Close() error {
	err := s.store.Close()
	if closer, ok := s.embedder.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func (s *Service) put(ctx context.Context, op string, collection domain.MemoryCollection, doc domain.MemoryDocument) (string, error) {
	doc.Metadata = normalizeMetadata(doc.Metadata)
	err := s.store.Upsert(ctx, s.CollectionName(collection), doc)
	s.metrics.ObserveMemoryOperation(op, err)
	if err != nil {
		return "", domain.Wrap(domain.CodeUnavailable, "memory."+op, err)
	}
	return doc.ID, nil
}

func (s *Service) embed(ctx context.Context, text string, task domain.EmbeddingTask) []float32 {
	if s.embedder == nil || text == "" {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, text, task)
	if err != nil {
		s.logger.Warn("embedding failed", zap.String("task", string(task)), zap.Error(err))
		return nil
	}
	return vec
}

func documentID(prefix string, now time.Time) string {
	ts := strconv.FormatFloat(float64(now.UnixMicro())/1e6, 'f', 6, 64)
	return fmt.Sprintf("%s_%s_%s", prefix, ts, uuid.NewString()[:8])
}

func copyMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// normalizeMetadata converts values to their JSON form so filters compare
// the same way in every backend.
func normalizeMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return metadata
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return metadata
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return metadata
	}
	return out
}

func sortNewestFirst(docs []domain.MemoryDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, _ := docs[i].Metadata["timestamp"].(string)
		tj, _ := docs[j].Metadata["timestamp"].(string)
		if ti != tj {
			return ti > tj
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}
