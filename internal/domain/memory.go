package domain

import "time"

// MemoryCollection is the short key of a session memory collection.
type MemoryCollection string

const (
	CollectionInteractions MemoryCollection = "interactions"
	CollectionState        MemoryCollection = "state"
	CollectionContext      MemoryCollection = "context"
	CollectionTools        MemoryCollection = "tools"
	CollectionObservations MemoryCollection = "observations"
)

// MemoryCollections maps each collection key to its stored name suffix.
var MemoryCollections = map[MemoryCollection]string{
	CollectionInteractions: "agent_interactions",
	CollectionState:        "environment_state",
	CollectionContext:      "agent_context",
	CollectionTools:        "tool_outputs",
	CollectionObservations: "session_observations",
}

// OrderedMemoryCollections is the stable iteration order for summaries.
var OrderedMemoryCollections = []MemoryCollection{
	CollectionInteractions,
	CollectionState,
	CollectionContext,
	CollectionTools,
	CollectionObservations,
}

// MemoryBackend selects the store implementation.
type MemoryBackend string

const (
	MemoryBackendEphemeral  MemoryBackend = "ephemeral"
	MemoryBackendPersistent MemoryBackend = "persistent"
	MemoryBackendPostgres   MemoryBackend = "postgres"
	MemoryBackendMongo      MemoryBackend = "mongo"
)

// EmbeddingTask hints the embedding provider about how a vector will be used.
type EmbeddingTask string

const (
	TaskRetrievalDocument  EmbeddingTask = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery     EmbeddingTask = "RETRIEVAL_QUERY"
	TaskSemanticSimilarity EmbeddingTask = "SEMANTIC_SIMILARITY"
	TaskClassification     EmbeddingTask = "CLASSIFICATION"
	TaskClustering         EmbeddingTask = "CLUSTERING"
)

// MemoryDocument is one stored entry in a collection.
type MemoryDocument struct {
	ID        string         `json:"id"`
	Document  string         `json:"document"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MemoryMatch is a search hit. Distance is nil when the backend reports none.
type MemoryMatch struct {
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Distance *float64       `json:"distance"`
}

// SessionSummary reports collection sizes and the latest state values.
type SessionSummary struct {
	SessionID    string         `json:"session_id"`
	CreatedAt    string         `json:"created_at"`
	Mode         MemoryBackend  `json:"mode"`
	Collections  map[string]int `json:"collections"`
	CurrentState map[string]any `json:"current_state"`
}

// MemoryEntry is a stored document returned without a similarity score.
type MemoryEntry struct {
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}
