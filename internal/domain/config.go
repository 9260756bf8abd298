package domain

// Config is the normalized process configuration.
type Config struct {
	Service  ServiceConfig
	HTTP     HTTPConfig
	Toolsets ToolsetsConfig
	Canvas   CanvasConfig
	Memory   MemoryConfig
	Log      LogConfig
}

type ServiceConfig struct {
	Name    string
	Version string
	Model   string
}

type HTTPConfig struct {
	ListenAddress string
	EnableMetrics bool
}

// ToolsetsConfig locates the toolset documents and selects the toolsets
// whose tools are exposed. An empty Enabled list exposes every
// non-deprecated toolset.
type ToolsetsConfig struct {
	CatalogPath string
	AliasesPath string
	Enabled     []string
}

// Sources returns the document locations for the loader.
func (c ToolsetsConfig) Sources() ToolsetSources {
	return ToolsetSources{CatalogPath: c.CatalogPath, AliasesPath: c.AliasesPath}
}

type CanvasConfig struct {
	SessionTimeoutSeconds int
	SweepIntervalSeconds  int
}

type MemoryConfig struct {
	Enabled    bool
	Backend    MemoryBackend
	SessionID  string
	PersistDir string
	Postgres   PostgresConfig
	Mongo      MongoConfig
	Embedding  EmbeddingConfig
}

type PostgresConfig struct {
	DSN string
}

type MongoConfig struct {
	URI      string
	Database string
}

// EmbeddingConfig selects the embedding provider. Provider "none" disables
// embeddings and search falls back to lexical matching.
type EmbeddingConfig struct {
	Provider     string
	Model        string
	Dimensions   int
	APIKeyEnvVar string
	BaseURL      string
}

type LogConfig struct {
	Level  string
	Format string
}
