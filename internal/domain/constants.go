package domain

const (
	DefaultServiceName            = "GenUI Workbench Agent"
	DefaultServiceVersion         = "1.0.0"
	DefaultModel                  = "gemini-2.5-flash"
	DefaultHTTPListenAddress      = "0.0.0.0:8000"
	DefaultEnableMetrics          = true
	DefaultCatalogPath            = "toolsets.json"
	DefaultAliasesPath            = "toolset_aliases.json"
	DefaultSessionTimeoutSeconds  = 3600
	DefaultSweepIntervalSeconds   = 60
	DefaultMemoryEnabled          = false
	DefaultMemoryBackend          = MemoryBackendEphemeral
	DefaultMemoryPersistDir       = "./.session_memory"
	DefaultMongoDatabase          = "genui"
	DefaultEmbeddingProvider      = "none"
	DefaultEmbeddingDimensions    = 768
	DefaultGeminiEmbeddingModel   = "models/gemini-embedding-001"
	DefaultOpenAIEmbeddingModel   = "text-embedding-3-small"
	DefaultOllamaEmbeddingModel   = "nomic-embed-text"
	DefaultOllamaHost             = "http://localhost:11434"
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "json"
	DefaultSearchResults          = 5
	DefaultRecentInteractionLimit = 10
	DefaultCanvasSessionID        = "default"
	DefaultReadyToolsetPreview    = 5
)
