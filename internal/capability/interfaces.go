package capability

import "context"

// Distiller reduces normalized candidate text to a DistilledContent.
// Implementations must be safe for concurrent use and must surface
// their own cache-hit flag on DistilledContent.Cached rather than
// relying on a caller-side cache.
type Distiller interface {
	Distill(ctx context.Context, normalizedText string) (DistilledContent, error)
}

// Embedder turns DistilledContent into fixed-dimension title and
// context vectors. Dimensions are fixed per model; a caller-observed
// mismatch against the index is a fatal configuration error, not an
// Embedder responsibility.
type Embedder interface {
	Embed(ctx context.Context, content DistilledContent) (VectorEmbeddings, error)
	Dimensions() int
	ModelName() string
}

// SearchOptions bounds a vector index lookup.
type SearchOptions struct {
	Vector    []float32
	Threshold float64
	Limit     int
}

// VectorIndex is the narrow persistence contract the routing core
// depends on. It never returns an error for a missing id: absence is
// represented by a zero value / empty slice, per spec's NotFound rule.
type VectorIndex interface {
	Upsert(ctx context.Context, conceptID string, embeddings VectorEmbeddings, placement FolderPlacement) error
	SearchByTitle(ctx context.Context, opts SearchOptions) ([]SimilarConcept, error)
	SearchByContext(ctx context.Context, opts SearchOptions) ([]SimilarConcept, error)
	SearchByFolder(ctx context.Context, folderID FolderID, includeReferences bool) ([]string, error)
	GetFolderMembers(ctx context.Context, folderID FolderID, limit int) ([][]float32, error)
	GetAllFolderIDs(ctx context.Context) ([]FolderID, error)
	SetFolderCentroid(ctx context.Context, folderID FolderID, centroid []float32) error
	SetFolderExemplars(ctx context.Context, folderID FolderID, exemplars [][]float32) error
	GetFolderVectorData(ctx context.Context, folderID FolderID) (*FolderCentroid, error)
	Delete(ctx context.Context, conceptID string) error
	Dimensions() int
	IsReady() bool
}

// ContentCache is a performance capability keyed by content hash. A
// miss returns ok=false rather than an error; the core must remain
// correct with caching disabled entirely (see capability.NoopCache).
type ContentCache interface {
	Get(ctx context.Context, contentHash string) (DistilledContent, bool)
	Set(ctx context.Context, contentHash string, content DistilledContent, ttl int64) error
	Has(ctx context.Context, contentHash string) bool
	Delete(ctx context.Context, contentHash string) error
	Clear(ctx context.Context) error
	Stats() CacheStats
}

// CacheStats reports hit/miss counters for a ContentCache.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// PolicyDecision is the structured output of an optional policy LLM,
// used only by the intelligent-folder add-on to override or enrich the
// deterministic DecisionMaker result.
type PolicyDecision struct {
	Action      DecisionAction
	FolderID    FolderID
	Confidence  float64
	Explanation string
	TokensUsed  int
}

// PolicyLLM is consulted only when configured; the core falls back
// cleanly to the deterministic DecisionMaker when unavailable or over
// budget.
type PolicyLLM interface {
	Decide(ctx context.Context, candidate ConceptCandidate, folderContext []FolderCentroid, phase SystemPhase) (PolicyDecision, error)
}
