package capability

import (
	"context"
	"sync"
	"time"

	"github.com/coder/hnsw"

	routererrors "github.com/foldermind/router/internal/errors"
)

// HNSWVectorIndex is the reference VectorIndex, adapted from the
// teacher's coder/hnsw-backed store: two parallel graphs (title,
// context) sharing a single conceptID<->key mapping, lazy deletion to
// avoid destabilizing the graph on update, and cosine-normalize-on-
// insert. Folder bookkeeping (placements, centroids, exemplars,
// membership lists) lives alongside the graphs since the spec treats
// the index as the single source of truth for both.
type HNSWVectorIndex struct {
	mu sync.RWMutex

	titleGraph   *hnsw.Graph[uint64]
	contextGraph *hnsw.Graph[uint64]
	dims         int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	placements map[string]FolderPlacement
	embeddings map[string]VectorEmbeddings

	folderPrimary map[FolderID][]string
	folderAll     map[FolderID][]string
	centroids     map[FolderID]*FolderCentroid

	closed bool
}

// NewHNSWVectorIndex creates an empty index for vectors of the given
// dimensionality.
func NewHNSWVectorIndex(dims int) *HNSWVectorIndex {
	newGraph := func() *hnsw.Graph[uint64] {
		g := hnsw.NewGraph[uint64]()
		g.Distance = hnsw.CosineDistance
		g.M = 16
		g.EfSearch = 20
		g.Ml = 0.25
		return g
	}

	return &HNSWVectorIndex{
		titleGraph:    newGraph(),
		contextGraph:  newGraph(),
		dims:          dims,
		idMap:         make(map[string]uint64),
		keyMap:        make(map[uint64]string),
		placements:    make(map[string]FolderPlacement),
		embeddings:    make(map[string]VectorEmbeddings),
		folderPrimary: make(map[FolderID][]string),
		folderAll:     make(map[FolderID][]string),
		centroids:     make(map[FolderID]*FolderCentroid),
	}
}

func normalizeInPlace(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sumSquares float64
	for _, x := range out {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / sqrtFloat64(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

func sqrtFloat64(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 32; i++ {
		z = 0.5 * (z + x/z)
	}
	return z
}

func distanceToScore(distance float32) float64 {
	// Cosine distance ranges 0 (identical) to 2 (opposite).
	return 1.0 - float64(distance)/2.0
}

// Upsert overwrites the concept's embeddings and placement by
// conceptID, removing any prior folder-membership bookkeeping first.
func (idx *HNSWVectorIndex) Upsert(ctx context.Context, conceptID string, embeddings VectorEmbeddings, placement FolderPlacement) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return routererrors.InternalErr("index is closed", nil)
	}
	if embeddings.Dimensions != idx.dims {
		return routererrors.DimensionMismatchErr(idx.dims, embeddings.Dimensions)
	}
	if placement.Primary == "" {
		placement.Primary = UnsortedFolderID
	}

	idx.removeFolderMembershipLocked(conceptID)

	if existingKey, exists := idx.idMap[conceptID]; exists {
		delete(idx.keyMap, existingKey)
		delete(idx.idMap, conceptID)
	}

	key := idx.nextKey
	idx.nextKey++

	titleVec := normalizeInPlace(embeddings.TitleVector)
	contextVec := normalizeInPlace(embeddings.ContextVector)

	idx.titleGraph.Add(hnsw.MakeNode(key, titleVec))
	idx.contextGraph.Add(hnsw.MakeNode(key, contextVec))

	idx.idMap[conceptID] = key
	idx.keyMap[key] = conceptID
	idx.embeddings[conceptID] = embeddings
	idx.placements[conceptID] = placement

	idx.folderPrimary[placement.Primary] = append(idx.folderPrimary[placement.Primary], conceptID)
	idx.folderAll[placement.Primary] = append(idx.folderAll[placement.Primary], conceptID)
	for _, ref := range placement.References {
		idx.folderAll[ref] = append(idx.folderAll[ref], conceptID)
	}

	return nil
}

func (idx *HNSWVectorIndex) removeFolderMembershipLocked(conceptID string) {
	prior, exists := idx.placements[conceptID]
	if !exists {
		return
	}
	idx.folderPrimary[prior.Primary] = removeString(idx.folderPrimary[prior.Primary], conceptID)
	idx.folderAll[prior.Primary] = removeString(idx.folderAll[prior.Primary], conceptID)
	for _, ref := range prior.References {
		idx.folderAll[ref] = removeString(idx.folderAll[ref], conceptID)
	}
}

func removeString(xs []string, target string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != target {
			out = append(out, x)
		}
	}
	return out
}

func (idx *HNSWVectorIndex) search(ctx context.Context, graph *hnsw.Graph[uint64], opts SearchOptions) ([]SimilarConcept, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, routererrors.InternalErr("index is closed", nil)
	}
	if len(opts.Vector) != idx.dims {
		return nil, routererrors.DimensionMismatchErr(idx.dims, len(opts.Vector))
	}
	if graph.Len() == 0 {
		return []SimilarConcept{}, nil
	}

	query := normalizeInPlace(opts.Vector)
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	nodes := graph.Search(query, limit)
	results := make([]SimilarConcept, 0, len(nodes))
	for _, node := range nodes {
		conceptID, ok := idx.keyMap[node.Key]
		if !ok {
			continue
		}
		distance := graph.Distance(query, node.Value)
		score := distanceToScore(distance)
		if score < opts.Threshold {
			continue
		}

		placement := idx.placements[conceptID]
		results = append(results, SimilarConcept{
			ConceptID:  conceptID,
			Similarity: score,
			FolderID:   placement.Primary,
			IsPrimary:  true,
		})
	}

	sortSimilarConceptsDescending(results)
	return results, nil
}

func sortSimilarConceptsDescending(xs []SimilarConcept) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j].Similarity > xs[j-1].Similarity; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// SearchByTitle searches the title-vector graph, used by
// DuplicateDetector.
func (idx *HNSWVectorIndex) SearchByTitle(ctx context.Context, opts SearchOptions) ([]SimilarConcept, error) {
	return idx.search(ctx, idx.titleGraph, opts)
}

// SearchByContext searches the context-vector graph, used by
// FolderMatcher.
func (idx *HNSWVectorIndex) SearchByContext(ctx context.Context, opts SearchOptions) ([]SimilarConcept, error) {
	return idx.search(ctx, idx.contextGraph, opts)
}

// SearchByFolder returns concepts placed in folderID: primary members
// only, or primary plus cross-linked references when includeReferences
// is set.
func (idx *HNSWVectorIndex) SearchByFolder(ctx context.Context, folderID FolderID, includeReferences bool) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var src []string
	if includeReferences {
		src = idx.folderAll[folderID]
	} else {
		src = idx.folderPrimary[folderID]
	}
	out := make([]string, len(src))
	copy(out, src)
	return out, nil
}

// GetFolderMembers returns up to limit context vectors belonging to
// folderID's primary members, for intra-folder analytics (centroid and
// coherence recomputation).
func (idx *HNSWVectorIndex) GetFolderMembers(ctx context.Context, folderID FolderID, limit int) ([][]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	members := idx.folderPrimary[folderID]
	if limit <= 0 || limit > len(members) {
		limit = len(members)
	}

	out := make([][]float32, 0, limit)
	for _, conceptID := range members[:limit] {
		if emb, ok := idx.embeddings[conceptID]; ok {
			out = append(out, emb.ContextVector)
		}
	}
	return out, nil
}

// GetAllFolderIDs returns every folder with at least one primary or
// reference member.
func (idx *HNSWVectorIndex) GetAllFolderIDs(ctx context.Context) ([]FolderID, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[FolderID]bool)
	for id, ids := range idx.folderPrimary {
		if len(ids) > 0 {
			seen[id] = true
		}
	}
	for id, ids := range idx.folderAll {
		if len(ids) > 0 {
			seen[id] = true
		}
	}
	out := make([]FolderID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (idx *HNSWVectorIndex) centroidLocked(folderID FolderID) *FolderCentroid {
	fc, ok := idx.centroids[folderID]
	if !ok {
		fc = &FolderCentroid{FolderID: folderID}
		idx.centroids[folderID] = fc
	}
	return fc
}

// SetFolderCentroid records folderID's current centroid vector.
func (idx *HNSWVectorIndex) SetFolderCentroid(ctx context.Context, folderID FolderID, centroid []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	fc := idx.centroidLocked(folderID)
	fc.Centroid = centroid
	fc.MemberCount = len(idx.folderPrimary[folderID])
	fc.LastUpdated = idx.now()
	return nil
}

// SetFolderExemplars records folderID's current exemplar set.
func (idx *HNSWVectorIndex) SetFolderExemplars(ctx context.Context, folderID FolderID, exemplars [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	fc := idx.centroidLocked(folderID)
	fc.Exemplars = exemplars
	fc.LastUpdated = idx.now()
	return nil
}

// GetFolderVectorData returns a copy of folderID's centroid state, or
// nil if the folder has no recorded centroid — absence is represented
// by a nil return, never an error, per the NotFound contract.
func (idx *HNSWVectorIndex) GetFolderVectorData(ctx context.Context, folderID FolderID) (*FolderCentroid, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	fc, ok := idx.centroids[folderID]
	if !ok {
		return nil, nil
	}
	cp := *fc
	return &cp, nil
}

// Delete removes a concept's vectors and placement via lazy deletion:
// mappings are dropped but the underlying graph node is left orphaned,
// matching the teacher's workaround for coder/hnsw's last-node-delete
// instability.
func (idx *HNSWVectorIndex) Delete(ctx context.Context, conceptID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeFolderMembershipLocked(conceptID)

	if key, exists := idx.idMap[conceptID]; exists {
		delete(idx.keyMap, key)
		delete(idx.idMap, conceptID)
	}
	delete(idx.embeddings, conceptID)
	delete(idx.placements, conceptID)
	return nil
}

// Dimensions returns the fixed vector dimensionality this index was
// constructed for.
func (idx *HNSWVectorIndex) Dimensions() int {
	return idx.dims
}

// IsReady reports whether the index is open and usable.
func (idx *HNSWVectorIndex) IsReady() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return !idx.closed && idx.dims > 0
}

// Close marks the index unusable. coder/hnsw graphs need no explicit
// teardown.
func (idx *HNSWVectorIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	return nil
}

func (idx *HNSWVectorIndex) now() time.Time {
	return time.Now()
}

var _ VectorIndex = (*HNSWVectorIndex)(nil)
