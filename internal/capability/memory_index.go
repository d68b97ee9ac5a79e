package capability

import (
	"context"
	"sort"
	"sync"

	routererrors "github.com/foldermind/router/internal/errors"
	"github.com/foldermind/router/internal/vectormath"
)

// MemoryVectorIndex is a brute-force, map-backed VectorIndex for unit
// tests and small corpora where an HNSW graph's approximation isn't
// worth the setup cost.
type MemoryVectorIndex struct {
	mu sync.RWMutex

	dims       int
	embeddings map[string]VectorEmbeddings
	placements map[string]FolderPlacement
	centroids  map[FolderID]*FolderCentroid
}

// NewMemoryVectorIndex creates an empty index for vectors of the given
// dimensionality.
func NewMemoryVectorIndex(dims int) *MemoryVectorIndex {
	return &MemoryVectorIndex{
		dims:       dims,
		embeddings: make(map[string]VectorEmbeddings),
		placements: make(map[string]FolderPlacement),
		centroids:  make(map[FolderID]*FolderCentroid),
	}
}

func (idx *MemoryVectorIndex) Upsert(ctx context.Context, conceptID string, embeddings VectorEmbeddings, placement FolderPlacement) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if embeddings.Dimensions != idx.dims {
		return routererrors.DimensionMismatchErr(idx.dims, embeddings.Dimensions)
	}
	if placement.Primary == "" {
		placement.Primary = UnsortedFolderID
	}

	idx.embeddings[conceptID] = embeddings
	idx.placements[conceptID] = placement
	return nil
}

func (idx *MemoryVectorIndex) search(opts SearchOptions, vectorOf func(VectorEmbeddings) []float32) ([]SimilarConcept, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(opts.Vector) != idx.dims {
		return nil, routererrors.DimensionMismatchErr(idx.dims, len(opts.Vector))
	}

	results := make([]SimilarConcept, 0, len(idx.embeddings))
	for conceptID, emb := range idx.embeddings {
		sim, err := vectormath.Cosine(opts.Vector, vectorOf(emb))
		if err != nil {
			continue
		}
		if sim < opts.Threshold {
			continue
		}
		placement := idx.placements[conceptID]
		results = append(results, SimilarConcept{
			ConceptID:  conceptID,
			Similarity: sim,
			FolderID:   placement.Primary,
			IsPrimary:  true,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })

	limit := opts.Limit
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	return results[:limit], nil
}

func (idx *MemoryVectorIndex) SearchByTitle(ctx context.Context, opts SearchOptions) ([]SimilarConcept, error) {
	return idx.search(opts, func(e VectorEmbeddings) []float32 { return e.TitleVector })
}

func (idx *MemoryVectorIndex) SearchByContext(ctx context.Context, opts SearchOptions) ([]SimilarConcept, error) {
	return idx.search(opts, func(e VectorEmbeddings) []float32 { return e.ContextVector })
}

func (idx *MemoryVectorIndex) SearchByFolder(ctx context.Context, folderID FolderID, includeReferences bool) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []string
	for conceptID, placement := range idx.placements {
		if placement.Primary == folderID {
			out = append(out, conceptID)
			continue
		}
		if includeReferences {
			for _, ref := range placement.References {
				if ref == folderID {
					out = append(out, conceptID)
					break
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (idx *MemoryVectorIndex) GetFolderMembers(ctx context.Context, folderID FolderID, limit int) ([][]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out [][]float32
	for conceptID, placement := range idx.placements {
		if placement.Primary != folderID {
			continue
		}
		out = append(out, idx.embeddings[conceptID].ContextVector)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (idx *MemoryVectorIndex) GetAllFolderIDs(ctx context.Context) ([]FolderID, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[FolderID]bool)
	for _, placement := range idx.placements {
		seen[placement.Primary] = true
		for _, ref := range placement.References {
			seen[ref] = true
		}
	}
	out := make([]FolderID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (idx *MemoryVectorIndex) SetFolderCentroid(ctx context.Context, folderID FolderID, centroid []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	fc, ok := idx.centroids[folderID]
	if !ok {
		fc = &FolderCentroid{FolderID: folderID}
		idx.centroids[folderID] = fc
	}
	fc.Centroid = centroid
	return nil
}

func (idx *MemoryVectorIndex) SetFolderExemplars(ctx context.Context, folderID FolderID, exemplars [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	fc, ok := idx.centroids[folderID]
	if !ok {
		fc = &FolderCentroid{FolderID: folderID}
		idx.centroids[folderID] = fc
	}
	fc.Exemplars = exemplars
	return nil
}

func (idx *MemoryVectorIndex) GetFolderVectorData(ctx context.Context, folderID FolderID) (*FolderCentroid, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	fc, ok := idx.centroids[folderID]
	if !ok {
		return nil, nil
	}
	cp := *fc
	return &cp, nil
}

func (idx *MemoryVectorIndex) Delete(ctx context.Context, conceptID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.embeddings, conceptID)
	delete(idx.placements, conceptID)
	return nil
}

func (idx *MemoryVectorIndex) Dimensions() int { return idx.dims }

func (idx *MemoryVectorIndex) IsReady() bool { return idx.dims > 0 }

var _ VectorIndex = (*MemoryVectorIndex)(nil)
