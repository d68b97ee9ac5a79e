// Package centroid implements the CentroidManager stage: incremental
// and full-recompute centroid maintenance, exemplar selection, quality
// scoring, LLM context filtering, and redundancy detection for folders.
package centroid

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
	"github.com/foldermind/router/internal/vectormath"
)

const defaultMemberFetchLimit = 5000

type folderState struct {
	mu                  sync.RWMutex
	centroid            []float32
	prevCentroid        []float32
	memberCount         int
	deltaSinceRecompute int
	quality             capability.Quality
	lastUpdated         time.Time
}

// Manager maintains per-folder centroid/exemplar/quality state. A
// per-folder RWMutex lets updates to unrelated folders proceed without
// contention, mirroring the index's per-key locking discipline.
type Manager struct {
	index capability.VectorIndex
	cfg   config.CentroidConfig

	mu      sync.Mutex
	folders map[capability.FolderID]*folderState
}

// NewManager builds a Manager backed by index, using cfg for exemplar
// count/strategy and recompute thresholds.
func NewManager(index capability.VectorIndex, cfg config.CentroidConfig) *Manager {
	return &Manager{index: index, cfg: cfg, folders: make(map[capability.FolderID]*folderState)}
}

func (m *Manager) state(folderID capability.FolderID) *folderState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.folders[folderID]
	if !ok {
		s = &folderState{}
		m.folders[folderID] = s
	}
	return s
}

// AddMember folds v into folderID's centroid incrementally, falling
// back to a full recompute from the index when the accumulated delta
// crosses IncrementalThreshold or stability has degraded.
func (m *Manager) AddMember(ctx context.Context, folderID capability.FolderID, v []float32) error {
	s := m.state(folderID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.centroid == nil {
		s.centroid = append([]float32(nil), v...)
		s.memberCount = 1
	} else {
		n := float64(s.memberCount)
		next := make([]float32, len(s.centroid))
		for i := range next {
			next[i] = float32((float64(s.centroid[i])*n + float64(v[i])) / (n + 1))
		}
		s.centroid = next
		s.memberCount++
	}
	s.deltaSinceRecompute++
	s.lastUpdated = time.Now()

	if s.deltaSinceRecompute >= m.cfg.IncrementalThreshold || s.quality.Stability < m.cfg.StabilityFloor {
		return m.recomputeLocked(ctx, folderID, s)
	}
	return m.index.SetFolderCentroid(ctx, folderID, s.centroid)
}

// RemoveMember folds v out of folderID's centroid via the inverse of
// the incremental update. A folder emptied to zero members clears its
// centroid entirely.
func (m *Manager) RemoveMember(ctx context.Context, folderID capability.FolderID, v []float32) error {
	s := m.state(folderID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memberCount <= 1 || s.centroid == nil {
		s.centroid = nil
		s.memberCount = 0
		return m.index.SetFolderCentroid(ctx, folderID, nil)
	}

	n := float64(s.memberCount)
	next := make([]float32, len(s.centroid))
	for i := range next {
		next[i] = float32((float64(s.centroid[i])*n - float64(v[i])) / (n - 1))
	}
	s.centroid = next
	s.memberCount--
	s.deltaSinceRecompute++
	s.lastUpdated = time.Now()

	if s.deltaSinceRecompute >= m.cfg.IncrementalThreshold || s.quality.Stability < m.cfg.StabilityFloor {
		return m.recomputeLocked(ctx, folderID, s)
	}
	return m.index.SetFolderCentroid(ctx, folderID, s.centroid)
}

// recomputeLocked fetches every member vector for folderID from the
// index and rebuilds the centroid, exemplars and quality from scratch.
// Caller must hold s.mu.
func (m *Manager) recomputeLocked(ctx context.Context, folderID capability.FolderID, s *folderState) error {
	members, err := m.index.GetFolderMembers(ctx, folderID, defaultMemberFetchLimit)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		s.centroid = nil
		s.memberCount = 0
		s.deltaSinceRecompute = 0
		return m.index.SetFolderCentroid(ctx, folderID, nil)
	}

	newCentroid, err := vectormath.Centroid(members)
	if err != nil {
		return err
	}

	s.prevCentroid = s.centroid
	s.centroid = newCentroid
	s.memberCount = len(members)
	s.deltaSinceRecompute = 0
	s.lastUpdated = time.Now()

	exemplars := m.SelectExemplars(members, newCentroid, m.cfg.ExemplarCount, m.cfg.ExemplarStrategy)
	if err := m.index.SetFolderExemplars(ctx, folderID, exemplars); err != nil {
		return err
	}

	s.quality = m.computeQualityLocked(folderID, s, members)

	return m.index.SetFolderCentroid(ctx, folderID, newCentroid)
}

// computeQualityLocked computes cohesion/separation/stability/overall
// for folderID given its current members. It reads other folders'
// centroids under m.mu, so must not be called while holding it.
func (m *Manager) computeQualityLocked(folderID capability.FolderID, s *folderState, members [][]float32) capability.Quality {
	cohesion, _ := vectormath.Coherence(members)

	separation := 1.0
	if max := m.maxCosineToOtherCentroids(folderID, s.centroid); max > -2 {
		separation = 1 - max
	}

	stability := 1.0
	if s.prevCentroid != nil {
		if sim, err := vectormath.Cosine(s.centroid, s.prevCentroid); err == nil {
			stability = sim
		}
	}

	overall := 0.5*cohesion + 0.3*separation + 0.2*stability
	return capability.Quality{Cohesion: cohesion, Separation: separation, Stability: stability, Overall: overall}
}

func (m *Manager) maxCosineToOtherCentroids(folderID capability.FolderID, centroid []float32) float64 {
	m.mu.Lock()
	others := make(map[capability.FolderID]*folderState, len(m.folders))
	for id, st := range m.folders {
		if id != folderID {
			others[id] = st
		}
	}
	m.mu.Unlock()

	max := -2.0
	for _, st := range others {
		st.mu.RLock()
		other := st.centroid
		st.mu.RUnlock()
		if other == nil {
			continue
		}
		sim, err := vectormath.Cosine(centroid, other)
		if err != nil {
			continue
		}
		if sim > max {
			max = sim
		}
	}
	return max
}

// Quality returns the last-computed quality snapshot for folderID.
func (m *Manager) Quality(folderID capability.FolderID) capability.Quality {
	s := m.state(folderID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quality
}

// SelectExemplars picks k representative vectors from members around
// centroid, per strategy ("medoid", "diverse", "boundary", "hybrid").
// An unrecognized strategy falls back to "medoid".
func (m *Manager) SelectExemplars(members [][]float32, centroid []float32, k int, strategy string) [][]float32 {
	if k <= 0 {
		k = 5
	}
	if k > len(members) {
		k = len(members)
	}
	if k == 0 {
		return nil
	}

	switch strategy {
	case "diverse":
		return selectDiverse(members, centroid, k)
	case "boundary":
		return selectBoundary(members, centroid, k)
	case "hybrid":
		return selectHybrid(members, centroid, k)
	default:
		return selectMedoid(members, centroid, k)
	}
}

// selectMedoid repeatedly picks the member nearest the centroid, then
// removes it and repeats against the remainder.
func selectMedoid(members [][]float32, centroid []float32, k int) [][]float32 {
	remaining := append([][]float32(nil), members...)
	out := make([][]float32, 0, k)
	for i := 0; i < k && len(remaining) > 0; i++ {
		bestIdx, bestSim := 0, -2.0
		for j, v := range remaining {
			sim, err := vectormath.Cosine(v, centroid)
			if err != nil {
				continue
			}
			if sim > bestSim {
				bestSim, bestIdx = sim, j
			}
		}
		out = append(out, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return out
}

// selectDiverse is farthest-first traversal seeded by the medoid: each
// subsequent pick maximizes its minimum distance to the already-chosen
// set, spreading exemplars across the folder's spread.
func selectDiverse(members [][]float32, centroid []float32, k int) [][]float32 {
	seed := selectMedoid(members, centroid, 1)
	if len(seed) == 0 {
		return nil
	}
	chosen := [][]float32{seed[0]}

	remaining := make([][]float32, 0, len(members)-1)
	for _, v := range members {
		if !sameVector(v, seed[0]) {
			remaining = append(remaining, v)
		}
	}

	for len(chosen) < k && len(remaining) > 0 {
		bestIdx, bestMinDist := 0, -1.0
		for j, v := range remaining {
			minDist := 2.0
			for _, c := range chosen {
				sim, err := vectormath.Cosine(v, c)
				if err != nil {
					continue
				}
				dist := 1 - sim
				if dist < minDist {
					minDist = dist
				}
			}
			if minDist > bestMinDist {
				bestMinDist, bestIdx = minDist, j
			}
		}
		chosen = append(chosen, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return chosen
}

// selectBoundary picks the k members with the lowest cosine similarity
// to centroid: the folder's outliers.
func selectBoundary(members [][]float32, centroid []float32, k int) [][]float32 {
	type scored struct {
		v   []float32
		sim float64
	}
	scores := make([]scored, 0, len(members))
	for _, v := range members {
		sim, err := vectormath.Cosine(v, centroid)
		if err != nil {
			continue
		}
		scores = append(scores, scored{v, sim})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].sim < scores[j].sim })

	n := k
	if n > len(scores) {
		n = len(scores)
	}
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		out[i] = scores[i].v
	}
	return out
}

// selectHybrid splits k roughly 50/50 between medoid and diverse picks,
// deduplicating overlap and backfilling from medoid order if short.
func selectHybrid(members [][]float32, centroid []float32, k int) [][]float32 {
	half := (k + 1) / 2
	medoidPicks := selectMedoid(members, centroid, half)
	diversePicks := selectDiverse(members, centroid, k-half)

	out := make([][]float32, 0, k)
	seen := make([][]float32, 0, k)
	add := func(v []float32) bool {
		for _, s := range seen {
			if sameVector(s, v) {
				return false
			}
		}
		seen = append(seen, v)
		out = append(out, v)
		return true
	}
	for _, v := range medoidPicks {
		add(v)
	}
	for _, v := range diversePicks {
		if len(out) >= k {
			break
		}
		add(v)
	}
	for _, v := range members {
		if len(out) >= k {
			break
		}
		add(v)
	}
	return out
}

func sameVector(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ContextCandidate is one folder offered to an external LLM prompt,
// paired with its similarity to the query vector.
type ContextCandidate struct {
	FolderID   capability.FolderID
	Similarity float64
}

// ContextFor returns the folders most relevant to queryVector, greedily
// filling tokenBudget/TokensPerFolder slots. In PhaseBootstrap the
// similarity floor relaxes and the slot count is capped lower, forcing
// diversity while the folder tree is still sparse.
func (m *Manager) ContextFor(ctx context.Context, queryVector []float32, tokenBudget int, phase capability.SystemPhase) ([]ContextCandidate, error) {
	folderIDs, err := m.index.GetAllFolderIDs(ctx)
	if err != nil {
		return nil, err
	}

	floor := 0.3
	maxSlots := tokenBudget / maxInt(m.cfg.TokensPerFolder, 1)
	if phase == capability.PhaseBootstrap {
		floor = 0.1
		if maxSlots > 5 {
			maxSlots = 5
		}
	}

	candidates := make([]ContextCandidate, 0, len(folderIDs))
	for _, fid := range folderIDs {
		fc, err := m.index.GetFolderVectorData(ctx, fid)
		if err != nil {
			return nil, err
		}
		if fc == nil || fc.Centroid == nil {
			continue
		}
		sim, err := vectormath.Cosine(queryVector, fc.Centroid)
		if err != nil {
			continue
		}
		if sim < floor {
			continue
		}
		candidates = append(candidates, ContextCandidate{FolderID: fid, Similarity: sim})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })
	if maxSlots >= 0 && maxSlots < len(candidates) {
		candidates = candidates[:maxSlots]
	}
	return candidates, nil
}

// RedundantPair is a pair of folders whose centroids are near-identical.
type RedundantPair struct {
	A, B       capability.FolderID
	Similarity float64
}

// FindRedundantFolders returns every pair of folders whose centroid
// cosine similarity is at or above RedundancyThreshold.
func (m *Manager) FindRedundantFolders(ctx context.Context) ([]RedundantPair, error) {
	folderIDs, err := m.index.GetAllFolderIDs(ctx)
	if err != nil {
		return nil, err
	}

	type entry struct {
		id       capability.FolderID
		centroid []float32
	}
	entries := make([]entry, 0, len(folderIDs))
	for _, fid := range folderIDs {
		fc, err := m.index.GetFolderVectorData(ctx, fid)
		if err != nil {
			return nil, err
		}
		if fc == nil || fc.Centroid == nil {
			continue
		}
		entries = append(entries, entry{id: fid, centroid: fc.Centroid})
	}

	var pairs []RedundantPair
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			sim, err := vectormath.Cosine(entries[i].centroid, entries[j].centroid)
			if err != nil {
				continue
			}
			if sim >= m.cfg.RedundancyThreshold {
				pairs = append(pairs, RedundantPair{A: entries[i].id, B: entries[j].id, Similarity: sim})
			}
		}
	}
	return pairs, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
