package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/foldermind/router/internal/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	capability.VectorIndex
	titleResults []capability.SimilarConcept
	titleErr     error
}

func (f *fakeIndex) SearchByTitle(ctx context.Context, opts capability.SearchOptions) ([]capability.SimilarConcept, error) {
	if f.titleErr != nil {
		return nil, f.titleErr
	}
	return f.titleResults, nil
}

func TestDuplicateDetector_FindsTopMatch(t *testing.T) {
	idx := &fakeIndex{titleResults: []capability.SimilarConcept{{ConceptID: "c1", Similarity: 0.97}}}
	d := NewDuplicateDetector(idx, 0.9, nil)

	res := d.Check(context.Background(), []float32{1, 0, 0})
	require.True(t, res.Found)
	assert.Equal(t, "c1", res.ConceptID)
	assert.Equal(t, 0.97, res.Similarity)
}

func TestDuplicateDetector_NoMatchesReturnsNotFound(t *testing.T) {
	idx := &fakeIndex{titleResults: nil}
	d := NewDuplicateDetector(idx, 0.9, nil)

	res := d.Check(context.Background(), []float32{1, 0, 0})
	assert.False(t, res.Found)
}

func TestDuplicateDetector_IndexErrorSwallowedAsNotFound(t *testing.T) {
	idx := &fakeIndex{titleErr: errors.New("index unavailable")}
	d := NewDuplicateDetector(idx, 0.9, nil)

	res := d.Check(context.Background(), []float32{1, 0, 0})
	assert.False(t, res.Found)
}
