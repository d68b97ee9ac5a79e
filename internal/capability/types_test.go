package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConceptCandidate_Normalize_CollapsesWhitespace(t *testing.T) {
	c := ConceptCandidate{RawText: "  hello   world\n\tfoo  "}
	assert.Equal(t, "hello world foo", c.Normalize())
}

func TestConceptCandidate_Normalize_EmptyStaysEmpty(t *testing.T) {
	c := ConceptCandidate{RawText: "   "}
	assert.Equal(t, "", c.Normalize())
}

func TestFromSingleVector_PopulatesBothFields(t *testing.T) {
	v := []float32{1, 2, 3}
	emb := FromSingleVector(v, "legacy-model")

	assert.Equal(t, v, emb.TitleVector)
	assert.Equal(t, v, emb.ContextVector)
	assert.Equal(t, 3, emb.Dimensions)
	assert.Equal(t, "legacy-model", emb.Model)
}
