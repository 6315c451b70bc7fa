package sparse

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCorpus() []string {
	return []string{
		"Solar panels convert sunlight into electricity.",
		"Wind turbines convert wind into electricity.",
		"Batteries store electricity for later use.",
	}
}

func TestUnfittedEncoderEncodesEmpty(t *testing.T) {
	enc := NewEncoder()
	assert.False(t, enc.Fitted())
	assert.True(t, enc.EncodeQuery("solar electricity").IsEmpty())
	assert.True(t, enc.EncodeDocument("solar electricity").IsEmpty())
}

func TestFitRejectsEmptyCorpus(t *testing.T) {
	enc := NewEncoder()
	assert.Error(t, enc.Fit(nil))
	assert.False(t, enc.Fitted())

	// Stopword-only documents leave no vocabulary to fit on
	assert.Error(t, enc.Fit([]string{"the and of", "to be or"}))
}

func TestFitBuildsStableVocabulary(t *testing.T) {
	a := NewEncoder()
	require.NoError(t, a.Fit(sampleCorpus()))
	b := NewEncoder()
	require.NoError(t, b.Fit(sampleCorpus()))

	assert.Equal(t, 3, a.DocCount())
	// Refitting the same corpus yields identical term indices, so already
	// stored document vectors stay comparable
	assert.Equal(t, a.EncodeQuery("solar electricity"), b.EncodeQuery("solar electricity"))
}

func TestRareTermsOutweighCommonTerms(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Fit(sampleCorpus()))

	// "electricity" appears in every document, "batteries" in one
	rare := enc.EncodeQuery("batteries")
	common := enc.EncodeQuery("electricity")
	require.False(t, rare.IsEmpty())
	require.False(t, common.IsEmpty())
	assert.Greater(t, rare.Values[0], common.Values[0])
}

func TestEncodeDocumentSaturatesTermFrequency(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Fit(sampleCorpus()))

	once := enc.EncodeDocument("batteries")
	many := enc.EncodeDocument("batteries batteries batteries batteries batteries")
	require.Len(t, once.Indices, 1)
	require.Len(t, many.Indices, 1)

	// Repetition raises the weight, but sublinearly and bounded
	assert.Greater(t, many.Values[0], once.Values[0])
	assert.Less(t, many.Values[0], once.Values[0]*5)
}

func TestEncodeQueryScalesWithTermCount(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Fit(sampleCorpus()))

	once := enc.EncodeQuery("batteries")
	twice := enc.EncodeQuery("batteries batteries")
	require.Len(t, twice.Indices, 1)
	// Query-side weights are a plain idf*count, no saturation
	assert.InDelta(t, float64(once.Values[0])*2, float64(twice.Values[0]), 1e-6)
}

func TestUnknownAndStopwordTermsAreDropped(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Fit(sampleCorpus()))

	assert.True(t, enc.EncodeQuery("quantum chromodynamics").IsEmpty())
	assert.True(t, enc.EncodeQuery("the of and").IsEmpty())

	vec := enc.EncodeQuery("the solar and batteries")
	assert.Len(t, vec.Indices, 2)
}

func TestTokenizerIsCaseInsensitive(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Fit(sampleCorpus()))

	assert.Equal(t, enc.EncodeQuery("SOLAR"), enc.EncodeQuery("solar"))
}

func TestVectorIndicesAreSorted(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Fit(sampleCorpus()))

	vec := enc.EncodeDocument("batteries store electricity and wind turbines convert sunlight")
	require.False(t, vec.IsEmpty())
	assert.True(t, sort.SliceIsSorted(vec.Indices, func(i, j int) bool {
		return vec.Indices[i] < vec.Indices[j]
	}))
	assert.Len(t, vec.Values, len(vec.Indices))
}

func TestMarshalRoundTrip(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Fit(sampleCorpus()))

	data, err := enc.Marshal()
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, restored.Fitted())
	assert.Equal(t, enc.DocCount(), restored.DocCount())
	assert.Equal(t, enc.EncodeQuery("solar electricity"), restored.EncodeQuery("solar electricity"))
	assert.Equal(t, enc.EncodeDocument(sampleCorpus()[0]), restored.EncodeDocument(sampleCorpus()[0]))
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("definitely not gob"))
	assert.Error(t, err)
}
