package sparse

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Vector is a sparse term-weight representation: parallel slices of term
// indices and their weights.
type Vector struct {
	Indices []uint32
	Values  []float32
}

// IsEmpty reports whether the vector carries no terms.
func (v *Vector) IsEmpty() bool {
	return v == nil || len(v.Indices) == 0
}

// Encoder is a BM25 term-weight encoder fitted on one tenant's chunk texts.
// It holds the vocabulary, per-term IDF values and the average document
// length observed during fitting.
type Encoder struct {
	vocabulary map[string]uint32
	idf        []float32
	avgDocLen  float64
	docCount   int
	fitted     bool

	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEncoder creates an unfitted encoder. An unfitted encoder encodes every
// input to an empty vector, so retrieval degrades to dense-only scoring.
func NewEncoder() *Encoder {
	return &Encoder{
		vocabulary:   make(map[string]uint32),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Fitted reports whether the encoder has been trained on a corpus.
func (e *Encoder) Fitted() bool { return e.fitted }

// DocCount returns the number of documents the encoder was fitted on.
func (e *Encoder) DocCount() int { return e.docCount }

// Fit builds the vocabulary, IDF values and length statistics from the corpus.
func (e *Encoder) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for BM25 fit")
	}

	df := make(map[string]int)
	totalLen := 0
	for _, text := range corpus {
		tokens := e.tokenize(text)
		totalLen += len(tokens)
		seen := make(map[string]struct{})
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	// Stable term ordering so indices survive refits over the same corpus
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}

	e.vocabulary = make(map[string]uint32, len(terms))
	e.idf = make([]float32, len(terms))
	N := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = uint32(i)
		// BM25 IDF with the usual +1 floor to keep weights positive
		e.idf[i] = float32(math.Log(1 + (N-float64(df[term])+0.5)/(float64(df[term])+0.5)))
	}
	e.docCount = len(corpus)
	e.avgDocLen = float64(totalLen) / N
	e.fitted = true
	return nil
}

// EncodeDocument computes BM25 term weights (with tf saturation and length
// normalization) for a chunk text.
func (e *Encoder) EncodeDocument(text string) *Vector {
	if !e.fitted {
		return &Vector{}
	}
	tokens := e.tokenize(text)
	tf := make(map[uint32]int)
	for _, tok := range tokens {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return &Vector{}
	}

	docLen := float64(len(tokens))
	norm := k1 * (1 - b + b*docLen/e.avgDocLen)

	vec := &Vector{
		Indices: make([]uint32, 0, len(tf)),
		Values:  make([]float32, 0, len(tf)),
	}
	for idx, count := range tf {
		c := float64(count)
		weight := float64(e.idf[idx]) * (c * (k1 + 1)) / (c + norm)
		vec.Indices = append(vec.Indices, idx)
		vec.Values = append(vec.Values, float32(weight))
	}
	vec.sortByIndex()
	return vec
}

// EncodeQuery computes IDF-weighted term counts for a query. Queries skip
// length normalization, matching the asymmetric BM25 formulation.
func (e *Encoder) EncodeQuery(text string) *Vector {
	if !e.fitted {
		return &Vector{}
	}
	tokens := e.tokenize(text)
	tf := make(map[uint32]int)
	for _, tok := range tokens {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return &Vector{}
	}

	vec := &Vector{
		Indices: make([]uint32, 0, len(tf)),
		Values:  make([]float32, 0, len(tf)),
	}
	for idx, count := range tf {
		vec.Indices = append(vec.Indices, idx)
		vec.Values = append(vec.Values, e.idf[idx]*float32(count))
	}
	vec.sortByIndex()
	return vec
}

func (v *Vector) sortByIndex() {
	sort.Sort(byIndex{v})
}

type byIndex struct{ v *Vector }

func (s byIndex) Len() int           { return len(s.v.Indices) }
func (s byIndex) Less(i, j int) bool { return s.v.Indices[i] < s.v.Indices[j] }
func (s byIndex) Swap(i, j int) {
	s.v.Indices[i], s.v.Indices[j] = s.v.Indices[j], s.v.Indices[i]
	s.v.Values[i], s.v.Values[j] = s.v.Values[j], s.v.Values[i]
}

func (e *Encoder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// encoderState mirrors the fitted fields for gob serialization; the tokenizer
// and stopword set are reconstructed on decode.
type encoderState struct {
	Vocabulary map[string]uint32
	IDF        []float32
	AvgDocLen  float64
	DocCount   int
	Fitted     bool
}

// Marshal serializes the fitted encoder for cache persistence.
func (e *Encoder) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	state := encoderState{
		Vocabulary: e.vocabulary,
		IDF:        e.idf,
		AvgDocLen:  e.avgDocLen,
		DocCount:   e.docCount,
		Fitted:     e.fitted,
	}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal restores an encoder previously serialized with Marshal.
func Unmarshal(data []byte) (*Encoder, error) {
	var state encoderState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, err
	}
	e := NewEncoder()
	e.vocabulary = state.Vocabulary
	e.idf = state.IDF
	e.avgDocLen = state.AvgDocLen
	e.docCount = state.DocCount
	e.fitted = state.Fitted
	return e, nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
