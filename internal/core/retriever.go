package core

import (
	"context"
	"log"
	"sort"

	"github.com/awais7012/Generative-AI/internal/index"
	"github.com/awais7012/Generative-AI/internal/sparse"
)

// RankerProvider yields the tenant's lexical encoder for query encoding.
type RankerProvider interface {
	GetOrCreate(ctx context.Context, userID string) (*sparse.Encoder, error)
}

// Retriever issues combined dense+sparse queries against a tenant's
// namespace. Score fusion is the index's job; the retriever's job is correct
// construction of both signals and of the isolation filter.
type Retriever struct {
	idx       VectorIndex
	embedder  Embedder
	rankers   RankerProvider
	threshold float64
}

func NewRetriever(idx VectorIndex, embedder Embedder, rankers RankerProvider, threshold float64) *Retriever {
	return &Retriever{
		idx:       idx,
		embedder:  embedder,
		rankers:   rankers,
		threshold: threshold,
	}
}

// Retrieve returns up to topK passage texts in descending relevance order.
// Any embedding or index failure degrades to an empty result with a logged
// diagnostic; the caller proceeds with conversation history only.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, topK int) []string {
	dense, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		log.Printf("Failed to embed query for user %s, proceeding without passages: %v", userID, err)
		return nil
	}

	var sparseVec *index.SparseValues
	enc, err := r.rankers.GetOrCreate(ctx, userID)
	if err != nil {
		log.Printf("Failed to load ranker for user %s, querying dense-only: %v", userID, err)
	} else if enc != nil {
		qv := enc.EncodeQuery(query)
		if !qv.IsEmpty() {
			sparseVec = &index.SparseValues{Indices: qv.Indices, Values: qv.Values}
		}
	}

	// Metadata filter duplicates the namespace scoping on purpose.
	filter := map[string]any{"user_id": map[string]any{"$eq": userID}}
	matches, err := r.idx.Query(ctx, userID, dense, sparseVec, topK, filter)
	if err != nil {
		log.Printf("Index query failed for user %s, proceeding without passages: %v", userID, err)
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	passages := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Score < r.threshold {
			continue
		}
		// Every stored chunk carries its owner id; a missing owner means
		// misrouted or hand-inserted data and is dropped like a mismatch.
		if m.Metadata.UserID != userID {
			log.Printf("Dropping match %s: metadata owner %q does not match requester %s", m.ID, m.Metadata.UserID, userID)
			continue
		}
		if m.Metadata.Text == "" {
			continue
		}
		passages = append(passages, m.Metadata.Text)
	}
	return passages
}
