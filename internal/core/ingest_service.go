package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awais7012/Generative-AI/internal/index"
	"github.com/google/uuid"
)

// IngestService splits raw text into chunks, embeds them and upserts them
// into the tenant's namespace, then retrains the tenant's lexical ranker so
// the sparse signal reflects the new content. Chunks are immutable once
// stored; re-ingesting a file creates new chunk ids.
type IngestService struct {
	idx          VectorIndex
	embedder     Embedder
	rankers      *RankerStore
	chunkSize    int
	chunkOverlap int
}

func NewIngestService(idx VectorIndex, embedder Embedder, rankers *RankerStore) *IngestService {
	return &IngestService{
		idx:          idx,
		embedder:     embedder,
		rankers:      rankers,
		chunkSize:    1000,
		chunkOverlap: 200,
	}
}

// IngestText stores the document under the user's namespace and returns the
// number of chunks written.
func (s *IngestService) IngestText(ctx context.Context, userID, filename, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	chunks := splitText(text, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	// Retrain before upserting so the fitted encoder covers the new texts;
	// the rescan inside Retrain only sees previously stored content.
	enc, err := s.rankers.Retrain(ctx, userID, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to retrain ranker for user %s: %w", userID, err)
	}

	embeddings, err := s.embedder.EmbedMany(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %d chunks for %s: %w", len(chunks), filename, err)
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	vectors := make([]index.Vector, len(chunks))
	for i, chunk := range chunks {
		var sparseVals *index.SparseValues
		if dv := enc.EncodeDocument(chunk); !dv.IsEmpty() {
			sparseVals = &index.SparseValues{Indices: dv.Indices, Values: dv.Values}
		}
		vectors[i] = index.Vector{
			ID:           uuid.NewString(),
			Values:       embeddings[i],
			SparseValues: sparseVals,
			Metadata: index.Metadata{
				UserID:     userID,
				Filename:   filename,
				ChunkIndex: i,
				Text:       chunk,
				CreatedAt:  createdAt,
			},
		}
	}

	if err := s.idx.Upsert(ctx, userID, vectors); err != nil {
		return 0, fmt.Errorf("failed to upsert %d chunks for %s: %w", len(vectors), filename, err)
	}
	return len(vectors), nil
}

// splitText slices text into rune-based windows of size chunkSize with
// chunkOverlap runes of overlap between consecutive chunks.
func splitText(text string, chunkSize, chunkOverlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}

	runes := []rune(text)
	step := chunkSize - chunkOverlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
