package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestEnv() (*IngestService, *fakeIndex, *RankerStore) {
	idx := newFakeIndex()
	rankers := NewRankerStore(newFakeModelCache(), idx, time.Hour, 10000)
	return NewIngestService(idx, &fakeEmbedder{}, rankers), idx, rankers
}

func TestIngestTextStoresChunksWithMetadata(t *testing.T) {
	ctx := context.Background()
	svc, idx, _ := newIngestEnv()

	n, err := svc.IngestText(ctx, "tenant-a", "manual.txt", "solar panels convert sunlight into electricity")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := idx.vectors["tenant-a"]
	require.Len(t, stored, 1)
	v := stored[0]
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "tenant-a", v.Metadata.UserID)
	assert.Equal(t, "manual.txt", v.Metadata.Filename)
	assert.Equal(t, 0, v.Metadata.ChunkIndex)
	assert.Contains(t, v.Metadata.Text, "solar panels")
	require.NotNil(t, v.SparseValues, "stored chunks carry their lexical weights")
	assert.NotEmpty(t, v.SparseValues.Indices)
}

func TestIngestTextSkipsBlankInput(t *testing.T) {
	ctx := context.Background()
	svc, idx, _ := newIngestEnv()

	n, err := svc.IngestText(ctx, "tenant-a", "empty.txt", "   \n\t ")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, idx.vectors["tenant-a"])
}

func TestIngestTextRetrainsRankerOnNewContent(t *testing.T) {
	ctx := context.Background()
	svc, _, rankers := newIngestEnv()

	_, err := svc.IngestText(ctx, "tenant-a", "doc.txt", "batteries store surplus electricity overnight")
	require.NoError(t, err)

	enc, err := rankers.GetOrCreate(ctx, "tenant-a")
	require.NoError(t, err)
	assert.True(t, enc.Fitted())
	assert.False(t, enc.EncodeQuery("batteries overnight").IsEmpty(),
		"terms from the freshly ingested document are already queryable")
}

func TestSplitTextWindowsOverlap(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := splitText(text, 10, 4)

	// Windows advance by chunkSize-chunkOverlap runes
	require.Len(t, chunks, 4)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0])
	assert.Equal(t, strings.Repeat("a", 10), chunks[1])
	assert.Equal(t, strings.Repeat("a", 7), chunks[3])
}

func TestSplitTextShortInputIsOneChunk(t *testing.T) {
	chunks := splitText("short text", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitTextHandlesMultibyteRunes(t *testing.T) {
	// Window boundaries must not split a rune
	text := strings.Repeat("é", 15)
	chunks := splitText(text, 10, 0)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("é", 10), chunks[0])
	assert.Equal(t, strings.Repeat("é", 5), chunks[1])
}
