package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-chatbot/backend/internal/llm"
	"github.com/order-chatbot/backend/internal/storage/models"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	fail  map[string]bool
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.fail[text] {
		return nil, llm.ErrEmbeddingUnavailable
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	docs      []models.KnowledgeDocument
	searchErr error
	upserted  []models.KnowledgeDocument
	lastK     int
	lastCat   string
}

func (f *fakeStore) Upsert(_ context.Context, docs []models.KnowledgeDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, docs...)
	return nil
}

func (f *fakeStore) SimilaritySearch(_ context.Context, _ []float32, k int, category string) ([]models.KnowledgeDocument, error) {
	f.lastK, f.lastCat = k, category
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.docs, nil
}

func (f *fakeStore) upsertedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.upserted))
	for i, d := range f.upserted {
		ids[i] = d.ID
	}
	return ids
}

var sampleDocs = []models.KnowledgeDocument{
	{ID: "a", Title: "Order Status Overview", Category: "orders", Content: "Orders move from PROCESSING to SHIPPED."},
	{ID: "b", Title: "Shipping Methods", Category: "shipping", Content: "Standard shipping takes 3-5 days."},
	{ID: "c", Title: "Returns", Category: "policy", Content: "Returns accepted within 30 days."},
}

func TestRetrieveReturnsStoreOrder(t *testing.T) {
	store := &fakeStore{docs: sampleDocs[:2]}
	r := NewRetriever(&fakeEmbedder{}, store)

	docs := r.Retrieve(context.Background(), "where is my order", 3, "orders")
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, 3, store.lastK)
	assert.Equal(t, "orders", store.lastCat)
}

func TestRetrieveTruncatesToK(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeStore{docs: sampleDocs})

	docs := r.Retrieve(context.Background(), "anything", 2, "")
	assert.Len(t, docs, 2)
	assert.Empty(t, r.Retrieve(context.Background(), "anything", 0, ""))
}

func TestRetrieveDegradesToEmpty(t *testing.T) {
	embedFail := NewRetriever(&fakeEmbedder{err: llm.ErrEmbeddingUnavailable}, &fakeStore{docs: sampleDocs})
	assert.Empty(t, embedFail.Retrieve(context.Background(), "q", 3, ""))

	searchFail := NewRetriever(&fakeEmbedder{}, &fakeStore{searchErr: errors.New("index offline")})
	assert.Empty(t, searchFail.Retrieve(context.Background(), "q", 3, ""))
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "No relevant information found.", BuildContext(nil))
	assert.Equal(t, "No relevant information found.", BuildContext([]models.KnowledgeDocument{}))

	got := BuildContext(sampleDocs[:2])
	want := "Based on the following knowledge base information:\n\n" +
		"Document: Order Status Overview\nCategory: orders\nContent: Orders move from PROCESSING to SHIPPED.\n\n" +
		"Document: Shipping Methods\nCategory: shipping\nContent: Standard shipping takes 3-5 days.\n\n"
	assert.Equal(t, want, got)
}

type memoryCache struct {
	entries map[string][]float32
	readErr error
	sets    int
}

func (m *memoryCache) GetEmbedding(_ context.Context, key string) ([]float32, bool, error) {
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryCache) SetEmbedding(_ context.Context, key string, v []float32, _ time.Duration) error {
	m.sets++
	m.entries[key] = v
	return nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &fakeEmbedder{}
	cache := &memoryCache{entries: map[string][]float32{}}
	e := NewCachedEmbedder(inner, cache, "text-embedding-ada-002", time.Hour)
	ctx := context.Background()

	first, err := e.Embed(ctx, "return policy")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "  return policy ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.sets)

	cache.readErr = errors.New("redis down")
	_, err = e.Embed(ctx, "return policy")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	inner.err = llm.ErrEmbeddingUnavailable
	_, err = e.Embed(ctx, "new text")
	assert.ErrorIs(t, err, llm.ErrEmbeddingUnavailable)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "order-status-overview.json", `{
		"id": "order-status-overview",
		"title": "Order Status Overview",
		"content": "Every order is PROCESSING, SHIPPED, DELIVERED or CANCELLED.",
		"category": "orders",
		"tags": ["status", "orders"]
	}`)
	writeFile(t, dir, "shipping.json", `[
		{"id": "shipping-standard", "title": "Standard", "content": "3-5 business days"},
		{"id": "shipping-express", "title": "Express", "content": "1-2 business days", "category": "shipping"}
	]`)
	writeFile(t, dir, "returns.html", `<html><head><title>Return Policy</title>
		<meta name="category" content="policy"><meta name="keywords" content="returns, refunds">
		<script>var x = 1;</script></head>
		<body><nav>menu</nav><h1>Returns</h1>
		<p>Items can be returned
		within 30 days.</p></body></html>`)
	writeFile(t, dir, "broken.json", `{"id": `)
	writeFile(t, dir, "notes.txt", "ignored")

	docs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, "order-status-overview", docs[0].ID)
	assert.Equal(t, []string{"status", "orders"}, docs[0].Tags)

	assert.Equal(t, "returns", docs[1].ID)
	assert.Equal(t, "Return Policy", docs[1].Title)
	assert.Equal(t, "policy", docs[1].Category)
	assert.Equal(t, []string{"returns", "refunds"}, docs[1].Tags)
	assert.Equal(t, "Returns Items can be returned within 30 days.", docs[1].Content)

	assert.Equal(t, "shipping-standard", docs[2].ID)
	assert.Equal(t, "general", docs[2].Category)
	assert.Equal(t, "shipping", docs[3].Category)

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadFileRejectsEmptyContent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.json", `{"id": "x", "title": "X", "content": "  "}`)
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestIndexerSkipsFailingDocuments(t *testing.T) {
	embedder := &fakeEmbedder{fail: map[string]bool{sampleDocs[1].Content: true}}
	store := &fakeStore{}
	ix := NewIndexer(embedder, store)

	n, err := ix.Index(context.Background(), sampleDocs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c"}, store.upsertedIDs())
	for _, d := range store.upserted {
		assert.NotEmpty(t, d.Embedding)
	}
}

func TestIndexDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"id": "a", "title": "A", "content": "alpha"}`)
	store := &fakeStore{}

	n, err := NewIndexer(&fakeEmbedder{}, store).IndexDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWatcherReindexesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{}
	ix := NewIndexer(&fakeEmbedder{}, store)

	w, err := NewWatcher(ix, dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, dir, "faq.json", `{"id": "faq", "title": "FAQ", "content": "answers"}`)

	assert.Eventually(t, func() bool {
		for _, id := range store.upsertedIDs() {
			if id == "faq" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}
