// Package chromem implements memory.Index on chromem-go, a pure Go embedded
// vector database.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/GarryCodespace/Jarvis/memory"
)

// ErrEmptyQuery is returned by Query for blank query text.
var ErrEmptyQuery = errors.New("empty query")

const defaultCollection = "conversation"

// Index keeps conversation events in a chromem-go collection.
// Every Sync rebuilds the collection from scratch in a fresh database and
// swaps it in, so queries never observe a half-built index.
type Index struct {
	embedder memory.Embedder
	name     string
	logger   *zap.Logger

	mu  sync.RWMutex
	col *chromem.Collection
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger. The index logs under the "chromem" name.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Index) {
		if logger != nil {
			i.logger = logger.Named("chromem")
		}
	}
}

// WithCollectionName sets the chromem collection name.
func WithCollectionName(name string) Option {
	return func(i *Index) {
		if name != "" {
			i.name = name
		}
	}
}

// New creates an empty Index that embeds documents and queries with embedder.
func New(embedder memory.Embedder, opts ...Option) *Index {
	i := &Index{
		embedder: embedder,
		name:     defaultCollection,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Sync replaces the indexed documents with events. Events with blank content
// are skipped.
func (i *Index) Sync(ctx context.Context, events []core.Event) error {
	db := chromem.NewDB()
	col, err := db.CreateCollection(i.name, nil, i.embed)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(events))
	for _, ev := range events {
		if strings.TrimSpace(ev.Content) == "" {
			continue
		}
		embedding, err := i.embedder.Embed(ctx, ev.Content)
		if err != nil {
			return fmt.Errorf("embed event %s: %w", ev.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:        ev.ID,
			Content:   ev.Content,
			Embedding: embedding,
			Metadata:  documentMetadata(ev),
		})
	}

	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("add documents: %w", err)
		}
	}

	i.mu.Lock()
	i.col = col
	i.mu.Unlock()

	i.logger.Debug("index synced",
		zap.String("collection", i.name),
		zap.Int("documents", len(docs)),
	)
	return nil
}

// Query returns the ids of the documents most similar to text, best first.
func (i *Index) Query(ctx context.Context, text string, limit int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	i.mu.RLock()
	col := i.col
	i.mu.RUnlock()

	// chromem-go requires 0 < nResults <= collection size
	if col == nil || col.Count() == 0 || limit <= 0 {
		return nil, nil
	}
	if n := col.Count(); limit > n {
		limit = n
	}

	embedding, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	i.logger.Debug("index queried",
		zap.Int("limit", limit),
		zap.Int("results", len(ids)),
	)
	return ids, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.col == nil {
		return 0
	}
	return i.col.Count()
}

func (i *Index) embed(ctx context.Context, text string) ([]float32, error) {
	return i.embedder.Embed(ctx, text)
}

// documentMetadata flattens an event into chromem's string metadata.
func documentMetadata(ev core.Event) map[string]string {
	md := map[string]string{
		"role":      string(ev.Role),
		"skill":     ev.Skill,
		"action":    ev.Action,
		"category":  string(ev.Category),
		"timestamp": ev.Timestamp.Format(time.RFC3339Nano),
	}
	for k, v := range ev.Metadata {
		if _, reserved := md[k]; reserved {
			continue
		}
		if str, ok := v.(string); ok {
			md[k] = str
		} else if b, err := json.Marshal(v); err == nil {
			md[k] = string(b)
		}
	}
	return md
}
