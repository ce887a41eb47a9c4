package semantic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/matsen/diario/internal/embedding"
	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/storage"
)

// DefaultBatchSize is the number of texts sent per batch embedding request.
const DefaultBatchSize = 64

// ProgressReporter receives progress updates during index building.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// Builder constructs a semantic index from record texts.
type Builder struct {
	provider  embedding.Provider
	db        *storage.DB
	progress  ProgressReporter
	batchSize int
}

// NewBuilder creates a new index builder. db may be nil, in which case no
// embedding metadata is written.
func NewBuilder(provider embedding.Provider, db *storage.DB) *Builder {
	return &Builder{
		provider:  provider,
		db:        db,
		batchSize: DefaultBatchSize,
	}
}

// SetProgressReporter sets the progress reporter for the builder.
func (b *Builder) SetProgressReporter(reporter ProgressReporter) {
	b.progress = reporter
}

// SetBatchSize sets how many texts go into one request when the provider
// supports batching. Values below 1 are treated as 1.
func (b *Builder) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	b.batchSize = n
}

// pending is a record waiting for its embedding.
type pending struct {
	id   string
	text string
	hash string
}

// Build creates a semantic index from records. When previous was built with
// the same model, embeddings of records whose text is unchanged are reused.
func (b *Builder) Build(ctx context.Context, records []record.Record, previous *SemanticIndex) (*SemanticIndex, *BuildStats, error) {
	startTime := time.Now()

	idx := NewSemanticIndex(b.provider.ModelName(), b.provider.Dimensions())
	stats := &BuildStats{}

	reusable := previous != nil &&
		previous.ModelName == idx.ModelName &&
		previous.Dimensions == idx.Dimensions

	total := len(records)
	processed := 0
	report := func(n int) {
		processed += n
		if b.progress != nil {
			b.progress.OnProgress(processed, total)
		}
	}

	var queue []pending
	for _, r := range records {
		text := prepareText(r.Text)
		if text == "" {
			stats.RecordsSkipped++
			report(1)
			continue
		}

		hash := HashText(text)
		if reusable && previous.TextHashes[r.ID] == hash {
			if vec, ok := previous.Embeddings[r.ID]; ok {
				if err := idx.addText(r.ID, hash, vec); err != nil {
					return nil, nil, fmt.Errorf("reusing embedding for %s: %w", r.ID, err)
				}
				stats.RecordsReused++
				report(1)
				continue
			}
		}

		queue = append(queue, pending{id: r.ID, text: text, hash: hash})
	}

	log.WithFields(log.Fields{
		"records": total,
		"reused":  stats.RecordsReused,
		"queued":  len(queue),
	}).Debug("building semantic index")

	batcher, canBatch := b.provider.(embedding.BatchProvider)
	batchSize := b.batchSize
	if !canBatch {
		batchSize = 1
	}

	for start := 0; start < len(queue); start += batchSize {
		// Check for cancellation
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		end := start + batchSize
		if end > len(queue) {
			end = len(queue)
		}
		batch := queue[start:end]

		vectors, err := b.embed(ctx, batcher, canBatch, batch)
		if err != nil {
			return nil, nil, err
		}

		for i, p := range batch {
			if err := idx.addText(p.id, p.hash, vectors[i]); err != nil {
				return nil, nil, fmt.Errorf("adding embedding for %s: %w", p.id, err)
			}
		}
		stats.RecordsEmbedded += len(batch)
		report(len(batch))
	}

	stats.RecordsIndexed = len(idx.Embeddings)

	if b.db != nil {
		if err := b.db.SaveEmbeddingMetadataBatch(metadataFor(idx, time.Now().Unix())); err != nil {
			return nil, nil, fmt.Errorf("saving embedding metadata: %w", err)
		}
	}

	idx.RecordCount = stats.RecordsIndexed
	idx.SkippedCount = stats.RecordsSkipped
	idx.BuildDurationMs = time.Since(startTime).Milliseconds()

	stats.Duration = time.Since(startTime)

	return idx, stats, nil
}

// embed returns one vector per pending record.
func (b *Builder) embed(ctx context.Context, batcher embedding.BatchProvider, canBatch bool, batch []pending) ([][]float32, error) {
	if canBatch && len(batch) > 1 {
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}
		embs, err := batcher.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch starting at %s: %w", batch[0].id, err)
		}
		vectors := make([][]float32, len(embs))
		for i, e := range embs {
			vectors[i] = e.Vector
		}
		return vectors, nil
	}

	vectors := make([][]float32, len(batch))
	for i, p := range batch {
		emb, err := b.provider.Embed(ctx, p.text)
		if err != nil {
			return nil, fmt.Errorf("embedding record %s: %w", p.id, err)
		}
		vectors[i] = emb.Vector
	}
	return vectors, nil
}

// metadataFor lists one metadata row per indexed record, sorted by ID.
func metadataFor(idx *SemanticIndex, indexedAt int64) []storage.EmbeddingMetadata {
	metas := make([]storage.EmbeddingMetadata, 0, len(idx.TextHashes))
	for id, hash := range idx.TextHashes {
		metas = append(metas, storage.EmbeddingMetadata{
			RecordID:  id,
			ModelName: idx.ModelName,
			IndexedAt: indexedAt,
			TextHash:  hash,
		})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].RecordID < metas[j].RecordID })
	return metas
}

// prepareText trims text and truncates it to MaxTextLength characters.
func prepareText(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > MaxTextLength {
		return string(runes[:MaxTextLength])
	}
	return text
}

// Check compares an index against the current records.
func Check(idx *SemanticIndex, records []record.Record) StaleReport {
	var report StaleReport

	current := make(map[string]bool, len(records))
	for _, r := range records {
		current[r.ID] = true

		text := prepareText(r.Text)
		if text == "" {
			continue
		}
		if !idx.HasRecord(r.ID) {
			report.Missing = append(report.Missing, r.ID)
			continue
		}
		if hash, ok := idx.TextHashes[r.ID]; ok && hash != HashText(text) {
			report.Changed = append(report.Changed, r.ID)
		}
	}

	for id := range idx.Embeddings {
		if !current[id] {
			report.Orphaned = append(report.Orphaned, id)
		}
	}
	sort.Strings(report.Orphaned)

	return report
}
