package semantic

import (
	"fmt"
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denominator == 0 {
		return 0
	}

	return dot / denominator
}

// L2Distance computes the Euclidean distance between two vectors.
// Returns +Inf for vectors of different lengths.
func L2Distance(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}

	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// L2Score maps Euclidean distance into (0, 1]: 1 / (1 + distance).
func L2Score(a, b []float32) float32 {
	return 1 / (1 + L2Distance(a, b))
}

// Search finds records similar to a query embedding.
// Results are sorted by similarity (highest first) and filtered by threshold.
// A limit of zero returns every match.
func (idx *SemanticIndex) Search(query []float32, limit int, threshold float32) ([]SearchResult, error) {
	if len(idx.Embeddings) == 0 {
		return nil, ErrEmptyIndex
	}
	if limit < 0 {
		return nil, ErrNegativeLimit
	}
	if len(query) != idx.Dimensions {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), idx.Dimensions)
	}

	results := make([]SearchResult, 0, len(idx.Embeddings))
	for recordID, embedding := range idx.Embeddings {
		sim := CosineSimilarity(query, embedding)
		if sim >= threshold {
			results = append(results, SearchResult{
				RecordID:   recordID,
				Similarity: sim,
			})
		}
	}

	return rankResults(results, limit), nil
}

// FindSimilar finds records similar to a given record by ID.
// The source record is excluded from results.
func (idx *SemanticIndex) FindSimilar(recordID string, limit int) ([]SearchResult, error) {
	if limit < 0 {
		return nil, ErrNegativeLimit
	}

	embedding, exists := idx.Embeddings[recordID]
	if !exists {
		return nil, ErrRecordNotIndexed
	}

	results := make([]SearchResult, 0, len(idx.Embeddings)-1)
	for id, emb := range idx.Embeddings {
		if id == recordID {
			continue // Skip the source record
		}
		results = append(results, SearchResult{
			RecordID:   id,
			Similarity: CosineSimilarity(embedding, emb),
		})
	}

	return rankResults(results, limit), nil
}

// rankResults sorts by similarity descending, ties by ID, and applies limit.
func rankResults(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].RecordID < results[j].RecordID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// HasRecord checks if a record is in the index.
func (idx *SemanticIndex) HasRecord(recordID string) bool {
	_, exists := idx.Embeddings[recordID]
	return exists
}

// Vector returns the stored embedding of a record.
func (idx *SemanticIndex) Vector(recordID string) ([]float32, bool) {
	v, ok := idx.Embeddings[recordID]
	return v, ok
}
