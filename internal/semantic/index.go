package semantic

import (
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/matsen/diario/internal/config"
)

// Errors returned by semantic index operations.
var (
	ErrIndexNotFound      = errors.New("semantic index not found")
	ErrRecordNotIndexed   = errors.New("record not in semantic index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
	ErrEmptyIndex         = errors.New("semantic index is empty")
	ErrNegativeLimit      = errors.New("limit must not be negative")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

const (
	// IndexFileName is the name of the semantic index file.
	IndexFileName = "semantic.gob"

	// MaxTextLength is the maximum text length (in characters) to embed.
	// all-minilm reads 256 word pieces; longer texts are truncated to this
	// length before embedding.
	MaxTextLength = 2000

	// CurrentIndexVersion is the format version for compatibility checking.
	// Increment this when making breaking changes to the index format.
	CurrentIndexVersion = 1
)

// IndexPath returns the path to the semantic index file.
func IndexPath(root string) string {
	return filepath.Join(config.CachePath(root), IndexFileName)
}

// NewSemanticIndex creates a new empty semantic index.
func NewSemanticIndex(modelName string, dimensions int) *SemanticIndex {
	return &SemanticIndex{
		Version:    CurrentIndexVersion,
		ModelName:  modelName,
		Dimensions: dimensions,
		CreatedAt:  time.Now(),
		Embeddings: make(map[string][]float32),
		TextHashes: make(map[string]string),
	}
}

// HashText returns the hex BLAKE2b-256 digest of text.
func HashText(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// AddEmbedding adds a record embedding to the index.
// The RecordCount field is automatically updated to reflect the current number of embeddings.
func (idx *SemanticIndex) AddEmbedding(recordID string, embedding []float32) error {
	if len(embedding) != idx.Dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), idx.Dimensions)
	}
	idx.Embeddings[recordID] = embedding
	idx.RecordCount = len(idx.Embeddings)
	return nil
}

// addText adds an embedding together with the hash of the text it came from.
func (idx *SemanticIndex) addText(recordID, textHash string, embedding []float32) error {
	if err := idx.AddEmbedding(recordID, embedding); err != nil {
		return err
	}
	if idx.TextHashes == nil {
		idx.TextHashes = make(map[string]string)
	}
	idx.TextHashes[recordID] = textHash
	return nil
}

// Save persists the semantic index to disk using GOB encoding.
func (idx *SemanticIndex) Save(root string) error {
	indexPath := IndexPath(root)

	// Ensure cache directory exists
	cacheDir := filepath.Dir(indexPath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	// Write to a temp file first, then rename for atomicity
	tempPath := indexPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	enc := gob.NewEncoder(f)
	if err := enc.Encode(idx); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, indexPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load reads the semantic index from disk.
// Returns ErrUnsupportedVersion if the index was created with an incompatible format.
func Load(root string) (*SemanticIndex, error) {
	indexPath := IndexPath(root)

	f, err := os.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var idx SemanticIndex
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&idx); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (rebuild with 'diario index build')",
			ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}

	if idx.Embeddings == nil {
		idx.Embeddings = make(map[string][]float32)
	}
	if idx.TextHashes == nil {
		idx.TextHashes = make(map[string]string)
	}

	return &idx, nil
}

// IndexSize returns the size of the index file in bytes.
func IndexSize(root string) (int64, error) {
	info, err := os.Stat(IndexPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrIndexNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Exists checks if the semantic index file exists.
func Exists(root string) bool {
	_, err := os.Stat(IndexPath(root))
	return err == nil
}
