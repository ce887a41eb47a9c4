// Package topic groups records into topics by clustering their embeddings
// and names each topic by its most distinctive words.
package topic

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Errors returned by Fit.
var (
	ErrInvalidOptions    = errors.New("invalid topic options")
	ErrDimensionMismatch = errors.New("document vectors have different dimensions")
)

// Options controls clustering.
type Options struct {
	MinTopicSize int     // clusters smaller than this become outliers
	Similarity   float64 // cosine similarity needed to join a cluster
	Iterations   int     // k-means refinement passes
	TopWords     int     // words in a topic name
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MinTopicSize: 150,
		Similarity:   0.6,
		Iterations:   10,
		TopWords:     4,
	}
}

func (o Options) validate() error {
	if o.MinTopicSize < 1 {
		return fmt.Errorf("%w: min topic size must be at least 1, got %d", ErrInvalidOptions, o.MinTopicSize)
	}
	if o.Similarity < -1 || o.Similarity > 1 {
		return fmt.Errorf("%w: similarity must be within [-1, 1], got %g", ErrInvalidOptions, o.Similarity)
	}
	if o.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative, got %d", ErrInvalidOptions, o.Iterations)
	}
	if o.TopWords < 1 {
		return fmt.Errorf("%w: top words must be at least 1, got %d", ErrInvalidOptions, o.TopWords)
	}
	return nil
}

// Document is one record prepared for clustering.
type Document struct {
	ID     string
	Text   string
	Vector []float32
}

// Topic describes one fitted topic.
type Topic struct {
	ID    int      `json:"topic_id"`
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Words []string `json:"words"`
}

// Model is the result of Fit.
type Model struct {
	Topics      []Topic      // outlier topic first when present, then by ID
	Assignments []Assignment // one per document, in input order
}

// Info returns the topic table: the outlier row first, then topics by ID.
func (m *Model) Info() []Topic {
	info := make([]Topic, len(m.Topics))
	copy(info, m.Topics)
	sort.SliceStable(info, func(i, j int) bool { return info[i].ID < info[j].ID })
	return info
}

// TopicName returns the name of a topic, or "" if the model has no such topic.
func (m *Model) TopicName(id int) string {
	for _, t := range m.Topics {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}

// Fit clusters documents and names the resulting topics.
func Fit(docs []Document, opts Options) (*Model, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Model{}, nil
	}

	vectors, err := normalized(docs)
	if err != nil {
		return nil, err
	}

	labels, centroids := cluster(vectors, opts)

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	words := topWords(texts, labels, opts.TopWords)

	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}

	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	model := &Model{
		Topics:      make([]Topic, 0, len(ids)),
		Assignments: make([]Assignment, len(docs)),
	}
	for _, id := range ids {
		model.Topics = append(model.Topics, Topic{
			ID:    id,
			Name:  topicName(id, words[id]),
			Count: counts[id],
			Words: words[id],
		})
	}

	for i, d := range docs {
		a := Assignment{
			RecordID:  d.ID,
			TopicID:   labels[i],
			TopicName: model.TopicName(labels[i]),
		}
		if labels[i] != OutlierID {
			a.Probability = clamp01(floats.Dot(vectors[i], centroids[labels[i]]))
		}
		model.Assignments[i] = a
	}

	return model, nil
}

// normalized converts document vectors to unit-length float64 slices.
// Zero vectors stay zero.
func normalized(docs []Document) ([][]float64, error) {
	dim := len(docs[0].Vector)
	out := make([][]float64, len(docs))
	for i, d := range docs {
		if len(d.Vector) != dim {
			return nil, fmt.Errorf("%w: %s has %d, want %d", ErrDimensionMismatch, d.ID, len(d.Vector), dim)
		}
		v := make([]float64, dim)
		for j, x := range d.Vector {
			v[j] = float64(x)
		}
		unit(v)
		out[i] = v
	}
	return out, nil
}

// unit scales v to length one in place.
func unit(v []float64) {
	if n := floats.Norm(v, 2); n > 0 {
		floats.Scale(1/n, v)
	}
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// Summarize rebuilds the topic table from stored assignments. Words are not
// stored with assignments, so the returned topics carry only ID, name and
// count, ordered like Info.
func Summarize(assignments []Assignment) []Topic {
	byID := make(map[int]*Topic)
	var ids []int
	for _, a := range assignments {
		t, ok := byID[a.TopicID]
		if !ok {
			t = &Topic{ID: a.TopicID, Name: a.TopicName}
			byID[a.TopicID] = t
			ids = append(ids, a.TopicID)
		}
		t.Count++
	}
	sort.Ints(ids)

	topics := make([]Topic, len(ids))
	for i, id := range ids {
		topics[i] = *byID[id]
	}
	return topics
}
