package topic

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// twoClusterDocs returns n documents near the x axis about golang and n near
// the y axis about baking, interleaved, plus one document on the z axis.
func twoClusterDocs(n int) []Document {
	var docs []Document
	for i := 0; i < n; i++ {
		jitter := float32(i%3) * 0.05
		docs = append(docs,
			Document{ID: fmt.Sprintf("go-%d", i), Text: "golang goroutine channels", Vector: []float32{1, jitter, 0}},
			Document{ID: fmt.Sprintf("bake-%d", i), Text: "sourdough bread baking", Vector: []float32{jitter, 1, 0}},
		)
	}
	docs = append(docs, Document{ID: "lonely", Text: "tax forms deadline", Vector: []float32{0, 0, 1}})
	return docs
}

func testOptions() Options {
	return Options{MinTopicSize: 3, Similarity: 0.8, Iterations: 5, TopWords: 2}
}

func TestFit(t *testing.T) {
	docs := twoClusterDocs(4)
	// One extra golang document makes the golang topic the largest.
	docs = append(docs, Document{ID: "go-extra", Text: "golang generics", Vector: []float32{1, 0.02, 0}})

	model, err := Fit(docs, testOptions())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if len(model.Assignments) != len(docs) {
		t.Fatalf("got %d assignments, want %d", len(model.Assignments), len(docs))
	}

	byID := make(map[string]Assignment)
	for i, a := range model.Assignments {
		if a.RecordID != docs[i].ID {
			t.Errorf("assignment %d is for %s, want %s", i, a.RecordID, docs[i].ID)
		}
		byID[a.RecordID] = a
	}

	if got := byID["go-0"].TopicID; got != 0 {
		t.Errorf("golang topic = %d, want 0 (largest)", got)
	}
	if got := byID["bake-0"].TopicID; got != 1 {
		t.Errorf("baking topic = %d, want 1", got)
	}
	for i := 0; i < 4; i++ {
		if byID[fmt.Sprintf("go-%d", i)].TopicID != byID["go-0"].TopicID {
			t.Errorf("go-%d not clustered with go-0", i)
		}
		if byID[fmt.Sprintf("bake-%d", i)].TopicID != byID["bake-0"].TopicID {
			t.Errorf("bake-%d not clustered with bake-0", i)
		}
	}

	lonely := byID["lonely"]
	if !lonely.IsOutlier() || lonely.Probability != 0 {
		t.Errorf("lonely = %+v, want outlier with probability 0", lonely)
	}

	for _, a := range model.Assignments {
		if a.Probability < 0 || a.Probability > 1 {
			t.Errorf("probability %v out of range for %s", a.Probability, a.RecordID)
		}
		if !a.IsOutlier() && a.Probability < 0.8 {
			t.Errorf("probability %v unexpectedly low for %s", a.Probability, a.RecordID)
		}
	}

	if name := byID["go-0"].TopicName; !strings.HasPrefix(name, "0_golang") && !strings.HasPrefix(name, "0_goroutine") && !strings.HasPrefix(name, "0_channels") {
		t.Errorf("golang topic name = %q", name)
	}
	if name := byID["lonely"].TopicName; !strings.HasPrefix(name, "-1_") {
		t.Errorf("outlier topic name = %q, want -1_ prefix", name)
	}
}

func TestFit_Info(t *testing.T) {
	model, err := Fit(twoClusterDocs(4), testOptions())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	info := model.Info()
	if len(info) != 3 {
		t.Fatalf("got %d topics, want 3", len(info))
	}
	if info[0].ID != OutlierID || info[0].Count != 1 {
		t.Errorf("first row = %+v, want outlier with count 1", info[0])
	}
	if info[1].ID != 0 || info[2].ID != 1 {
		t.Errorf("topic order = %d, %d, want 0, 1", info[1].ID, info[2].ID)
	}
	total := 0
	for _, ti := range info {
		total += ti.Count
	}
	if total != 9 {
		t.Errorf("total count = %d, want 9", total)
	}
}

func TestFit_MinTopicSizeDissolves(t *testing.T) {
	opts := testOptions()
	opts.MinTopicSize = 10

	model, err := Fit(twoClusterDocs(4), opts)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	for _, a := range model.Assignments {
		if !a.IsOutlier() {
			t.Errorf("%s assigned to topic %d, want outlier", a.RecordID, a.TopicID)
		}
	}
	if len(model.Topics) != 1 || model.Topics[0].ID != OutlierID {
		t.Errorf("topics = %+v, want only the outlier topic", model.Topics)
	}
}

func TestFit_Deterministic(t *testing.T) {
	docs := twoClusterDocs(5)
	first, err := Fit(docs, testOptions())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	second, err := Fit(docs, testOptions())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Fit() is not deterministic")
	}
}

func TestFit_Empty(t *testing.T) {
	model, err := Fit(nil, testOptions())
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if len(model.Topics) != 0 || len(model.Assignments) != 0 {
		t.Errorf("Fit(nil) = %+v, want empty model", model)
	}
}

func TestFit_Errors(t *testing.T) {
	t.Run("dimension mismatch", func(t *testing.T) {
		docs := []Document{
			{ID: "a", Text: "x", Vector: []float32{1, 0}},
			{ID: "b", Text: "y", Vector: []float32{1, 0, 0}},
		}
		if _, err := Fit(docs, testOptions()); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Fit() error = %v, want ErrDimensionMismatch", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero min topic size", func(o *Options) { o.MinTopicSize = 0 }},
		{"similarity above one", func(o *Options) { o.Similarity = 1.5 }},
		{"negative iterations", func(o *Options) { o.Iterations = -1 }},
		{"zero top words", func(o *Options) { o.TopWords = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.modify(&opts)
			if _, err := Fit(twoClusterDocs(1), opts); !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("Fit() error = %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"How do I use Go channels?", []string{"use", "go", "channels"}},
		{"C++ vs Rust: a comparison", []string{"rust", "comparison"}},
		{"café crème brûlée", []string{"café", "crème", "brûlée"}},
		{"the of and", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := tokenize(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTopWords(t *testing.T) {
	texts := []string{
		"python pandas dataframe",
		"python pandas groupby",
		"python numpy arrays",
		"bread flour yeast",
		"bread sourdough starter",
	}
	labels := []int{0, 0, 0, 1, 1}

	words := topWords(texts, labels, 2)

	if got := words[0]; !reflect.DeepEqual(got, []string{"python", "pandas"}) {
		t.Errorf("topic 0 words = %v, want [python pandas]", got)
	}
	if got := words[1]; len(got) != 2 || got[0] != "bread" {
		t.Errorf("topic 1 words = %v, want bread first", got)
	}
}

func TestTopWords_NoVocabulary(t *testing.T) {
	words := topWords([]string{"the", "a"}, []int{0, 0}, 3)
	if len(words) != 0 {
		t.Errorf("topWords() = %v, want empty", words)
	}
}

func TestTopicName(t *testing.T) {
	tests := []struct {
		id    int
		words []string
		want  string
	}{
		{0, []string{"golang", "channels"}, "0_golang_channels"},
		{-1, []string{"misc"}, "-1_misc"},
		{3, nil, "3_"},
	}
	for _, tt := range tests {
		if got := topicName(tt.id, tt.words); got != tt.want {
			t.Errorf("topicName(%d, %v) = %q, want %q", tt.id, tt.words, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	assignments := []Assignment{
		{RecordID: "a", TopicID: 1, TopicName: "1_bread"},
		{RecordID: "b", TopicID: 0, TopicName: "0_golang"},
		{RecordID: "c", TopicID: OutlierID, TopicName: "-1_misc"},
		{RecordID: "d", TopicID: 0, TopicName: "0_golang"},
	}

	got := Summarize(assignments)
	want := []Topic{
		{ID: OutlierID, Name: "-1_misc", Count: 1},
		{ID: 0, Name: "0_golang", Count: 2},
		{ID: 1, Name: "1_bread", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}

	if got := Summarize(nil); len(got) != 0 {
		t.Errorf("Summarize(nil) = %+v, want empty", got)
	}
}
