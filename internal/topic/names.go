package topic

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/mat"
)

// stopWords are dropped before topic words are scored.
var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all am an and any are as at be because
		been before being below between both but by can could did do does doing
		down during each few for from further had has have having he her here
		hers herself him himself his how i if in into is it its itself just me
		more most my myself no nor not now of off on once only or other our ours
		ourselves out over own same she should so some such than that the their
		theirs them themselves then there these they this those through to too
		under until up very was we were what when where which while who whom why
		will with would you your yours yourself yourselves vs via www com http https
	`) {
		stopWords[w] = true
	}
}

// tokenize splits text into lowercase words of two or more characters,
// without stop words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 || stopWords[f] {
			continue
		}
		words = append(words, f)
	}
	return words
}

// wordScore pairs a term with its c-TF-IDF weight.
type wordScore struct {
	word  string
	score float64
}

// topWords returns the n most distinctive words of each topic using
// class-based TF-IDF: every topic's texts are joined into one document,
// term frequencies are normalized per topic, and weighted by
// log(1 + average words per topic / term frequency across all topics).
func topWords(texts []string, labels []int, n int) map[int][]string {
	var classes []int
	row := make(map[int]int)
	for _, l := range labels {
		if _, ok := row[l]; !ok {
			row[l] = 0
			classes = append(classes, l)
		}
	}
	sort.Ints(classes)
	for i, c := range classes {
		row[c] = i
	}

	tokens := make([][]string, len(texts))
	vocabSet := make(map[string]bool)
	for i, t := range texts {
		tokens[i] = tokenize(t)
		for _, w := range tokens[i] {
			vocabSet[w] = true
		}
	}

	result := make(map[int][]string, len(classes))
	if len(vocabSet) == 0 || len(classes) == 0 {
		return result
	}

	vocab := make([]string, 0, len(vocabSet))
	for w := range vocabSet {
		vocab = append(vocab, w)
	}
	sort.Strings(vocab)
	col := make(map[string]int, len(vocab))
	for j, w := range vocab {
		col[w] = j
	}

	counts := mat.NewDense(len(classes), len(vocab), nil)
	for i, words := range tokens {
		r := row[labels[i]]
		for _, w := range words {
			c := col[w]
			counts.Set(r, c, counts.At(r, c)+1)
		}
	}

	rows, cols := counts.Dims()
	classTotals := make([]float64, rows)
	for r := 0; r < rows; r++ {
		classTotals[r] = mat.Sum(counts.RowView(r))
	}
	termTotals := make([]float64, cols)
	for c := 0; c < cols; c++ {
		termTotals[c] = mat.Sum(counts.ColView(c))
	}
	avgWords := mat.Sum(counts) / float64(rows)

	var scores mat.Dense
	scores.Apply(func(r, c int, v float64) float64 {
		if v == 0 || classTotals[r] == 0 {
			return 0
		}
		return v / classTotals[r] * math.Log(1+avgWords/termTotals[c])
	}, counts)

	for r, class := range classes {
		ws := make([]wordScore, 0, cols)
		for c := 0; c < cols; c++ {
			if s := scores.At(r, c); s > 0 {
				ws = append(ws, wordScore{word: vocab[c], score: s})
			}
		}
		sort.Slice(ws, func(i, j int) bool {
			if ws[i].score != ws[j].score {
				return ws[i].score > ws[j].score
			}
			return ws[i].word < ws[j].word
		})
		if len(ws) > n {
			ws = ws[:n]
		}
		words := make([]string, len(ws))
		for i, w := range ws {
			words[i] = w.word
		}
		result[class] = words
	}

	return result
}

// topicName formats a topic name as "<id>_<w1>_<w2>...".
func topicName(id int, words []string) string {
	return strconv.Itoa(id) + "_" + strings.Join(words, "_")
}
