package features

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/textnorm"
)

// Tokens are runs of two or more word characters.
var tokenRe = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]{2,}`)

// TFIDFConfig controls the n-gram feature space.
type TFIDFConfig struct {
	NgramMin int `msgpack:"ngram_min" yaml:"ngram_min"`
	NgramMax int `msgpack:"ngram_max" yaml:"ngram_max"`
	// MinDF is an absolute document count; terms seen in fewer documents are dropped.
	MinDF int `msgpack:"min_df" yaml:"min_df"`
	// MaxDF is a document fraction; terms seen in more documents are dropped.
	MaxDF       float64 `msgpack:"max_df" yaml:"max_df"`
	SublinearTF bool    `msgpack:"sublinear_tf" yaml:"sublinear_tf"`
}

// DefaultTFIDFConfig is unigrams plus bigrams, min_df 1, max_df 0.95.
func DefaultTFIDFConfig() TFIDFConfig {
	return TFIDFConfig{NgramMin: 1, NgramMax: 2, MinDF: 1, MaxDF: 0.95}
}

func (c TFIDFConfig) withDefaults() TFIDFConfig {
	if c.NgramMin <= 0 {
		c.NgramMin = 1
	}
	if c.NgramMax < c.NgramMin {
		c.NgramMax = c.NgramMin
	}
	if c.MinDF <= 0 {
		c.MinDF = 1
	}
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		c.MaxDF = 1
	}
	return c
}

// TFIDF is a bag-of-n-grams vectorizer with smoothed inverse document
// frequency weighting and l2-normalized rows. Once fitted it is read-only
// and safe for concurrent Transform calls.
type TFIDF struct {
	Config     TFIDFConfig    `msgpack:"config"`
	Vocabulary map[string]int `msgpack:"vocabulary"`
	IDF        []float64      `msgpack:"idf"`
}

var _ TextVectorizer = (*TFIDF)(nil)

// NewTFIDF returns an unfitted vectorizer.
func NewTFIDF(cfg TFIDFConfig) *TFIDF {
	return &TFIDF{Config: cfg.withDefaults()}
}

// Fitted reports whether Fit has produced a vocabulary.
func (t *TFIDF) Fitted() bool {
	return t != nil && t.Vocabulary != nil && len(t.IDF) == len(t.Vocabulary)
}

// Dim is the size of the feature space.
func (t *TFIDF) Dim() int {
	if t == nil {
		return 0
	}
	return len(t.IDF)
}

// Fit learns the vocabulary and idf weights from corpus.
func (t *TFIDF) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return fmt.Errorf("tfidf: empty corpus")
	}
	cfg := t.Config.withDefaults()

	df := make(map[string]int)
	for _, doc := range corpus {
		for term := range termCounts(doc, cfg) {
			df[term]++
		}
	}

	n := len(corpus)
	maxCount := cfg.MaxDF * float64(n)
	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count < cfg.MinDF || float64(count) > maxCount {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return fmt.Errorf("tfidf: no terms remain after document-frequency pruning")
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	t.Config = cfg
	t.Vocabulary = vocab
	t.IDF = idf
	return nil
}

// Transform maps text into the fitted feature space. Unknown terms are
// ignored; text with no known terms yields the zero vector.
func (t *TFIDF) Transform(text string) (Vector, error) {
	if !t.Fitted() {
		return Vector{}, fmt.Errorf("tfidf: %w", sense.ErrNotFitted)
	}

	counts := termCounts(text, t.Config)
	indices := make([]int, 0, len(counts))
	weights := make(map[int]float64, len(counts))
	for term, c := range counts {
		idx, ok := t.Vocabulary[term]
		if !ok {
			continue
		}
		tf := float64(c)
		if t.Config.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		indices = append(indices, idx)
		weights[idx] = tf * t.IDF[idx]
	}
	sort.Ints(indices)

	vec := Vector{Dim: len(t.IDF), Indices: indices, Values: make([]float64, len(indices))}
	for k, idx := range indices {
		vec.Values[k] = weights[idx]
	}
	if norm := vec.Norm(); norm > 0 {
		for k := range vec.Values {
			vec.Values[k] /= norm
		}
	}
	return vec, vec.check()
}

// Analyze returns the n-grams that text contributes, in order of appearance.
func (t *TFIDF) Analyze(text string) []string {
	return ngrams(tokenize(text), t.Config.withDefaults())
}

func tokenize(text string) []string {
	return tokenRe.FindAllString(textnorm.Lower(text), -1)
}

func ngrams(tokens []string, cfg TFIDFConfig) []string {
	var out []string
	for n := cfg.NgramMin; n <= cfg.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

func termCounts(text string, cfg TFIDFConfig) map[string]int {
	counts := make(map[string]int)
	for _, g := range ngrams(tokenize(text), cfg) {
		counts[g]++
	}
	return counts
}
