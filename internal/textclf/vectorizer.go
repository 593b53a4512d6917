package textclf

import (
	"errors"
	"math"
	"sort"
)

var ErrEmptyVocabulary = errors.New("no terms remain after pruning")

// SparseVector is a row of the document-term matrix. Indices are ascending.
type SparseVector struct {
	Indices []int
	Values  []float64
}

type VectorizerParams struct {
	NgramMin      int     `json:"ngram_min"`
	NgramMax      int     `json:"ngram_max"`
	MaxFeatures   int     `json:"max_features"`
	MinDF         int     `json:"min_df"`
	MaxDF         float64 `json:"max_df"`
	KeepStopWords bool    `json:"keep_stop_words"`
}

// Vectorizer is a TF-IDF transformer with smoothed idf and l2 row norms.
type Vectorizer struct {
	Tokenizer  Tokenizer      `json:"tokenizer"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

func FitVectorizer(docs []string, params VectorizerParams) (*Vectorizer, error) {
	tok := Tokenizer{NgramMin: params.NgramMin, NgramMax: params.NgramMax, KeepStopWords: params.KeepStopWords}
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range tok.Terms(doc) {
			tf[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := len(docs)
	maxDocs := n
	if params.MaxDF > 0 && params.MaxDF < 1 {
		maxDocs = int(params.MaxDF * float64(n))
	}
	minDocs := params.MinDF
	if minDocs < 1 {
		minDocs = 1
	}
	kept := make([]string, 0, len(df))
	for term, count := range df {
		if count < minDocs || count > maxDocs {
			continue
		}
		kept = append(kept, term)
	}
	if len(kept) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if params.MaxFeatures > 0 && len(kept) > params.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if tf[kept[i]] != tf[kept[j]] {
				return tf[kept[i]] > tf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:params.MaxFeatures]
	}
	sort.Strings(kept)

	v := &Vectorizer{
		Tokenizer:  tok,
		Vocabulary: make(map[string]int, len(kept)),
		IDF:        make([]float64, len(kept)),
	}
	for i, term := range kept {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}
	return v, nil
}

func (v *Vectorizer) Dim() int {
	return len(v.IDF)
}

func (v *Vectorizer) Transform(doc string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range v.Tokenizer.Terms(doc) {
		if idx, ok := v.Vocabulary[term]; ok {
			counts[idx]++
		}
	}
	vec := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	var norm float64
	for _, idx := range vec.Indices {
		w := counts[idx] * v.IDF[idx]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

func (v *Vectorizer) TransformAll(docs []string) []SparseVector {
	out := make([]SparseVector, len(docs))
	for i, doc := range docs {
		out[i] = v.Transform(doc)
	}
	return out
}
