package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFTSMatchExpression(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		want  string
	}{
		{name: "empty", terms: nil, want: ""},
		{name: "single term", terms: []string{"python"}, want: `"python"`},
		{name: "phrases are OR-combined", terms: []string{"data analysis", "Climate"}, want: `"data analysis" OR "Climate"`},
		{name: "duplicates ignore case", terms: []string{"SQL", "sql", " sql "}, want: `"SQL"`},
		{name: "punctuation-only terms dropped", terms: []string{"-", "c++", "  "}, want: `"c++"`},
		{name: "quotes are escaped", terms: []string{`say "hi"`}, want: `"say ""hi"""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ftsMatchExpression(tt.terms))
		})
	}
}

func TestWebsearchExpression(t *testing.T) {
	assert.Equal(t, `"machine learning" or "python"`, websearchExpression([]string{"machine learning", "python"}))
	assert.Equal(t, "", websearchExpression([]string{"", "?"}))
}

func TestVectorSerialization(t *testing.T) {
	original := []float32{0.5, -1.25, 3, 0}
	blob := serializeVector(original)
	assert.Len(t, blob, 16)
	assert.Equal(t, original, deserializeVector(blob))
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{2, 0}, want: 0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 1},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}
