package scoring

import (
	"math"

	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/pkg/types"
)

// Query term limits per source
const (
	maxSkillTerms     = 10
	maxImpactTerms    = 5
	maxWorkStyleTerms = 5
)

// LexicalTerms builds the OR-combined full-text query for a seeker: skill
// labels, impact-area names and the leading work-style keywords
func LexicalTerms(tables *heuristics.Tables, seeker *types.SeekerProfile) []string {
	if seeker == nil {
		return nil
	}
	terms := make([]string, 0, maxSkillTerms+maxImpactTerms+maxWorkStyleTerms)

	for i, slug := range seeker.Skills {
		if i == maxSkillTerms {
			break
		}
		terms = append(terms, tables.SkillSearchTerm(slug))
	}
	for i, area := range seeker.ImpactAreas {
		if i == maxImpactTerms {
			break
		}
		if area.Name != "" {
			terms = append(terms, area.Name)
		} else if a, ok := tables.ImpactArea(area.Slug); ok {
			terms = append(terms, a.Name)
		}
	}
	if seeker.WorkStyle != "" {
		keywords := tables.WorkStyleKeywords[string(seeker.WorkStyle)]
		if len(keywords) > maxWorkStyleTerms {
			keywords = keywords[:maxWorkStyleTerms]
		}
		terms = append(terms, keywords...)
	}
	return terms
}

// Lexical scores a job by its precomputed full-text rank. The ranks come from
// the store so the strategy itself stays free of I/O.
type Lexical struct {
	hasTerms bool
	ranks    map[int64]float64
}

// NewLexical binds ranks (job id to raw rank) computed for the given terms
func NewLexical(terms []string, ranks map[int64]float64) *Lexical {
	return &Lexical{hasTerms: len(terms) > 0, ranks: ranks}
}

func (l *Lexical) Name() string { return "lexical" }

// Score maps a raw rank onto 0-100. No query, no indexed text, or no rank
// at all gives the neutral score.
func (l *Lexical) Score(_ *types.SeekerProfile, job *types.Job) Result {
	if !l.hasTerms || job == nil || !job.HasSearchText() {
		return Result{Score: NeutralScore}
	}
	rank, ok := l.ranks[job.ID]
	if !ok || rank <= 0 {
		return Result{Score: NeutralScore}
	}
	return Result{Score: math.Min(100, rank*100)}
}
