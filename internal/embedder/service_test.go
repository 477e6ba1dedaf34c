package embedder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/impactmatch/pkg/types"
)

type labelMap map[string]string

func (l labelMap) SkillLabel(slug string) string {
	if label, ok := l[slug]; ok {
		return label
	}
	return slug
}

func TestSeekerText(t *testing.T) {
	seeker := &types.SeekerProfile{
		ID:              1,
		ImpactStatement: "I want to cut emissions.",
		ImpactAreas:     []types.Category{{ID: 1, Name: "Climate"}, {ID: 2, Name: "Energy"}},
		Skills:          []string{"python", "data-analysis"},
		WorkStyle:       types.WorkStyleResearcher,
	}

	got := SeekerText(seeker, labelMap{"python": "Python", "data-analysis": "Data Analysis"})
	assert.Equal(t, "I want to cut emissions. Impact areas: Climate, Energy Skills: Python, Data Analysis Work style: researcher", got)

	assert.Equal(t, "", SeekerText(&types.SeekerProfile{ID: 2}, nil))
	assert.Equal(t, "", SeekerText(nil, nil))
}

func TestJobText(t *testing.T) {
	job := &types.Job{ID: 1, Title: "Analyst", Description: "Model policy.", Impact: "Fewer emissions"}
	assert.Equal(t, "Analyst Model policy. Fewer emissions", JobText(job))

	assert.Equal(t, "", JobText(&types.Job{ID: 2, Title: "  "}))

	long := &types.Job{ID: 3, Title: "T", Description: strings.Repeat("x", 9000)}
	assert.Len(t, JobText(long), MaxTextLength)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalProvider(nil)
	require.NoError(t, err)
	svc := NewService(local, nil, nil)

	t.Run("no text yields no embedding", func(t *testing.T) {
		emb, err := svc.EmbedSeeker(ctx, &types.SeekerProfile{ID: 1})
		require.NoError(t, err)
		assert.Nil(t, emb)

		emb, err = svc.EmbedJob(ctx, &types.Job{ID: 1})
		require.NoError(t, err)
		assert.Nil(t, emb)
	})

	t.Run("hash tracks canonical text", func(t *testing.T) {
		job := &types.Job{ID: 1, Title: "Program Manager", Description: "Run field programs"}
		emb, err := svc.EmbedJob(ctx, job)
		require.NoError(t, err)
		require.NotNil(t, emb)
		assert.Equal(t, ComputeHash(JobText(job)), emb.Hash)
	})

	t.Run("batches preserve order", func(t *testing.T) {
		texts := make([]string, DefaultBatchSize+3)
		for i := range texts {
			texts[i] = strings.Repeat("w", i+1)
		}
		out, err := svc.EmbedTexts(ctx, texts)
		require.NoError(t, err)
		require.Len(t, out, len(texts))
		assert.Equal(t, ComputeHash(texts[DefaultBatchSize+1]), out[DefaultBatchSize+1].Hash)
	})
}
