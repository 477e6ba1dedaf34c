package scoring

import (
	"testing"

	"github.com/dshills/impactmatch/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestImpact_OrgCredibility(t *testing.T) {
	imp := NewImpact(testTables(t))

	tests := []struct {
		name        string
		org         *types.Organization
		want        float64
		wantReasons []string
	}{
		{name: "no organization", org: nil, want: 0},
		{name: "no signals", org: &types.Organization{Name: "Quiet Org"}, want: 0},
		{
			name:        "givewell only",
			org:         &types.Organization{IsGiveWellTopCharity: true},
			want:        0.5,
			wantReasons: []string{"GiveWell Top Charity (rigorous impact evaluation)"},
		},
		{
			name:        "bcorp without score uses base",
			org:         &types.Organization{IsBCorpCertified: true},
			want:        0.2,
			wantReasons: []string{"B Corp Certified"},
		},
		{
			name:        "bcorp middle tier",
			org:         &types.Organization{IsBCorpCertified: true, BCorpScore: intPtr(105)},
			want:        0.24,
			wantReasons: []string{"B Corp Certified (Score: 105)"},
		},
		{
			name:        "bcorp below tiers uses base",
			org:         &types.Organization{IsBCorpCertified: true, BCorpScore: intPtr(85)},
			want:        0.2,
			wantReasons: []string{"B Corp Certified"},
		},
		{
			name:        "transparency signals",
			org:         &types.Organization{HasPublicImpactReport: true, HasPublicFinancials: true, ImpactStatement: "We fund bednets."},
			want:        0.3,
			wantReasons: []string{"Publishes impact reports", "Transparent financials"},
		},
		{
			name:        "metric needs name and value",
			org:         &types.Organization{ImpactMetricName: "lives saved"},
			want:        0,
			wantReasons: nil,
		},
		{
			name: "every signal is capped at 1",
			org: &types.Organization{
				IsGiveWellTopCharity:  true,
				Is80kRecommended:      true,
				IsBCorpCertified:      true,
				BCorpScore:            intPtr(135),
				HasPublicImpactReport: true,
				HasPublicFinancials:   true,
				ImpactStatement:       "statement",
				ImpactMetricName:      "tonnes CO2 averted",
				ImpactMetricValue:     "1.2M",
			},
			want: 1,
			wantReasons: []string{
				"GiveWell Top Charity (rigorous impact evaluation)",
				"Recommended by 80,000 Hours",
				"B Corp Certified (Score: 135)",
				"Publishes impact reports",
				"Transparent financials",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := imp.OrgCredibility(tt.org)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.wantReasons, reasons)
		})
	}
}

func TestImpact_RoleLeverage(t *testing.T) {
	imp := NewImpact(testTables(t))

	tests := []struct {
		title      string
		want       float64
		wantReason string
	}{
		{title: "", want: 0.3},
		{title: "Executive Director", want: 1, wantReason: "Senior-level role with high organizational leverage"},
		{title: "Program Manager", want: 14.0 / 30, wantReason: "Mid-senior role with moderate organizational leverage"},
		{title: "Senior Engineer", want: 0.5, wantReason: "Mid-senior role with moderate organizational leverage"},
		{title: "Data Analyst", want: 10.0 / 30},
		{title: "Gardener", want: 10.0 / 30},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, reasons := imp.RoleLeverage(tt.title)
			assert.InDelta(t, tt.want, got, 1e-9)
			if tt.wantReason == "" {
				assert.Empty(t, reasons)
			} else {
				assert.Equal(t, []string{tt.wantReason}, reasons)
			}
		})
	}
}

func TestImpact_SkillScarcity(t *testing.T) {
	imp := NewImpact(testTables(t))

	tests := []struct {
		name       string
		seeker     []string
		job        []string
		want       float64
		wantReason string
	}{
		{name: "seeker without skills", seeker: nil, job: []string{"python"}, want: 0.5},
		{name: "job without skills", seeker: []string{"python"}, job: nil, want: 0.5},
		{name: "no overlap", seeker: []string{"python"}, job: []string{"grant-writing"}, want: 0.3},
		{name: "common skill", seeker: []string{"python"}, job: []string{"python"}, want: 0.7},
		{
			name:       "hyphenated slug meets spaced entry",
			seeker:     []string{"machine-learning"},
			job:        []string{"machine-learning"},
			want:       1,
			wantReason: "Your skills (machine learning) are in high demand for impact roles",
		},
		{
			name:       "average across overlap",
			seeker:     []string{"python", "aws"},
			job:        []string{"python", "aws", "sql"},
			want:       0.75,
			wantReason: "Your skills (aws) are in high demand for impact roles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := imp.SkillScarcity(tt.seeker, tt.job)
			assert.InDelta(t, tt.want, got, 1e-9)
			if tt.wantReason == "" {
				assert.Empty(t, reasons)
			} else {
				assert.Equal(t, []string{tt.wantReason}, reasons)
			}
		})
	}
}

func TestImpact_Score(t *testing.T) {
	imp := NewImpact(testTables(t))

	seeker := &types.SeekerProfile{Skills: []string{"machine-learning"}}
	job := &types.Job{
		Title:        "Executive Director",
		Organization: &types.Organization{Name: "Against Malaria", IsGiveWellTopCharity: true},
		Skills:       []string{"machine-learning"},
	}

	res := imp.Score(seeker, job)
	assert.InDelta(t, 80.0, res.Score, 1e-9)
	assert.Equal(t, types.TierExceptional, res.Tier)
	assert.Equal(t, &types.ImpactBreakdown{OrgCredibility: 0.5, RoleLeverage: 1, SkillScarcity: 1}, res.Impact)
	assert.Equal(t, []string{
		"GiveWell Top Charity (rigorous impact evaluation)",
		"Senior-level role with high organizational leverage",
		"Your skills (machine learning) are in high demand for impact roles",
	}, res.Reasons)
}

func TestImpact_ScoreWithoutData(t *testing.T) {
	imp := NewImpact(testTables(t))

	// org 0, role default 10/30, scarcity missing 0.5
	res := imp.Score(&types.SeekerProfile{}, &types.Job{Title: "Gardener"})
	assert.InDelta(t, 25.0, res.Score, 1e-9)
	assert.Equal(t, types.TierStandard, res.Tier)
	assert.Empty(t, res.Reasons)
}
