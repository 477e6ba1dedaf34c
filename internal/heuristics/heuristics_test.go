package heuristics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", tables.Version)
	assert.Equal(t, 30.0, tables.RoleLeverage.MaxPoints)
	assert.Equal(t, 10.0, tables.RoleLeverage.DefaultPoints)
	assert.NotEmpty(t, tables.RoleLeverage.Keywords)
	assert.Equal(t, "machine learning", tables.ScarceSkills.Multipliers[0].Skill)
	assert.Len(t, tables.WorkStyleKeywords, 5)
	assert.Equal(t, 500, tables.LevelInference.DescriptionPrefix)
	assert.Equal(t, []string{"entry", "mid", "senior", "leadership"}, levelNames(tables))
	assert.Equal(t, 50.0, tables.OrgCredibility.MaxPoints)
	assert.Len(t, tables.ImpactAreas, 16)
	assert.Greater(t, len(tables.Skills), 100)
}

func levelNames(t *Tables) []string {
	out := make([]string, 0, len(t.LevelInference.Levels))
	for _, l := range t.LevelInference.Levels {
		out = append(out, l.Level)
	}
	return out
}

func TestTables_SkillLabel(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	tests := []struct {
		slug string
		want string
	}{
		{"python", "Python"},
		{"data-analysis", "Data Analysis"},
		{"me-evaluation", "M&E / Evaluation"},
		{"quantum-basket-weaving", "Quantum Basket Weaving"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.Equal(t, tt.want, tables.SkillLabel(tt.slug))
		})
	}
}

func TestTables_SkillSearchTerm(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Node.js", tables.SkillSearchTerm("nodejs"))
	assert.Equal(t, "rust systems", tables.SkillSearchTerm("rust-systems"))
}

func TestTables_SearchSkills(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	found := tables.SearchSkills("grant")
	slugs := make([]string, 0, len(found))
	for _, s := range found {
		slugs = append(slugs, s.Slug)
	}
	assert.Contains(t, slugs, "grant-writing")
	assert.Contains(t, slugs, "grant-management")
}

func TestTables_ResolveSkill(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "python", want: "python", wantOK: true},
		{raw: "SQL", want: "sql", wantOK: true},
		{raw: "Data Analysis", want: "data-analysis", wantOK: true},
		{raw: "  machine   learning ", want: "machine-learning", wantOK: true},
		{raw: "Node.js", want: "nodejs", wantOK: true},
		{raw: "node", want: "nodejs", wantOK: true},
		{raw: "grant", wantOK: false},
		{raw: "rocket surgery", wantOK: false},
		{raw: " ", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := tables.ResolveSkill(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTables_OrgSignals(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	assert.True(t, tables.IsGiveWellTopCharity("Against Malaria Foundation"))
	assert.True(t, tables.IsGiveWellTopCharity("  GiveDirectly Inc. "))
	assert.True(t, tables.IsGiveWellTopCharity("Malaria Consortium"))
	assert.False(t, tables.IsGiveWellTopCharity("GreenLedger"))
	assert.False(t, tables.IsGiveWellTopCharity(""))

	assert.True(t, tables.IsEightyKSource("80000hours"))
	assert.True(t, tables.IsEightyKSource("80K"))
	assert.False(t, tables.IsEightyKSource("idealist"))
	assert.False(t, tables.IsEightyKSource(""))
}

func TestTables_CompatibleLevels(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"entry"}, tables.CompatibleLevels("early"))
	assert.Contains(t, tables.CompatibleLevels("leadership"), "leadership")
	assert.Nil(t, tables.CompatibleLevels("astronaut"))
}

func readEmbedded(t *testing.T, name string) []byte {
	t.Helper()
	data, err := embedded.ReadFile("data/" + name)
	require.NoError(t, err)
	return data
}

func TestLoadFS_Errors(t *testing.T) {
	heuristics := string(readEmbedded(t, HeuristicsFile))
	skills := readEmbedded(t, SkillsFile)
	areas := readEmbedded(t, ImpactAreasFile)

	tests := []struct {
		name       string
		heuristics string
		skills     []byte
		wantErr    error
	}{
		{
			name:       "major version bump is rejected",
			heuristics: strings.Replace(heuristics, `version: "1.0.0"`, `version: "2.0.0"`, 1),
			skills:     skills,
			wantErr:    ErrUnsupportedVersion,
		},
		{
			name:       "schema violation",
			heuristics: strings.Replace(heuristics, "default_points: 10", "default_points: -5", 1),
			skills:     skills,
			wantErr:    ErrInvalidTables,
		},
		{
			name:       "duplicate skill slug",
			heuristics: heuristics,
			skills:     append(append([]byte{}, skills...), []byte("  - {slug: python, label: \"Python\", category: technical}\n")...),
			wantErr:    ErrInvalidTables,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{
				HeuristicsFile:  &fstest.MapFile{Data: []byte(tt.heuristics)},
				SkillsFile:      &fstest.MapFile{Data: tt.skills},
				ImpactAreasFile: &fstest.MapFile{Data: areas},
			}
			_, err := LoadFS(fsys)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoadDir_Overlay(t *testing.T) {
	dir := t.TempDir()
	heuristics := string(readEmbedded(t, HeuristicsFile))
	custom := strings.Replace(heuristics, "default_points: 10", "default_points: 12", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, HeuristicsFile), []byte(custom), 0o644))

	tables, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 12.0, tables.RoleLeverage.DefaultPoints)
	// skills.yaml was not overridden
	assert.Equal(t, "Python", tables.SkillLabel("python"))
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
