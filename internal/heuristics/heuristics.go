package heuristics

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Data file names inside a heuristics directory
const (
	HeuristicsFile  = "heuristics.yaml"
	SkillsFile      = "skills.yaml"
	ImpactAreasFile = "impact_areas.yaml"
	schemaFile      = "heuristics.schema.json"
)

// SupportedVersions is the semver constraint a data file must satisfy
const SupportedVersions = "^1.0.0"

var (
	ErrUnsupportedVersion = errors.New("unsupported heuristics version")
	ErrInvalidTables      = errors.New("invalid heuristics tables")
)

//go:embed data/*.yaml data/*.json
var embedded embed.FS

// RoleKeyword maps a title keyword to leverage points
type RoleKeyword struct {
	Keyword string  `yaml:"keyword"`
	Points  float64 `yaml:"points"`
}

// RoleLeverage configures role-leverage inference from job titles
type RoleLeverage struct {
	DefaultPoints        float64       `yaml:"default_points"`
	MaxPoints            float64       `yaml:"max_points"`
	EmptyTitleScore      float64       `yaml:"empty_title_score"`
	HighReasonPoints     float64       `yaml:"high_reason_points"`
	ModerateReasonPoints float64       `yaml:"moderate_reason_points"`
	Keywords             []RoleKeyword `yaml:"keywords"`
}

// ScarceSkill is a scarcity multiplier for a skill term
type ScarceSkill struct {
	Skill      string  `yaml:"skill"`
	Multiplier float64 `yaml:"multiplier"`
}

// ScarceSkills configures skill-scarcity scoring
type ScarceSkills struct {
	Baseline        float64       `yaml:"baseline"`
	ReasonThreshold float64       `yaml:"reason_threshold"`
	MissingScore    float64       `yaml:"missing_score"`
	NoOverlapScore  float64       `yaml:"no_overlap_score"`
	Multipliers     []ScarceSkill `yaml:"multipliers"`
}

// LevelKeywords lists the phrases that identify a job level
type LevelKeywords struct {
	Level    string   `yaml:"level"`
	Keywords []string `yaml:"keywords"`
}

// LevelInference configures job level inference
type LevelInference struct {
	DescriptionPrefix int             `yaml:"description_prefix"`
	Levels            []LevelKeywords `yaml:"levels"`
}

// BCorpTier awards points for a minimum B Corp score
type BCorpTier struct {
	MinScore int     `yaml:"min_score"`
	Points   float64 `yaml:"points"`
}

// BCorpPoints configures B Corp certification points
type BCorpPoints struct {
	Base  float64     `yaml:"base"`
	Tiers []BCorpTier `yaml:"tiers"`
}

// OrgCredibility is the additive point table for organization signals
type OrgCredibility struct {
	MaxPoints          float64     `yaml:"max_points"`
	GiveWellTopCharity float64     `yaml:"givewell_top_charity"`
	EightyKRecommended float64     `yaml:"eighty_k_recommended"`
	BCorp              BCorpPoints `yaml:"bcorp"`
	PublicImpactReport float64     `yaml:"public_impact_report"`
	PublicFinancials   float64     `yaml:"public_financials"`
	ImpactStatement    float64     `yaml:"impact_statement"`
	ImpactMetric       float64     `yaml:"impact_metric"`
}

// OrgSignals lists the third-party endorsements detected from imported data.
// GiveWell charities are matched by organization name; 80,000 Hours
// recommendation is inferred from the job board a posting came from.
type OrgSignals struct {
	GiveWellTopCharities []string `yaml:"givewell_top_charities"`
	EightyKSources       []string `yaml:"eighty_k_sources"`
}

// Skill is one entry of the skill taxonomy
type Skill struct {
	Slug     string `yaml:"slug"`
	Label    string `yaml:"label"`
	Category string `yaml:"category"`
}

// SkillCategory groups skills for display
type SkillCategory struct {
	Slug  string `yaml:"slug"`
	Label string `yaml:"label"`
}

// ImpactArea is a cause or domain seekers can select
type ImpactArea struct {
	Slug     string   `yaml:"slug"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type heuristicsDoc struct {
	Version                 string              `yaml:"version"`
	RoleLeverage            RoleLeverage        `yaml:"role_leverage"`
	ScarceSkills            ScarceSkills        `yaml:"scarce_skills"`
	WorkStyleKeywords       map[string][]string `yaml:"work_style_keywords"`
	LevelInference          LevelInference      `yaml:"level_inference"`
	ExperienceCompatibility map[string][]string `yaml:"experience_compatibility"`
	OrgCredibility          OrgCredibility      `yaml:"org_credibility"`
	OrgSignals              OrgSignals          `yaml:"org_signals"`
}

type skillsDoc struct {
	Version    string          `yaml:"version"`
	Categories []SkillCategory `yaml:"categories"`
	Skills     []Skill         `yaml:"skills"`
}

type impactAreasDoc struct {
	Version     string       `yaml:"version"`
	ImpactAreas []ImpactArea `yaml:"impact_areas"`
}

// Tables is the immutable set of heuristic tables and taxonomies used by the
// scorers. Construct it once at startup and share it by pointer.
type Tables struct {
	Version                 string
	RoleLeverage            RoleLeverage
	ScarceSkills            ScarceSkills
	WorkStyleKeywords       map[string][]string
	LevelInference          LevelInference
	ExperienceCompatibility map[string][]string
	OrgCredibility          OrgCredibility
	OrgSignals              OrgSignals

	SkillCategories []SkillCategory
	Skills          []Skill
	ImpactAreas     []ImpactArea

	skillsBySlug map[string]Skill
}

// Default loads the tables shipped with the binary
func Default() (*Tables, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadDir loads tables from dir. Files missing from dir fall back to the
// embedded defaults. An empty dir is the same as Default.
func LoadDir(dir string) (*Tables, error) {
	if dir == "" {
		return Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("heuristics dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("heuristics dir %s is not a directory", dir)
	}

	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(overlayFS{primary: os.DirFS(dir), fallback: sub})
}

// LoadFS loads and validates tables from fsys
func LoadFS(fsys fs.FS) (*Tables, error) {
	raw, err := fs.ReadFile(fsys, HeuristicsFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", HeuristicsFile, err)
	}
	if err := validateDocument(context.Background(), raw); err != nil {
		return nil, err
	}

	var doc heuristicsDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", HeuristicsFile, err)
	}
	if err := checkVersion(HeuristicsFile, doc.Version); err != nil {
		return nil, err
	}

	var skills skillsDoc
	if err := decodeFile(fsys, SkillsFile, &skills); err != nil {
		return nil, err
	}
	if err := checkVersion(SkillsFile, skills.Version); err != nil {
		return nil, err
	}

	var areas impactAreasDoc
	if err := decodeFile(fsys, ImpactAreasFile, &areas); err != nil {
		return nil, err
	}
	if err := checkVersion(ImpactAreasFile, areas.Version); err != nil {
		return nil, err
	}

	t := &Tables{
		Version:                 doc.Version,
		RoleLeverage:            doc.RoleLeverage,
		ScarceSkills:            doc.ScarceSkills,
		WorkStyleKeywords:       doc.WorkStyleKeywords,
		LevelInference:          doc.LevelInference,
		ExperienceCompatibility: doc.ExperienceCompatibility,
		OrgCredibility:          doc.OrgCredibility,
		OrgSignals:              doc.OrgSignals,
		SkillCategories:         skills.Categories,
		Skills:                  skills.Skills,
		ImpactAreas:             areas.ImpactAreas,
		skillsBySlug:            make(map[string]Skill, len(skills.Skills)),
	}
	for _, s := range skills.Skills {
		if _, dup := t.skillsBySlug[s.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate skill slug %q", ErrInvalidTables, s.Slug)
		}
		t.skillsBySlug[s.Slug] = s
	}

	return t, nil
}

// Skill looks up a taxonomy entry by slug
func (t *Tables) Skill(slug string) (Skill, bool) {
	s, ok := t.skillsBySlug[slug]
	return s, ok
}

// SkillLabel returns the display label for a slug. Unknown slugs are
// title-cased with hyphens replaced by spaces.
func (t *Tables) SkillLabel(slug string) string {
	if s, ok := t.skillsBySlug[slug]; ok {
		return s.Label
	}
	return titleCase(strings.ReplaceAll(slug, "-", " "))
}

// SkillSearchTerm returns the term used for text search on a slug: the label
// when known, otherwise the slug with hyphens as spaces
func (t *Tables) SkillSearchTerm(slug string) string {
	if s, ok := t.skillsBySlug[slug]; ok {
		return s.Label
	}
	return strings.ReplaceAll(slug, "-", " ")
}

// SearchSkills returns skills whose label or slug contains query
func (t *Tables) SearchSkills(query string) []Skill {
	query = strings.ToLower(query)
	var out []Skill
	for _, s := range t.Skills {
		if strings.Contains(strings.ToLower(s.Label), query) || strings.Contains(s.Slug, query) {
			out = append(out, s)
		}
	}
	return out
}

// ResolveSkill maps free text to a taxonomy slug. Known slugs pass through,
// then a "Data Analysis" style label or slug spelling is tried, then a search
// that must narrow to a single skill. ok is false when nothing resolves.
func (t *Tables) ResolveSkill(raw string) (string, bool) {
	term := strings.ToLower(strings.TrimSpace(raw))
	if term == "" {
		return "", false
	}
	if _, ok := t.skillsBySlug[term]; ok {
		return term, true
	}
	if slug := strings.Join(strings.Fields(term), "-"); slug != term {
		if _, ok := t.skillsBySlug[slug]; ok {
			return slug, true
		}
	}

	matches := t.SearchSkills(term)
	for _, s := range matches {
		if strings.EqualFold(s.Label, term) {
			return s.Slug, true
		}
	}
	if len(matches) == 1 {
		return matches[0].Slug, true
	}
	return "", false
}

// IsGiveWellTopCharity reports whether an organization name matches a listed
// charity. Either name may contain the other, case-insensitively.
func (t *Tables) IsGiveWellTopCharity(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, charity := range t.OrgSignals.GiveWellTopCharities {
		charity = strings.ToLower(charity)
		if strings.Contains(name, charity) || strings.Contains(charity, name) {
			return true
		}
	}
	return false
}

// IsEightyKSource reports whether a job source is the 80,000 Hours board
func (t *Tables) IsEightyKSource(source string) bool {
	source = strings.ToLower(strings.TrimSpace(source))
	for _, s := range t.OrgSignals.EightyKSources {
		if source == strings.ToLower(s) {
			return true
		}
	}
	return false
}

// ImpactArea looks up an impact area by slug
func (t *Tables) ImpactArea(slug string) (ImpactArea, bool) {
	for _, a := range t.ImpactAreas {
		if a.Slug == slug {
			return a, true
		}
	}
	return ImpactArea{}, false
}

// CompatibleLevels returns the inferred job levels that fit an experience level
func (t *Tables) CompatibleLevels(experience string) []string {
	return t.ExperienceCompatibility[experience]
}

func decodeFile(fsys fs.FS, name string, out interface{}) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func checkVersion(file, version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %s version %q: %v", ErrUnsupportedVersion, file, version, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s is %s, want %s", ErrUnsupportedVersion, file, v, SupportedVersions)
	}
	return nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// overlayFS reads from primary and falls back to fallback for missing files
type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return o.fallback.Open(name)
	}
	return nil, err
}
