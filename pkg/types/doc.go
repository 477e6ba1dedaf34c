// Package types provides shared domain types for the impactmatch engine.
//
// These types are used by storage, scoring, retrieval and the matcher, so they
// carry no behaviour beyond small derived helpers and validation.
//
// # Core Types
//
// SeekerProfile is a job seeker's structured profile as produced by the
// onboarding wizard:
//
//	seeker := &types.SeekerProfile{
//	    ID:              42,
//	    Skills:          []string{"python", "data-analysis"},
//	    ImpactAreas:     []types.Category{{ID: 2, Slug: "climate-environment", Name: "Climate & Environment"}},
//	    WorkStyle:       types.WorkStyleResearcher,
//	    ExperienceLevel: types.ExperienceMid,
//	}
//
// Job is a posting in the catalogue. Inactive jobs are never match candidates:
//
//	job := &types.Job{
//	    ID:       7,
//	    Title:    "Senior Data Analyst",
//	    Skills:   []string{"python", "data-analysis", "aws"},
//	    Category: &types.Category{ID: 2},
//	    IsActive: true,
//	}
//
// MatchResult is the derived, explained score of one seeker/job pair. Its
// Score and every entry of Breakdown are bounded to [0,100]; Gaps never holds
// more than five entries and only names skills the job lists and the seeker
// lacks.
//
// # Optional Data
//
// Pointers (salary bounds, organization, category) and empty slices mean
// "not declared". Scorers treat them as neutral, never as errors. Validate
// only rejects malformed identities and unknown enum values.
package types
