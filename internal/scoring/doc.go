// Package scoring holds the pure scoring strategies of the matching engine.
//
// Each facet of a seeker/job comparison is a Strategy:
//
//   - Lexical maps a precomputed full-text rank onto 0-100
//   - Profile compares impact area, skills, experience, work style and
//     preferences
//   - Impact estimates impact potential from organization credibility,
//     role leverage and skill scarcity, and assigns the match tier
//
// Combine merges the strategy results with the semantic score into a
// types.MatchResult:
//
//	score = semantic*0.35 + lexical*0.15 + profile*0.30 + impact*0.20
//
// Strategies never perform I/O. Everything they need (heuristic tables,
// lexical ranks) is passed in at construction, so they can run concurrently
// across candidates. Missing data yields NeutralScore rather than an error.
package scoring
