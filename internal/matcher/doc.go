// Package matcher is the entry point of the matching engine.
//
// It exposes three operations:
//
//	ComputeMatch(seeker, job)           score a single pair
//	GetMatches(seeker, limit)           jobs for a seeker, default 25
//	GetCandidatesForJob(job, limit)     seekers for a job, default 50
//
// The ranking operations retrieve a bounded candidate set (see package
// retrieval), fetch lexical ranks once per request, then score every
// candidate on a bounded errgroup. Scoring itself is pure. Results are sorted
// by descending score with a stable sort, so equal scores keep retrieval
// order.
//
// Matches are always computed live. With Config.PersistMatches the ranked
// results are also written to the store's match table for downstream
// consumers; the matcher never reads them back.
//
// Missing data never fails a ranking: absent embeddings fall back to recency
// retrieval with a neutral semantic score, and a failed lexical query yields
// the neutral lexical score. Only malformed references (nil entities, zero
// ids, unknown ids) are returned as errors.
package matcher
