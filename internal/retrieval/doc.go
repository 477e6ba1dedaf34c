// Package retrieval selects the candidate set that the matcher scores.
//
// Forward retrieval (jobs for a seeker) and reverse retrieval (seekers for a
// job) both run a cosine nearest-neighbour query against the store, bounded
// by a candidate limit. When there is no vector to compare, or the vector
// query fails or returns nothing, retrieval falls back to recency order and
// marks the set ModeRecency so the semantic score is treated as neutral.
// Retrieval never fails because the embedding provider is unavailable.
//
// Jobs that have not been embedded yet are embedded on demand for reverse
// retrieval. Those vectors are kept in a small LRU cache keyed by job id and
// content hash, with a TTL so that a later edit is picked up.
package retrieval
