package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// bm25 column weights for jobs_fts(title, description, impact, requirements)
const jobsFTSWeights = "10.0, 4.0, 2.0, 1.0"

// bm25RankScale turns an FTS5 bm25 value into a rank comparable to ts_rank
const bm25RankScale = 10.0

// NearestJobs returns active jobs with embeddings ordered by cosine distance
func (s *SQLiteStore) NearestJobs(ctx context.Context, vector []float32, limit int) ([]ScoredJob, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	if err := checkDimension(vector); err != nil {
		return nil, err
	}

	where := " WHERE j.is_active = 1 AND j.embedding IS NOT NULL"

	// Use SQL-side distance when sqlite-vec is loaded, otherwise rank in Go
	if VectorExtensionAvailable && !s.vecDisabled.Load() {
		results, err := s.nearestJobsOptimized(ctx, vector, where, limit)
		if err == nil {
			return results, nil
		}
		if !isMissingVecFunction(err) {
			return nil, err
		}
		s.vecDisabled.Store(true)
	}

	jobs, err := s.queryJobs(ctx, jobSelect+jobFrom+where)
	if err != nil {
		return nil, err
	}
	hits := make([]ScoredJob, 0, len(jobs))
	for _, job := range jobs {
		if len(job.Embedding) != len(vector) {
			continue
		}
		hits = append(hits, ScoredJob{Job: job, Distance: cosineDistance(vector, job.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Job.ID < hits[j].Job.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *SQLiteStore) nearestJobsOptimized(ctx context.Context, vector []float32, where string, limit int) ([]ScoredJob, error) {
	query := jobSelect + ", vec_distance_cosine(j.embedding, ?) AS distance" + jobFrom + where +
		" ORDER BY distance, j.id LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, serializeVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ScoredJob, 0, limit)
	for rows.Next() {
		var distance float64
		job, err := scanJob(rows, &distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, ScoredJob{Job: job, Distance: distance})
	}
	return results, rows.Err()
}

// NearestSeekers returns discoverable seekers with embeddings ordered by
// cosine distance. Seeker volumes are small enough to rank in Go.
func (s *SQLiteStore) NearestSeekers(ctx context.Context, vector []float32, limit int) ([]ScoredSeeker, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	if err := checkDimension(vector); err != nil {
		return nil, err
	}

	seekers, err := s.querySeekers(ctx, seekerSelect+discoverableSeekers+" AND s.embedding IS NOT NULL")
	if err != nil {
		return nil, err
	}

	hits := make([]ScoredSeeker, 0, len(seekers))
	for _, sk := range seekers {
		if len(sk.Embedding) != len(vector) {
			continue
		}
		hits = append(hits, ScoredSeeker{Seeker: sk, Distance: cosineDistance(vector, sk.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Seeker.ID < hits[j].Seeker.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// LexicalRanks ranks jobs with weighted bm25 over title, description, impact
// and requirements
func (s *SQLiteStore) LexicalRanks(ctx context.Context, terms []string, jobIDs []int64) (map[int64]float64, error) {
	ranks := make(map[int64]float64)
	match := ftsMatchExpression(terms)
	if match == "" || len(jobIDs) == 0 {
		return ranks, nil
	}

	args := make([]interface{}, 0, len(jobIDs)+1)
	args = append(args, match)
	for _, id := range jobIDs {
		args = append(args, id)
	}

	query := `
		SELECT rowid, bm25(jobs_fts, ` + jobsFTSWeights + `) AS score
		FROM jobs_fts
		WHERE jobs_fts MATCH ?
		AND rowid IN (` + placeholders(len(jobIDs)) + `)
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		// bm25 is negative, lower is better
		ranks[id] = math.Abs(score) / bm25RankScale
	}
	return ranks, rows.Err()
}

func isMissingVecFunction(err error) bool {
	return strings.Contains(err.Error(), "no such function")
}

// ftsMatchExpression OR-combines search terms as quoted FTS5 phrases. Terms
// with no letters or digits are dropped; embedded quotes are doubled.
func ftsMatchExpression(terms []string) string {
	phrases := make([]string, 0, len(terms))
	for _, term := range cleanTerms(terms) {
		phrases = append(phrases, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(phrases, " OR ")
}

// websearchExpression OR-combines search terms for websearch_to_tsquery
func websearchExpression(terms []string) string {
	phrases := make([]string, 0, len(terms))
	for _, term := range cleanTerms(terms) {
		phrases = append(phrases, `"`+strings.ReplaceAll(term, `"`, " ")+`"`)
	}
	return strings.Join(phrases, " or ")
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if !strings.ContainsFunc(term, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	return out
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// cosineDistance matches the pgvector <=> operator and vec_distance_cosine
func cosineDistance(a, b []float32) float64 {
	return 1 - cosineSimilarity(a, b)
}

// CosineDistance scores a single pair outside a vector query
func CosineDistance(a, b []float32) float64 {
	return cosineDistance(a, b)
}
