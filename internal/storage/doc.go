// Package storage persists categories, organizations, jobs and seeker profiles
// together with their embeddings, and serves the retrieval queries the
// matcher needs.
//
// Two implementations share the Store interface:
//
//   - SQLiteStore keeps embeddings as little-endian float32 blobs and ranks
//     text with an FTS5 table (bm25 weights title 10, description 4,
//     impact 2, requirements 1).
//   - PostgresStore keeps embeddings in pgvector columns behind HNSW
//     cosine indexes and ranks text with ts_rank over a generated
//     tsvector weighted A/B/C/D.
//
// # Basic Usage
//
//	store, err := storage.Open(ctx, storage.Config{Driver: "sqlite", Path: "impactmatch.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	hits, err := store.NearestJobs(ctx, seekerVector, 75)
//	ranks, err := store.LexicalRanks(ctx, []string{"python", "climate"}, jobIDs)
//
// # Transactions
//
// WithTx wraps a group of writes:
//
//	err := storage.WithTx(ctx, store, func(tx storage.Tx) error {
//	    if err := tx.UpsertCategory(ctx, &types.Category{Slug: "climate", Name: "Climate"}); err != nil {
//	        return err
//	    }
//	    return tx.UpsertJob(ctx, job)
//	})
//
// Upserts never touch the embedding columns. SetJobEmbedding and
// SetSeekerEmbedding store a vector with the hash of the text it came from,
// which lets the indexer skip unchanged records.
//
// # Build Tags
//
// CGO build (sqlite_vec tag) uses github.com/mattn/go-sqlite3 and computes
// cosine distance in SQL with vec_distance_cosine when the extension is
// loaded. The pure Go build uses modernc.org/sqlite and ranks in Go. Both
// fall back to Go ranking when the SQL function is missing at runtime.
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec"
//	CGO_ENABLED=0 go build -tags "purego"
package storage
