// Package indexer keeps stored embeddings in step with seeker and job text.
//
// Embedding is kept off the write path. Writers call Enqueue with the kind and
// id of a changed entity; Run drains the queue with a fixed number of workers.
// Two queue backends exist: MemoryQueue (buffered channel, single process) and
// RedisQueue (LPUSH/BRPOP on a list, survives restarts).
//
// Each stored vector carries the SHA-256 of the canonical text it was built
// from. Processing a task recomputes the text and skips the provider call when
// the hash is unchanged. Jobs are embedded only while active; seekers only
// after onboarding.
//
// EmbedPending is the batch backfill:
//
//	stats, err := idx.EmbedPending(ctx, indexer.Options{Jobs: true, Seekers: true})
//
// It collects every missing or stale embedding, embeds in provider-sized
// batches on a bounded errgroup, and writes each batch in one transaction. A
// RunLock allows a single run at a time; a concurrent call gets
// ErrRunInProgress. Scheduler triggers EmbedPending on a cron spec
// (DefaultSchedule is hourly).
package indexer
