package indexer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/impactmatch/internal/embedder"
	"github.com/dshills/impactmatch/internal/storage"
)

// ErrRunInProgress is returned by EmbedPending while another run holds the lock
var ErrRunInProgress = errors.New("embedding run already in progress")

// Outcome reports what happened to one task
type Outcome string

const (
	OutcomeEmbedded Outcome = "embedded"
	OutcomeSkipped  Outcome = "skipped" // Up to date, ineligible, gone, or no text
)

// Config contains configuration for the indexer
type Config struct {
	Workers   int // Queue workers and concurrent batches (default: runtime.NumCPU())
	BatchSize int // Texts per provider call and per transaction (default: embedder.DefaultBatchSize)
}

// Options selects what EmbedPending covers
type Options struct {
	Jobs    bool
	Seekers bool
}

// Statistics summarizes an embedding run
type Statistics struct {
	RunID           string        `json:"run_id"`
	JobsEmbedded    int           `json:"jobs_embedded"`
	SeekersEmbedded int           `json:"seekers_embedded"`
	Skipped         int           `json:"skipped"`
	Failed          int           `json:"failed"`
	Duration        time.Duration `json:"duration"`
	ErrorMessages   []string      `json:"errors,omitempty"`
}

// Indexer keeps stored embeddings in step with seeker and job text. Writers
// enqueue tasks and return immediately; workers embed off the write path.
type Indexer struct {
	store      storage.Store
	embeddings *embedder.Service
	queue      Queue
	logger     *zap.Logger

	workers   int
	batchSize int
	lock      RunLock
}

// New creates an Indexer. queue may be nil when only EmbedPending is used.
func New(store storage.Store, embeddings *embedder.Service, queue Queue, logger *zap.Logger, cfg Config) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = embedder.DefaultBatchSize
	}
	return &Indexer{
		store:      store,
		embeddings: embeddings,
		queue:      queue,
		logger:     logger,
		workers:    cfg.Workers,
		batchSize:  cfg.BatchSize,
	}
}

// Running reports whether a backfill run is in progress
func (idx *Indexer) Running() bool {
	return idx.lock.Held()
}

// Enqueue schedules an entity for embedding
func (idx *Indexer) Enqueue(ctx context.Context, kind Kind, id int64) error {
	if idx.queue == nil {
		return errors.New("indexer has no queue")
	}
	task := NewTask(kind, id)
	if err := idx.queue.Push(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s %d: %w", kind, id, err)
	}
	return nil
}

// Run drains the queue with the configured number of workers until ctx is
// cancelled or the queue is closed. Task failures are logged, not returned.
func (idx *Indexer) Run(ctx context.Context) error {
	if idx.queue == nil {
		return errors.New("indexer has no queue")
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < idx.workers; i++ {
		g.Go(func() error {
			idx.work(gctx, i)
			return nil
		})
	}
	return g.Wait()
}

func (idx *Indexer) work(ctx context.Context, worker int) {
	for {
		task, err := idx.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			idx.logger.Warn("dequeue failed", zap.Int("worker", worker), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		outcome, err := idx.Process(ctx, task)
		if err != nil {
			idx.logger.Warn("embedding task failed",
				zap.String("task_id", task.ID),
				zap.String("kind", string(task.Kind)),
				zap.Int64("entity_id", task.EntityID),
				zap.Error(err))
			continue
		}
		idx.logger.Debug("embedding task done",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.Int64("entity_id", task.EntityID),
			zap.String("outcome", string(outcome)))
	}
}

// Process embeds the entity named by a task unless its stored hash already
// matches its current text. Jobs are embedded only while active and seekers
// only once onboarding is complete.
func (idx *Indexer) Process(ctx context.Context, task Task) (Outcome, error) {
	switch task.Kind {
	case KindJob:
		job, err := idx.store.GetJob(ctx, task.EntityID)
		if errors.Is(err, storage.ErrNotFound) {
			return OutcomeSkipped, nil
		}
		if err != nil {
			return "", err
		}
		if !job.IsActive {
			return OutcomeSkipped, nil
		}
		return idx.embedOne(ctx, KindJob, job.ID, embedder.JobText(job), job.EmbeddingHash, job.HasEmbedding())

	case KindSeeker:
		seeker, err := idx.store.GetSeeker(ctx, task.EntityID)
		if errors.Is(err, storage.ErrNotFound) {
			return OutcomeSkipped, nil
		}
		if err != nil {
			return "", err
		}
		if !seeker.WizardCompleted {
			return OutcomeSkipped, nil
		}
		return idx.embedOne(ctx, KindSeeker, seeker.ID, idx.embeddings.SeekerText(seeker), seeker.EmbeddingHash, seeker.HasEmbedding())

	default:
		return "", fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (idx *Indexer) embedOne(ctx context.Context, kind Kind, id int64, text, storedHash string, hasEmbedding bool) (Outcome, error) {
	if text == "" {
		return OutcomeSkipped, nil
	}
	hash := idx.embeddings.ContentHash(text)
	if hasEmbedding && hash == storedHash {
		return OutcomeSkipped, nil
	}

	emb, err := idx.embeddings.Embedder().GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("embed %s %d: %w", kind, id, err)
	}
	if err := setEmbedding(ctx, idx.store, kind, id, emb.Vector, hash); err != nil {
		return "", err
	}
	return OutcomeEmbedded, nil
}

// pendingItem is an entity whose embedding is missing or stale
type pendingItem struct {
	kind Kind
	id   int64
	text string
	hash string
}

// EmbedPending backfills every eligible entity whose embedding is missing or
// stale. Batches run concurrently, each committed in its own transaction; a
// failed batch is counted and the run continues.
func (idx *Indexer) EmbedPending(ctx context.Context, opts Options) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer idx.lock.Release()

	start := time.Now()
	stats := &Statistics{RunID: uuid.NewString(), ErrorMessages: make([]string, 0)}

	pending, skipped, err := idx.collectPending(ctx, opts)
	if err != nil {
		return nil, err
	}
	stats.Skipped = skipped

	var (
		jobsEmbedded    int32
		seekersEmbedded int32
		failed          int32
		mu              sync.Mutex // Protects stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i := 0; i < len(pending); i += idx.batchSize {
		end := i + idx.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[i:end]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			jobs, seekers, err := idx.embedBatch(gctx, batch)
			if err != nil {
				atomic.AddInt32(&failed, int32(len(batch)))
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, err.Error())
				mu.Unlock()
				return nil
			}
			atomic.AddInt32(&jobsEmbedded, int32(jobs))
			atomic.AddInt32(&seekersEmbedded, int32(seekers))
			return nil
		})
	}
	waitErr := g.Wait()

	stats.JobsEmbedded = int(jobsEmbedded)
	stats.SeekersEmbedded = int(seekersEmbedded)
	stats.Failed = int(failed)
	stats.Duration = time.Since(start)

	idx.logger.Info("embedding run finished",
		zap.String("run_id", stats.RunID),
		zap.Int("jobs_embedded", stats.JobsEmbedded),
		zap.Int("seekers_embedded", stats.SeekersEmbedded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration))

	if waitErr != nil {
		return stats, waitErr
	}
	return stats, nil
}

func (idx *Indexer) collectPending(ctx context.Context, opts Options) ([]pendingItem, int, error) {
	var pending []pendingItem
	skipped := 0

	add := func(kind Kind, id int64, text, storedHash string, hasEmbedding bool) {
		if text == "" {
			skipped++
			return
		}
		hash := idx.embeddings.ContentHash(text)
		if hasEmbedding && hash == storedHash {
			skipped++
			return
		}
		pending = append(pending, pendingItem{kind: kind, id: id, text: text, hash: hash})
	}

	if opts.Jobs {
		jobs, err := idx.store.ListEmbeddableJobs(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("list jobs: %w", err)
		}
		for _, job := range jobs {
			add(KindJob, job.ID, embedder.JobText(job), job.EmbeddingHash, job.HasEmbedding())
		}
	}
	if opts.Seekers {
		seekers, err := idx.store.ListEmbeddableSeekers(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("list seekers: %w", err)
		}
		for _, seeker := range seekers {
			add(KindSeeker, seeker.ID, idx.embeddings.SeekerText(seeker), seeker.EmbeddingHash, seeker.HasEmbedding())
		}
	}
	return pending, skipped, nil
}

// embedBatch embeds a batch in one provider call and writes it in one
// transaction
func (idx *Indexer) embedBatch(ctx context.Context, batch []pendingItem) (jobs, seekers int, err error) {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.text
	}
	embeddings, err := idx.embeddings.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, 0, err
	}
	if len(embeddings) != len(batch) {
		return 0, 0, fmt.Errorf("provider returned %d embeddings for %d texts", len(embeddings), len(batch))
	}

	err = storage.WithTx(ctx, idx.store, func(tx storage.Tx) error {
		for i, item := range batch {
			if err := setEmbedding(ctx, tx, item.kind, item.id, embeddings[i].Vector, item.hash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	for _, item := range batch {
		if item.kind == KindJob {
			jobs++
		} else {
			seekers++
		}
	}
	return jobs, seekers, nil
}

func setEmbedding(ctx context.Context, w storage.Writer, kind Kind, id int64, vector []float32, hash string) error {
	var err error
	switch kind {
	case KindJob:
		err = w.SetJobEmbedding(ctx, id, vector, hash)
	case KindSeeker:
		err = w.SetSeekerEmbedding(ctx, id, vector, hash)
	default:
		err = fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("store %s %d embedding: %w", kind, id, err)
	}
	return nil
}
