package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/cache"
)

const (
	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs expire after 24 hours
)

// HandlerFunc processes one job payload. A returned error propagates to the
// queue runtime, which applies the bounded retry policy.
type HandlerFunc func(ctx context.Context, job *Job) error

// Queue manages one durable named job lane on Redis. Lanes are fully
// independent: each has its own pending/processing lists, job keys and stats,
// so a retry storm on one lane never backs up another.
type Queue struct {
	name       QueueName
	client     *redis.Client
	handlers   map[JobType]HandlerFunc
	workers    int
	workerPool chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a job queue for the named lane.
func NewQueue(name QueueName, workers int) *Queue {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}

	return &Queue{
		name:       name,
		client:     cache.GetClient(),
		handlers:   make(map[JobType]HandlerFunc),
		workers:    workers,
		workerPool: make(chan struct{}, workers),
		stopCh:     make(chan struct{}),
	}
}

// Handle registers the handler for a job type. Must be called before Start.
func (q *Queue) Handle(jobType JobType, fn HandlerFunc) {
	q.handlers[jobType] = fn
}

// Name returns the lane name.
func (q *Queue) Name() QueueName {
	return q.name
}

func (q *Queue) jobKey(id string) string {
	return fmt.Sprintf("job:%s:%s", q.name, id)
}

func (q *Queue) pendingKey() string {
	return fmt.Sprintf("job_queue:%s", q.name)
}

func (q *Queue) processingKey() string {
	return fmt.Sprintf("job_processing:%s", q.name)
}

func (q *Queue) statsKey() string {
	return fmt.Sprintf("job_stats:%s", q.name)
}

func (q *Queue) delayedKey() string {
	return fmt.Sprintf("job_delayed:%s", q.name)
}

// retryDelay grows with the attempt count.
func retryDelay(retryCount int) time.Duration {
	return time.Minute * time.Duration(retryCount)
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	q.stopCh = make(chan struct{})
	log.Infof("[JobQueue:%s] Starting %d workers", q.name, q.workers)

	for i := 0; i < q.workers; i++ {
		q.workerPool <- struct{}{}
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	// Stuck-processing sweeper (recovers jobs stuck in processing due to crashes)
	q.wg.Add(1)
	go q.stuckSweeper(10*time.Minute, time.Minute)

	// Delayed-retry promoter (moves due retries back onto the pending list)
	q.wg.Add(1)
	go q.delayedPromoter(5 * time.Second)
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Infof("[JobQueue:%s] Stopping workers...", q.name)
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Infof("[JobQueue:%s] All workers stopped", q.name)
}

// stuckSweeper periodically scans the processing list and requeues jobs stuck for longer than maxAge
func (q *Queue) stuckSweeper(maxAge time.Duration, interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			ids, err := q.client.LRange(ctx, q.processingKey(), 0, -1).Result()
			if err != nil {
				log.Errorf("[JobQueue:%s] Sweeper LRange error: %v", q.name, err)
				continue
			}
			now := time.Now()
			for _, id := range ids {
				data, err := q.client.Get(ctx, q.jobKey(id)).Result()
				if err != nil {
					// Job data missing; remove from processing list
					if err != redis.Nil {
						log.Errorf("[JobQueue:%s] Sweeper Get error for %s: %v", q.name, id, err)
					}
					_ = q.client.LRem(ctx, q.processingKey(), 1, id).Err()
					continue
				}
				var job Job
				if uerr := json.Unmarshal([]byte(data), &job); uerr != nil {
					log.Errorf("[JobQueue:%s] Sweeper unmarshal error for %s: %v", q.name, id, uerr)
					_ = q.client.LRem(ctx, q.processingKey(), 1, id).Err()
					continue
				}
				if job.Status != JobStatusProcessing {
					_ = q.client.LRem(ctx, q.processingKey(), 1, id).Err()
					continue
				}
				started := job.ProcessedAt
				if started == nil || started.IsZero() {
					tmp := job.UpdatedAt
					if tmp.IsZero() {
						tmp = job.CreatedAt
					}
					started = &tmp
				}
				if now.Sub(*started) > maxAge {
					log.Warnf("[JobQueue:%s] Recovering stuck job %s (type=%s), age=%s", q.name, job.ID, job.Type, now.Sub(*started))
					job.Status = JobStatusPending
					job.ErrorMsg = "recovered by sweeper"
					job.UpdatedAt = now
					q.updateJob(ctx, &job)
					_ = q.client.LRem(ctx, q.processingKey(), 1, id).Err()
					_ = q.client.RPush(ctx, q.pendingKey(), id).Err()
				}
			}
		}
	}
}

// delayedPromoter polls the delayed set and requeues retries whose backoff has
// elapsed. ZRem before LPush so two queue instances never promote the same job.
func (q *Queue) delayedPromoter(interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			now := fmt.Sprintf("%d", time.Now().Unix())
			ids, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
				Min: "-inf",
				Max: now,
			}).Result()
			if err != nil {
				log.Errorf("[JobQueue:%s] Promoter ZRangeByScore error: %v", q.name, err)
				continue
			}
			for _, id := range ids {
				removed, err := q.client.ZRem(ctx, q.delayedKey(), id).Result()
				if err != nil {
					log.Errorf("[JobQueue:%s] Promoter ZRem error for %s: %v", q.name, id, err)
					continue
				}
				if removed == 0 {
					continue
				}
				if err := q.client.LPush(ctx, q.pendingKey(), id).Err(); err != nil {
					log.Errorf("[JobQueue:%s] Promoter LPush error for %s: %v", q.name, id, err)
				}
			}
		}
	}
}

// worker processes jobs from the queue
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue:%s] Worker %d started", q.name, id)

	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue:%s] Worker %d stopping", q.name, id)
			return
		default:
			<-q.workerPool

			job, err := q.dequeueJob(ctx)
			if err != nil {
				if err != redis.Nil {
					log.Errorf("[JobQueue:%s] Worker %d: Error dequeuing job: %v", q.name, id, err)
				}
				q.workerPool <- struct{}{}
				time.Sleep(time.Second)
				continue
			}

			if job != nil {
				log.Infof("[JobQueue:%s] Worker %d processing job %s (Type: %s)", q.name, id, job.ID, job.Type)
				q.processJob(ctx, job)
			}

			q.workerPool <- struct{}{}
		}
	}
}

// Enqueue adds a new job to the lane and returns immediately.
func (q *Queue) Enqueue(jobType JobType, payload map[string]interface{}) (*Job, error) {
	ctx := context.Background()

	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	// Use a pipeline for atomic operations
	pipe := q.client.Pipeline()
	pipe.Set(ctx, q.jobKey(job.ID), jobData, JobTTL)
	pipe.LPush(ctx, q.pendingKey(), job.ID)
	pipe.HIncrBy(ctx, q.statsKey(), string(JobStatusPending), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue:%s] Enqueued job %s (Type: %s)", q.name, job.ID, job.Type)
	return job, nil
}

// dequeueJob gets the next job from the queue
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	// Move job from pending queue to processing queue atomically
	jobID, err := q.client.BRPopLPush(ctx, q.pendingKey(), q.processingKey(), time.Second).Result()
	if err != nil {
		return nil, err
	}

	jobData, err := q.client.Get(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		// Job data not found, remove from processing queue
		q.client.LRem(ctx, q.processingKey(), 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s", jobID)
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		q.client.LRem(ctx, q.processingKey(), 1, jobID)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}

	return &job, nil
}

// processJob runs the registered handler and applies the retry policy. A job
// that exhausts its attempts stays in Redis with failed status for operator
// inspection; it is never silently dropped or re-enqueued.
func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	var err error
	if handler, ok := q.handlers[job.Type]; ok {
		err = handler(ctx, job)
	} else {
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		log.Errorf("[JobQueue:%s] Job %s failed: %v", q.name, job.ID, err)
		job.MarkAsFailed(err.Error())

		if job.IsRetryable() {
			log.Infof("[JobQueue:%s] Retrying job %s (Attempt %d/%d)", q.name, job.ID, job.RetryCount, job.MaxRetries)
			job.MarkAsRetrying()
			q.updateJob(ctx, job)

			// Park the retry in the delayed set so the backoff survives a
			// process restart; the promoter moves it back to pending when due.
			due := time.Now().Add(retryDelay(job.RetryCount))
			if err := q.client.ZAdd(ctx, q.delayedKey(), redis.Z{
				Score:  float64(due.Unix()),
				Member: job.ID,
			}).Err(); err != nil {
				log.Errorf("[JobQueue:%s] Failed to schedule retry for job %s: %v", q.name, job.ID, err)
			}
		} else {
			log.Errorf("[JobQueue:%s] Job %s permanently failed after %d retries", q.name, job.ID, job.RetryCount)
			q.updateJobStats(ctx, JobStatusFailed, 1)
		}
	} else {
		log.Infof("[JobQueue:%s] Job %s completed successfully", q.name, job.ID)
		job.MarkAsCompleted()
		q.updateJobStats(ctx, JobStatusCompleted, 1)
		// Completed jobs are discarded entirely
		q.removeCompletedJob(ctx, job.ID)
	}

	if job.Status != JobStatusCompleted {
		q.updateJob(ctx, job)
	}
	q.removeFromProcessing(ctx, job.ID)
}

// updateJob updates job data in Redis
func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue:%s] Failed to marshal job %s: %v", q.name, job.ID, err)
		return
	}

	if err := q.client.Set(ctx, q.jobKey(job.ID), jobData, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue:%s] Failed to update job %s: %v", q.name, job.ID, err)
	}
}

// removeFromProcessing removes a job from the processing queue
func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, q.processingKey(), 1, jobID).Err(); err != nil {
		log.Errorf("[JobQueue:%s] Failed to remove job %s from processing queue: %v", q.name, jobID, err)
	}
}

// removeCompletedJob completely removes a completed job from Redis
func (q *Queue) removeCompletedJob(ctx context.Context, jobID string) {
	if err := q.client.Del(ctx, q.jobKey(jobID)).Err(); err != nil {
		log.Errorf("[JobQueue:%s] Failed to remove completed job %s from Redis: %v", q.name, jobID, err)
	}
}

// updateJobStats updates job statistics
func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, q.statsKey(), string(status), delta).Err(); err != nil {
		log.Errorf("[JobQueue:%s] Failed to update job stats: %v", q.name, err)
	}
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobData, err := q.client.Get(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// GetJobStats returns statistics about job statuses
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	stats, err := q.client.HGetAll(ctx, q.statsKey()).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[JobStatus]int64)
	for status, count := range stats {
		if countInt, err := json.Number(count).Int64(); err == nil {
			result[JobStatus(status)] = countInt
		}
	}

	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pendingKey()).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.processingKey()).Result()
}
