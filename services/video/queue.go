package video

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrQueueFull = errors.New("job queue is full")
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

const (
	defaultHungTimeout   = 30 * time.Minute
	defaultMonitorPeriod = 5 * time.Minute
	finishedRetention    = 10 * time.Minute
)

// ExtractionJob streams the audio of URL into Path. Jobs are detached from
// the request that created them.
type ExtractionJob struct {
	ID   string
	URL  string
	Path string

	status     JobStatus
	err        error
	queuedAt   time.Time
	startTime  time.Time
	finishedAt time.Time
	cancelFunc context.CancelFunc
}

func NewExtractionJob(id, url, path string) *ExtractionJob {
	return &ExtractionJob{
		ID:       id,
		URL:      url,
		Path:     path,
		status:   JobQueued,
		queuedAt: time.Now(),
	}
}

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	ID        string
	Status    JobStatus
	Err       error
	StartTime time.Time
}

type ProcessFunc func(ctx context.Context, job *ExtractionJob) error

// JobQueue runs extraction jobs on a fixed pool of workers and keeps a
// registry of recent jobs keyed by artifact id.
type JobQueue struct {
	jobs        chan *ExtractionJob
	activeJobs  map[string]*ExtractionJob
	workerCount int
	timeout     time.Duration
	hungTimeout time.Duration
	logger      *logrus.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	quit    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// NewJobQueue creates a queue. A positive timeout bounds each job.
func NewJobQueue(workerCount, maxQueueSize int, timeout time.Duration, logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &JobQueue{
		jobs:        make(chan *ExtractionJob, maxQueueSize),
		activeJobs:  make(map[string]*ExtractionJob),
		workerCount: workerCount,
		timeout:     timeout,
		hungTimeout: defaultHungTimeout,
		logger:      logger,
		quit:        make(chan struct{}),
	}
}

// Start begins processing jobs
func (q *JobQueue) Start(process ProcessFunc) {
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(i, process)
	}

	go q.monitorHungJobs(defaultMonitorPeriod)
}

// Submit enqueues job without blocking.
func (q *JobQueue) Submit(job *ExtractionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.quit:
		return errors.New("job queue is closed")
	default:
	}

	select {
	case q.jobs <- job:
		q.activeJobs[job.ID] = job
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped reports how many jobs were rejected because the queue was full.
func (q *JobQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Status returns a snapshot of a registered job.
func (q *JobQueue) Status(id string) (JobInfo, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.activeJobs[id]
	if !ok {
		return JobInfo{}, false
	}
	return JobInfo{
		ID:        job.ID,
		Status:    job.status,
		Err:       job.err,
		StartTime: job.startTime,
	}, true
}

func (q *JobQueue) worker(id int, process ProcessFunc) {
	defer q.wg.Done()

	log := q.logger.WithField("worker_id", id)
	log.Debug("Starting worker")

	for {
		var job *ExtractionJob
		select {
		case <-q.quit:
			log.Debug("Worker shutting down")
			return
		case job = <-q.jobs:
		}

		q.run(log, job, process)
	}
}

func (q *JobQueue) run(log *logrus.Entry, job *ExtractionJob, process ProcessFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), q.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	q.mu.Lock()
	job.status = JobRunning
	job.startTime = time.Now()
	job.cancelFunc = cancel
	q.mu.Unlock()

	log = log.WithFields(logrus.Fields{
		"artifact_id": job.ID,
		"url":         job.URL,
	})
	log.Info("Started extraction job")

	err := process(ctx, job)
	duration := time.Since(job.startTime)

	q.mu.Lock()
	job.finishedAt = time.Now()
	job.cancelFunc = nil
	job.err = err
	if err != nil {
		job.status = JobFailed
	} else {
		job.status = JobCompleted
	}
	q.mu.Unlock()

	if err != nil {
		log.WithError(err).WithField("duration_ms", duration.Milliseconds()).Error("Extraction job failed")
	} else {
		log.WithField("duration_ms", duration.Milliseconds()).Info("Extraction job completed")
	}
}

// Close stops the workers, cancels running jobs and waits for workers to
// exit.
func (q *JobQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		close(q.quit)
		for _, job := range q.activeJobs {
			if job.cancelFunc != nil {
				job.cancelFunc()
			}
		}
		q.mu.Unlock()

		q.wg.Wait()
	})
}

func (q *JobQueue) monitorHungJobs(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-q.quit:
			return
		case <-ticker.C:
			q.checkHungJobs(time.Now())
		}
	}
}

// checkHungJobs logs jobs running longer than the hung timeout and drops
// finished jobs past their retention.
func (q *JobQueue) checkHungJobs(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, job := range q.activeJobs {
		switch job.status {
		case JobRunning:
			if now.Sub(job.startTime) > q.hungTimeout {
				q.logger.WithFields(logrus.Fields{
					"artifact_id": id,
					"duration":    now.Sub(job.startTime).String(),
				}).Warn("Found hung extraction job")
				// Logged only; jobs are never cancelled here
			}
		case JobCompleted, JobFailed:
			if now.Sub(job.finishedAt) > finishedRetention {
				delete(q.activeJobs, id)
			}
		}
	}
}
