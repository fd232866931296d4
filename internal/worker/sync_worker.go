package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"sunolegal/internal/domain"
	"sunolegal/internal/metrics"
	"sunolegal/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TaskStore persists sync tasks. *database.DB satisfies it.
type TaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// BookingSource returns the stored booking. domain.BookingRepository satisfies it.
type BookingSource interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
}

// syncPayload is persisted in SyncTask.Payload as JSON.
type syncPayload struct {
	BookingID string          `json:"booking_id"`
	Booking   *models.Booking `json:"booking,omitempty"`
	Status    string          `json:"status,omitempty"`
	Version   int64           `json:"version,omitempty"`
}

type namedSink struct {
	name string
	sink domain.BookingSink
}

// SyncWorker mirrors booking changes to external sinks.
type SyncWorker struct {
	store         TaskStore
	source        BookingSource
	sinks         []namedSink
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger

	mu        sync.Mutex
	delivered map[string]int64 // booking id -> highest version mirrored to every sink
}

// NewSyncWorker builds a worker with sane defaults. A nil store keeps tasks in memory.
func NewSyncWorker(store TaskStore, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	if store == nil {
		store = NewMemoryTaskStore()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SyncWorker{
		store:         store,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "sunolegal:sync:queue",
		deadLetterKey: "sunolegal:sync:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
		delivered:     make(map[string]int64),
	}
}

// SetBookingSource makes every delivery read the stored booking instead of the
// snapshot taken at enqueue time. Must be called before Start.
func (w *SyncWorker) SetBookingSource(src BookingSource) {
	w.source = src
}

// AddSink registers a destination. Must be called before Start.
func (w *SyncWorker) AddSink(name string, sink domain.BookingSink) {
	w.sinks = append(w.sinks, namedSink{name: name, sink: sink})
}

func (w *SyncWorker) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// EnqueueTask persists the task and schedules it via redis or the in-memory queue.
func (w *SyncWorker) EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error {
	switch taskType {
	case models.TaskTypeUpsert, models.TaskTypeUpdateStatus:
	case "":
		return errors.New("task type is required")
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
	if booking == nil || booking.ID == "" {
		return errors.New("booking id is required")
	}

	payload := syncPayload{BookingID: booking.ID, Status: booking.Status, Version: booking.Version}
	if taskType == models.TaskTypeUpsert {
		snapshot := *booking
		payload.Booking = &snapshot
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: booking.ID,
		Payload:   string(payloadBytes),
		Status:    models.TaskStatusPending,
	}
	if err := w.store.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, task left for polling")
	}
	return nil
}

// Start runs the main loop until ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Int("sinks", len(w.sinks)).Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		if n := w.processPending(ctx); n > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
		case <-time.After(w.pollInterval):
		}
	}
}

// processPending handles one batch of due tasks from the store.
func (w *SyncWorker) processPending(ctx context.Context) int {
	tasks, err := w.store.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("fetch pending sync tasks")
		}
		return 0
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks)
}

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}
	payload, err = w.refresh(ctx, task.TaskType, payload)
	if err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	// A retry that lost the race to a newer change must not move the mirror back.
	if w.superseded(payload) {
		w.markCompleted(ctx, task)
		w.logger.Debug().Int64("task_id", task.ID).Str("booking_id", payload.BookingID).
			Int64("version", payload.Version).Msg("stale sync task skipped")
		metrics.IncSync("skipped")
		return
	}

	if err := w.dispatch(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	w.markDelivered(payload)
	w.markCompleted(ctx, task)
	metrics.IncSync(models.TaskStatusCompleted)
}

func (w *SyncWorker) markCompleted(ctx context.Context, task *models.SyncTask) {
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
}

// refresh replaces the enqueued snapshot with the stored booking when a source is set.
func (w *SyncWorker) refresh(ctx context.Context, taskType string, payload syncPayload) (syncPayload, error) {
	if w.source == nil || payload.BookingID == "" {
		return payload, nil
	}
	current, err := w.source.GetBooking(ctx, payload.BookingID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return payload, nil
	}
	if err != nil {
		return payload, fmt.Errorf("load booking %s: %w", payload.BookingID, err)
	}

	payload.Status = current.Status
	payload.Version = current.Version
	if taskType == models.TaskTypeUpsert {
		payload.Booking = current
	}
	return payload, nil
}

// superseded reports whether a newer version of the booking already reached every sink.
// Payloads without a version predate versioning and are always delivered.
func (w *SyncWorker) superseded(payload syncPayload) bool {
	if payload.Version == 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return payload.Version < w.delivered[payload.BookingID]
}

func (w *SyncWorker) markDelivered(payload syncPayload) {
	if payload.Version == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if payload.Version > w.delivered[payload.BookingID] {
		w.delivered[payload.BookingID] = payload.Version
	}
}

// dispatch applies the task to every sink; sinks are idempotent so a retry replays all of them.
func (w *SyncWorker) dispatch(ctx context.Context, taskType string, payload syncPayload) error {
	var errs []error
	for _, s := range w.sinks {
		var err error
		switch taskType {
		case models.TaskTypeUpsert:
			if payload.Booking == nil {
				return errors.New("booking payload missing")
			}
			err = s.sink.UpsertBooking(ctx, payload.Booking)
		case models.TaskTypeUpdateStatus:
			if payload.BookingID == "" || payload.Status == "" {
				return errors.New("booking id or status missing")
			}
			err = s.sink.UpdateBookingStatus(ctx, payload.BookingID, payload.Status)
		default:
			return fmt.Errorf("unknown task type: %s", taskType)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := w.retryPolicy.NextRetryAt(time.Now(), attempt)
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", nextTime).Msg("sync task will be retried")
	metrics.IncSync(models.TaskStatusRetry)
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("booking_id", task.BookingID).Msg("sync task failed")
	metrics.IncSync(models.TaskStatusFailed)
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
		}
	}
}

func (w *SyncWorker) decodePayload(raw string) (syncPayload, error) {
	var payload syncPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *SyncWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
