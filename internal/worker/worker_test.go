package worker

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sunolegal/internal/database"
	"sunolegal/internal/domain"
	"sunolegal/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:            id,
		LawyerID:      "L1",
		LawyerName:    "Adv. Meera Sharma",
		UserID:        "u1",
		PackageType:   models.PackageChat,
		PackageName:   "Quick Chat",
		Price:         199,
		Duration:      15,
		Status:        models.StatusConfirmed,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
		Version:       1,
	}
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sink := &fakeSink{}
	worker := NewSyncWorker(db, nil, RetryPolicy{}, nil)
	worker.AddSink("fake", sink)

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, testBooking("b1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}
	if nextRetry.Valid {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if sink.upserts() != 1 {
		t.Fatalf("expected upsert call, got %d", sink.upserts())
	}
	if sink.lastBooking.LawyerName != "Adv. Meera Sharma" {
		t.Fatalf("unexpected booking snapshot: %+v", sink.lastBooking)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	worker := NewSyncWorker(db, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, nil)
	worker.AddSink("sheets", &fakeSink{err: errors.New("boom")})

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, testBooking("b2")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusRetry {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestDB(t)
	worker := NewSyncWorker(db, nil, RetryPolicy{MaxRetries: 1}, nil)
	worker.AddSink("sheets", &fakeSink{err: errors.New("fatal")})

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, testBooking("b3")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}

	failed, err := db.GetFailedSyncTasks(ctx)
	if err != nil {
		t.Fatalf("failed tasks: %v", err)
	}
	if len(failed) != 1 || failed[0].LastError == nil || *failed[0].LastError != "sheets: fatal" {
		t.Fatalf("unexpected failed tasks: %+v", failed)
	}
}

func TestProcessTaskPartialSinkFailure(t *testing.T) {
	store := NewMemoryTaskStore()
	backend := &fakeSink{}
	sheets := &fakeSink{err: errors.New("quota")}
	worker := NewSyncWorker(store, nil, RetryPolicy{MaxRetries: 3}, nil)
	worker.AddSink("backend", backend)
	worker.AddSink("sheets", sheets)

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpdateStatus, testBooking("b4")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	stored, ok := store.Get(task.ID)
	if !ok {
		t.Fatalf("task %d not stored", task.ID)
	}
	if stored.Status != models.TaskStatusRetry || stored.RetryCount != 1 {
		t.Fatalf("expected retry after partial failure, got %+v", stored)
	}
	if backend.statuses() != 1 || sheets.statuses() != 1 {
		t.Fatalf("expected both sinks to be called once, got %d/%d", backend.statuses(), sheets.statuses())
	}
}

func TestSyncWorker_Dispatch(t *testing.T) {
	sink := &fakeSink{}
	worker := NewSyncWorker(nil, nil, RetryPolicy{MaxRetries: 3}, nil)
	worker.AddSink("fake", sink)

	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		err := worker.dispatch(ctx, models.TaskTypeUpsert, syncPayload{Booking: testBooking("b1")})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		if sink.upserts() != 1 {
			t.Fatalf("expected 1 upsert call, got %d", sink.upserts())
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		err := worker.dispatch(ctx, models.TaskTypeUpdateStatus, syncPayload{BookingID: "b1", Status: models.StatusCompleted})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		if sink.statuses() != 1 {
			t.Fatalf("expected 1 status call, got %d", sink.statuses())
		}
	})

	t.Run("MissingStatus", func(t *testing.T) {
		if err := worker.dispatch(ctx, models.TaskTypeUpdateStatus, syncPayload{BookingID: "b1"}); err == nil {
			t.Fatalf("expected error for missing status")
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		if err := worker.dispatch(ctx, "delete", syncPayload{BookingID: "b1"}); err == nil {
			t.Fatalf("expected error for unknown type")
		}
	})
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}
	if d0 := (RetryPolicy{}).NextDelay(0); d0 != 2*time.Second {
		t.Fatalf("zero policy expected 2s, got %s", d0)
	}
	if d := (RetryPolicy{}).NextDelay(20); d != time.Minute {
		t.Fatalf("zero policy expected 1m cap, got %s", d)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	got := RetryPolicy{}.withDefaults()
	want := RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	custom := RetryPolicy{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 3}
	if custom.withDefaults() != custom {
		t.Fatalf("configured policy should be kept, got %+v", custom.withDefaults())
	}

	worker := NewSyncWorker(nil, nil, RetryPolicy{}, nil)
	if worker.retryPolicy != want {
		t.Fatalf("worker policy expected %+v, got %+v", want, worker.retryPolicy)
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3}
	for attempt, want := range map[int]bool{1: false, 2: false, 3: true, 4: true} {
		if got := policy.Exhausted(attempt); got != want {
			t.Fatalf("attempt %d: expected exhausted=%v, got %v", attempt, want, got)
		}
	}
	if (RetryPolicy{}).Exhausted(4) || !(RetryPolicy{}).Exhausted(5) {
		t.Fatalf("zero policy should allow 5 attempts")
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if at := policy.NextRetryAt(now, 2); !at.Equal(now.Add(4 * time.Second)) {
		t.Fatalf("expected retry at +4s, got %s", at.Sub(now))
	}
}

func TestSyncWorker_StaleUpsertRetrySkipped(t *testing.T) {
	store := NewMemoryTaskStore()
	sink := &fakeSink{failUpserts: 1}
	worker := NewSyncWorker(store, nil, RetryPolicy{MaxRetries: 5}, nil)
	worker.AddSink("sheets", sink)
	ctx := context.Background()

	confirmed := testBooking("b9")
	confirmed.Version = 2
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, confirmed); err != nil {
		t.Fatalf("enqueue upsert: %v", err)
	}
	upsert, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &upsert)

	completed := testBooking("b9")
	completed.Status = models.StatusCompleted
	completed.Version = 3
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpdateStatus, completed); err != nil {
		t.Fatalf("enqueue status: %v", err)
	}
	statusTask, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &statusTask)
	if got := sink.mirrored("b9"); got != models.StatusCompleted {
		t.Fatalf("expected mirror status completed, got %q", got)
	}

	retry, ok := store.Get(upsert.ID)
	if !ok || retry.Status != models.TaskStatusRetry {
		t.Fatalf("expected upsert awaiting retry, got %+v", retry)
	}
	worker.processTask(ctx, &retry)

	if got := sink.mirrored("b9"); got != models.StatusCompleted {
		t.Fatalf("mirror moved back to %q after the older upsert was retried", got)
	}
	if sink.upserts() != 0 {
		t.Fatalf("older upsert should not reach the sink again, got %d upserts", sink.upserts())
	}
	if _, ok := store.Get(upsert.ID); ok {
		t.Fatalf("skipped task should be completed and dropped")
	}
}

func TestSyncWorker_ReplayUsesStoredBooking(t *testing.T) {
	sink := &fakeSink{}
	stored := testBooking("b10")
	stored.Status = models.StatusCancelled
	stored.Version = 4

	worker := NewSyncWorker(nil, nil, RetryPolicy{}, nil)
	worker.AddSink("backend", sink)
	worker.SetBookingSource(fakeSource{"b10": stored})
	ctx := context.Background()

	snapshot := testBooking("b10")
	snapshot.Version = 2
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, snapshot); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	if sink.lastBooking.Status != models.StatusCancelled || sink.lastBooking.Version != 4 {
		t.Fatalf("expected stored booking to be mirrored, got %+v", sink.lastBooking)
	}

	// Unknown bookings fall back to the enqueued snapshot.
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpdateStatus, testBooking("b11")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ = worker.tryLocalQueue()
	worker.processTask(ctx, &task)
	if got := sink.mirrored("b11"); got != models.StatusConfirmed {
		t.Fatalf("expected snapshot status confirmed, got %q", got)
	}
}

func TestMemoryTaskStore_DropsFinishedTasks(t *testing.T) {
	store := NewMemoryTaskStore()
	store.maxFailed = 1
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		task := models.SyncTask{TaskType: models.TaskTypeUpsert, BookingID: "b1", Payload: "{}"}
		if err := store.CreateSyncTask(ctx, &task); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, task.ID)
	}

	if err := store.UpdateSyncTaskStatus(ctx, ids[0], models.TaskStatusCompleted, "", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, ok := store.Get(ids[0]); ok {
		t.Fatalf("completed task should be removed")
	}

	for _, id := range ids[1:] {
		if err := store.UpdateSyncTaskStatus(ctx, id, models.TaskStatusFailed, "sheets: quota", nil); err != nil {
			t.Fatalf("fail: %v", err)
		}
	}
	if _, ok := store.Get(ids[1]); ok {
		t.Fatalf("oldest failed task should be evicted")
	}
	kept, ok := store.Get(ids[2])
	if !ok || kept.Status != models.TaskStatusFailed || kept.ProcessedAt == nil {
		t.Fatalf("newest failed task should be kept, got %+v", kept)
	}
	if len(store.tasks) != 1 {
		t.Fatalf("expected 1 retained task, got %d", len(store.tasks))
	}
}

func TestSyncWorker_EnqueueTask(t *testing.T) {
	worker := NewSyncWorker(nil, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	t.Run("ValidTask", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, testBooking("b1")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	})

	t.Run("InvalidTaskType", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, "", testBooking("b1")); err == nil {
			t.Fatalf("expected error for empty task type")
		}
		if err := worker.EnqueueTask(ctx, "delete", testBooking("b1")); err == nil {
			t.Fatalf("expected error for unknown task type")
		}
	})

	t.Run("InvalidBookingID", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, nil); err == nil {
			t.Fatalf("expected error for nil booking")
		}
		if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, &models.Booking{}); err == nil {
			t.Fatalf("expected error for missing booking id")
		}
	})
}

func TestSyncWorker_EnqueueSnapshotIsolated(t *testing.T) {
	worker := NewSyncWorker(nil, nil, RetryPolicy{}, nil)
	b := testBooking("b1")
	if err := worker.EnqueueTask(context.Background(), models.TaskTypeUpsert, b); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	b.Status = models.StatusCancelled

	task, _ := worker.tryLocalQueue()
	payload, err := worker.decodePayload(task.Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Booking.Status != models.StatusConfirmed {
		t.Fatalf("payload should hold the enqueue-time status, got %s", payload.Booking.Status)
	}
}

func TestSyncWorker_RedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := &fakeSink{}
	worker := NewSyncWorker(nil, client, RetryPolicy{}, nil)
	worker.AddSink("fake", sink)

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, testBooking("b1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok := worker.tryLocalQueue(); ok {
		t.Fatalf("task should go to redis, not the memory queue")
	}

	task, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task in redis queue")
	}
	worker.processTask(ctx, &task)
	if sink.upserts() != 1 {
		t.Fatalf("expected upsert call, got %d", sink.upserts())
	}
}

func TestSyncWorker_DeadLetter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	worker := NewSyncWorker(nil, client, RetryPolicy{MaxRetries: 1}, nil)
	worker.AddSink("fake", &fakeSink{err: errors.New("down")})

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, testBooking("b1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task in redis queue")
	}
	worker.processTask(ctx, &task)

	n, err := client.LLen(ctx, worker.deadLetterKey).Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deadletter entry, got %d", n)
	}
}

func TestSyncWorker_StartProcessesQueue(t *testing.T) {
	store := NewMemoryTaskStore()
	sink := &fakeSink{}
	worker := NewSyncWorker(store, nil, RetryPolicy{}, nil)
	worker.AddSink("fake", sink)
	worker.SetPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	if err := worker.EnqueueTask(ctx, models.TaskTypeUpsert, testBooking("b1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.upserts() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if sink.upserts() == 0 {
		t.Fatalf("worker did not process the task")
	}
	pending, _ := store.GetPendingSyncTasks(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending tasks, got %d", len(pending))
	}
}

func TestSyncWorker_DecodePayload(t *testing.T) {
	worker := NewSyncWorker(nil, nil, RetryPolicy{}, nil)

	t.Run("ValidPayload", func(t *testing.T) {
		decoded, err := worker.decodePayload(`{"booking_id":"b-123","status":"confirmed"}`)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.BookingID != "b-123" || decoded.Status != "confirmed" {
			t.Fatalf("unexpected decoded payload: %+v", decoded)
		}
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		if _, err := worker.decodePayload(`invalid json`); err == nil {
			t.Fatalf("expected error for invalid json")
		}
	})
}

// Helpers

type fakeSink struct {
	mu          sync.Mutex
	err         error
	failUpserts int
	upsertCalls int
	statusCalls int
	lastBooking models.Booking
	status      map[string]string
}

func (f *fakeSink) UpsertBooking(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpserts > 0 {
		f.failUpserts--
		return errors.New("sheets quota exceeded")
	}
	f.upsertCalls++
	f.lastBooking = *b
	f.record(b.ID, b.Status)
	return f.err
}

func (f *fakeSink) UpdateBookingStatus(_ context.Context, bookingID string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	f.record(bookingID, status)
	return f.err
}

func (f *fakeSink) record(bookingID, status string) {
	if f.err != nil {
		return
	}
	if f.status == nil {
		f.status = make(map[string]string)
	}
	f.status[bookingID] = status
}

func (f *fakeSink) mirrored(bookingID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[bookingID]
}

type fakeSource map[string]*models.Booking

func (s fakeSource) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	b, ok := s[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeSink) upserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsertCalls
}

func (f *fakeSink) statuses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := zerolog.Nop()
	db, err := database.NewDB(path, &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM sync_queue WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry); err != nil {
		t.Fatalf("scan task: %v", err)
	}
	return status, retryCount, nextRetry
}
