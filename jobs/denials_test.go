package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	recorded []DenialPayload
	before   time.Time
	removed  int64
	err      error
}

func (s *stubStore) RecordDenial(_ context.Context, p DenialPayload) error {
	if s.err != nil {
		return s.err
	}
	s.recorded = append(s.recorded, p)
	return nil
}

func (s *stubStore) PurgeDenials(_ context.Context, before time.Time) (int64, error) {
	s.before = before
	return s.removed, s.err
}

type jobCount map[string][]error

func (c jobCount) ObserveJob(task string, err error) {
	c[task] = append(c[task], err)
}

var fixedNow = time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)

func newJob(store DenialStore, metrics JobObserver) *DenialJob {
	job := NewDenialJob(store, nil, metrics)
	job.clock = func() time.Time { return fixedNow }
	return job
}

func TestHandleRecordPersistsPayload(t *testing.T) {
	store := &stubStore{}
	metrics := jobCount{}
	task, err := NewDenialTask(DenialPayload{
		ID:          "d1",
		Adapter:     "route",
		Outcome:     "forbidden",
		UserID:      "u1",
		Role:        "TEACHER",
		Requirement: "module:finance",
		Resource:    "GET /finance",
	})
	require.NoError(t, err)

	require.NoError(t, newJob(store, metrics).HandleRecord(context.Background(), task))
	require.Len(t, store.recorded, 1)
	assert.Equal(t, "TEACHER", store.recorded[0].Role)
	assert.Equal(t, fixedNow, store.recorded[0].OccurredAt)
	assert.Equal(t, []error{nil}, metrics[TaskAuthzDenial])
}

func TestHandleRecordSkipsRetryOnBadPayload(t *testing.T) {
	metrics := jobCount{}
	job := newJob(&stubStore{}, metrics)

	err := job.HandleRecord(context.Background(), asynq.NewTask(TaskAuthzDenial, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	data, _ := json.Marshal(DenialPayload{ID: "d2"})
	err = job.HandleRecord(context.Background(), asynq.NewTask(TaskAuthzDenial, data))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Len(t, metrics[TaskAuthzDenial], 2)
}

func TestHandleRecordRetriesStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	task, err := NewDenialTask(DenialPayload{Adapter: "api", Outcome: "error", Requirement: "permission:x"})
	require.NoError(t, err)

	err = newJob(&stubStore{err: boom}, nil).HandleRecord(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePurgeUsesRetention(t *testing.T) {
	store := &stubStore{removed: 12}
	metrics := jobCount{}
	task, err := NewDenialPurgeTask(30 * 24 * time.Hour)
	require.NoError(t, err)

	require.NoError(t, newJob(store, metrics).HandlePurge(context.Background(), task))
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), store.before)
	assert.Equal(t, []error{nil}, metrics[TaskAuthzDenialPurge])
}

func TestHandlePurgeRejectsZeroRetention(t *testing.T) {
	task, err := NewDenialPurgeTask(0)
	require.NoError(t, err)
	err = newJob(&stubStore{}, nil).HandlePurge(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNilJobIsNotConfigured(t *testing.T) {
	var job *DenialJob
	assert.Error(t, job.HandleRecord(context.Background(), asynq.NewTask(TaskAuthzDenial, nil)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := map[string]struct {
		inspector QueueInspector
		status    int
		pending   int
	}{
		"no inspector": {status: http.StatusOK},
		"queue info":   {inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		"redis down":   {inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
