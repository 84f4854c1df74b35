package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/changes"
	"github.com/odyssey-erp/arcollect/internal/collections"
	jobmetrics "github.com/odyssey-erp/arcollect/internal/jobs"
)

type fakeWarmer struct {
	latest      string
	invalidated int
	overviews   []string
	divisions   []collections.Division
	err         error
}

func (f *fakeWarmer) LatestMonth(context.Context) (string, error) { return f.latest, nil }

func (f *fakeWarmer) Overview(_ context.Context, month string) (collections.Overview, error) {
	f.overviews = append(f.overviews, month)
	return collections.Overview{Month: month}, f.err
}

func (f *fakeWarmer) Division(_ context.Context, d collections.Division, month string) (collections.DivisionView, error) {
	f.divisions = append(f.divisions, d)
	return collections.DivisionView{Division: d, Month: month}, f.err
}

func (f *fakeWarmer) Invalidate(context.Context) error {
	f.invalidated++
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestWarmupAllDivisionsUsesLatestMonth(t *testing.T) {
	warmer := &fakeWarmer{latest: "2024-12"}
	job := NewWarmupJob(warmer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewWarmupTask(WarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, []string{"2024-12"}, warmer.overviews)
	assert.Equal(t, collections.Divisions(), warmer.divisions)
	assert.Zero(t, warmer.invalidated)
}

func TestWarmupSingleDivisionInvalidates(t *testing.T) {
	warmer := &fakeWarmer{latest: "2024-12"}
	job := NewWarmupJob(warmer, nil, nil)

	task, err := NewWarmupTask(WarmupPayload{Month: "2024-11", Division: "mcs", Invalidate: true})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Empty(t, warmer.overviews)
	assert.Equal(t, []collections.Division{collections.DivisionMCS}, warmer.divisions)
	assert.Equal(t, 1, warmer.invalidated)
}

func TestWarmupRejectsBadPayload(t *testing.T) {
	job := NewWarmupJob(&fakeWarmer{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskSnapshotWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	data, _ := json.Marshal(WarmupPayload{Division: "XYZ"})
	err = job.Handle(context.Background(), asynq.NewTask(TaskSnapshotWarmup, data))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewWarmupTask(WarmupPayload{Month: "2024-13"})
	assert.ErrorIs(t, err, collections.ErrInvalidMonth)
}

func TestWarmupPropagatesLoadError(t *testing.T) {
	boom := errors.New("boom")
	job := NewWarmupJob(&fakeWarmer{latest: "2024-12", err: boom}, nil, nil)
	task, err := NewWarmupTask(WarmupPayload{})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestEnqueueWarmupSkipsDuplicates(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	info, err := client.EnqueueWarmup(context.Background(), WarmupPayload{Division: "PPA"}, SourceCLI)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskSnapshotWarmup, fake.tasks[0].Type())

	fake.err = asynq.ErrDuplicateTask
	info, err = client.EnqueueWarmup(context.Background(), WarmupPayload{Division: "PPA"}, SourceCLI)
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestOnChangeEnqueuesDivisionWarmup(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	err := client.OnChange()(context.Background(), changes.Change{Op: changes.OpInsert, Division: collections.DivisionEPM, RecordID: 7})
	require.NoError(t, err)
	require.Len(t, fake.tasks, 1)

	var payload WarmupPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, WarmupPayload{Division: "EPM", Invalidate: true}, payload)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "redis down", inspector: fakeInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body QueueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
