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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kliq/backoffice/internal/localization"
	"github.com/kliq/backoffice/internal/observability"
	"github.com/kliq/backoffice/internal/rbac"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-42", Queue: QueueDefault, Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestNewLocalizationImportTaskRequiresLanguage(t *testing.T) {
	_, err := NewLocalizationImportTask(LocalizationImportPayload{})
	assert.Error(t, err)

	task, err := NewLocalizationImportTask(LocalizationImportPayload{Language: "tr", Translations: map[string]string{"a": "b"}})
	require.NoError(t, err)
	assert.Equal(t, TaskLocalizationImport, task.Type())
}

func TestClientEnqueueImportRecordsRequester(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}
	ctx := rbac.ContextWithPrincipal(context.Background(), rbac.NewPrincipal("staff-7", "Ops", "ops@kliq.local", nil, nil))

	id, err := client.EnqueueImport(ctx, "tr", map[string]string{"nav.customers": "Müşteriler"})
	require.NoError(t, err)
	assert.Equal(t, "task-42", id)
	require.Len(t, fake.tasks, 1)

	var payload LocalizationImportPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, "tr", payload.Language)
	assert.Equal(t, "staff-7", payload.RequestedBy)
	assert.Equal(t, "Müşteriler", payload.Translations["nav.customers"])

	fake.err = errors.New("redis down")
	_, err = client.EnqueueImport(ctx, "tr", nil)
	assert.Error(t, err)
}

func newImportJob(t *testing.T) (*LocalizationImportJob, *localization.Service, *observability.Metrics) {
	t.Helper()
	svc, err := localization.NewService(localization.NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	return NewLocalizationImportJob(svc, nil, metrics), svc, metrics
}

func scrape(t *testing.T, metrics *observability.Metrics) string {
	t.Helper()
	res := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	return res.Body.String()
}

func TestLocalizationImportJobImports(t *testing.T) {
	job, svc, metrics := newImportJob(t)
	task, err := NewLocalizationImportTask(LocalizationImportPayload{Language: "en", Translations: map[string]string{"a.b": "AB"}})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))

	got, err := svc.Get(context.Background(), "a.b")
	require.NoError(t, err)
	assert.Equal(t, localization.CategoryImported, got.Category)
	assert.Contains(t, scrape(t, metrics), `backoffice_jobs_total{status="success",task="localization:import"} 1`)
}

func TestLocalizationImportJobSkipsRetryOnBadInput(t *testing.T) {
	job, _, metrics := newImportJob(t)

	err := job.Handle(context.Background(), asynq.NewTask(TaskLocalizationImport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	bad, err := json.Marshal(LocalizationImportPayload{Language: "!!"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), asynq.NewTask(TaskLocalizationImport, bad))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, scrape(t, metrics), `backoffice_jobs_total{status="error",task="localization:import"} 2`)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, res.Body.String())
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}
