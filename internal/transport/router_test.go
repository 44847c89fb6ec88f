package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/prompt-manager/internal/adapter/memory"
	"github.com/alanyang/prompt-manager/internal/adapter/storage"
	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	"github.com/alanyang/prompt-manager/internal/mocks"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
	"github.com/alanyang/prompt-manager/internal/service/notify"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
	"github.com/alanyang/prompt-manager/internal/transport"
)

func init() { gin.SetMode(gin.TestMode) }

type harness struct {
	router   *gin.Engine
	svc      *promptsvc.Service
	notifier *notify.Notifier
}

func newHarness(t *testing.T, store portprompt.Store) harness {
	t.Helper()
	svc := promptsvc.NewService(store, promptsvc.Options{})
	_ = svc.Start(context.Background())
	t.Cleanup(svc.Close)

	notifier := notify.NewNotifier(time.Hour, nil)
	t.Cleanup(notifier.Close)

	r := transport.NewRouter(context.Background(), transport.Deps{
		Prompts:   svc,
		Notifier:  notifier,
		EventBus:  memory.NewEventBus(),
		Responses: memory.NewCache(),
	})
	return harness{router: r, svc: svc, notifier: notifier}
}

func newLocalHarness(t *testing.T) harness {
	t.Helper()
	store, err := storage.New(storage.Options{Local: memory.NewKV()})
	require.NoError(t, err)
	return newHarness(t, store)
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type mutationBody struct {
	Prompt  domainprompt.Prompt   `json:"prompt"`
	Prompts []domainprompt.Prompt `json:"prompts"`
}

// ── /api/prompts ──────────────────────────────────────────────────────────────

func TestAddPrompt_Created(t *testing.T) {
	h := newLocalHarness(t)

	w := do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "Foo", "description": "bar"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got mutationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Foo", got.Prompt.Title)
	require.Len(t, got.Prompts, 1)
	assert.Equal(t, got.Prompt.ID, got.Prompts[0].ID)
}

func TestAddPrompt_ValidationFields(t *testing.T) {
	h := newLocalHarness(t)

	w := do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "  "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var got struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Title is required", got.Fields["title"])
	assert.Equal(t, "Description is required", got.Fields["description"])
}

func TestAddPrompt_IdempotencyKeyReplays(t *testing.T) {
	h := newLocalHarness(t)
	body := map[string]string{"title": "Foo", "description": "bar"}

	first := do(t, h.router, http.MethodPost, "/api/prompts", body, transport.IdempotencyHeader, "k-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(t, h.router, http.MethodPost, "/api/prompts", body, transport.IdempotencyHeader, "k-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Len(t, h.svc.Prompts(), 1)

	do(t, h.router, http.MethodPost, "/api/prompts", body, transport.IdempotencyHeader, "k-2")
	assert.Len(t, h.svc.Prompts(), 2)
}

func TestAddPrompt_ConcurrentSameKeyCreatesOnce(t *testing.T) {
	h := newLocalHarness(t)
	body := map[string]string{"title": "Foo", "description": "bar"}

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = do(t, h.router, http.MethodPost, "/api/prompts", body, transport.IdempotencyHeader, "k-same").Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusCreated, code)
	}
	assert.Len(t, h.svc.Prompts(), 1)
}

func TestListPrompts_Query(t *testing.T) {
	h := newLocalHarness(t)
	do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "Foo", "description": "bar baz"})
	do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "Other", "description": "qux"})

	w := do(t, h.router, http.MethodGet, "/api/prompts?q=BAZ", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []domainprompt.Prompt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Foo", got[0].Title)

	w = do(t, h.router, http.MethodGet, "/api/prompts", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestUpdateAndDeletePrompt(t *testing.T) {
	h := newLocalHarness(t)
	w := do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "a", "description": "b"})
	var created mutationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Prompt.ID

	w = do(t, h.router, http.MethodPut, "/api/prompts/"+id, map[string]string{"title": "A", "description": "B", "color": domainprompt.Palette[2]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated mutationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "A", updated.Prompt.Title)
	assert.Equal(t, created.Prompt.CreatedAt, updated.Prompt.CreatedAt)

	w = do(t, h.router, http.MethodPut, "/api/prompts/missing", map[string]string{"title": "A", "description": "B"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h.router, http.MethodDelete, "/api/prompts/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted mutationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Empty(t, deleted.Prompts)

	w = do(t, h.router, http.MethodGet, "/api/prompts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCopyPrompt_ShowsNotification(t *testing.T) {
	h := newLocalHarness(t)
	w := do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "a", "description": "the text"})
	var created mutationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(t, h.router, http.MethodPost, "/api/prompts/"+created.Prompt.ID+"/copy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"the text"}`, w.Body.String())

	w = do(t, h.router, http.MethodGet, "/api/notification", nil)
	assert.JSONEq(t, `{"message":"Copied to clipboard!","visible":true}`, w.Body.String())

	w = do(t, h.router, http.MethodDelete, "/api/notification", nil)
	assert.JSONEq(t, `{"message":"Copied to clipboard!","visible":false}`, w.Body.String())
}

// ── error mapping ─────────────────────────────────────────────────────────────

func TestMisconfigured_Returns503(t *testing.T) {
	store, err := storage.New(storage.Options{Local: memory.NewKV(), Production: true})
	require.NoError(t, err)
	h := newHarness(t, store)

	w := do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "a", "description": "b"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Cloud sync is not configured")

	w = do(t, h.router, http.MethodGet, "/api/state", nil)
	var view promptsvc.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, portprompt.MisconfigurationMessage, view.Banner)
}

func TestStorageFailure_Returns502(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().FetchAll(gomock.Any()).Return([]domainprompt.Prompt{}, nil)
	store.EXPECT().Add(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
	store.EXPECT().Backend().Return(portprompt.BackendRemote).AnyTimes()
	h := newHarness(t, store)

	w := do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "a", "description": "b"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = do(t, h.router, http.MethodGet, "/api/state", nil)
	var view promptsvc.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Could not save the prompt. Please try again.", view.Error)
	assert.Equal(t, "Cloud Sync", view.BackendLabel)
}

// ── /api/state ────────────────────────────────────────────────────────────────

func TestStateQueryAndSelection(t *testing.T) {
	h := newLocalHarness(t)
	w := do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "Foo", "description": "bar"})
	var created mutationBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	do(t, h.router, http.MethodPost, "/api/prompts", map[string]string{"title": "Other", "description": "qux"})

	w = do(t, h.router, http.MethodPut, "/api/state/query", map[string]string{"query": "foo"})
	require.Equal(t, http.StatusOK, w.Code)
	var view promptsvc.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "foo", view.Query)
	assert.Len(t, view.Filtered, 1)
	assert.Len(t, view.Prompts, 2)

	w = do(t, h.router, http.MethodPut, "/api/state/selection", map[string]string{"id": created.Prompt.ID})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.NotNil(t, view.Selected)
	assert.Equal(t, created.Prompt.ID, view.Selected.ID)

	w = do(t, h.router, http.MethodPut, "/api/state/selection", map[string]string{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h.router, http.MethodDelete, "/api/state/selection", nil)
	view = promptsvc.View{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Nil(t, view.Selected)
}

func TestColorsAndHealth(t *testing.T) {
	h := newLocalHarness(t)

	w := do(t, h.router, http.MethodGet, "/api/colors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"default":"#6366f1","palette":["#22c55e","#8b5cf6","#f97316"]}`, w.Body.String())

	w = do(t, h.router, http.MethodGet, "/healthz", nil)
	assert.JSONEq(t, `{"status":"ok","backend":"local"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := newLocalHarness(t)
	w := do(t, h.router, http.MethodOptions, "/api/prompts", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
