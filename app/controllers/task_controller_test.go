package controllers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-ai/app/controllers"
	"todo-ai/app/models"
	"todo-ai/app/services"
	"todo-ai/app/testutil"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTaskRouter(store *testutil.FakeStore, fs afero.Fs) *mux.Router {
	attachments := services.NewAttachmentService(fs, "http://localhost:8080", 1<<20)
	c := controllers.NewTaskController(store, attachments, nil, nil)

	router := mux.NewRouter()
	api := router.PathPrefix("/tasks").Subrouter()
	api.Use(controllers.RequireOwner)
	api.HandleFunc("", c.GetTasks).Methods(http.MethodGet)
	api.HandleFunc("", c.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/{taskID}", c.GetTaskByID).Methods(http.MethodGet)
	api.HandleFunc("/{taskID}", c.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/{taskID}", c.DeleteTask).Methods(http.MethodDelete)
	return router
}

func newFakeStore() *testutil.FakeStore {
	store := testutil.NewFakeStore()
	store.NotFoundErr = services.ErrTaskNotFound
	return store
}

func do(t *testing.T, h http.Handler, method, path, owner, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if owner != "" {
		req.Header.Set(controllers.OwnerHeader, owner)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	return task
}

func multipartBody(t *testing.T, text, filename string, file []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", text))
	if file != nil {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestTaskController_RequiresOwner(t *testing.T) {
	router := newTaskRouter(newFakeStore(), afero.NewMemMapFs())

	rec := do(t, router, http.MethodGet, "/tasks", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "authentication required"}`, rec.Body.String())
}

func TestTaskController_CreateAndList(t *testing.T) {
	store := newFakeStore()
	router := newTaskRouter(store, afero.NewMemMapFs())

	rec := do(t, router, http.MethodPost, "/tasks", "u1", "application/json", []byte(`{"text": "  买咖啡 "}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeTask(t, rec)
	assert.Equal(t, "买咖啡", created.Text)
	assert.False(t, created.Completed)
	assert.Nil(t, created.AttachmentURL)

	do(t, router, http.MethodPost, "/tasks", "u1", "application/json", []byte(`{"text": "给妈妈打电话"}`))
	do(t, router, http.MethodPost, "/tasks", "u2", "application/json", []byte(`{"text": "someone else"}`))

	rec = do(t, router, http.MethodGet, "/tasks", "u1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "给妈妈打电话", tasks[0].Text, "newest first")
	assert.Equal(t, "买咖啡", tasks[1].Text)
	assert.NotContains(t, rec.Body.String(), "owner")
}

func TestTaskController_ListEmpty(t *testing.T) {
	router := newTaskRouter(newFakeStore(), afero.NewMemMapFs())

	rec := do(t, router, http.MethodGet, "/tasks", "u1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTaskController_CreateValidation(t *testing.T) {
	router := newTaskRouter(newFakeStore(), afero.NewMemMapFs())

	rec := do(t, router, http.MethodPost, "/tasks", "u1", "application/json", []byte(`{"text": "   "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/tasks", "u1", "application/json", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskController_CreateWithImage(t *testing.T) {
	t.Run("Should store the image and return its url", func(t *testing.T) {
		store := newFakeStore()
		router := newTaskRouter(store, afero.NewMemMapFs())

		body, contentType := multipartBody(t, "look at this", "cat.png", pngHeader)
		rec := do(t, router, http.MethodPost, "/tasks", "u1", contentType, body)
		require.Equal(t, http.StatusCreated, rec.Code)

		task := decodeTask(t, rec)
		require.NotNil(t, task.AttachmentURL)
		assert.True(t, strings.HasPrefix(*task.AttachmentURL, "http://localhost:8080/attachments/u1/"), *task.AttachmentURL)
		assert.True(t, strings.HasSuffix(*task.AttachmentURL, "-cat.png"), *task.AttachmentURL)
	})

	t.Run("Should reject non-image files", func(t *testing.T) {
		store := newFakeStore()
		router := newTaskRouter(store, afero.NewMemMapFs())

		body, contentType := multipartBody(t, "look at this", "cat.png", []byte("plain text"))
		rec := do(t, router, http.MethodPost, "/tasks", "u1", contentType, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, store.Writes())
	})

	t.Run("Should create the task without image when storage fails", func(t *testing.T) {
		store := newFakeStore()
		router := newTaskRouter(store, afero.NewReadOnlyFs(afero.NewMemMapFs()))

		body, contentType := multipartBody(t, "look at this", "cat.png", pngHeader)
		rec := do(t, router, http.MethodPost, "/tasks", "u1", contentType, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, decodeTask(t, rec).AttachmentURL)
	})

	t.Run("Should accept forms without a file", func(t *testing.T) {
		router := newTaskRouter(newFakeStore(), afero.NewMemMapFs())

		body, contentType := multipartBody(t, "just text", "", nil)
		rec := do(t, router, http.MethodPost, "/tasks", "u1", contentType, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "just text", decodeTask(t, rec).Text)
	})
}

func TestTaskController_GetUpdateDelete(t *testing.T) {
	store := newFakeStore()
	router := newTaskRouter(store, afero.NewMemMapFs())
	rec := do(t, router, http.MethodPost, "/tasks", "u1", "application/json", []byte(`{"text": "buy milk"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeTask(t, rec).ID

	rec = do(t, router, http.MethodGet, "/tasks/"+id, "u1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buy milk", decodeTask(t, rec).Text)

	rec = do(t, router, http.MethodGet, "/tasks/"+id, "u2", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "other owners cannot see the task")

	rec = do(t, router, http.MethodPut, "/tasks/"+id, "u1", "application/json", []byte(`{"completed": true}`))
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeTask(t, rec)
	assert.True(t, updated.Completed)
	assert.Equal(t, "buy milk", updated.Text)

	rec = do(t, router, http.MethodPut, "/tasks/"+id, "u1", "application/json", []byte(`{"text": " buy oat milk "}`))
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decodeTask(t, rec)
	assert.Equal(t, "buy oat milk", updated.Text)
	assert.True(t, updated.Completed)

	rec = do(t, router, http.MethodPut, "/tasks/"+id, "u1", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/tasks/"+id, "u1", "application/json", []byte(`{"text": ""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/tasks/missing", "u1", "application/json", []byte(`{"completed": false}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/tasks/"+id, "u2", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/tasks/"+id, "u1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.All())
}

func TestTaskController_StoreErrors(t *testing.T) {
	store := newFakeStore()
	store.ListErr = assert.AnError
	router := newTaskRouter(store, afero.NewMemMapFs())

	rec := do(t, router, http.MethodGet, "/tasks", "u1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "internal server error"}`, rec.Body.String())
}
