package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thostetler/nectar-sub000/pkg/binder"
	"github.com/thostetler/nectar-sub000/pkg/handler"
	"github.com/thostetler/nectar-sub000/pkg/logger"
)

type echoRequest struct {
	Name string `json:"name"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWrap(t *testing.T) {
	t.Parallel()

	echo := handler.Wrap(func(_ *http.Request, req echoRequest) handler.Response {
		if req.Name == "" {
			return handler.Error(handler.NewHTTPError(http.StatusBadRequest, "missing-name"))
		}
		return handler.JSON(http.StatusCreated, map[string]string{"hello": req.Name})
	}, handler.WithBinder[echoRequest](binder.JSON()), handler.WithLogger[echoRequest](logger.Discard()))

	post := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		echo(w, r)
		return w
	}

	w := post(`{"name":"ads"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"hello": "ads"}, decode(t, w))

	w = post(`{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "missing-name"}, decode(t, w))

	w = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid-request-body", decode(t, w)["error"])
}

func TestWrapNilResponseAndCustomErrors(t *testing.T) {
	t.Parallel()

	var got error
	h := handler.Wrap(func(*http.Request, struct{}) handler.Response { return nil },
		handler.WithErrorHandler[struct{}](func(w http.ResponseWriter, _ *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		}))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.ErrorIs(t, got, handler.ErrNilResponse)
}

func TestError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	require.NoError(t, handler.Error(errors.New("boom")).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal-error", decode(t, w)["error"])

	w = httptest.NewRecorder()
	wrapped := errors.Join(errors.New("context"), handler.ErrUnauthorized)
	require.NoError(t, handler.Error(wrapped).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode(t, w)["error"])
}
