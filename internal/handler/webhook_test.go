package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavyan/clipvault/internal/model"
)

func postEvent(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Events(e.NewContext(req, rec)))
	return rec
}

func TestWebhookEvents(t *testing.T) {
	f := newDispatchFixture(withToken(1),
		model.CatalogItem{ContentHash: "a", Handle: "h", Category: model.CategoryAll})
	h := NewWebhookHandler(f.d)

	t.Run("invalid json", func(t *testing.T) {
		rec := postEvent(t, h, `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing user id", func(t *testing.T) {
		rec := postEvent(t, h, `{"name":"player"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid event is dispatched", func(t *testing.T) {
		rec := postEvent(t, h, `{"kind":"command","user_id":1,"chat_id":1,"name":"player"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, f.bridge.sends, "the player message went out through the bridge")
	})
}
