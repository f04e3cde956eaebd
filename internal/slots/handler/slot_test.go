package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"receptionist/internal/slots/service"
	"receptionist/internal/slots/validator"
	"receptionist/internal/storage/memory"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	"receptionist/pkg/logger"
	"receptionist/pkg/model"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (*httprouter.Router, service.SlotService) {
	cfg := &config.Config{Log: logger.Discard()}
	svc := service.NewSlotService(
		memory.NewStore().Slots(),
		validator.NewSlotValidator(),
		clock.NewFixed(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		cfg,
	)
	router := httprouter.New()
	NewSlotHandler(svc, cfg.Log).RegisterRoutes(router)
	return router, svc
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSlot(t *testing.T, router http.Handler, start string) model.Slot {
	t.Helper()
	body := `{"start_time":"` + start + `","end_time":"2026-03-10T18:00:00Z"}`
	rec := serve(router, http.MethodPost, "/api/v1/pools/pool-1/slots", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data model.Slot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestCreateAndGet(t *testing.T) {
	router, _ := newTestRouter()

	slot := createSlot(t, router, "2026-03-10T09:00:00Z")
	assert.Equal(t, model.SlotOpen, slot.Status)

	rec := serve(router, http.MethodGet, "/api/v1/slots/id/"+slot.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/slots/id/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreate_InvalidWindow(t *testing.T) {
	router, _ := newTestRouter()

	rec := serve(router, http.MethodPost, "/api/v1/pools/pool-1/slots",
		`{"start_time":"2026-03-10T10:00:00Z","end_time":"2026-03-10T09:00:00Z"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestList(t *testing.T) {
	router, _ := newTestRouter()
	createSlot(t, router, "2026-03-10T09:00:00Z")
	createSlot(t, router, "2026-03-10T11:00:00Z")

	rec := serve(router, http.MethodGet, "/api/v1/pools/pool-1/slots?from=2026-03-10T10:00:00Z&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []model.Slot `json:"data"`
		TotalCount int64        `json:"total_count"`
		Limit      int          `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TotalCount)
	assert.Equal(t, 5, resp.Limit)
	require.Len(t, resp.Data, 1)

	rec = serve(router, http.MethodGet, "/api/v1/pools/pool-1/slots?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	router, svc := newTestRouter()

	open := createSlot(t, router, "2026-03-10T09:00:00Z")
	rec := serve(router, http.MethodDelete, "/api/v1/slots/id/"+open.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	booked := createSlot(t, router, "2026-03-10T11:00:00Z")
	require.NoError(t, svc.SetStatus(t.Context(), booked.ID, model.SlotBooked))

	rec = serve(router, http.MethodDelete, "/api/v1/slots/id/"+booked.ID, "")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = serve(router, http.MethodDelete, "/api/v1/slots/id/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
