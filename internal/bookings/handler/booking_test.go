package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"receptionist/internal/bookings/validator"
	apperrors "receptionist/pkg/errors"
	httputil "receptionist/pkg/http"
	"receptionist/pkg/logger"
	"receptionist/pkg/model"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCoordinator struct {
	bookSlotFunc   func(ctx context.Context, poolID, slotID, requesterKey, note string) (*model.Booking, error)
	getBookingFunc func(ctx context.Context, id string) (*model.Booking, error)
}

func (m *mockCoordinator) BookSlot(ctx context.Context, poolID, slotID, requesterKey, note string) (*model.Booking, error) {
	return m.bookSlotFunc(ctx, poolID, slotID, requesterKey, note)
}

func (m *mockCoordinator) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return m.getBookingFunc(ctx, id)
}

func newRouter(c *mockCoordinator) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(c, validator.NewBookingValidator(), logger.Discard()).RegisterRoutes(router)
	return router
}

func book(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pools/pool-1/slots/slot-1/book", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBook_Created(t *testing.T) {
	var gotPool, gotSlot, gotRequester string
	router := newRouter(&mockCoordinator{
		bookSlotFunc: func(_ context.Context, poolID, slotID, requesterKey, note string) (*model.Booking, error) {
			gotPool, gotSlot, gotRequester = poolID, slotID, requesterKey
			return &model.Booking{ID: "b1", PoolID: poolID, SlotID: slotID, AssigneeUserID: "alice", Status: model.BookingConfirmed}, nil
		},
	})

	rec := book(router, `{"requester_key":" caller-1 "}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pool-1", gotPool)
	assert.Equal(t, "slot-1", gotSlot)
	assert.Equal(t, "caller-1", gotRequester)

	var resp struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "b1", resp.Data.ID)
	assert.Equal(t, "alice", resp.Data.AssigneeUserID)
}

func TestBook_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"slot taken", apperrors.SlotTaken("slot-1"), http.StatusConflict, apperrors.CodeSlotTaken},
		{"slot not found", apperrors.SlotNotFound("slot-1"), http.StatusNotFound, apperrors.CodeSlotNotFound},
		{"pool not found", apperrors.PoolNotFound("pool-1"), http.StatusNotFound, apperrors.CodePoolNotFound},
		{"no member", apperrors.NoMemberAvailable("pool-1"), http.StatusUnprocessableEntity, apperrors.CodeNoMemberAvailable},
		{"assignment failed", apperrors.AssignmentFailed(errors.New("db")), http.StatusInternalServerError, apperrors.CodeAssignmentFailed},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&mockCoordinator{
				bookSlotFunc: func(context.Context, string, string, string, string) (*model.Booking, error) {
					return nil, tt.err
				},
			})

			rec := book(router, `{"requester_key":"caller-1"}`)

			assert.Equal(t, tt.status, rec.Code)
			var resp httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestBook_RejectsBadInput(t *testing.T) {
	called := false
	router := newRouter(&mockCoordinator{
		bookSlotFunc: func(context.Context, string, string, string, string) (*model.Booking, error) {
			called = true
			return nil, nil
		},
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := book(router, `{"requester_key":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing requester key", func(t *testing.T) {
		rec := book(router, `{"note":"hello"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.CodeValidation, resp.Code)
	})

	assert.False(t, called)
}

func TestGetByID(t *testing.T) {
	router := newRouter(&mockCoordinator{
		getBookingFunc: func(_ context.Context, id string) (*model.Booking, error) {
			if id == "b1" {
				return &model.Booking{ID: "b1", Status: model.BookingConfirmed}, nil
			}
			return nil, apperrors.BookingNotFound(id)
		},
	})

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/b1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/id/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
