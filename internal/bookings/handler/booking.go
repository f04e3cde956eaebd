package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"receptionist/internal/bookings/service"
	"receptionist/internal/bookings/validator"
	apperrors "receptionist/pkg/errors"
	httputil "receptionist/pkg/http"
	"receptionist/pkg/logger"
	"receptionist/pkg/model"
)

type BookingHandler struct {
	coordinator service.BookingCoordinator
	validator   *validator.BookingValidator
	log         *logger.Logger
}

func NewBookingHandler(coordinator service.BookingCoordinator, validator *validator.BookingValidator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		coordinator: coordinator,
		validator:   validator,
		log:         log,
	}
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Book", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.validator.ValidateRequest(&req); err != nil {
		h.writeError(w, "Book", apperrors.Validation("Booking request validation failed", map[string]any{
			"errors": err,
		}))
		return
	}

	booking, err := h.coordinator.BookSlot(r.Context(), ps.ByName("pool_id"), ps.ByName("slot_id"), req.RequesterKey, req.Note)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.coordinator.GetBooking(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/pools/:pool_id/slots/:slot_id/book", h.Book)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
}
