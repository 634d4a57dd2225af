package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"radiantgo/internal/bookings/service"
	httputil "radiantgo/pkg/http"
	"radiantgo/pkg/logger"
	"radiantgo/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &booking); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByRef(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ref := ps.ByName("ref")
	if ref == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Booking reference is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetByRef", "operation", "WriteJSON", "error", err)
		}
		return
	}

	booking, err := h.service.GetByRef(r.Context(), ref)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByRef", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByRef", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, totalCount, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, bookings, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ref := ps.ByName("ref")
	if ref == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Booking reference is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	status, err := model.ParseBookingStatus(req.Status)
	if err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: err.Error(),
		}); writeErr != nil {
			h.log.Error("failed to write bad request response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	h.applyStatus(w, r, ref, status, "UpdateStatus")
}

// Lifecycle shortcuts bind one endpoint per transition so clients do not
// have to build a status body for the common cases.

func (h *BookingHandler) Depart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.applyStatus(w, r, ps.ByName("ref"), model.StatusDeparted, "Depart")
}

func (h *BookingHandler) Arrive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.applyStatus(w, r, ps.ByName("ref"), model.StatusArrived, "Arrive")
}

func (h *BookingHandler) Deliver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.applyStatus(w, r, ps.ByName("ref"), model.StatusDelivered, "Deliver")
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.applyStatus(w, r, ps.ByName("ref"), model.StatusCancelled, "Cancel")
}

func (h *BookingHandler) applyStatus(w http.ResponseWriter, r *http.Request, ref string, status model.BookingStatus, handlerName string) {
	booking, err := h.service.UpdateStatus(r.Context(), ref, status)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", handlerName, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) CreateBulk(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var items []*model.Booking
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateBulk", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	if len(items) == 0 {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Request body must be a non-empty array of bookings",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateBulk", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result := h.service.CreateBulk(r.Context(), items)

	// Partial failure is still a processed request; the breakdown is in the
	// body, not the status code.
	if err := httputil.WriteJSON(w, http.StatusMultiStatus, result); err != nil {
		h.log.Error("failed to write bulk response", "handler", "CreateBulk", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) UpdateStatusBulk(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var updates []model.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateStatusBulk", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	if len(updates) == 0 {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Request body must be a non-empty array of status updates",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateStatusBulk", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result := h.service.UpdateStatusBulk(r.Context(), updates)

	if err := httputil.WriteJSON(w, http.StatusMultiStatus, result); err != nil {
		h.log.Error("failed to write bulk response", "handler", "UpdateStatusBulk", "operation", "WriteJSON", "error", err)
	}
}

// RegisterRoutes binds the booking surface. Bulk endpoints live under
// /bulk because httprouter rejects a static segment alongside the :ref
// wildcard.
func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/:ref", h.GetByRef)
	router.PATCH("/api/v1/bookings/:ref/status", h.UpdateStatus)
	router.POST("/api/v1/bookings/:ref/depart", h.Depart)
	router.POST("/api/v1/bookings/:ref/arrive", h.Arrive)
	router.POST("/api/v1/bookings/:ref/deliver", h.Deliver)
	router.POST("/api/v1/bookings/:ref/cancel", h.Cancel)

	router.POST("/api/v1/bulk/bookings", h.CreateBulk)
	router.PATCH("/api/v1/bulk/bookings/status", h.UpdateStatusBulk)
}
