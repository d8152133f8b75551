package handler

import (
	"net/http"

	"counsel/internal/bookings/service"
	"counsel/pkg/auth"
	httputil "counsel/pkg/http"
	"counsel/pkg/logger"
	"counsel/pkg/model"

	"github.com/julienschmidt/httprouter"
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
	requester, err := auth.Require(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	booking, err := h.service.Create(r.Context(), requester, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, booking)
}

// ListMine returns the requester's bookings as a student.
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.ListForStudent(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, bookings)
}

func (h *BookingHandler) ListForExpert(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dashboard, err := h.service.ListForExpert(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, dashboard)
}

// ListForExpertByID serves the admin view of an expert's bookings.
func (h *BookingHandler) ListForExpertByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dashboard, err := h.service.ListForExpertByID(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, dashboard)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := auth.Require(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var update model.BookingStatusUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		httputil.WriteError(w, err)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), requester, ps.ByName("id"), update.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.ListMine)
	router.PATCH("/api/v1/bookings/id/:id", h.UpdateStatus)
	router.GET("/api/v1/expert/bookings", h.ListForExpert)
	router.GET("/api/v1/admin/experts/id/:id/bookings", h.ListForExpertByID)
}
