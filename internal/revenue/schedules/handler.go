package schedules

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-fin/meridian-fin/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// List looks up schedules by contract or by contract line.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if lineID, _ := strconv.ParseInt(r.URL.Query().Get("line"), 10, 64); lineID != 0 {
		schedule, err := h.service.GetByContractLine(r.Context(), lineID)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"schedules": []Schedule{schedule}})
		return
	}
	contractID, _ := strconv.ParseInt(r.URL.Query().Get("contract"), 10, 64)
	if contractID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "contract or line query parameter required")
		return
	}
	out, err := h.service.ListByContract(r.Context(), contractID)
	if err != nil {
		h.logger.Error("list schedules", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"schedules": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	schedule, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, schedule)
}
