package waterfall

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

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
	r.Get("/", h.Report)
	r.Get("/export", h.Export)
}

func (h *Handler) parse(r *http.Request) (int64, time.Time, time.Time, string) {
	orgID, _ := strconv.ParseInt(r.URL.Query().Get("org"), 10, 64)
	if orgID == 0 {
		return 0, time.Time{}, time.Time{}, "org query parameter required"
	}
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, "from must be YYYY-MM-DD"
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, "to must be YYYY-MM-DD"
	}
	return orgID, from, to, ""
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	orgID, from, to, problem := h.parse(r)
	if problem != "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", problem)
		return
	}
	report, err := h.service.Report(r.Context(), orgID, from, to)
	if err != nil {
		h.logger.Error("waterfall report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	orgID, from, to, problem := h.parse(r)
	if problem != "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", problem)
		return
	}
	report, err := h.service.Report(r.Context(), orgID, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="revenue-waterfall.csv"`)
	if err := WriteCSV(w, report); err != nil {
		h.logger.Error("waterfall export", slog.Any("error", err))
	}
}
