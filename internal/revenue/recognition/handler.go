package recognition

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-fin/meridian-fin/internal/platform/httpx"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/run", h.Run)
	r.Post("/lines/{id}/post", h.PostLine)
}

type runRequest struct {
	OrgID  int64  `json:"org_id"`
	AsOf   string `json:"as_of"`
	DryRun bool   `json:"dry_run"`
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	var asOf time.Time
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	result, err := h.service.Run(r.Context(), RunInput{
		OrgID:   req.OrgID,
		AsOf:    asOf,
		ActorID: internalShared.ActorFromContext(r.Context()),
		DryRun:  req.DryRun,
	})
	if err != nil {
		h.logger.Error("recognition run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) PostLine(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	posted, err := h.service.PostRecognition(r.Context(), id, internalShared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entry_id": posted.EntryID, "entry_number": posted.Number})
}
