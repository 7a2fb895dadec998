package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian-fin/internal/platform/httpx"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type lineRequest struct {
	AccountID   int64   `json:"account_id" validate:"required"`
	Debit       string  `json:"debit"`
	Credit      string  `json:"credit"`
	Description string  `json:"description"`
	Department  *string `json:"department"`
	Project     *string `json:"project"`
	Class       *string `json:"class"`
	Location    *string `json:"location"`
}

type createEntryRequest struct {
	OrgID       int64         `json:"org_id" validate:"required"`
	EntryDate   string        `json:"entry_date" validate:"required"`
	Description string        `json:"description"`
	Lines       []lineRequest `json:"lines"`
}

type updateEntryRequest struct {
	EntryDate   string        `json:"entry_date"`
	Description string        `json:"description"`
	Lines       []lineRequest `json:"lines"`
}

type voidEntryRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func toLineInputs(reqs []lineRequest) ([]LineInput, error) {
	lines := make([]LineInput, 0, len(reqs))
	for _, lr := range reqs {
		debit, err := parseAmount(lr.Debit)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount(lr.Credit)
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineInput{
			AccountID:   lr.AccountID,
			Debit:       debit,
			Credit:      credit,
			Description: lr.Description,
			Department:  lr.Department,
			Project:     lr.Project,
			Class:       lr.Class,
			Location:    lr.Location,
		})
	}
	return lines, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, _ := strconv.ParseInt(r.URL.Query().Get("org"), 10, 64)
	if orgID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "org query parameter required")
		return
	}
	status := EntryStatus(r.URL.Query().Get("status"))
	entries, err := h.service.List(r.Context(), orgID, status)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entryDate, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry_date must be YYYY-MM-DD")
		return
	}
	lines, err := toLineInputs(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amounts must be decimal strings")
		return
	}
	entry, err := h.service.CreateDraft(r.Context(), CreateEntryInput{
		OrgID:       req.OrgID,
		EntryDate:   entryDate,
		Description: req.Description,
		CreatedBy:   internalShared.ActorFromContext(r.Context()),
		Lines:       lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req updateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	var entryDate time.Time
	if req.EntryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry_date must be YYYY-MM-DD")
			return
		}
		entryDate = parsed
	}
	lines, err := toLineInputs(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amounts must be decimal strings")
		return
	}
	entry, err := h.service.UpdateDraft(r.Context(), UpdateEntryInput{
		EntryID:     id,
		EntryDate:   entryDate,
		Description: req.Description,
		Lines:       lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	entry, err := h.service.Post(r.Context(), PostInput{
		EntryID: id,
		ActorID: internalShared.ActorFromContext(r.Context()),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req voidEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Void(r.Context(), VoidInput{
		EntryID: id,
		ActorID: internalShared.ActorFromContext(r.Context()),
		Reason:  req.Reason,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
