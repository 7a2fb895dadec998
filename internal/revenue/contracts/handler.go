package contracts

import (
	"context"
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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/activate", h.Activate)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/complete", h.Complete)
	r.Delete("/{id}", h.Delete)
}

type lineRequest struct {
	Description       string `json:"description"`
	ProductType       string `json:"product_type"`
	Pattern           string `json:"pattern" validate:"required"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	Quantity          string `json:"quantity"`
	UnitPrice         string `json:"unit_price"`
	SSPAmount         string `json:"ssp_amount"`
	RevenueAccountID  *int64 `json:"revenue_account_id"`
	DeferredAccountID *int64 `json:"deferred_account_id"`
}

type contractRequest struct {
	OrgID      int64         `json:"org_id"`
	CustomerID int64         `json:"customer_id"`
	Name       string        `json:"name" validate:"required"`
	Currency   string        `json:"currency"`
	TotalPrice string        `json:"total_price" validate:"required"`
	StartDate  string        `json:"start_date" validate:"required"`
	EndDate    string        `json:"end_date"`
	Lines      []lineRequest `json:"lines"`
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toLineInputs(reqs []lineRequest) ([]LineInput, error) {
	lines := make([]LineInput, 0, len(reqs))
	for _, lr := range reqs {
		quantity, err := parseAmount(lr.Quantity)
		if err != nil {
			return nil, err
		}
		unitPrice, err := parseAmount(lr.UnitPrice)
		if err != nil {
			return nil, err
		}
		ssp, err := parseAmount(lr.SSPAmount)
		if err != nil {
			return nil, err
		}
		start, err := parseDate(lr.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := parseDate(lr.EndDate)
		if err != nil {
			return nil, err
		}
		lines = append(lines, LineInput{
			Description:       lr.Description,
			ProductType:       lr.ProductType,
			Pattern:           RecognitionPattern(lr.Pattern),
			StartDate:         start,
			EndDate:           end,
			Quantity:          quantity,
			UnitPrice:         unitPrice,
			SSPAmount:         ssp,
			RevenueAccountID:  lr.RevenueAccountID,
			DeferredAccountID: lr.DeferredAccountID,
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
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	contracts, pagination, err := h.service.List(r.Context(), orgID, page, perPage)
	if err != nil {
		h.logger.Error("list contracts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contracts": contracts, "pagination": pagination})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	contract, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := h.toCreateInput(r, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	contract, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, contract)
}

func (h *Handler) toCreateInput(r *http.Request, req contractRequest) (CreateContractInput, error) {
	total, err := parseAmount(req.TotalPrice)
	if err != nil {
		return CreateContractInput{}, err
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return CreateContractInput{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return CreateContractInput{}, err
	}
	lines, err := toLineInputs(req.Lines)
	if err != nil {
		return CreateContractInput{}, err
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	return CreateContractInput{
		OrgID:      req.OrgID,
		CustomerID: req.CustomerID,
		Name:       req.Name,
		Currency:   currency,
		TotalPrice: total,
		StartDate:  start,
		EndDate:    end,
		ActorID:    internalShared.ActorFromContext(r.Context()),
		Lines:      lines,
	}, nil
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req contractRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	in, err := h.toCreateInput(r, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	contract, err := h.service.UpdateDraft(r.Context(), UpdateContractInput{
		ContractID: id,
		Name:       in.Name,
		TotalPrice: in.TotalPrice,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		ActorID:    in.ActorID,
		Lines:      in.Lines,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Activate)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64, actor int64) (Contract, error)) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	contract, err := fn(r.Context(), id, internalShared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
