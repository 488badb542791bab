package wallet

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/livesale/livesale-api/internal/middleware"
	"github.com/livesale/livesale-api/internal/pkg/phone"
	"github.com/livesale/livesale-api/internal/pkg/response"
	"github.com/livesale/livesale-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type depositRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	SourceType  string `json:"source_type" validate:"omitempty,source_type"`
	Description string `json:"description" validate:"max=500"`
}

type withdrawRequest struct {
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	OrderID string `json:"order_id" validate:"max=100"`
	Note    string `json:"note" validate:"max=500"`
}

type issueCreditRequest struct {
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	ExpiryDays int    `json:"expiry_days" validate:"required,gt=0,lte=3650"`
	SourceType string `json:"source_type" validate:"required,source_type"`
	SourceNote string `json:"source_note" validate:"max=500"`
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	key, ok := h.phoneParam(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.UnprocessableEntity(w, details)
		return
	}

	res, err := h.svc.Deposit(r.Context(), key, req.Amount, SourceType(req.SourceType), req.Description, h.actor(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	key, ok := h.phoneParam(w, r)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.UnprocessableEntity(w, details)
		return
	}

	res, err := h.svc.Withdraw(r.Context(), key, req.Amount, req.OrderID, req.Note, h.actor(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) IssueCredit(w http.ResponseWriter, r *http.Request) {
	key, ok := h.phoneParam(w, r)
	if !ok {
		return
	}

	var req issueCreditRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.UnprocessableEntity(w, details)
		return
	}

	res, err := h.svc.IssueVirtualCredit(r.Context(), key, req.Amount, req.ExpiryDays, SourceType(req.SourceType), req.SourceNote, h.actor(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, res)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	key, ok := h.phoneParam(w, r)
	if !ok {
		return
	}

	res, err := h.svc.GetBalance(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	key, ok := h.phoneParam(w, r)
	if !ok {
		return
	}

	credits, err := h.svc.ListCredits(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"credits": toCreditViews(credits)})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	key, ok := h.phoneParam(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := h.svc.ListTransactions(r.Context(), key, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"transactions": toTransactionViews(txns)})
}

func (h *Handler) SearchTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := SearchFilters{}
	if v := q.Get("phone"); v != "" {
		normalized, err := phone.Normalize(v)
		if err != nil {
			response.BadRequest(w, "invalid phone number")
			return
		}
		filters.Phone = &normalized
	}
	if v := q.Get("type"); v != "" {
		filters.Type = &v
	}
	if v := q.Get("order_id"); v != "" {
		filters.OrderID = &v
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid from timestamp, expected RFC3339")
			return
		}
		filters.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "invalid to timestamp, expected RFC3339")
			return
		}
		filters.To = &t
	}
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	filters.Offset, _ = strconv.Atoi(q.Get("offset"))

	txns, err := h.svc.SearchTransactions(r.Context(), filters)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"transactions": toTransactionViews(txns)})
}

func (h *Handler) phoneParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	normalized, err := phone.Normalize(chi.URLParam(r, "phone"))
	if err != nil {
		response.BadRequest(w, "invalid phone number")
		return "", false
	}
	return normalized, true
}

func (h *Handler) actor(r *http.Request) Actor {
	return Actor{
		ID:   middleware.GetStaffID(r.Context()),
		Role: middleware.GetRole(r.Context()),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidSourceType),
		errors.Is(err, ErrInvalidExpiry):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrWalletNotFound):
		response.NotFound(w, "wallet not found for this phone")
	case errors.Is(err, ErrInsufficientBalance):
		response.Conflict(w, "insufficient balance")
	case errors.Is(err, ErrWalletFrozen):
		response.Conflict(w, "wallet is frozen")
	case errors.Is(err, ErrLockTimeout):
		response.ServiceUnavailable(w, "wallet is busy, retry later")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/transactions", h.SearchTransactions)
	r.Route("/{phone}", func(r chi.Router) {
		r.Post("/deposit", h.Deposit)
		r.Post("/withdraw", h.Withdraw)
		r.Post("/credits", h.IssueCredit)
		r.Get("/credits", h.ListCredits)
		r.Get("/balance", h.Balance)
		r.Get("/transactions", h.ListTransactions)
	})
	return r
}
