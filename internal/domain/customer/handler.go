package customer

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

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

type registerRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	FullName string `json:"full_name" validate:"max=200"`
}

type customerView struct {
	Phone     string    `json:"phone"`
	FullName  string    `json:"full_name"`
	IsFrozen  bool      `json:"is_frozen"`
	CreatedAt time.Time `json:"created_at"`
}

func toView(c *Customer) customerView {
	return customerView{
		Phone:     c.Phone,
		FullName:  c.FullName,
		IsFrozen:  c.IsFrozen,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.UnprocessableEntity(w, details)
		return
	}

	c, err := h.svc.Register(r.Context(), req.Phone, req.FullName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, toView(c))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, toView(c))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	customers, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]customerView, 0, len(customers))
	for i := range customers {
		views = append(views, toView(&customers[i]))
	}
	response.OK(w, map[string]interface{}{"customers": views})
}

func (h *Handler) Freeze(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Freeze(r.Context(), chi.URLParam(r, "phone")); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]bool{"frozen": true})
}

func (h *Handler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unfreeze(r.Context(), chi.URLParam(r, "phone")); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]bool{"frozen": false})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, phone.ErrInvalidPhone):
		response.BadRequest(w, "invalid phone number")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "customer not found")
	case errors.Is(err, ErrAlreadyExists):
		response.Conflict(w, "customer already exists")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Register)
	r.Get("/", h.List)
	r.Get("/{phone}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(adminMiddleware)
		r.Post("/{phone}/freeze", h.Freeze)
		r.Post("/{phone}/unfreeze", h.Unfreeze)
	})
	return r
}
