package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	cfotel "github.com/Strob0t/customerapi/internal/adapter/otel"
	"github.com/Strob0t/customerapi/internal/adapter/schema"
	"github.com/Strob0t/customerapi/internal/domain"
	"github.com/Strob0t/customerapi/internal/domain/customer"
	"github.com/Strob0t/customerapi/internal/service"
)

// DefaultBodyLimit caps request bodies when Handlers.BodyLimit is unset.
const DefaultBodyLimit = 1 << 20 // 1 MiB

// CustomerService is the service surface the handlers depend on.
type CustomerService interface {
	AddNewCustomer(ctx context.Context, c *customer.Customer) error
	GetCustomer(ctx context.Context, id int64) (*customer.Customer, error)
	Status(ctx context.Context) (service.Status, error)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Customers CustomerService
	Metrics   *cfotel.Metrics
	BodyLimit int64
}

// GetCustomer handles GET /customers/{id}.
func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	raw := urlParam(r, "id")
	if failures := schema.ValidateParams(customer.IDParamsSchema, map[string]string{"id": raw}); failures != nil {
		h.fault(w, r, &domain.ValidationError{Failures: failures})
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fault(w, r, fmt.Errorf("parse validated id %q: %w", raw, err))
		return
	}

	c, err := h.Customers.GetCustomer(r.Context(), id)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCustomer handles POST /customers.
func (h *Handlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, h.bodyLimit())
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if failures := schema.ValidateJSON(customer.CreateSchema, body); failures != nil {
		h.fault(w, r, &domain.ValidationError{Failures: failures})
		return
	}

	var c customer.Customer
	if err := json.Unmarshal(body, &c); err != nil {
		h.fault(w, r, fmt.Errorf("decode validated body: %w", err))
		return
	}
	if err := h.Customers.AddNewCustomer(r.Context(), &c); err != nil {
		h.fault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer.CreatedResponse{Message: customer.MsgCreated})
}

type healthResponse struct {
	Status    string `json:"status"`
	Customers int    `json:"customers"`
	Events    string `json:"events,omitempty"`
	Breaker   string `json:"breaker,omitempty"`
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	st, err := h.Customers.Status(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Customers: st.Records,
		Events:    st.Events,
		Breaker:   st.Breaker,
	})
}

func (h *Handlers) fault(w http.ResponseWriter, r *http.Request, err error) {
	doc := writeFault(w, r, err)
	h.Metrics.Fault(r.Context(), doc.Fault.Code, doc.Fault.HTTPStatus)
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return DefaultBodyLimit
}
