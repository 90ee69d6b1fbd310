// Package service implements business logic on top of ports.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	cfotel "github.com/Strob0t/customerapi/internal/adapter/otel"
	"github.com/Strob0t/customerapi/internal/domain"
	"github.com/Strob0t/customerapi/internal/domain/customer"
	"github.com/Strob0t/customerapi/internal/logger"
	"github.com/Strob0t/customerapi/internal/port/cache"
	"github.com/Strob0t/customerapi/internal/port/entitystore"
	"github.com/Strob0t/customerapi/internal/port/messagequeue"
	"github.com/Strob0t/customerapi/internal/resilience"
)

// EventsDisabled is reported by Status when no publisher is configured.
const EventsDisabled = "disabled"

// DefaultPublishTimeout bounds how long a request waits on an event publish.
const DefaultPublishTimeout = 2 * time.Second

// Status summarizes the service dependencies for health reporting.
type Status struct {
	Records int    `json:"records"`
	Events  string `json:"events"`
	Breaker string `json:"breaker,omitempty"`
}

// CustomerService handles customer business logic. Every error it returns is
// either a *domain.Fault or a *domain.ValidationError; anything else coming
// from below is logged and masked.
type CustomerService struct {
	store    entitystore.Store
	cache    cache.Cache
	cacheTTL time.Duration
	events   messagequeue.Publisher
	breaker  *resilience.Breaker
	metrics  *cfotel.Metrics
	lookups  singleflight.Group
	now      func() time.Time

	// publishTimeout caps each publish. It is detached from request
	// cancellation so a client hang-up does not drop the event of a durable write.
	publishTimeout time.Duration
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(store entitystore.Store) *CustomerService {
	return &CustomerService{store: store, publishTimeout: DefaultPublishTimeout, now: time.Now}
}

// SetCache enables the read-through cache for GetCustomer.
func (s *CustomerService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// SetEvents enables best-effort event publishing. b may be nil.
func (s *CustomerService) SetEvents(p messagequeue.Publisher, b *resilience.Breaker) {
	s.events = p
	s.breaker = b
}

// SetPublishTimeout changes the per-event publish deadline. Non-positive
// values keep the current one.
func (s *CustomerService) SetPublishTimeout(d time.Duration) {
	if d > 0 {
		s.publishTimeout = d
	}
}

// SetMetrics sets the metric instruments. A nil value disables metrics.
func (s *CustomerService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// AddNewCustomer stores c keyed by its employee id.
func (s *CustomerService) AddNewCustomer(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return s.classify(ctx, "add new customer", errors.New("nil customer"))
	}
	ctx, span := cfotel.StartServiceSpan(ctx, "add", c.EmployeeID)
	defer span.End()

	content, err := json.Marshal(c)
	if err != nil {
		return s.classify(ctx, "add new customer", err)
	}
	if err := s.store.Add(ctx, c.EmployeeID, content); err != nil {
		return s.classify(ctx, "add new customer", err)
	}

	s.metrics.Created(ctx)
	s.cachePut(ctx, c.EmployeeID, content)
	s.publish(ctx, messagequeue.SubjectCustomerCreated, messagequeue.CustomerCreatedPayload{
		EmployeeID: c.EmployeeID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		RequestID:  logger.RequestID(ctx),
		CreatedAt:  s.now().UTC(),
	})
	return nil
}

// GetCustomer returns the customer stored under id. A missing record is a
// client fault.
func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*customer.Customer, error) {
	ctx, span := cfotel.StartServiceSpan(ctx, "get", id)
	defer span.End()

	if c, ok := s.cacheGet(ctx, id); ok {
		s.metrics.CacheHit(ctx)
		s.metrics.Lookup(ctx, "found")
		return c, nil
	}

	// Concurrent misses for the same id share one store read. The shared
	// call must not be cancelled by whichever caller happened to start it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.lookups.Do(cacheKey(id), func() (any, error) {
		rec, ok, err := s.store.Get(shared, id)
		if err != nil || !ok {
			return nil, err
		}
		return rec.Content, nil
	})
	if err != nil {
		s.metrics.Lookup(ctx, "error")
		return nil, s.classify(ctx, "get customer", err)
	}

	content, _ := v.(json.RawMessage)
	if content == nil {
		s.metrics.Lookup(ctx, "not_found")
		return nil, domain.ClientFault(customer.MsgNotFound)
	}

	c, err := decodeCustomer(content)
	if err != nil {
		s.metrics.Lookup(ctx, "error")
		return nil, s.classify(ctx, "get customer", fmt.Errorf("decode id %d: %w", id, err))
	}
	s.metrics.Lookup(ctx, "found")
	s.cachePut(ctx, id, content)
	return c, nil
}

// Reset removes every customer and returns how many were removed.
func (s *CustomerService) Reset(ctx context.Context) (int, error) {
	ctx, span := cfotel.StartServiceSpan(ctx, "reset", 0)
	defer span.End()

	n, err := s.store.Len(ctx)
	if err != nil {
		return 0, s.classify(ctx, "reset", err)
	}
	if err := s.store.DeleteAll(ctx); err != nil {
		return 0, s.classify(ctx, "reset", err)
	}
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			slog.WarnContext(ctx, "cache clear failed", "error", err)
		}
	}
	s.publish(ctx, messagequeue.SubjectCustomersReset, messagequeue.CustomersResetPayload{
		Removed: n,
		ResetAt: s.now().UTC(),
	})
	slog.InfoContext(ctx, "customers reset", "removed", n)
	return n, nil
}

// Status reports the record count and the state of the event publisher.
func (s *CustomerService) Status(ctx context.Context) (Status, error) {
	n, err := s.store.Len(ctx)
	if err != nil {
		return Status{}, s.classify(ctx, "status", err)
	}
	st := Status{Records: n, Events: EventsDisabled}
	if s.events != nil {
		st.Events = "disconnected"
		if s.events.IsConnected() {
			st.Events = "connected"
		}
	}
	if s.breaker != nil {
		st.Breaker = s.breaker.State()
	}
	return st, nil
}

// classify passes faults and validation errors through unchanged and masks
// everything else as an internal server fault.
func (s *CustomerService) classify(ctx context.Context, op string, err error) error {
	if _, ok := domain.AsFault(err); ok {
		return err
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	slog.ErrorContext(ctx, "unclassified error", "op", op, "error", err)
	return domain.WrapServerFault(customer.MsgInternal, err)
}

func (s *CustomerService) cacheGet(ctx context.Context, id int64) (*customer.Customer, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, cacheKey(id))
	if err != nil {
		slog.WarnContext(ctx, "cache get failed", "id", id, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	c, err := decodeCustomer(data)
	if err != nil {
		slog.WarnContext(ctx, "cache entry unreadable", "id", id, "error", err)
		_ = s.cache.Delete(ctx, cacheKey(id))
		return nil, false
	}
	return c, true
}

func (s *CustomerService) cachePut(ctx context.Context, id int64, content []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(id), content, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "cache set failed", "id", id, "error", err)
	}
}

// publish emits an event through the breaker within publishTimeout.
// Failures are logged only.
func (s *CustomerService) publish(ctx context.Context, subject string, payload any) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.WarnContext(ctx, "event encode failed", "subject", subject, "error", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	send := func() error { return s.events.Publish(pubCtx, subject, data) }
	if s.breaker != nil {
		err = s.breaker.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		slog.WarnContext(ctx, "event publish failed", "subject", subject, "error", err)
	}
}

func cacheKey(id int64) string {
	return "customer:" + strconv.FormatInt(id, 10)
}

func decodeCustomer(data []byte) (*customer.Customer, error) {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil, errors.New("record has no content")
	}
	var c customer.Customer
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
