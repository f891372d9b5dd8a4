package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/queue"
	"github.com/iliyamo/shop-api/internal/repository"
)

// ProductStore is the persistence contract of the product flow.  Update and
// Delete run authorize against the current row inside the same atomic unit
// as the write.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context, q repository.ProductQuery) ([]model.Product, int64, error)
	Update(ctx context.Context, id uint64, f model.ProductFields, authorize repository.Authorizer) (*model.Product, error)
	Delete(ctx context.Context, id uint64, authorize repository.Authorizer) (*model.Product, error)
}

// EventPublisher receives product events after a mutation commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ProductEvent) error
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	maxNameLen        = 255
	maxDescriptionLen = 2000
	maxCategoryLen    = 100
)

// ProductPage is one page of a product listing.  Category is the filter as
// applied, after trimming.
type ProductPage struct {
	Items    []model.Product
	Total    int64
	Category string
	Page     int
	Size     int
}

// HasNext reports whether a page follows this one.
func (p ProductPage) HasNext() bool {
	if p.Size <= 0 || p.Total <= 0 {
		return false
	}
	pages := (p.Total-1)/int64(p.Size) + 1
	return int64(p.Page) < pages-1
}

// ProductService implements catalog reads and owner-checked mutations.
type ProductService struct {
	store        ProductStore
	enforceOwner bool
	events       EventPublisher
	log          zerolog.Logger
	now          func() time.Time
}

type ProductOption func(*ProductService)

// WithEvents publishes an event for every successful mutation.
func WithEvents(p EventPublisher) ProductOption {
	return func(s *ProductService) { s.events = p }
}

func WithLogger(l zerolog.Logger) ProductOption {
	return func(s *ProductService) { s.log = l }
}

// NewProductService builds the product flow.  With enforceOwner false,
// products are created without an owner and any authenticated caller may
// update or delete them.
func NewProductService(store ProductStore, enforceOwner bool, opts ...ProductOption) *ProductService {
	s := &ProductService{
		store:        store,
		enforceOwner: enforceOwner,
		log:          zerolog.Nop(),
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OwnershipEnforced reports the configured ownership variant.
func (s *ProductService) OwnershipEnforced() bool { return s.enforceOwner }

func (s *ProductService) List(ctx context.Context, q repository.ProductQuery) (ProductPage, error) {
	q.Category = strings.TrimSpace(q.Category)
	fe := fieldErrors{}
	if q.Page < 0 {
		fe.add("page", "must be zero or greater")
	}
	if q.Size < 1 || q.Size > MaxPageSize {
		fe.add("size", fmt.Sprintf("must be between 1 and %d", MaxPageSize))
	}
	if err := fe.err(); err != nil {
		return ProductPage{}, err
	}

	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	return ProductPage{Items: items, Total: total, Category: q.Category, Page: q.Page, Size: q.Size}, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, productErr("get product", err)
	}
	return p, nil
}

// Create stores a new product.  ownerID is recorded only when ownership is
// enforced.
func (s *ProductService) Create(ctx context.Context, f model.ProductFields, ownerID uint64) (*model.Product, error) {
	f, err := normalizeFields(f)
	if err != nil {
		return nil, err
	}
	p := &model.Product{}
	p.Apply(f)
	if s.enforceOwner {
		p.OwnerID = ownerID
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.publish(ctx, queue.EventProductCreated, p, ownerID)
	return p, nil
}

// Update replaces all mutable fields of product id on behalf of callerID.
func (s *ProductService) Update(ctx context.Context, id uint64, f model.ProductFields, callerID uint64) (*model.Product, error) {
	f, err := normalizeFields(f)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Update(ctx, id, f, s.authorizer(callerID))
	if err != nil {
		return nil, productErr("update product", err)
	}
	s.publish(ctx, queue.EventProductUpdated, p, callerID)
	return p, nil
}

// Delete removes product id on behalf of callerID and returns the product
// as it was immediately before removal.
func (s *ProductService) Delete(ctx context.Context, id uint64, callerID uint64) (*model.Product, error) {
	p, err := s.store.Delete(ctx, id, s.authorizer(callerID))
	if err != nil {
		return nil, productErr("delete product", err)
	}
	s.publish(ctx, queue.EventProductDeleted, p, callerID)
	return p, nil
}

// CanModify reports whether callerID passes the ownership check for p.
func (s *ProductService) CanModify(p model.Product, callerID uint64) bool {
	return !s.enforceOwner || (callerID != 0 && p.OwnerID == callerID)
}

func (s *ProductService) authorizer(callerID uint64) repository.Authorizer {
	if !s.enforceOwner {
		return nil
	}
	return func(current model.Product) error {
		if !s.CanModify(current, callerID) {
			return ErrAccessDenied
		}
		return nil
	}
}

func (s *ProductService) publish(ctx context.Context, typ string, p *model.Product, actorID uint64) {
	if s.events == nil {
		return
	}
	ev := queue.NewProductEvent(typ, *p, actorID, s.now())
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", typ).Uint64("product_id", p.ID).Msg("product event dropped")
	}
}

func productErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrProductNotFound
	case errors.Is(err, ErrAccessDenied):
		return ErrAccessDenied
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeFields(f model.ProductFields) (model.ProductFields, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Category = strings.TrimSpace(f.Category)

	fe := fieldErrors{}
	switch {
	case f.Name == "":
		fe.add("name", "is required")
	case utf8.RuneCountInString(f.Name) > maxNameLen:
		fe.add("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	if utf8.RuneCountInString(f.Description) > maxDescriptionLen {
		fe.add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
	}
	if f.Price < 0 {
		fe.add("price", "must be zero or greater")
	}
	if f.Stock < 0 {
		fe.add("stock", "must be zero or greater")
	}
	switch {
	case f.Category == "":
		fe.add("category", "is required")
	case utf8.RuneCountInString(f.Category) > maxCategoryLen:
		fe.add("category", fmt.Sprintf("must be at most %d characters", maxCategoryLen))
	}
	return f, fe.err()
}
