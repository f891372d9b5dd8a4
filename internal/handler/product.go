package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/service"
)

// ProductHandler serves /api/products.  When links is set, single-product
// responses carry _links and listings a Link header.
type ProductHandler struct {
	svc   *service.ProductService
	links bool
}

func NewProductHandler(svc *service.ProductService, links bool) *ProductHandler {
	return &ProductHandler{svc: svc, links: links}
}

type productReq struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"gte=0"`
	Stock       int64  `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"required,max=100"`
}

func (r productReq) fields() model.ProductFields {
	return model.ProductFields{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Category:    r.Category,
	}
}

type productView struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int64  `json:"stock"`
	Category    string `json:"category"`
	OwnerID     uint64 `json:"ownerId,omitempty"`
	Links       links  `json:"_links,omitempty"`
}

func toView(p *model.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		OwnerID:     p.OwnerID,
	}
}

// List handles GET /api/products?category=&page=&size=.
func (h *ProductHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		return err
	}
	size, err := queryInt(c, "size", service.DefaultPageSize)
	if err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.svc.List(ctx, repository.ProductQuery{Category: c.QueryParam("category"), Page: page, Size: size})
	if err != nil {
		return err
	}

	out := make([]productView, 0, len(res.Items))
	for i := range res.Items {
		out = append(out, toView(&res.Items[i]))
	}
	c.Response().Header().Set("X-Total-Count", strconv.FormatInt(res.Total, 10))
	if h.links {
		c.Response().Header().Set("Link", paginationHeader(res))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/products/:id.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	v := toView(p)
	if h.links {
		v.Links = baseLinks(p.ID)
	}
	return c.JSON(http.StatusOK, v)
}

// Create handles POST /api/products.
func (h *ProductHandler) Create(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	var req productReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.svc.Create(ctx, req.fields(), uid)
	if err != nil {
		return err
	}
	v := toView(p)
	if h.links {
		v.Links = baseLinks(p.ID).withList().withUpdate(p.ID).withDelete(p.ID)
	}
	c.Response().Header().Set(echo.HeaderLocation, productHref(p.ID))
	return c.JSON(http.StatusCreated, v)
}

// Update handles PUT /api/products/:id.
func (h *ProductHandler) Update(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req productReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.svc.Update(ctx, id, req.fields(), uid)
	if err != nil {
		return err
	}
	v := toView(p)
	if h.links {
		v.Links = baseLinks(p.ID).withList()
		if h.svc.CanModify(*p, uid) {
			v.Links.withDelete(p.ID)
		}
	}
	return c.JSON(http.StatusOK, v)
}

// Delete handles DELETE /api/products/:id and returns the removed product.
func (h *ProductHandler) Delete(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.svc.Delete(ctx, id, uid)
	if err != nil {
		return err
	}
	v := toView(p)
	if h.links {
		v.Links = baseLinks(p.ID).withList()
	}
	return c.JSON(http.StatusOK, v)
}
