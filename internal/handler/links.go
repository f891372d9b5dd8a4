package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/shop-api/internal/service"
)

const (
	productsPath = "/api/products"
	profileHref  = "/swagger-ui/index.html"
)

// link is one entry of a HAL-style _links object.
type link struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

type links map[string]link

func productHref(id uint64) string { return productsPath + "/" + strconv.FormatUint(id, 10) }

func baseLinks(id uint64) links {
	return links{
		"self":    {Href: productHref(id)},
		"profile": {Href: profileHref},
	}
}

func (l links) withList() links {
	l["list-products"] = link{Href: pageHref("", 0, service.DefaultPageSize), Type: "GET"}
	return l
}

func (l links) withUpdate(id uint64) links {
	l["update-product"] = link{Href: productHref(id), Type: "PUT"}
	return l
}

func (l links) withDelete(id uint64) links {
	l["delete-product"] = link{Href: productHref(id), Type: "DELETE"}
	return l
}

func pageHref(category string, page, size int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if category != "" {
		q.Set("category", category)
	}
	return productsPath + "?" + q.Encode()
}

// paginationHeader renders an RFC 8288 Link header for a product page.
func paginationHeader(p service.ProductPage) string {
	category := p.Category
	parts := []string{
		fmt.Sprintf(`<%s>; rel="self"`, pageHref(category, p.Page, p.Size)),
	}
	if p.HasNext() {
		parts = append(parts, fmt.Sprintf(`<%s>; rel="next"`, pageHref(category, p.Page+1, p.Size)))
	}
	if p.Page > 0 {
		parts = append(parts, fmt.Sprintf(`<%s>; rel="prev"`, pageHref(category, p.Page-1, p.Size)))
	}
	parts = append(parts, fmt.Sprintf(`<%s>; rel="profile"`, profileHref))
	return strings.Join(parts, ", ")
}
