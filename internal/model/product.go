package model

import "time"

// Product represents a catalog entry as stored in the `products`
// table.  OwnerID is zero when the product was created without an
// owner (ownership disabled); it never changes after creation.
type Product struct {
	ID          uint64    // products.id
	Name        string    // products.name
	Description string    // products.description
	Price       int64     // products.price
	Stock       int64     // products.stock
	Category    string    // products.category
	OwnerID     uint64    // products.owner_id (nullable)
	CreatedAt   time.Time // products.created_at
	UpdatedAt   time.Time // products.updated_at
}

// ProductFields is the set of fields a caller may set on create and
// replace on update.
type ProductFields struct {
	Name        string
	Description string
	Price       int64
	Stock       int64
	Category    string
}

// Fields returns the mutable part of the product.
func (p Product) Fields() ProductFields {
	return ProductFields{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
	}
}

// Apply overwrites every mutable field with f.  Identity, owner and
// creation time are left untouched.
func (p *Product) Apply(f ProductFields) {
	p.Name = f.Name
	p.Description = f.Description
	p.Price = f.Price
	p.Stock = f.Stock
	p.Category = f.Category
}

// HasOwner reports whether an owner was recorded at creation.
func (p Product) HasOwner() bool {
	return p.OwnerID != 0
}
