// Package catalog holds the product and promotional-offer model plus the
// pricing and application strategies the checkout pass dispatches on.
package catalog

import (
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/money"
	"github.com/NawarAli1912/EStore.API-sub000/internal/errs"
	"github.com/google/uuid"
)

var (
	ErrInsufficientStock = errs.Validation("product.insufficient_stock", "not enough stock for the requested quantity")
	ErrProductInactive   = errs.Validation("product.inactive", "product is not active")
)

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "ACTIVE"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
	ProductStatusDeleted    ProductStatus = "DELETED"
)

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       money.Money
	Quantity    int
	Status      ProductStatus
	Version     int // optimistic concurrency token
	UpdatedAt   time.Time
}

func NewProduct(name, description string, price money.Money, quantity int) *Product {
	status := ProductStatusActive
	if quantity == 0 {
		status = ProductStatusOutOfStock
	}
	return &Product{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		Status:      status,
		UpdatedAt:   time.Now().UTC(),
	}
}

func (p *Product) Active() bool {
	return p.Status == ProductStatusActive
}

// DecreaseStock reserves n units. Validate before mutating so a failed call
// leaves the product untouched.
func (p *Product) DecreaseStock(n int) error {
	if !p.Active() {
		return ErrProductInactive
	}
	if p.Quantity < n {
		return ErrInsufficientStock
	}
	p.Quantity -= n
	if p.Quantity == 0 {
		p.Status = ProductStatusOutOfStock
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IncreaseStock returns n units, reviving an out-of-stock product. Deleted
// products keep their status; the stock still comes back for bookkeeping.
func (p *Product) IncreaseStock(n int) {
	p.Quantity += n
	if p.Status == ProductStatusOutOfStock && p.Quantity > 0 {
		p.Status = ProductStatusActive
	}
	p.UpdatedAt = time.Now().UTC()
}
