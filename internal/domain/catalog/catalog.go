// Package catalog models the read-side of the marketplace: products with
// their cultural context, the artisans who make them, the partner storefronts
// that sell them, and the per-partner offerings that orders resolve against.
package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Lookup errors.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrPartnerNotFound = errors.New("partner not found")
	ErrArtisanNotFound = errors.New("artisan not found")
)

// OfferingNotFoundError indicates that a partner does not list a product.
type OfferingNotFoundError struct {
	ProductID string
	PartnerID string
}

func (e *OfferingNotFoundError) Error() string {
	return fmt.Sprintf("product %s is not offered by partner %s", e.ProductID, e.PartnerID)
}

// Product is a catalog entry. The artisan, category and region fields are
// denormalized for display; Story is present only when the product carries a
// cultural story.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Materials   string
	Dimensions  string
	Weight      string
	GITagged    bool
	ArtisanID   string
	ArtisanName string
	CategoryID  string
	Category    string
	RegionID    string
	Region      string
	State       string
	Story       *Story
}

// Story is the cultural background attached to a product.
type Story struct {
	Title        string
	Content      string
	History      string
	Significance string
}

// Artisan is a craftsperson whose products appear in the catalog.
type Artisan struct {
	ID          string
	Name        string
	Location    string
	CraftType   string
	Bio         string
	YearsActive int
	RegionID    string
	ImageURL    string
}

// Partner is a storefront that lists products. CommissionRate is the
// percentage (0 to 100) the platform keeps from each sale through this
// partner.
type Partner struct {
	ID             string
	Name           string
	WebsiteURL     string
	Description    string
	CommissionRate decimal.Decimal
	Rating         decimal.Decimal
	ReviewCount    int
	ProductCount   int
}

// Offering is a partner's listing of a product: its price, shipping terms and
// availability. Orders price line items against offerings, never against the
// product's base price.
type Offering struct {
	ProductID         string
	PartnerID         string
	PartnerName       string
	Price             decimal.Decimal
	ShippingFee       decimal.Decimal
	Available         bool
	EstimatedDelivery string
}

// ProductFilter narrows a product listing. Zero-valued fields are ignored;
// Query matches name and description case-insensitively.
type ProductFilter struct {
	CategoryID string
	RegionID   string
	ArtisanID  string
	Query      string
}

// Page is a 1-based pagination request.
type Page struct {
	Number  int
	PerPage int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// TotalPages returns the page count for total rows.
func (p Page) TotalPages(total int) int {
	if p.PerPage <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}

// Repository defines read operations over the catalog. List methods return
// the page of results plus the total match count.
type Repository interface {
	ListProducts(ctx context.Context, filter ProductFilter, page Page) ([]Product, int, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListOfferings(ctx context.Context, productID string) ([]Offering, error)
	// FindOffering resolves the unique offering for a (product, partner)
	// pair. Returns OfferingNotFoundError when the partner does not list the
	// product.
	FindOffering(ctx context.Context, productID, partnerID string) (*Offering, error)
	ListPartners(ctx context.Context, page Page) ([]Partner, int, error)
	GetPartner(ctx context.Context, id string) (*Partner, error)
	ListArtisans(ctx context.Context, page Page) ([]Artisan, int, error)
	GetArtisan(ctx context.Context, id string) (*Artisan, error)
}
