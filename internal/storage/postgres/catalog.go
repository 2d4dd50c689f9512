package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

const (
	productColumns = `p.product_id, p.name, p.description, p.price, p.materials, p.dimensions, p.weight, p.is_gi_tagged,
		COALESCE(p.artisan_id, ''), COALESCE(a.name, ''),
		COALESCE(p.category_id, ''), COALESCE(c.name, ''),
		COALESCE(p.region_id, ''), COALESCE(r.name, ''), COALESCE(r.state, '')`

	productJoins = `FROM products p
		LEFT JOIN artisans a ON p.artisan_id = a.artisan_id
		LEFT JOIN categories c ON p.category_id = c.category_id
		LEFT JOIN regions r ON p.region_id = r.region_id`

	getProductSQL = `SELECT ` + productColumns + `,
		s.title, s.content, s.history, s.cultural_significance
		` + productJoins + `
		LEFT JOIN cultural_stories s ON p.story_id = s.story_id
		WHERE p.product_id = $1`

	listOfferingsSQL = `SELECT pp.product_id, pp.partner_id, ps.name, pp.price, pp.shipping_fee,
		pp.availability, pp.estimated_delivery
		FROM product_partner pp
		JOIN partner_sites ps ON pp.partner_id = ps.partner_id
		WHERE pp.product_id = $1
		ORDER BY pp.price ASC`

	findOfferingSQL = `SELECT pp.product_id, pp.partner_id, ps.name, pp.price, pp.shipping_fee,
		pp.availability, pp.estimated_delivery
		FROM product_partner pp
		JOIN partner_sites ps ON pp.partner_id = ps.partner_id
		WHERE pp.product_id = $1 AND pp.partner_id = $2`

	partnerColumns = `ps.partner_id, ps.name, ps.website_url, ps.description, ps.commission_rate,
		ps.rating, ps.review_count, COUNT(DISTINCT pp.product_id)::int`

	listPartnersSQL = `SELECT ` + partnerColumns + `
		FROM partner_sites ps
		LEFT JOIN product_partner pp ON ps.partner_id = pp.partner_id
		GROUP BY ps.partner_id
		ORDER BY ps.name
		LIMIT $1 OFFSET $2`

	countPartnersSQL = `SELECT COUNT(*) FROM partner_sites`

	getPartnerSQL = `SELECT ` + partnerColumns + `
		FROM partner_sites ps
		LEFT JOIN product_partner pp ON ps.partner_id = pp.partner_id
		WHERE ps.partner_id = $1
		GROUP BY ps.partner_id`

	artisanColumns = `artisan_id, name, location, craft_type, bio, years_active, COALESCE(region_id, ''), image_url`

	listArtisansSQL = `SELECT ` + artisanColumns + ` FROM artisans ORDER BY name LIMIT $1 OFFSET $2`

	countArtisansSQL = `SELECT COUNT(*) FROM artisans`

	getArtisanSQL = `SELECT ` + artisanColumns + ` FROM artisans WHERE artisan_id = $1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListProducts returns one page of products matching the filter, plus the
// total match count. All filter values are passed as bound parameters.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter catalog.ProductFilter, page catalog.Page) ([]catalog.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.CategoryID != "" {
		add("p.category_id = $%d", filter.CategoryID)
	}
	if filter.RegionID != "" {
		add("p.region_id = $%d", filter.RegionID)
	}
	if filter.ArtisanID != "" {
		add("p.artisan_id = $%d", filter.ArtisanID)
	}
	if filter.Query != "" {
		args = append(args, filter.Query)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE '%%' || $%d || '%%' OR p.description ILIKE '%%' || $%d || '%%')", n, n))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", where)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY p.name LIMIT $%d OFFSET $%d`,
		productColumns, productJoins, where, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	return products, total, nil
}

// GetProduct returns a single product with its cultural story, if any.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var (
		p                                     catalog.Product
		title, content, history, significance *string
	)
	err := r.pool.QueryRow(ctx, getProductSQL, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Materials, &p.Dimensions, &p.Weight, &p.GITagged,
		&p.ArtisanID, &p.ArtisanName, &p.CategoryID, &p.Category, &p.RegionID, &p.Region, &p.State,
		&title, &content, &history, &significance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	if title != nil {
		p.Story = &catalog.Story{
			Title:        *title,
			Content:      deref(content),
			History:      deref(history),
			Significance: deref(significance),
		}
	}
	return &p, nil
}

// ListOfferings returns all partner offerings for a product, cheapest first.
func (r *CatalogRepository) ListOfferings(ctx context.Context, productID string) ([]catalog.Offering, error) {
	rows, err := r.pool.Query(ctx, listOfferingsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing offerings for product %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanOffering)
}

// FindOffering resolves the unique offering for a (product, partner) pair.
func (r *CatalogRepository) FindOffering(ctx context.Context, productID, partnerID string) (*catalog.Offering, error) {
	rows, err := r.pool.Query(ctx, findOfferingSQL, productID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("finding offering %s/%s: %w", productID, partnerID, err)
	}

	off, err := pgx.CollectExactlyOneRow(rows, scanOffering)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &catalog.OfferingNotFoundError{ProductID: productID, PartnerID: partnerID}
		}
		return nil, fmt.Errorf("finding offering %s/%s: %w", productID, partnerID, err)
	}
	return &off, nil
}

// ListPartners returns one page of partner storefronts with product counts.
func (r *CatalogRepository) ListPartners(ctx context.Context, page catalog.Page) ([]catalog.Partner, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countPartnersSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting partners: %w", err)
	}

	rows, err := r.pool.Query(ctx, listPartnersSQL, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing partners: %w", err)
	}
	partners, err := pgx.CollectRows(rows, scanPartner)
	if err != nil {
		return nil, 0, fmt.Errorf("listing partners: %w", err)
	}
	return partners, total, nil
}

// GetPartner returns a single partner storefront.
func (r *CatalogRepository) GetPartner(ctx context.Context, id string) (*catalog.Partner, error) {
	rows, err := r.pool.Query(ctx, getPartnerSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting partner %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPartner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrPartnerNotFound
		}
		return nil, fmt.Errorf("getting partner %q: %w", id, err)
	}
	return &p, nil
}

// ListArtisans returns one page of artisans ordered by name.
func (r *CatalogRepository) ListArtisans(ctx context.Context, page catalog.Page) ([]catalog.Artisan, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countArtisansSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting artisans: %w", err)
	}

	rows, err := r.pool.Query(ctx, listArtisansSQL, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing artisans: %w", err)
	}
	artisans, err := pgx.CollectRows(rows, scanArtisan)
	if err != nil {
		return nil, 0, fmt.Errorf("listing artisans: %w", err)
	}
	return artisans, total, nil
}

// GetArtisan returns a single artisan.
func (r *CatalogRepository) GetArtisan(ctx context.Context, id string) (*catalog.Artisan, error) {
	rows, err := r.pool.Query(ctx, getArtisanSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting artisan %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanArtisan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrArtisanNotFound
		}
		return nil, fmt.Errorf("getting artisan %q: %w", id, err)
	}
	return &a, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Materials, &p.Dimensions, &p.Weight, &p.GITagged,
		&p.ArtisanID, &p.ArtisanName, &p.CategoryID, &p.Category, &p.RegionID, &p.Region, &p.State,
	)
	return p, err
}

func scanOffering(row pgx.CollectableRow) (catalog.Offering, error) {
	var o catalog.Offering
	err := row.Scan(
		&o.ProductID, &o.PartnerID, &o.PartnerName, &o.Price, &o.ShippingFee,
		&o.Available, &o.EstimatedDelivery,
	)
	return o, err
}

func scanPartner(row pgx.CollectableRow) (catalog.Partner, error) {
	var p catalog.Partner
	err := row.Scan(
		&p.ID, &p.Name, &p.WebsiteURL, &p.Description, &p.CommissionRate,
		&p.Rating, &p.ReviewCount, &p.ProductCount,
	)
	return p, err
}

func scanArtisan(row pgx.CollectableRow) (catalog.Artisan, error) {
	var a catalog.Artisan
	err := row.Scan(
		&a.ID, &a.Name, &a.Location, &a.CraftType, &a.Bio, &a.YearsActive, &a.RegionID, &a.ImageURL,
	)
	return a, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
