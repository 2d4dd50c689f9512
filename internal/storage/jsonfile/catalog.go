package jsonfile

import (
	"context"
	"slices"
	"strings"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository over the store file.
type CatalogRepository struct {
	store *Store
}

// Catalog returns the catalog view of the store.
func (s *Store) Catalog() *CatalogRepository {
	return &CatalogRepository{store: s}
}

func (r *CatalogRepository) ListProducts(_ context.Context, filter catalog.ProductFilter, page catalog.Page) ([]catalog.Product, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []catalog.Product
	query := strings.ToLower(filter.Query)
	for _, p := range r.store.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.RegionID != "" && p.RegionID != filter.RegionID {
			continue
		}
		if filter.ArtisanID != "" && p.ArtisanID != filter.ArtisanID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		matched = append(matched, p)
	}
	return paginate(matched, page), len(matched), nil
}

func (r *CatalogRepository) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.products {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (r *CatalogRepository) ListOfferings(_ context.Context, productID string) ([]catalog.Offering, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []catalog.Offering
	for _, od := range r.store.doc.Offerings {
		if od.ProductID == productID {
			out = append(out, r.store.offering(od))
		}
	}
	slices.SortFunc(out, func(a, b catalog.Offering) int {
		return a.Price.Cmp(b.Price)
	})
	return out, nil
}

func (r *CatalogRepository) FindOffering(_ context.Context, productID, partnerID string) (*catalog.Offering, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, od := range r.store.doc.Offerings {
		if od.ProductID == productID && od.PartnerID == partnerID {
			out := r.store.offering(od)
			return &out, nil
		}
	}
	return nil, &catalog.OfferingNotFoundError{ProductID: productID, PartnerID: partnerID}
}

func (r *CatalogRepository) ListPartners(_ context.Context, page catalog.Page) ([]catalog.Partner, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	partners := make([]catalog.Partner, 0, len(r.store.doc.Partners))
	for _, pd := range r.store.doc.Partners {
		partners = append(partners, r.store.partner(pd))
	}
	slices.SortFunc(partners, func(a, b catalog.Partner) int {
		return strings.Compare(a.Name, b.Name)
	})
	return paginate(partners, page), len(partners), nil
}

func (r *CatalogRepository) GetPartner(_ context.Context, id string) (*catalog.Partner, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, pd := range r.store.doc.Partners {
		if pd.ID == id {
			out := r.store.partner(pd)
			return &out, nil
		}
	}
	return nil, catalog.ErrPartnerNotFound
}

func (r *CatalogRepository) ListArtisans(_ context.Context, page catalog.Page) ([]catalog.Artisan, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	artisans := make([]catalog.Artisan, 0, len(r.store.doc.Artisans))
	for _, ad := range r.store.doc.Artisans {
		artisans = append(artisans, artisan(ad))
	}
	slices.SortFunc(artisans, func(a, b catalog.Artisan) int {
		return strings.Compare(a.Name, b.Name)
	})
	return paginate(artisans, page), len(artisans), nil
}

func (r *CatalogRepository) GetArtisan(_ context.Context, id string) (*catalog.Artisan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, ad := range r.store.doc.Artisans {
		if ad.ID == id {
			out := artisan(ad)
			return &out, nil
		}
	}
	return nil, catalog.ErrArtisanNotFound
}

func (s *Store) offering(od offeringDoc) catalog.Offering {
	off := catalog.Offering{
		ProductID:         od.ProductID,
		PartnerID:         od.PartnerID,
		Price:             od.Price,
		ShippingFee:       od.ShippingFee,
		Available:         od.Availability,
		EstimatedDelivery: od.EstimatedDelivery,
	}
	for _, pd := range s.doc.Partners {
		if pd.ID == od.PartnerID {
			off.PartnerName = pd.Name
			break
		}
	}
	return off
}

func (s *Store) partner(pd partnerDoc) catalog.Partner {
	count := 0
	for _, od := range s.doc.Offerings {
		if od.PartnerID == pd.ID {
			count++
		}
	}
	return catalog.Partner{
		ID:             pd.ID,
		Name:           pd.Name,
		WebsiteURL:     pd.WebsiteURL,
		Description:    pd.Description,
		CommissionRate: pd.CommissionRate,
		Rating:         pd.Rating,
		ReviewCount:    pd.ReviewCount,
		ProductCount:   count,
	}
}

func artisan(ad artisanDoc) catalog.Artisan {
	return catalog.Artisan{
		ID:          ad.ID,
		Name:        ad.Name,
		Location:    ad.Location,
		CraftType:   ad.CraftType,
		Bio:         ad.Bio,
		YearsActive: ad.YearsActive,
		RegionID:    ad.RegionID,
		ImageURL:    ad.ImageURL,
	}
}
