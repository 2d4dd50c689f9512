// Package jsonfile is a single-file storage backend. It keeps the whole
// dataset in memory behind a RWMutex and rewrites the file atomically on every
// mutation. Intended for local development and tests; the postgres backend is
// the production one.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
)

// document is the on-disk layout. The catalog sections match the seed fixture
// format, so a seed file can be used directly as a store file.
type document struct {
	Regions    []regionDoc   `json:"regions,omitempty"`
	Categories []categoryDoc `json:"categories,omitempty"`
	Artisans   []artisanDoc  `json:"artisans,omitempty"`
	Stories    []storyDoc    `json:"stories,omitempty"`
	Products   []productDoc  `json:"products,omitempty"`
	Partners   []partnerDoc  `json:"partners,omitempty"`
	Offerings  []offeringDoc `json:"offerings,omitempty"`
	Customers  []customerDoc `json:"customers,omitempty"`
	Orders     []orderDoc    `json:"orders,omitempty"`
}

type regionDoc struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

type categoryDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type artisanDoc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	CraftType   string `json:"craft_type"`
	Bio         string `json:"bio"`
	YearsActive int    `json:"years_active"`
	RegionID    string `json:"region_id,omitempty"`
	ImageURL    string `json:"image_url"`
}

type storyDoc struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	History      string `json:"history"`
	Significance string `json:"cultural_significance"`
}

type productDoc struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Materials   string          `json:"materials"`
	Dimensions  string          `json:"dimensions"`
	Weight      string          `json:"weight"`
	GITagged    bool            `json:"is_gi_tagged"`
	ArtisanID   string          `json:"artisan_id,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	RegionID    string          `json:"region_id,omitempty"`
	StoryID     string          `json:"story_id,omitempty"`
}

type partnerDoc struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	WebsiteURL     string          `json:"website_url"`
	Description    string          `json:"description"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Rating         decimal.Decimal `json:"rating"`
	ReviewCount    int             `json:"review_count"`
}

type offeringDoc struct {
	ProductID         string          `json:"product_id"`
	PartnerID         string          `json:"partner_id"`
	Price             decimal.Decimal `json:"price"`
	ShippingFee       decimal.Decimal `json:"shipping_fee"`
	Availability      bool            `json:"availability"`
	EstimatedDelivery string          `json:"estimated_delivery"`
}

type customerDoc struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type orderDoc struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	OrderDate       time.Time       `json:"order_date"`
	Items           []orderItemDoc  `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PlatformFee     decimal.Decimal `json:"platform_fee"`
	Status          string          `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type orderItemDoc struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	PartnerID string          `json:"partner_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store is a file-backed dataset shared by the catalog, order and customer
// repositories.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  document

	products []catalog.Product
	stories  map[string]catalog.Story
}

// Open loads the store file at path, creating an empty store when the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run: the file is created on the first write.
	case err != nil:
		return nil, errors.Wrap(err, "read store file")
	default:
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, errors.Wrapf(err, "parse store file %q", path)
		}
	}
	s.index()
	return s, nil
}

// index rebuilds the denormalized product views after a load.
func (s *Store) index() {
	regions := make(map[string]regionDoc, len(s.doc.Regions))
	for _, r := range s.doc.Regions {
		regions[r.ID] = r
	}
	categories := make(map[string]categoryDoc, len(s.doc.Categories))
	for _, c := range s.doc.Categories {
		categories[c.ID] = c
	}
	artisans := make(map[string]artisanDoc, len(s.doc.Artisans))
	for _, a := range s.doc.Artisans {
		artisans[a.ID] = a
	}
	s.stories = make(map[string]catalog.Story, len(s.doc.Stories))
	for _, st := range s.doc.Stories {
		s.stories[st.ID] = catalog.Story{
			Title:        st.Title,
			Content:      st.Content,
			History:      st.History,
			Significance: st.Significance,
		}
	}

	s.products = make([]catalog.Product, 0, len(s.doc.Products))
	for _, p := range s.doc.Products {
		cp := catalog.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Materials:   p.Materials,
			Dimensions:  p.Dimensions,
			Weight:      p.Weight,
			GITagged:    p.GITagged,
			ArtisanID:   p.ArtisanID,
			CategoryID:  p.CategoryID,
			RegionID:    p.RegionID,
		}
		if a, ok := artisans[p.ArtisanID]; ok {
			cp.ArtisanName = a.Name
		}
		if c, ok := categories[p.CategoryID]; ok {
			cp.Category = c.Name
		}
		if r, ok := regions[p.RegionID]; ok {
			cp.Region = r.Name
			cp.State = r.State
		}
		if st, ok := s.stories[p.StoryID]; ok {
			story := st
			cp.Story = &story
		}
		s.products = append(s.products, cp)
	}
	slices.SortFunc(s.products, func(a, b catalog.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// persist rewrites the store file atomically: the document is written to a
// temp file in the same directory and renamed over the target. Callers hold
// the write lock.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode store")
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replace store file")
	}
	return nil
}

func paginate[T any](xs []T, page catalog.Page) []T {
	lo := page.Offset()
	if lo > len(xs) {
		lo = len(xs)
	}
	hi := lo + page.PerPage
	if hi > len(xs) {
		hi = len(xs)
	}
	out := make([]T, hi-lo)
	copy(out, xs[lo:hi])
	return out
}
