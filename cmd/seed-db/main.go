// seed-db loads the catalog fixture and a demo customer into PostgreSQL.
// Intended for local development and demo environments; all writes are
// upserts, so re-running is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/craftbazaar/marketplace/db"
	"github.com/craftbazaar/marketplace/internal/storage/postgres"
)

type catalogJSON struct {
	Regions []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		State string `json:"state"`
	} `json:"regions"`
	Categories []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
	Artisans []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Location    string `json:"location"`
		CraftType   string `json:"craft_type"`
		Bio         string `json:"bio"`
		YearsActive int    `json:"years_active"`
		RegionID    string `json:"region_id"`
		ImageURL    string `json:"image_url"`
	} `json:"artisans"`
	Stories []struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Content      string `json:"content"`
		History      string `json:"history"`
		Significance string `json:"cultural_significance"`
	} `json:"stories"`
	Products []struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Materials   string          `json:"materials"`
		Dimensions  string          `json:"dimensions"`
		Weight      string          `json:"weight"`
		GITagged    bool            `json:"is_gi_tagged"`
		ArtisanID   string          `json:"artisan_id"`
		CategoryID  string          `json:"category_id"`
		RegionID    string          `json:"region_id"`
		StoryID     string          `json:"story_id"`
	} `json:"products"`
	Partners []struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		WebsiteURL     string          `json:"website_url"`
		Description    string          `json:"description"`
		CommissionRate decimal.Decimal `json:"commission_rate"`
		Rating         decimal.Decimal `json:"rating"`
		ReviewCount    int             `json:"review_count"`
	} `json:"partners"`
	Offerings []struct {
		ProductID         string          `json:"product_id"`
		PartnerID         string          `json:"partner_id"`
		Price             decimal.Decimal `json:"price"`
		ShippingFee       decimal.Decimal `json:"shipping_fee"`
		Availability      bool            `json:"availability"`
		EstimatedDelivery string          `json:"estimated_delivery"`
	} `json:"offerings"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		demoEmail    string
		demoPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to catalog JSON file (default: embedded fixture)")
	flag.StringVar(&demoEmail, "demo-email", "demo@example.com", "demo customer email")
	flag.StringVar(&demoPassword, "demo-password", "", "demo customer password (or CRAFT_DEMO_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if demoPassword == "" {
		demoPassword = os.Getenv("CRAFT_DEMO_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, demoEmail, demoPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, demoEmail, demoPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	cat, err := loadCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	if err := seedCatalog(ctx, pool, cat); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if demoPassword != "" {
		if err := seedDemoCustomer(ctx, pool, demoEmail, demoPassword); err != nil {
			return errors.Wrap(err, "seed demo customer")
		}
	}

	return nil
}

func loadCatalog(path string) (*catalogJSON, error) {
	var raw []byte
	if path == "" {
		slog.Info("using embedded catalog fixture")
		data, err := db.Seed.ReadFile("seed/catalog.json")
		if err != nil {
			return nil, errors.Wrap(err, "read embedded fixture")
		}
		raw = data
	} else {
		slog.Info("reading catalog file", slog.String("path", path))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read catalog file")
		}
		raw = data
	}

	var cat catalogJSON
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return &cat, nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, cat *catalogJSON) error {
	for _, r := range cat.Regions {
		if _, err := pool.Exec(ctx, `INSERT INTO regions (region_id, name, state) VALUES ($1, $2, $3)
			ON CONFLICT (region_id) DO UPDATE SET name = $2, state = $3`,
			r.ID, r.Name, r.State); err != nil {
			return errors.Wrapf(err, "upsert region %s", r.ID)
		}
	}
	for _, c := range cat.Categories {
		if _, err := pool.Exec(ctx, `INSERT INTO categories (category_id, name) VALUES ($1, $2)
			ON CONFLICT (category_id) DO UPDATE SET name = $2`,
			c.ID, c.Name); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.ID)
		}
	}
	for _, a := range cat.Artisans {
		if _, err := pool.Exec(ctx, `INSERT INTO artisans (artisan_id, name, location, craft_type, bio, years_active, region_id, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
			ON CONFLICT (artisan_id) DO UPDATE SET name = $2, location = $3, craft_type = $4,
				bio = $5, years_active = $6, region_id = NULLIF($7, ''), image_url = $8, updated_at = now()`,
			a.ID, a.Name, a.Location, a.CraftType, a.Bio, a.YearsActive, a.RegionID, a.ImageURL); err != nil {
			return errors.Wrapf(err, "upsert artisan %s", a.ID)
		}
	}
	for _, s := range cat.Stories {
		if _, err := pool.Exec(ctx, `INSERT INTO cultural_stories (story_id, title, content, history, cultural_significance)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (story_id) DO UPDATE SET title = $2, content = $3, history = $4, cultural_significance = $5`,
			s.ID, s.Title, s.Content, s.History, s.Significance); err != nil {
			return errors.Wrapf(err, "upsert story %s", s.ID)
		}
	}
	for _, p := range cat.Products {
		if _, err := pool.Exec(ctx, `INSERT INTO products (product_id, name, description, price, materials, dimensions, weight,
			is_gi_tagged, artisan_id, category_id, region_id, story_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''))
			ON CONFLICT (product_id) DO UPDATE SET name = $2, description = $3, price = $4, materials = $5,
				dimensions = $6, weight = $7, is_gi_tagged = $8, artisan_id = NULLIF($9, ''),
				category_id = NULLIF($10, ''), region_id = NULLIF($11, ''), story_id = NULLIF($12, ''), updated_at = now()`,
			p.ID, p.Name, p.Description, p.Price, p.Materials, p.Dimensions, p.Weight,
			p.GITagged, p.ArtisanID, p.CategoryID, p.RegionID, p.StoryID); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}
	for _, p := range cat.Partners {
		if _, err := pool.Exec(ctx, `INSERT INTO partner_sites (partner_id, name, website_url, description, commission_rate, rating, review_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (partner_id) DO UPDATE SET name = $2, website_url = $3, description = $4,
				commission_rate = $5, rating = $6, review_count = $7, updated_at = now()`,
			p.ID, p.Name, p.WebsiteURL, p.Description, p.CommissionRate, p.Rating, p.ReviewCount); err != nil {
			return errors.Wrapf(err, "upsert partner %s", p.ID)
		}
	}
	for _, o := range cat.Offerings {
		if _, err := pool.Exec(ctx, `INSERT INTO product_partner (product_id, partner_id, price, shipping_fee, availability, estimated_delivery)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (product_id, partner_id) DO UPDATE SET price = $3, shipping_fee = $4,
				availability = $5, estimated_delivery = $6`,
			o.ProductID, o.PartnerID, o.Price, o.ShippingFee, o.Availability, o.EstimatedDelivery); err != nil {
			return errors.Wrapf(err, "upsert offering %s/%s", o.ProductID, o.PartnerID)
		}
	}

	slog.Info("catalog seeded",
		slog.Int("products", len(cat.Products)),
		slog.Int("partners", len(cat.Partners)),
		slog.Int("offerings", len(cat.Offerings)),
	)
	return nil
}

func seedDemoCustomer(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	now := time.Now().UTC()
	email = strings.ToLower(email)
	if _, err := pool.Exec(ctx, `INSERT INTO customers (customer_id, name, email, password_hash, address, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (email) DO UPDATE SET password_hash = $4, updated_at = $7`,
		uuid.New().String(), "Demo Customer", email, string(hash), "1 Demo Street", "0000000000", now); err != nil {
		return errors.Wrap(err, "upsert demo customer")
	}

	slog.Info("demo customer seeded", slog.String("email", email))
	return nil
}
