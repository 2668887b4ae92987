// seed_vendor_db creates and fills the table a postgres-backed vendor reads
// from. The seed file is JSON keyed by SKU:
//
//	{"SKU001": {"stock": 15, "price": 99.99, "available": true}}
//
// A null stock is preserved as NULL, which downstream normalization treats
// as "in stock, quantity unknown".
//
//	go run ./cmd/tools/seed_vendor_db -file data/vendor_e_seed.json -table vendor_e_products
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type seedRow struct {
	Stock     *int    `json:"stock"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

func main() {
	var (
		file  string
		table string
	)
	flag.StringVar(&file, "file", "", "JSON seed file keyed by SKU")
	flag.StringVar(&table, "table", "vendor_products", "destination table name")
	flag.Parse()

	if file == "" {
		log.Fatal("[seed_vendor_db] -file is required")
	}
	if !tableNameRe.MatchString(table) {
		log.Fatalf("[seed_vendor_db] invalid table name %q", table)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DB_URL")
	}
	if dsn == "" {
		log.Fatal("[seed_vendor_db] DATABASE_URL or DB_URL is required")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("[seed_vendor_db] read %s: %v", file, err)
	}
	var rows map[string]seedRow
	if err := json.Unmarshal(data, &rows); err != nil {
		log.Fatalf("[seed_vendor_db] parse %s: %v", file, err)
	}
	if len(rows) == 0 {
		log.Fatalf("[seed_vendor_db] %s contains no rows", file)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatalf("[seed_vendor_db] parse dsn: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("[seed_vendor_db] connect: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		sku        text PRIMARY KEY,
		stock      integer,
		price      double precision NOT NULL,
		available  boolean NOT NULL,
		updated_at timestamptz NOT NULL
	)`, table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		log.Fatalf("[seed_vendor_db] create table %s: %v", table, err)
	}

	upsert := fmt.Sprintf(`INSERT INTO %s (sku, stock, price, available, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (sku) DO UPDATE SET
			stock = EXCLUDED.stock,
			price = EXCLUDED.price,
			available = EXCLUDED.available,
			updated_at = EXCLUDED.updated_at`, table)

	started := time.Now()
	seeded := 0
	for sku, row := range rows {
		if _, err := pool.Exec(ctx, upsert, sku, row.Stock, row.Price, row.Available); err != nil {
			log.Fatalf("[seed_vendor_db] upsert %s: %v", sku, err)
		}
		seeded++
	}

	log.Printf("[seed_vendor_db] seeded %d row(s) into %s in %s",
		seeded, table, time.Since(started).Truncate(time.Millisecond))
}
