package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pricehist/internal/db"
	"pricehist/internal/model"
)

// PriceRepository persists the time, product and shop dimensions and the price facts.
// Dimension inserts are committed immediately; facts are written in one transaction.
type PriceRepository struct {
	DB     *sql.DB
	Driver string
}

// Open connects to the store and bootstraps the schema.
func Open(ctx context.Context, driver, url string) (*PriceRepository, error) {
	conn, err := db.New(ctx, driver, url)
	if err != nil {
		return nil, err
	}
	if err := db.Bootstrap(ctx, conn, driver); err != nil {
		conn.Close()
		return nil, err
	}
	return &PriceRepository{DB: conn, Driver: driver}, nil
}

func (r *PriceRepository) Close() error {
	return r.DB.Close()
}

func (r *PriceRepository) q(query string) string {
	return db.Rebind(r.Driver, query)
}

func (r *PriceRepository) InsertTime(ctx context.Context, epoch int64) (model.TimeMarker, error) {
	t := model.TimeMarker{Time: epoch}
	err := r.DB.QueryRowContext(ctx, r.q(`INSERT INTO "time" ("time") VALUES (?) RETURNING id`), epoch).
		Scan(&t.ID)
	if err != nil {
		return t, fmt.Errorf("insert time: %w", err)
	}
	return t, nil
}

func (r *PriceRepository) ListShops(ctx context.Context) ([]model.Shop, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM shop ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var list []model.Shop
	for rows.Next() {
		var s model.Shop
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *PriceRepository) InsertShop(ctx context.Context, name string) (model.Shop, error) {
	s := model.Shop{Name: name}
	err := r.DB.QueryRowContext(ctx, r.q(`INSERT INTO shop (name) VALUES (?) RETURNING id`), name).
		Scan(&s.ID)
	if err != nil {
		return s, fmt.Errorf("insert shop %q: %w", name, err)
	}
	return s, nil
}

// FindProducts returns products whose name matches query, oldest first. With exact
// unset query is a LIKE pattern, so % and _ act as wildcards.
func (r *PriceRepository) FindProducts(ctx context.Context, query string, exact bool) ([]model.Product, error) {
	op := "LIKE"
	if exact {
		op = "="
	}
	rows, err := r.DB.QueryContext(ctx, r.q(`SELECT id, name FROM product WHERE name `+op+` ? ORDER BY id`), query)
	if err != nil {
		return nil, fmt.Errorf("find products %q: %w", query, err)
	}
	defer rows.Close()

	var list []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PriceRepository) InsertProduct(ctx context.Context, name string) (model.Product, error) {
	p := model.Product{Name: name}
	err := r.DB.QueryRowContext(ctx, r.q(`INSERT INTO product (name) VALUES (?) RETURNING id`), name).
		Scan(&p.ID)
	if err != nil {
		return p, fmt.Errorf("insert product %q: %w", name, err)
	}
	return p, nil
}

// SaveFacts writes every fact or none.
func (r *PriceRepository) SaveFacts(ctx context.Context, facts []model.PriceFact) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin facts: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, r.q(`
		INSERT INTO price (shop, product, score, opinions, available, price, delivery, "time")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("prepare facts: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err = stmt.ExecContext(ctx,
			f.ShopID, f.ProductID, f.Score, f.Opinions, f.Available, f.Price, f.Delivery, f.TimeID,
		); err != nil {
			return fmt.Errorf("insert fact for shop %d: %w", f.ShopID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit facts: %w", err)
	}
	return nil
}
