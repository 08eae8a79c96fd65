// Package dimension maps scraped names onto the append-only shop and product rows.
package dimension

import (
	"context"
	"fmt"

	"pricehist/internal/model"
)

// MatchMode selects how a product query is compared with stored names.
type MatchMode string

const (
	// MatchPattern treats the query as a LIKE pattern; the first match by id wins.
	MatchPattern MatchMode = "pattern"
	MatchExact   MatchMode = "exact"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(s) {
	case "", MatchPattern:
		return MatchPattern, nil
	case MatchExact:
		return MatchExact, nil
	}
	return "", fmt.Errorf("unknown product match mode %q", s)
}

type ShopStore interface {
	InsertShop(ctx context.Context, name string) (model.Shop, error)
}

type ProductStore interface {
	FindProducts(ctx context.Context, query string, exact bool) ([]model.Product, error)
	InsertProduct(ctx context.Context, name string) (model.Product, error)
}

// ShopResolver resolves shop names against a snapshot loaded at run start.
// Shops inserted by other runs after the snapshot are not seen.
type ShopResolver struct {
	store   ShopStore
	known   []model.Shop
	created int
}

func NewShopResolver(store ShopStore, known []model.Shop) *ShopResolver {
	return &ShopResolver{
		store: store,
		known: append([]model.Shop(nil), known...),
	}
}

// Resolve returns the id of the shop with exactly this name, inserting it on first sight.
func (r *ShopResolver) Resolve(ctx context.Context, name string) (int64, error) {
	for _, s := range r.known {
		if s.Name == name {
			return s.ID, nil
		}
	}

	s, err := r.store.InsertShop(ctx, name)
	if err != nil {
		return 0, err
	}
	r.known = append(r.known, s)
	r.created++
	return s.ID, nil
}

// Created reports how many shops Resolve has inserted.
func (r *ShopResolver) Created() int {
	return r.created
}

// ResolveProduct returns the first product matching query or inserts one named query.
func ResolveProduct(ctx context.Context, store ProductStore, query string, mode MatchMode) (id int64, created bool, err error) {
	products, err := store.FindProducts(ctx, query, mode == MatchExact)
	if err != nil {
		return 0, false, err
	}
	if len(products) > 0 {
		return products[0].ID, false, nil
	}

	p, err := store.InsertProduct(ctx, query)
	if err != nil {
		return 0, false, err
	}
	return p.ID, true, nil
}
