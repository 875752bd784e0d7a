package catalog

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/models"
)

// Resolver turns client-supplied product identifiers (numeric id or slug)
// into authoritative catalog records. It is read-only; price and stock on the
// returned records are the only values checkout code may trust.
type Resolver struct {
	DB *gorm.DB
}

// Resolve queries by id and slug in one batch and returns a map keyed by the
// identifiers that matched. Identifiers with no match are simply absent from
// the map; callers decide whether that is an error.
func (r *Resolver) Resolve(ctx context.Context, identifiers []string) (map[string]models.Product, error) {
	resolved := make(map[string]models.Product, len(identifiers))
	if len(identifiers) == 0 {
		return resolved, nil
	}

	var ids []uint
	for _, ident := range identifiers {
		if n, err := strconv.ParseUint(ident, 10, 64); err == nil {
			ids = append(ids, uint(n))
		}
	}

	var products []models.Product
	q := r.DB.WithContext(ctx)
	if len(ids) > 0 {
		q = q.Where("id IN ? OR slug IN ?", ids, identifiers)
	} else {
		q = q.Where("slug IN ?", identifiers)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog resolve: %w", err)
	}

	byID := make(map[uint]models.Product, len(products))
	bySlug := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
		bySlug[p.Slug] = p
	}

	for _, ident := range identifiers {
		if p, ok := bySlug[ident]; ok {
			resolved[ident] = p
			continue
		}
		if n, err := strconv.ParseUint(ident, 10, 64); err == nil {
			if p, ok := byID[uint(n)]; ok {
				resolved[ident] = p
			}
		}
	}

	return resolved, nil
}
