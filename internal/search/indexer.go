package search

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/essence-atelier/perfume_shop/internal/models"
)

// Indexer mirrors catalog writes into the product index. All operations are
// best-effort: the database stays the source of truth and index drift only
// degrades search results.
type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product)
	DeleteProduct(ctx context.Context, id uint)
}

type ESIndexer struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *slog.Logger
}

func (ix *ESIndexer) IndexProduct(ctx context.Context, p *models.Product) {
	doc, err := json.Marshal(p)
	if err != nil {
		ix.Logger.Error("index product: marshal failed", "product_id", p.ID, "error", err)
		return
	}

	res, err := ix.ES.Index(
		ix.Index,
		bytes.NewReader(doc),
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		ix.Logger.Error("index product failed", "product_id", p.ID, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		ix.Logger.Error("index product failed", "product_id", p.ID, "status", res.Status())
	}
}

func (ix *ESIndexer) DeleteProduct(ctx context.Context, id uint) {
	res, err := ix.ES.Delete(
		ix.Index,
		strconv.FormatUint(uint64(id), 10),
		ix.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		ix.Logger.Error("delete product from index failed", "product_id", id, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		ix.Logger.Error("delete product from index failed", "product_id", id, "status", res.Status())
	}
}

// NopIndexer is used when Elasticsearch is not configured.
type NopIndexer struct{}

func (NopIndexer) IndexProduct(context.Context, *models.Product) {}
func (NopIndexer) DeleteProduct(context.Context, uint)           {}
