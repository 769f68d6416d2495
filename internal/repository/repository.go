package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devansh/coview/backend/internal/domain"
	"github.com/devansh/coview/backend/internal/graph"
)

// Products are paged in a stable order so that catalog enumeration is
// deterministic; the co-occurrence aggregations count traversal paths
// (count(*)), not distinct viewers, and break count ties by productId so a
// rebuild over an unchanged graph reproduces the same lists.
const (
	productPageCypher = `
MATCH (p:Product)
RETURN p.productId AS productId
ORDER BY p.productId
SKIP $offset LIMIT $limit`

	categoriesByProductCypher = `
MATCH (:Product {productId: $productId})-[:BELONGS_TO]->(c:Category)
RETURN DISTINCT c.categoryId AS categoryId`

	coViewedCypher = `
MATCH (seed:Product {productId: $productId})<-[:VIEWED]-(:User)-[:VIEWED]->(rec:Product)
WHERE rec.productId <> $productId
  AND (rec)-[:BELONGS_TO]->(:Category {categoryId: $categoryId})
RETURN rec.productId AS productId, count(*) AS score
ORDER BY score DESC, productId ASC
LIMIT $limit`

	coBoughtCypher = `
MATCH (seed:Product {productId: $productId})<-[:VIEWED]-(:User)-[:BOUGHT]->(rec:Product)
WHERE rec.productId <> $productId
RETURN rec.productId AS productId, count(*) AS score
ORDER BY score DESC, productId ASC
LIMIT $limit`

	lastViewCypher = `
MATCH (u:User)-[v:VIEWED]->(p:Product)
RETURN u.userId AS userId, p.productId AS productId, v.viewedAt AS viewedAt
ORDER BY v.viewedAt DESC
LIMIT $limit`
)

// Repository executes recommendation traversals against the graph engine.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// ProductPage returns the catalog slice [offset, offset+limit), ordered by
// productId. An empty slice signals catalog exhaustion.
func (r *Repository) ProductPage(ctx context.Context, offset, limit int) ([]domain.ProductID, error) {
	if limit <= 0 {
		return nil, errors.New("page limit must be positive")
	}
	if offset < 0 {
		offset = 0
	}

	res, err := r.client.ExecuteRead(ctx, productPageCypher, map[string]any{
		"offset": offset,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("product page [%d,%d): %w", offset, offset+limit, err)
	}

	var products []domain.ProductID
	for _, record := range res.Records {
		if id, ok := toInt64(record["productId"]); ok {
			products = append(products, domain.ProductID(id))
		}
	}
	return products, nil
}

// CategoriesOf returns the deduplicated categories a product belongs to.
func (r *Repository) CategoriesOf(ctx context.Context, productID domain.ProductID) ([]domain.CategoryID, error) {
	res, err := r.client.ExecuteRead(ctx, categoriesByProductCypher, map[string]any{
		"productId": int64(productID),
	})
	if err != nil {
		return nil, fmt.Errorf("categories of product %d: %w", productID, err)
	}

	var categories []domain.CategoryID
	for _, record := range res.Records {
		if id, ok := toInt64(record["categoryId"]); ok {
			categories = append(categories, domain.CategoryID(id))
		}
	}
	return categories, nil
}

// CoViewed runs the co-occurrence aggregation for one (product, category)
// pair: products viewed by any viewer of the seed, restricted to the
// category, seed excluded, ranked by path count descending and truncated to
// limit.
func (r *Repository) CoViewed(ctx context.Context, productID domain.ProductID, categoryID domain.CategoryID, limit int) ([]domain.Entry, error) {
	res, err := r.client.ExecuteRead(ctx, coViewedCypher, map[string]any{
		"productId":  int64(productID),
		"categoryId": int64(categoryID),
		"limit":      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("co-viewed aggregation p=%d c=%d: %w", productID, categoryID, err)
	}
	return decodeEntries(res), nil
}

// CoBought ranks products bought by viewers of the seed product.
func (r *Repository) CoBought(ctx context.Context, productID domain.ProductID, limit int) ([]domain.Entry, error) {
	res, err := r.client.ExecuteRead(ctx, coBoughtCypher, map[string]any{
		"productId": int64(productID),
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("co-bought aggregation p=%d: %w", productID, err)
	}
	return decodeEntries(res), nil
}

// LastView returns the most recent view events, newest first.
func (r *Repository) LastView(ctx context.Context, limit int) ([]domain.ViewEvent, error) {
	res, err := r.client.ExecuteRead(ctx, lastViewCypher, map[string]any{
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("last view query: %w", err)
	}

	var events []domain.ViewEvent
	for _, record := range res.Records {
		id, ok := toInt64(record["productId"])
		if !ok {
			continue
		}
		event := domain.ViewEvent{
			UserID:    toString(record["userId"]),
			ProductID: domain.ProductID(id),
		}
		if ts, ok := toTime(record["viewedAt"]); ok {
			event.ViewedAt = ts
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeEntries(res graph.Result) []domain.Entry {
	var entries []domain.Entry
	for _, record := range res.Records {
		id, ok := toInt64(record["productId"])
		if !ok {
			continue
		}
		count, _ := toInt64(record["score"])
		entries = append(entries, domain.Entry{
			ProductID: domain.ProductID(id),
			Count:     count,
		})
	}
	return entries
}

func toInt64(v any) (int64, bool) {
	switch value := v.(type) {
	case int64:
		return value, true
	case int:
		return int64(value), true
	case float64:
		return int64(value), true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toTime(v any) (time.Time, bool) {
	switch value := v.(type) {
	case time.Time:
		return value, true
	case string:
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
