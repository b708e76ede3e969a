package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/models"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so the same reads can run
// against the pool or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type CatalogReader struct {
	q DBTX
}

func NewCatalogReader(q DBTX) *CatalogReader {
	return &CatalogReader{q: q}
}

const productColumns = `id, sku, title, description, kind, active, price, sale_price, stock, image_url, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	var salePrice decimal.NullDecimal

	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Title,
		&product.Description,
		&product.Kind,
		&product.Active,
		&product.Price,
		&salePrice,
		&product.Stock,
		&product.ImageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	product.SalePrice = decimalPtr(salePrice)

	return product, nil
}

func (r *CatalogReader) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// ListVariants returns the variants of a product ordered by id, each carrying
// its lower-cased, trimmed attribute values.
func (r *CatalogReader) ListVariants(ctx context.Context, productID int64) ([]models.Variant, error) {
	query := `
		SELECT v.id, v.product_id, v.sku, v.stock, v.price,
		       COALESCE(array_agg(LOWER(TRIM(av.value))) FILTER (WHERE av.id IS NOT NULL), '{}')
		FROM product_variants v
		LEFT JOIN variant_attribute_values vav ON vav.variant_id = v.id
		LEFT JOIN attribute_values av ON av.id = vav.attribute_value_id
		WHERE v.product_id = $1
		GROUP BY v.id
		ORDER BY v.id`

	rows, err := r.q.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []models.Variant
	for rows.Next() {
		var variant models.Variant
		var price decimal.NullDecimal
		err := rows.Scan(
			&variant.ID,
			&variant.ProductID,
			&variant.SKU,
			&variant.Stock,
			&price,
			pq.Array(&variant.Values),
		)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variant.Price = decimalPtr(price)
		variants = append(variants, variant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return variants, nil
}

type NewProduct struct {
	SKU         string
	Title       string
	Description string
	Kind        models.ProductKind
	Active      bool
	Price       decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       int
	ImageURL    string
}

func CreateProduct(ctx context.Context, q DBTX, p NewProduct) (*models.Product, error) {
	if p.Kind == "" {
		p.Kind = models.ProductKindSimple
	}

	query := `
		INSERT INTO products (sku, title, description, kind, active, price, sale_price, stock, image_url, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		p.SKU, p.Title, p.Description, p.Kind, p.Active, p.Price, p.SalePrice, p.Stock, p.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// CreateVariant inserts a variant and links it to the given attribute values
// (attribute name to value, e.g. "color": "Red"), creating missing
// attributes and values on the way.
func CreateVariant(ctx context.Context, q DBTX, productID int64, stock int, price *decimal.Decimal, attrs map[string]string) (*models.Variant, error) {
	variant := &models.Variant{ProductID: productID, Stock: stock, Price: price}

	err := q.QueryRowContext(ctx,
		`INSERT INTO product_variants (product_id, stock, price, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING id`,
		productID, stock, price).Scan(&variant.ID)
	if err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	for name, value := range attrs {
		var attributeID, valueID int64

		err := q.QueryRowContext(ctx,
			`INSERT INTO attributes (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			name).Scan(&attributeID)
		if err != nil {
			return nil, fmt.Errorf("upsert attribute %s: %w", name, err)
		}

		err = q.QueryRowContext(ctx,
			`INSERT INTO attribute_values (attribute_id, value) VALUES ($1, $2)
			 ON CONFLICT (attribute_id, value) DO UPDATE SET value = EXCLUDED.value
			 RETURNING id`,
			attributeID, value).Scan(&valueID)
		if err != nil {
			return nil, fmt.Errorf("upsert attribute value %s: %w", value, err)
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO variant_attribute_values (variant_id, attribute_value_id) VALUES ($1, $2)`,
			variant.ID, valueID)
		if err != nil {
			return nil, fmt.Errorf("link variant value: %w", err)
		}
	}

	return variant, nil
}

func GetVariantStock(ctx context.Context, q DBTX, variantID int64) (int, error) {
	var stock int
	err := q.QueryRowContext(ctx, `SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, database.ErrVariantNotFound
		}
		return 0, fmt.Errorf("get variant stock: %w", err)
	}
	return stock, nil
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
