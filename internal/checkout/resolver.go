package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/models"
	"github.com/shopspring/decimal"
)

// CatalogReader is the read-only view of products and variants the resolver
// needs. store.CatalogReader implements it over the pool or a transaction.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListVariants(ctx context.Context, productID int64) ([]models.Variant, error)
}

// CartLine is what the client sent. Price and image are display hints only.
type CartLine struct {
	ProductID    int64            `json:"productId"`
	Color        string           `json:"color,omitempty"`
	Size         string           `json:"size,omitempty"`
	Quantity     int              `json:"quantity"`
	ClaimedPrice *decimal.Decimal `json:"price,omitempty"`
	ImageURL     string           `json:"image,omitempty"`
}

// ResolvedLine is a cart line checked against the catalog and priced by the
// server.
type ResolvedLine struct {
	ProductID int64
	VariantID *int64
	Quantity  int
	UnitPrice decimal.Decimal
	Title     string
	ImageURL  string
	Color     string
	Size      string
}

func (l ResolvedLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ResolveCart validates every line against catalog and stops at the first
// failure. It never writes.
func ResolveCart(ctx context.Context, catalog CatalogReader, lines []CartLine) ([]ResolvedLine, error) {
	resolved := make([]ResolvedLine, 0, len(lines))

	for _, line := range lines {
		product, err := catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				return nil, productError(CodeNotFound, line.ProductID,
					fmt.Sprintf("product %d does not exist", line.ProductID))
			}
			return nil, fmt.Errorf("resolve product %d: %w", line.ProductID, err)
		}

		if !product.Active {
			return nil, productError(CodeInactive, product.ID,
				fmt.Sprintf("%s is no longer available", product.Title))
		}

		item := ResolvedLine{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.EffectivePrice(),
			Title:     product.Title,
			ImageURL:  product.ImageURL,
			Color:     strings.TrimSpace(line.Color),
			Size:      strings.TrimSpace(line.Size),
		}

		if product.Kind == models.ProductKindVariable {
			variants, err := catalog.ListVariants(ctx, product.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve variants of %d: %w", product.ID, err)
			}

			variant := matchVariant(variants, line.Color, line.Size)
			if variant == nil {
				return nil, productError(CodeVariantNotFound, product.ID,
					fmt.Sprintf("%s is not available in the selected options", product.Title))
			}
			if variant.Stock < line.Quantity {
				return nil, productError(CodeInsufficientStock, product.ID,
					fmt.Sprintf("only %d of %s left in the selected options", max(variant.Stock, 0), product.Title))
			}

			id := variant.ID
			item.VariantID = &id
			if variant.Price != nil {
				item.UnitPrice = *variant.Price
			}
		} else if product.Stock < line.Quantity {
			return nil, productError(CodeInsufficientStock, product.ID,
				fmt.Sprintf("only %d of %s left", max(product.Stock, 0), product.Title))
		}

		resolved = append(resolved, item)
	}

	return resolved, nil
}

// matchVariant returns the first variant, in the order given, whose value set
// is exactly the set of non-blank labels. A blank label only matches variants
// that carry no value for it. Labels compare trimmed and case-insensitive.
func matchVariant(variants []models.Variant, labels ...string) *models.Variant {
	want := valueSet(labels)

	for i := range variants {
		if sameValues(valueSet(variants[i].Values), want) {
			return &variants[i]
		}
	}
	return nil
}

func valueSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func sameValues(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range b {
		if _, ok := a[v]; !ok {
			return false
		}
	}
	return true
}
