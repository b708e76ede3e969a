package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/models"
)

const orderColumns = `id, order_number, user_id, customer_name, customer_phone, customer_email,
	shipping_address, shipping_zone, subtotal, discount_amount, shipping_cost, total_amount,
	status, payment_method, payment_status, payment_sender, payment_trx_id, coupon_id,
	ip_address, notes, created_at, updated_at, version`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var (
		userID, couponID                   sql.NullInt64
		email, paymentSender, paymentTrxID sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&userID,
		&order.CustomerName,
		&order.CustomerPhone,
		&email,
		&order.ShippingAddress,
		&order.ShippingZone,
		&order.Subtotal,
		&order.DiscountAmount,
		&order.ShippingCost,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&paymentSender,
		&paymentTrxID,
		&couponID,
		&order.IPAddress,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}

	order.UserID = int64Ptr(userID)
	order.CouponID = int64Ptr(couponID)
	order.CustomerEmail = stringPtr(email)
	order.PaymentSender = stringPtr(paymentSender)
	order.PaymentTrxID = stringPtr(paymentTrxID)

	return order, nil
}

// MaxOrderNumber returns the highest allocated order number, or false when no
// order exists yet.
func MaxOrderNumber(ctx context.Context, q DBTX) (int64, bool, error) {
	var last sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(order_number) FROM orders`).Scan(&last); err != nil {
		return 0, false, fmt.Errorf("read max order number: %w", err)
	}
	return last.Int64, last.Valid, nil
}

// InsertOrder writes the order row and its items. ID, UpdatedAt and Version
// are filled in from the database; CreatedAt is taken from the order as given.
func InsertOrder(ctx context.Context, q DBTX, order *models.Order) error {
	err := q.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, user_id, customer_name, customer_phone, customer_email,
			shipping_address, shipping_zone, subtotal, discount_amount, shipping_cost, total_amount,
			status, payment_method, payment_status, payment_sender, payment_trx_id, coupon_id,
			ip_address, notes, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20, 1)
		 RETURNING id, updated_at, version`,
		order.OrderNumber,
		order.UserID,
		order.CustomerName,
		order.CustomerPhone,
		order.CustomerEmail,
		order.ShippingAddress,
		order.ShippingZone,
		order.Subtotal,
		order.DiscountAmount,
		order.ShippingCost,
		order.TotalAmount,
		order.Status,
		order.PaymentMethod,
		order.PaymentStatus,
		order.PaymentSender,
		order.PaymentTrxID,
		order.CouponID,
		order.IPAddress,
		order.Notes,
		order.CreatedAt,
	).Scan(&order.ID, &order.UpdatedAt, &order.Version)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		err := q.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, variant_id, title, image_url, color, size,
				quantity, unit_price, subtotal, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id, created_at`,
			order.ID, item.ProductID, item.VariantID, item.Title, item.ImageURL, item.Color, item.Size,
			item.Quantity, item.UnitPrice, item.Subtotal, order.CreatedAt,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	return nil
}

func GetOrder(ctx context.Context, q DBTX, id int64) (*models.Order, error) {
	return getOrder(ctx, q, id, "")
}

// LockOrder reads the order with a row lock held until the surrounding
// transaction ends.
func LockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return getOrder(ctx, tx, id, " FOR UPDATE")
}

func getOrder(ctx context.Context, q DBTX, id int64, suffix string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1` + suffix

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func getOrderItems(ctx context.Context, q DBTX, orderID int64) ([]models.OrderItem, error) {
	itemsQuery := `
		SELECT id, order_id, product_id, variant_id, title, image_url, color, size,
		       quantity, unit_price, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := q.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		var variantID sql.NullInt64
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&variantID,
			&item.Title,
			&item.ImageURL,
			&item.Color,
			&item.Size,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.VariantID = int64Ptr(variantID)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func SetOrderStatus(ctx context.Context, q DBTX, id int64, status string) error {
	return updateOrder(ctx, q, id, `status = $2`, status)
}

func SetPaymentStatus(ctx context.Context, q DBTX, id int64, paymentStatus string) error {
	return updateOrder(ctx, q, id, `payment_status = $2`, paymentStatus)
}

// AppendOrderNote adds a line to the order's internal notes.
func AppendOrderNote(ctx context.Context, q DBTX, id int64, note string) error {
	return updateOrder(ctx, q, id,
		`notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END`, note)
}

func updateOrder(ctx context.Context, q DBTX, id int64, set string, value any) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET `+set+`, version = version + 1, updated_at = NOW()
		 WHERE id = $1`,
		id, value)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

func DeleteOrder(ctx context.Context, q DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

// LatestOrderAtByOrigin returns the creation time of the newest order placed
// from ip, or nil when there is none.
func LatestOrderAtByOrigin(ctx context.Context, q DBTX, ip string) (*time.Time, error) {
	var latest sql.NullTime
	err := q.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM orders WHERE ip_address = $1`, ip).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest order by origin: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

type OrderFilter struct {
	UserID    *int64
	IPAddress string
	Status    string
}

func ListOrdersCursor(ctx context.Context, q DBTX, filter OrderFilter, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	conditions := []string{`(created_at, id) < ($1, $2)`}
	args := []any{cursorData.CreatedAt, cursorData.ID}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.IPAddress != "" {
		args = append(args, filter.IPAddress)
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`, orderColumns, strings.Join(conditions, " AND "), len(args))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
