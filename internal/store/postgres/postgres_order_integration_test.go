package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"brewpos/backend/internal/domain"
	"brewpos/backend/internal/store"
)

func TestOrderIdempotencyLookup(t *testing.T) {
	databaseURL := os.Getenv("BREWPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BREWPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-it-%d", stamp)
	orderID := fmt.Sprintf("ord-it-%d", stamp)
	idempotencyKey := fmt.Sprintf("idem-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:        productID,
		Name:      "Integration Brew",
		Category:  "coffee",
		BasePrice: 3.50,
		Active:    true,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	order := domain.Order{
		ID:             orderID,
		IdempotencyKey: idempotencyKey,
		Lines: []domain.OrderLine{
			{ProductID: productID, ProductName: "Integration Brew", Kind: domain.LineKindRetail, Quantity: 1, UnitPrice: 3.50, LineSubtotal: 3.50},
		},
		Subtotal:      3.50,
		Total:         3.50,
		Status:        domain.OrderStatusPending,
		PaymentMethod: "card",
		AmountPaid:    3.50,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	found, err := s.FindOrderByIdempotency(ctx, idempotencyKey)
	if err != nil {
		t.Fatalf("find by idempotency: %v", err)
	}
	if found.ID != orderID {
		t.Fatalf("found order %s, want %s", found.ID, orderID)
	}
	if len(found.Lines) != 1 || found.Lines[0].UnitPrice != 3.50 {
		t.Fatalf("lines did not round-trip: %+v", found.Lines)
	}

	duplicate := order
	duplicate.ID = orderID + "-dup"
	if _, err := s.CreateOrder(ctx, duplicate); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unique violation on reused idempotency key, got %v", err)
	}
}
