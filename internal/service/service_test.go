package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"brewpos/backend/internal/cache"
	"brewpos/backend/internal/domain"
	"brewpos/backend/internal/pricing"
	"brewpos/backend/internal/store"
	"brewpos/backend/internal/store/memory"
	"brewpos/backend/internal/suggest"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	engine := suggest.NewEngine(cache.NoopSuggestionCache{}, 5*time.Second)
	return New(repo, engine, 0), repo
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func taxRate(v float64) *float64 {
	return &v
}

func TestQuoteLineLegacyRecipe(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID: "prod-latte",
		RecipeID:  "rcp-latte-base",
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("QuoteLine: %v", err)
	}

	if quote.Kind != domain.LineKindRecipe {
		t.Fatalf("kind = %s, want recipe", quote.Kind)
	}
	if !nearlyEqual(quote.UnitPrice, 18.26) {
		t.Fatalf("unit price = %.4f, want 18.26", quote.UnitPrice)
	}
	if quote.Breakdown == nil {
		t.Fatalf("expected cost breakdown for a costed recipe line")
	}
	if !nearlyEqual(quote.Breakdown.SellingPrice, 18.26) {
		t.Fatalf("selling price = %.4f, want 18.26", quote.Breakdown.SellingPrice)
	}
}

func TestQuoteLineRecipeModifierApplies(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID: "prod-latte",
		RecipeID:  "rcp-latte-small",
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("QuoteLine: %v", err)
	}
	if !nearlyEqual(quote.UnitPrice, 12.11) {
		t.Fatalf("unit price = %.4f, want 12.11", quote.UnitPrice)
	}
}

func TestQuoteLineRetailProduct(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID: "prod-beans-bag",
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("QuoteLine: %v", err)
	}

	if quote.Kind != domain.LineKindRetail {
		t.Fatalf("kind = %s, want retail", quote.Kind)
	}
	if !nearlyEqual(quote.UnitPrice, 14.00) {
		t.Fatalf("unit price = %.4f, want 14.00", quote.UnitPrice)
	}
	if quote.Breakdown != nil {
		t.Fatalf("retail line must not carry a cost breakdown")
	}
}

func TestQuoteLineOptionsAndExtras(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID: "prod-latte",
		SelectedOptions: map[string]string{
			"vg-latte-milk": "opt-milk-oat",
		},
		ExtraIDs: []string{"ext-caramel"},
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("QuoteLine: %v", err)
	}

	// 18.26 base + 0.50 oat milk + 0.50 caramel
	if !nearlyEqual(quote.UnitPrice, 19.26) {
		t.Fatalf("unit price = %.4f, want 19.26", quote.UnitPrice)
	}
}

func TestQuoteLinePackagingChargedSeparately(t *testing.T) {
	svc, _ := newTestService()

	quote, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID:   "prod-latte",
		RecipeID:    "rcp-latte-base",
		PackagingID: "pkg-cup-12",
		Quantity:    1,
	})
	if err != nil {
		t.Fatalf("QuoteLine: %v", err)
	}

	if !nearlyEqual(quote.UnitPrice, 18.26) {
		t.Fatalf("unit price = %.4f, want 18.26 without packaging folded in", quote.UnitPrice)
	}
	if !nearlyEqual(quote.PackagingUnitPrice, 0.70) {
		t.Fatalf("packaging unit price = %.4f, want 0.70", quote.PackagingUnitPrice)
	}
}

func TestQuoteLineUnknownOptionRejected(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID: "prod-latte",
		SelectedOptions: map[string]string{
			"vg-latte-milk": "opt-milk-soy",
		},
		Quantity: 1,
	})
	if !errors.Is(err, store.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference for removed option, got %v", err)
	}
}

func TestQuoteLineUnknownExtraRejected(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID: "prod-latte",
		RecipeID:  "rcp-latte-base",
		ExtraIDs:  []string{"ext-unicorn-dust"},
		Quantity:  1,
	})
	if !errors.Is(err, store.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference for unknown extra, got %v", err)
	}
}

func TestQuoteLineRecipeAndOptionsConflict(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID:       "prod-latte",
		RecipeID:        "rcp-latte-base",
		SelectedOptions: map[string]string{"vg-latte-size": "opt-size-l"},
		Quantity:        1,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for mixed selection, got %v", err)
	}
}

func TestCreateOrderTotals(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-latte", RecipeID: "rcp-latte-base", PackagingID: "pkg-cup-12", Quantity: 1},
		},
		TaxRate:       taxRate(0.08),
		PaymentMethod: "cash",
		AmountPaid:    25.00,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	order := resp.Order
	if !nearlyEqual(order.Subtotal, 18.96) {
		t.Fatalf("subtotal = %.4f, want 18.96", order.Subtotal)
	}
	if !nearlyEqual(order.Tax, 1.52) {
		t.Fatalf("tax = %.4f, want 1.52", order.Tax)
	}
	if !nearlyEqual(order.Total, 20.48) {
		t.Fatalf("total = %.4f, want 20.48", order.Total)
	}
	if !nearlyEqual(order.ChangeGiven, 4.52) {
		t.Fatalf("change = %.4f, want 4.52", order.ChangeGiven)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.CashierUsername != "cashier" {
		t.Fatalf("cashier = %s, want cashier", order.CashierUsername)
	}
}

func TestCreateOrderFreezesPrices(t *testing.T) {
	svc, repo := newTestService()

	resp, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-latte", RecipeID: "rcp-latte-base", Quantity: 1},
		},
		PaymentMethod: "cash",
		AmountPaid:    20.00,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	frozen := resp.Order.Lines[0].UnitPrice

	ingredients, err := repo.GetIngredientsByIDs(context.Background(), []string{"ing-beans"})
	if err != nil {
		t.Fatalf("GetIngredientsByIDs: %v", err)
	}
	beans := ingredients["ing-beans"]
	beans.CostPerUnit = beans.CostPerUnit * 10
	if _, err := repo.UpdateIngredient(context.Background(), beans); err != nil {
		t.Fatalf("UpdateIngredient: %v", err)
	}

	stored, err := svc.GetOrder(cashierContext(), resp.Order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !nearlyEqual(stored.Lines[0].UnitPrice, frozen) {
		t.Fatalf("stored unit price %.4f changed after catalog edit, want %.4f", stored.Lines[0].UnitPrice, frozen)
	}

	quote, err := svc.QuoteLine(cashierContext(), domain.OrderLineRequest{
		ProductID: "prod-latte",
		RecipeID:  "rcp-latte-base",
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("QuoteLine: %v", err)
	}
	if nearlyEqual(quote.UnitPrice, frozen) {
		t.Fatalf("fresh quote should reflect the new ingredient cost")
	}
}

func TestCreateOrderIdempotency(t *testing.T) {
	svc, _ := newTestService()

	req := domain.OrderCreateRequest{
		IdempotencyKey: "order-abc-123",
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-beans-bag", Quantity: 1},
		},
		PaymentMethod: "card",
	}

	first, err := svc.CreateOrder(cashierContext(), req)
	if err != nil {
		t.Fatalf("first CreateOrder: %v", err)
	}
	if first.Duplicate {
		t.Fatalf("first submission must not be marked duplicate")
	}

	second, err := svc.CreateOrder(cashierContext(), req)
	if err != nil {
		t.Fatalf("second CreateOrder: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("second submission must be marked duplicate")
	}
	if second.Order.ID != first.Order.ID {
		t.Fatalf("duplicate returned order %s, want %s", second.Order.ID, first.Order.ID)
	}
}

func TestCreateOrderOverDiscountRejected(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-beans-bag", Quantity: 1},
		},
		Discount:      100.00,
		PaymentMethod: "card",
	})
	if !errors.Is(err, pricing.ErrDiscountExceedsSubtotal) {
		t.Fatalf("expected ErrDiscountExceedsSubtotal, got %v", err)
	}
}

func TestCreateOrderCashUnderpaymentRejected(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-beans-bag", Quantity: 1},
		},
		PaymentMethod: "cash",
		AmountPaid:    5.00,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for cash underpayment, got %v", err)
	}
}

func TestCreateOrderConsumesPackagingStock(t *testing.T) {
	svc, repo := newTestService()

	before, err := repo.GetPackagingByID(context.Background(), "pkg-cup-12")
	if err != nil {
		t.Fatalf("GetPackagingByID: %v", err)
	}

	_, err = svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-latte", RecipeID: "rcp-latte-base", PackagingID: "pkg-cup-12", Quantity: 3},
		},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	after, err := repo.GetPackagingByID(context.Background(), "pkg-cup-12")
	if err != nil {
		t.Fatalf("GetPackagingByID: %v", err)
	}
	if after.CurrentStock != before.CurrentStock-3 {
		t.Fatalf("packaging stock = %d, want %d", after.CurrentStock, before.CurrentStock-3)
	}
}

func TestOrderStatusLifecycle(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-beans-bag", Quantity: 1},
		},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	orderID := resp.Order.ID

	for _, status := range []string{domain.OrderStatusPreparing, domain.OrderStatusReady} {
		if _, err := svc.UpdateOrderStatus(cashierContext(), orderID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	// A ready order can only complete.
	if _, err := svc.UpdateOrderStatus(cashierContext(), orderID, domain.OrderStatusCancelled); !errors.Is(err, store.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus cancelling a ready order, got %v", err)
	}

	// Repeating the current status is a no-op.
	order, err := svc.UpdateOrderStatus(cashierContext(), orderID, domain.OrderStatusReady)
	if err != nil {
		t.Fatalf("same-status update: %v", err)
	}
	if order.Status != domain.OrderStatusReady {
		t.Fatalf("status = %s, want ready", order.Status)
	}

	if _, err := svc.UpdateOrderStatus(cashierContext(), orderID, domain.OrderStatusCompleted); err != nil {
		t.Fatalf("transition to completed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(cashierContext(), orderID, domain.OrderStatusPending); !errors.Is(err, store.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus reopening a completed order, got %v", err)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-beans-bag", Quantity: 1},
		},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	order, err := svc.UpdateOrderStatus(cashierContext(), resp.Order.ID, domain.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel pending order: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", order.Status)
	}
}

func TestReceiptMatchesStoredOrder(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
		ClientName: "Dana",
		Lines: []domain.OrderLineRequest{
			{ProductID: "prod-latte", RecipeID: "rcp-latte-base", PackagingID: "pkg-cup-12", Quantity: 2},
		},
		TaxRate:       taxRate(0.08),
		PaymentMethod: "cash",
		AmountPaid:    50.00,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	receipt, err := svc.Receipt(cashierContext(), resp.Order.ID)
	if err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	if receipt.OrderID != resp.Order.ID {
		t.Fatalf("receipt order id = %s, want %s", receipt.OrderID, resp.Order.ID)
	}
	if !strings.Contains(receipt.PreviewText, "Latte x2") {
		t.Fatalf("preview missing line item:\n%s", receipt.PreviewText)
	}
	if !strings.Contains(receipt.PreviewText, "Dana") {
		t.Fatalf("preview missing client name:\n%s", receipt.PreviewText)
	}
	if receipt.EscposBase64 == "" {
		t.Fatalf("expected ESC/POS payload")
	}
}

func TestCatalogMutationRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateProduct(cashierContext(), domain.ProductCreateRequest{
		Name:     "Cold Brew",
		Category: "coffee",
	})
	if err == nil {
		t.Fatalf("expected cashier to be rejected from product creation")
	}

	product, err := svc.CreateProduct(adminContext(), domain.ProductCreateRequest{
		Name:     "Cold Brew",
		Category: "coffee",
	})
	if err != nil {
		t.Fatalf("admin CreateProduct: %v", err)
	}
	if !product.Active {
		t.Fatalf("new product should start active")
	}
}

func TestRecipeCostUsesCategoryConfig(t *testing.T) {
	svc, _ := newTestService()

	breakdown, err := svc.RecipeCost(cashierContext(), "rcp-latte-base")
	if err != nil {
		t.Fatalf("RecipeCost: %v", err)
	}

	// espresso config: 2 min prep at 0.25/min
	if !nearlyEqual(breakdown.LaborCost, 0.50) {
		t.Fatalf("labor cost = %.4f, want 0.50", breakdown.LaborCost)
	}
	if !nearlyEqual(breakdown.SellingPrice, 18.26) {
		t.Fatalf("selling price = %.4f, want 18.26", breakdown.SellingPrice)
	}
}

func TestLowStockAlerts(t *testing.T) {
	svc, repo := newTestService()

	if _, err := repo.AdjustIngredientStock(context.Background(), "ing-chocolate", -2800); err != nil {
		t.Fatalf("AdjustIngredientStock: %v", err)
	}

	resp, err := svc.LowStockAlerts(cashierContext())
	if err != nil {
		t.Fatalf("LowStockAlerts: %v", err)
	}

	found := false
	for _, alert := range resp.Alerts {
		if alert.ID == "ing-chocolate" && alert.Kind == "ingredient" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a low stock alert for ing-chocolate, got %+v", resp.Alerts)
	}
}

func TestDailyReportCountsOrders(t *testing.T) {
	svc, _ := newTestService()

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateOrder(cashierContext(), domain.OrderCreateRequest{
			Lines: []domain.OrderLineRequest{
				{ProductID: "prod-beans-bag", Quantity: 1},
			},
			PaymentMethod: "card",
		}); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	report, err := svc.DailyReport(cashierContext(), time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("DailyReport: %v", err)
	}
	if report.Orders != 2 {
		t.Fatalf("orders = %d, want 2", report.Orders)
	}
	if !nearlyEqual(report.GrossSales, 28.00) {
		t.Fatalf("gross sales = %.4f, want 28.00", report.GrossSales)
	}
}
