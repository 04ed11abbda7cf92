package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"brewpos/backend/internal/domain"
	"brewpos/backend/internal/pricing"
	"brewpos/backend/internal/store"
	"brewpos/backend/internal/suggest"
	"brewpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	suggester      *suggest.Engine
	defaultTaxRate float64
}

func New(repo store.Repository, suggester *suggest.Engine, defaultTaxRate float64) *Service {
	if defaultTaxRate < 0 || defaultTaxRate > 1 {
		defaultTaxRate = 0
	}

	return &Service{
		repo:           repo,
		suggester:      suggester,
		defaultTaxRate: defaultTaxRate,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" || req.BasePrice < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		ID:        xid.New("prod"),
		Name:      req.Name,
		Category:  strings.ToLower(req.Category),
		BasePrice: pricing.Round2(req.BasePrice),
		Active:    true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,category=%s", created.Name, created.Category))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = strings.ToLower(category)
	}
	if req.BasePrice != nil {
		if *req.BasePrice < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.BasePrice = pricing.Round2(*req.BasePrice)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,base_price=%.2f", saved.Active, saved.BasePrice))
	return *saved, nil
}

func (s *Service) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.repo.ListIngredients(ctx)
}

func (s *Service) CreateIngredient(ctx context.Context, req domain.IngredientCreateRequest) (domain.Ingredient, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Ingredient{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if req.Name == "" || !isSupportedUnit(req.Unit) {
		return domain.Ingredient{}, store.ErrInvalidInput
	}
	if req.CostPerUnit < 0 || req.WastePercentage < 0 || req.InitialStock < 0 || req.LowStockThreshold < 0 {
		return domain.Ingredient{}, store.ErrInvalidInput
	}

	ingredient := domain.Ingredient{
		ID:                xid.New("ing"),
		Name:              req.Name,
		Unit:              req.Unit,
		CostPerUnit:       req.CostPerUnit,
		WastePercentage:   req.WastePercentage,
		CurrentStock:      req.InitialStock,
		LowStockThreshold: req.LowStockThreshold,
	}

	created, err := s.repo.CreateIngredient(ctx, ingredient)
	if err != nil {
		return domain.Ingredient{}, err
	}

	s.logAudit(ctx, "ingredient_create", "ingredient", created.ID, fmt.Sprintf("name=%s,unit=%s", created.Name, created.Unit))
	return *created, nil
}

func (s *Service) AdjustIngredientStock(ctx context.Context, ingredientID string, req domain.StockAdjustRequest) (domain.Ingredient, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Ingredient{}, fmt.Errorf("admin role required")
	}

	adjusted, err := s.repo.AdjustIngredientStock(ctx, ingredientID, req.Delta)
	if err != nil {
		return domain.Ingredient{}, err
	}

	s.logAudit(ctx, "ingredient_stock_adjust", "ingredient", adjusted.ID, fmt.Sprintf("delta=%.2f,note=%s", req.Delta, strings.TrimSpace(req.Note)))
	return *adjusted, nil
}

func (s *Service) CreateRecipe(ctx context.Context, req domain.RecipeCreateRequest) (domain.Recipe, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Recipe{}, fmt.Errorf("admin role required")
	}

	if strings.TrimSpace(req.ProductID) == "" {
		return domain.Recipe{}, store.ErrInvalidInput
	}
	for _, line := range req.Lines {
		if strings.TrimSpace(line.IngredientID) == "" || line.Quantity <= 0 {
			return domain.Recipe{}, store.ErrInvalidInput
		}
	}

	recipe := domain.Recipe{
		ID:            xid.New("rcp"),
		ProductID:     req.ProductID,
		Variant:       strings.TrimSpace(req.Variant),
		PriceModifier: req.PriceModifier,
		Lines:         req.Lines,
	}

	created, err := s.repo.CreateRecipe(ctx, recipe)
	if err != nil {
		return domain.Recipe{}, err
	}

	s.logAudit(ctx, "recipe_create", "recipe", created.ID, fmt.Sprintf("product=%s,variant=%s,lines=%d", created.ProductID, created.Variant, len(created.Lines)))
	return *created, nil
}

// RecipeCost computes the full cost breakdown of a recipe with the pricing
// config of its product's category.
func (s *Service) RecipeCost(ctx context.Context, recipeID string) (pricing.CostBreakdown, error) {
	recipe, err := s.repo.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return pricing.CostBreakdown{}, err
	}
	product, err := s.repo.GetProductByID(ctx, recipe.ProductID)
	if err != nil {
		return pricing.CostBreakdown{}, err
	}

	lines, err := s.ingredientLines(ctx, recipe.Lines)
	if err != nil {
		return pricing.CostBreakdown{}, err
	}
	return pricing.CalculateRecipeCost(lines, pricing.ConfigForCategory(product.Category))
}

func (s *Service) CreateVariantGroup(ctx context.Context, productID string, req domain.VariantGroupCreateRequest) (domain.VariantGroup, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.VariantGroup{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Options) == 0 {
		return domain.VariantGroup{}, store.ErrInvalidInput
	}

	group := domain.VariantGroup{
		ID:        xid.New("vg"),
		ProductID: productID,
		Name:      req.Name,
		Options:   make([]domain.VariantOption, 0, len(req.Options)),
	}
	for _, opt := range req.Options {
		name := strings.TrimSpace(opt.Name)
		if name == "" {
			return domain.VariantGroup{}, store.ErrInvalidInput
		}
		group.Options = append(group.Options, domain.VariantOption{
			ID:              xid.New("opt"),
			Name:            name,
			PriceAdjustment: opt.PriceAdjustment,
		})
	}

	created, err := s.repo.CreateVariantGroup(ctx, group)
	if err != nil {
		return domain.VariantGroup{}, err
	}

	s.logAudit(ctx, "variant_group_create", "variant_group", created.ID, fmt.Sprintf("product=%s,name=%s,options=%d", productID, created.Name, len(created.Options)))
	return *created, nil
}

func (s *Service) ListVariantGroups(ctx context.Context, productID string) ([]domain.VariantGroup, error) {
	return s.repo.ListVariantGroupsByProduct(ctx, productID)
}

func (s *Service) ListExtras(ctx context.Context) ([]domain.Extra, error) {
	return s.repo.ListExtras(ctx)
}

func (s *Service) CreateExtra(ctx context.Context, req domain.ExtraCreateRequest) (domain.Extra, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Extra{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 {
		return domain.Extra{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateExtra(ctx, domain.Extra{
		ID:    xid.New("ext"),
		Name:  req.Name,
		Price: pricing.Round2(req.Price),
	})
	if err != nil {
		return domain.Extra{}, err
	}

	s.logAudit(ctx, "extra_create", "extra", created.ID, fmt.Sprintf("name=%s,price=%.2f", created.Name, created.Price))
	return *created, nil
}

func (s *Service) ListPackaging(ctx context.Context) ([]domain.Packaging, error) {
	return s.repo.ListPackaging(ctx)
}

func (s *Service) CreatePackaging(ctx context.Context, req domain.PackagingCreateRequest) (domain.Packaging, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Packaging{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CostPerUnit < 0 || req.InitialStock < 0 || req.LowStockThreshold < 0 {
		return domain.Packaging{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreatePackaging(ctx, domain.Packaging{
		ID:                xid.New("pkg"),
		Name:              req.Name,
		CostPerUnit:       req.CostPerUnit,
		CurrentStock:      req.InitialStock,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		return domain.Packaging{}, err
	}

	s.logAudit(ctx, "packaging_create", "packaging", created.ID, fmt.Sprintf("name=%s,cost=%.2f", created.Name, created.CostPerUnit))
	return *created, nil
}

// QuoteLine previews the frozen price a cart line would get, without creating
// anything.
func (s *Service) QuoteLine(ctx context.Context, req domain.OrderLineRequest) (domain.PriceQuoteResponse, error) {
	line, breakdown, err := s.composeLine(ctx, req)
	if err != nil {
		return domain.PriceQuoteResponse{}, err
	}

	return domain.PriceQuoteResponse{
		ProductID:          line.ProductID,
		Kind:               line.Kind,
		UnitPrice:          line.UnitPrice,
		PackagingUnitPrice: line.PackagingUnitPrice,
		Quantity:           line.Quantity,
		Breakdown:          breakdown,
	}, nil
}

// CreateOrder composes and freezes every line, aggregates totals, settles
// payment and persists the order atomically. Duplicate submissions with the
// same idempotency key return the stored order unchanged.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderResponse, error) {
	if len(req.Lines) == 0 {
		return domain.OrderResponse{}, store.ErrInvalidInput
	}
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.OrderResponse{}, store.ErrInvalidInput
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}

	if existing, err := s.repo.FindOrderByIdempotency(ctx, req.IdempotencyKey); err == nil {
		return domain.OrderResponse{Order: *existing, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.OrderResponse{}, err
	}

	orderLines := make([]domain.OrderLine, 0, len(req.Lines))
	pricedLines := make([]pricing.Line, 0, len(req.Lines))
	for _, lineReq := range req.Lines {
		line, _, err := s.composeLine(ctx, lineReq)
		if err != nil {
			return domain.OrderResponse{}, err
		}
		orderLines = append(orderLines, line)
		pricedLines = append(pricedLines, pricing.Line{
			UnitPrice:          line.UnitPrice,
			PackagingUnitPrice: line.PackagingUnitPrice,
			Quantity:           line.Quantity,
		})
	}

	taxRate := s.defaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	totals, err := pricing.AggregateOrder(pricedLines, taxRate, req.Discount)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	amountPaid := pricing.Round2(req.AmountPaid)
	changeGiven := 0.0
	if req.PaymentMethod == "cash" {
		if amountPaid < totals.Total {
			return domain.OrderResponse{}, fmt.Errorf("%w: amount paid is less than order total", store.ErrInvalidInput)
		}
		changeGiven = pricing.Round2(amountPaid - totals.Total)
	} else {
		amountPaid = totals.Total
	}

	actor, _ := ActorFromContext(ctx)
	order := domain.Order{
		ID:              xid.New("ord"),
		ClientName:      strings.TrimSpace(req.ClientName),
		CashierUsername: actor.Username,
		IdempotencyKey:  req.IdempotencyKey,
		Lines:           orderLines,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Discount:        totals.Discount,
		Total:           totals.Total,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		AmountPaid:      amountPaid,
		ChangeGiven:     changeGiven,
		CreatedAt:       time.Now().UTC(),
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	warnings := s.consumePackaging(ctx, created.Lines)
	s.logAudit(ctx, "order_create", "order", created.ID, fmt.Sprintf("total=%.2f,payment=%s,lines=%d", created.Total, created.PaymentMethod, len(created.Lines)))

	return domain.OrderResponse{Order: *created, Warnings: warnings}, nil
}

// consumePackaging decrements packaging stock for the order lines and returns
// low-stock warnings. Stock here is informational; failures are logged, never
// fatal to a placed order.
func (s *Service) consumePackaging(ctx context.Context, lines []domain.OrderLine) []string {
	var warnings []string
	for _, line := range lines {
		if line.PackagingID == "" {
			continue
		}
		pkg, err := s.repo.AdjustPackagingStock(ctx, line.PackagingID, -line.Quantity)
		if err != nil {
			log.Printf("[service] WARN: failed to adjust packaging stock id=%s: %v", line.PackagingID, err)
			continue
		}
		if pkg.CurrentStock <= pkg.LowStockThreshold {
			warnings = append(warnings, fmt.Sprintf("packaging %q is low on stock (%d left)", pkg.Name, pkg.CurrentStock))
		}
	}
	return warnings
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !domain.IsKnownStatus(status) {
		return nil, store.ErrInvalidInput
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListOrders(ctx, status, limit)
}

// UpdateOrderStatus advances an order through its lifecycle. Requesting the
// current status is a no-op; anything else must be a legal transition.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status string) (domain.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.IsKnownStatus(status) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", store.ErrInvalidStatus, status)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status == status {
		return *order, nil
	}
	if !domain.CanTransition(order.Status, status) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", store.ErrInvalidStatus, order.Status, status)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, "order_status_update", "order", updated.ID, fmt.Sprintf("from=%s,to=%s", order.Status, status))
	return *updated, nil
}

// Receipt renders a stored order for printing. Every number comes from the
// persisted order; nothing is recomputed, so the printed total always matches
// what was charged.
func (s *Service) Receipt(ctx context.Context, orderID string) (domain.Receipt, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Receipt{}, err
	}
	return buildReceipt(*order), nil
}

func (s *Service) SuggestExtra(ctx context.Context, req domain.SuggestionRequest) (domain.SuggestionResponse, error) {
	products := make(map[string]domain.Product, len(req.CartProductIDs))
	for _, productID := range req.CartProductIDs {
		product, err := s.repo.GetProductByID(ctx, productID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return domain.SuggestionResponse{}, err
		}
		products[product.ID] = *product
	}

	extras, err := s.repo.ListExtras(ctx)
	if err != nil {
		return domain.SuggestionResponse{}, err
	}

	return s.suggester.Suggest(ctx, req, products, extras), nil
}

// LowStockAlerts reports ingredients and packaging at or below their
// thresholds. Stock never influences pricing.
func (s *Service) LowStockAlerts(ctx context.Context) (domain.LowStockResponse, error) {
	resp := domain.LowStockResponse{Alerts: []domain.LowStockAlert{}}

	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return domain.LowStockResponse{}, err
	}
	for _, ing := range ingredients {
		if ing.CurrentStock <= ing.LowStockThreshold {
			resp.Alerts = append(resp.Alerts, domain.LowStockAlert{
				Kind:         "ingredient",
				ID:           ing.ID,
				Name:         ing.Name,
				CurrentStock: ing.CurrentStock,
				Threshold:    ing.LowStockThreshold,
			})
		}
	}

	packagings, err := s.repo.ListPackaging(ctx)
	if err != nil {
		return domain.LowStockResponse{}, err
	}
	for _, pkg := range packagings {
		if pkg.CurrentStock <= pkg.LowStockThreshold {
			resp.Alerts = append(resp.Alerts, domain.LowStockAlert{
				Kind:         "packaging",
				ID:           pkg.ID,
				Name:         pkg.Name,
				CurrentStock: float64(pkg.CurrentStock),
				Threshold:    float64(pkg.LowStockThreshold),
			})
		}
	}
	return resp, nil
}

func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		now := time.Now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.DailyReport{}, store.ErrInvalidInput
		}
		day = parsed.UTC()
	}
	from := day
	to := from.Add(24 * time.Hour)

	report, err := s.repo.GetDailyReport(ctx, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}
	report.Date = from.Format("2006-01-02")
	return report, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func isSupportedUnit(unit string) bool {
	switch unit {
	case domain.UnitGram, domain.UnitMilliliter, domain.UnitPiece:
		return true
	default:
		return false
	}
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case "cash", "card", "ewallet":
		return true
	default:
		return false
	}
}
