package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"brewpos/backend/internal/domain"
	"brewpos/backend/internal/store"
	"brewpos/backend/internal/xid"
)

// Store is an in-memory Repository used for dev mode and tests. All maps are
// guarded by a single RWMutex; values are copied in and out so callers never
// share memory with the store.
type Store struct {
	mu               sync.RWMutex
	productsByID     map[string]domain.Product
	ingredientsByID  map[string]domain.Ingredient
	recipesByID      map[string]domain.Recipe
	variantGroups    map[string][]domain.VariantGroup
	extrasByID       map[string]domain.Extra
	packagingByID    map[string]domain.Packaging
	ordersByID       map[string]*domain.Order
	ordersByIdem     map[string]*domain.Order
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		productsByID:    make(map[string]domain.Product),
		ingredientsByID: make(map[string]domain.Ingredient),
		recipesByID:     make(map[string]domain.Recipe),
		variantGroups:   make(map[string][]domain.VariantGroup),
		extrasByID:      make(map[string]domain.Extra),
		packagingByID:   make(map[string]domain.Packaging),
		ordersByID:      make(map[string]*domain.Order),
		ordersByIdem:    make(map[string]*domain.Order),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. Production runs use
// PostgreSQL-backed accounts instead.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store preloaded with a small coffee-shop catalog.
func NewSeeded() *Store {
	s := New()

	ingredients := []domain.Ingredient{
		{ID: "ing-beans", Name: "Espresso Beans", Unit: domain.UnitGram, CostPerUnit: 0.04, WastePercentage: 0.02, CurrentStock: 5000, LowStockThreshold: 500},
		{ID: "ing-milk", Name: "Whole Milk", Unit: domain.UnitMilliliter, CostPerUnit: 0.02, WastePercentage: 0.05, CurrentStock: 20000, LowStockThreshold: 2000},
		{ID: "ing-chocolate", Name: "Chocolate Sauce", Unit: domain.UnitMilliliter, CostPerUnit: 0.03, WastePercentage: 0.01, CurrentStock: 3000, LowStockThreshold: 300},
		{ID: "ing-filter", Name: "Drip Coffee Grounds", Unit: domain.UnitGram, CostPerUnit: 0.025, WastePercentage: 0.03, CurrentStock: 4000, LowStockThreshold: 400},
	}
	for _, ing := range ingredients {
		s.ingredientsByID[ing.ID] = ing
	}

	products := []domain.Product{
		{ID: "prod-latte", Name: "Latte", Category: "espresso", Active: true},
		{ID: "prod-mocha", Name: "Mocha", Category: "specialty", Active: true},
		{ID: "prod-drip", Name: "Drip Coffee", Category: "coffee", Active: true},
		{ID: "prod-beans-bag", Name: "House Blend Beans 250g", Category: "retail", BasePrice: 14.00, Active: true},
	}
	for _, p := range products {
		s.productsByID[p.ID] = p
	}

	recipes := []domain.Recipe{
		{ID: "rcp-latte-base", ProductID: "prod-latte", Variant: "", PriceModifier: 0, Lines: []domain.RecipeLine{
			{IngredientID: "ing-beans", Quantity: 18},
			{IngredientID: "ing-milk", Quantity: 200},
		}},
		{ID: "rcp-latte-small", ProductID: "prod-latte", Variant: "Small", PriceModifier: -0.50, Lines: []domain.RecipeLine{
			{IngredientID: "ing-beans", Quantity: 18},
			{IngredientID: "ing-milk", Quantity: 120},
		}},
		{ID: "rcp-mocha-base", ProductID: "prod-mocha", Variant: "", PriceModifier: 0.25, Lines: []domain.RecipeLine{
			{IngredientID: "ing-beans", Quantity: 18},
			{IngredientID: "ing-milk", Quantity: 180},
			{IngredientID: "ing-chocolate", Quantity: 30},
		}},
		{ID: "rcp-drip-base", ProductID: "prod-drip", Variant: "", PriceModifier: 0, Lines: []domain.RecipeLine{
			{IngredientID: "ing-filter", Quantity: 20},
		}},
	}
	for _, r := range recipes {
		s.recipesByID[r.ID] = r
	}

	s.variantGroups["prod-latte"] = []domain.VariantGroup{
		{ID: "vg-latte-milk", ProductID: "prod-latte", Name: "Milk", Options: []domain.VariantOption{
			{ID: "opt-milk-whole", Name: "Whole", PriceAdjustment: 0},
			{ID: "opt-milk-oat", Name: "Oat", PriceAdjustment: 0.50},
			{ID: "opt-milk-almond", Name: "Almond", PriceAdjustment: 0.60},
		}},
		{ID: "vg-latte-size", ProductID: "prod-latte", Name: "Size", Options: []domain.VariantOption{
			{ID: "opt-size-s", Name: "Small", PriceAdjustment: -0.50},
			{ID: "opt-size-m", Name: "Medium", PriceAdjustment: 0},
			{ID: "opt-size-l", Name: "Large", PriceAdjustment: 0.75},
		}},
	}

	extras := []domain.Extra{
		{ID: "ext-caramel", Name: "Caramel Syrup", Price: 0.50},
		{ID: "ext-vanilla", Name: "Vanilla Syrup", Price: 0.50},
		{ID: "ext-shot", Name: "Extra Shot", Price: 1.00},
	}
	for _, e := range extras {
		s.extrasByID[e.ID] = e
	}

	packagings := []domain.Packaging{
		{ID: "pkg-cup-12", Name: "Paper Cup 12oz", CostPerUnit: 0.35, CurrentStock: 400, LowStockThreshold: 50},
		{ID: "pkg-cup-16", Name: "Paper Cup 16oz", CostPerUnit: 0.45, CurrentStock: 300, LowStockThreshold: 50},
	}
	for _, p := range packagings {
		s.packagingByID[p.ID] = p
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Category == products[j].Category {
			return products[i].Name < products[j].Name
		}
		return products[i].Category < products[j].Category
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.productsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[product.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListIngredients(_ context.Context) ([]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredients := make([]domain.Ingredient, 0, len(s.ingredientsByID))
	for _, ing := range s.ingredientsByID {
		ingredients = append(ingredients, ing)
	}
	sort.Slice(ingredients, func(i, j int) bool { return ingredients[i].Name < ingredients[j].Name })
	return ingredients, nil
}

func (s *Store) GetIngredientsByIDs(_ context.Context, ids []string) (map[string]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]domain.Ingredient, len(ids))
	for _, id := range ids {
		if ing, ok := s.ingredientsByID[id]; ok {
			found[id] = ing
		}
	}
	return found, nil
}

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.ID == "" || ingredient.Name == "" || ingredient.Unit == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredientsByID[ingredient.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	s.ingredientsByID[ingredient.ID] = ingredient
	created := ingredient
	return &created, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredientsByID[ingredient.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.ingredientsByID[ingredient.ID] = ingredient
	updated := ingredient
	return &updated, nil
}

func (s *Store) AdjustIngredientStock(_ context.Context, id string, delta float64) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ing, ok := s.ingredientsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if ing.CurrentStock+delta < 0 {
		return nil, store.ErrInvalidInput
	}
	ing.CurrentStock += delta
	s.ingredientsByID[id] = ing
	return &ing, nil
}

func (s *Store) CreateRecipe(_ context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	if recipe.ID == "" || recipe.ProductID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[recipe.ProductID]; !exists {
		return nil, store.ErrUnknownReference
	}
	for _, line := range recipe.Lines {
		if _, exists := s.ingredientsByID[line.IngredientID]; !exists {
			return nil, store.ErrUnknownReference
		}
	}
	s.recipesByID[recipe.ID] = recipe
	created := recipe
	return &created, nil
}

func (s *Store) GetRecipeByID(_ context.Context, id string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) GetBaseRecipe(_ context.Context, productID string) (*domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.recipesByID {
		if r.ProductID == productID && r.Variant == "" {
			found := r
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListRecipesByProduct(_ context.Context, productID string) ([]domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipes := make([]domain.Recipe, 0, 4)
	for _, r := range s.recipesByID {
		if r.ProductID == productID {
			recipes = append(recipes, r)
		}
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Variant < recipes[j].Variant })
	return recipes, nil
}

func (s *Store) CreateVariantGroup(_ context.Context, group domain.VariantGroup) (*domain.VariantGroup, error) {
	if group.ID == "" || group.ProductID == "" || group.Name == "" || len(group.Options) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[group.ProductID]; !exists {
		return nil, store.ErrUnknownReference
	}
	s.variantGroups[group.ProductID] = append(s.variantGroups[group.ProductID], group)
	created := group
	return &created, nil
}

func (s *Store) ListVariantGroupsByProduct(_ context.Context, productID string) ([]domain.VariantGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := s.variantGroups[productID]
	out := make([]domain.VariantGroup, len(groups))
	copy(out, groups)
	return out, nil
}

func (s *Store) CreateExtra(_ context.Context, extra domain.Extra) (*domain.Extra, error) {
	if extra.ID == "" || extra.Name == "" || extra.Price < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.extrasByID[extra.ID] = extra
	created := extra
	return &created, nil
}

func (s *Store) ListExtras(_ context.Context) ([]domain.Extra, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	extras := make([]domain.Extra, 0, len(s.extrasByID))
	for _, e := range s.extrasByID {
		extras = append(extras, e)
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i].Name < extras[j].Name })
	return extras, nil
}

func (s *Store) GetExtrasByIDs(_ context.Context, ids []string) (map[string]domain.Extra, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]domain.Extra, len(ids))
	for _, id := range ids {
		if e, ok := s.extrasByID[id]; ok {
			found[id] = e
		}
	}
	return found, nil
}

func (s *Store) CreatePackaging(_ context.Context, packaging domain.Packaging) (*domain.Packaging, error) {
	if packaging.ID == "" || packaging.Name == "" || packaging.CostPerUnit < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.packagingByID[packaging.ID] = packaging
	created := packaging
	return &created, nil
}

func (s *Store) ListPackaging(_ context.Context) ([]domain.Packaging, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	packagings := make([]domain.Packaging, 0, len(s.packagingByID))
	for _, p := range s.packagingByID {
		packagings = append(packagings, p)
	}
	sort.Slice(packagings, func(i, j int) bool { return packagings[i].Name < packagings[j].Name })
	return packagings, nil
}

func (s *Store) GetPackagingByID(_ context.Context, id string) (*domain.Packaging, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packagingByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) AdjustPackagingStock(_ context.Context, id string, delta int) (*domain.Packaging, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packagingByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.CurrentStock+delta < 0 {
		return nil, store.ErrInvalidInput
	}
	p.CurrentStock += delta
	s.packagingByID[id] = p
	return &p, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if order.ID == "" || len(order.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IdempotencyKey != "" {
		if _, exists := s.ordersByIdem[order.IdempotencyKey]; exists {
			return nil, store.ErrInvalidInput
		}
	}

	stored := order
	s.ordersByID[order.ID] = &stored
	if order.IdempotencyKey != "" {
		s.ordersByIdem[order.IdempotencyKey] = &stored
	}
	created := stored
	return &created, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := *o
	return &found, nil
}

func (s *Store) ListOrders(_ context.Context, status string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, o := range s.ordersByID {
		if status != "" && o.Status != status {
			continue
		}
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) FindOrderByIdempotency(_ context.Context, key string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.ordersByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := *o
	return &found, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status string) (*domain.Order, error) {
	if !domain.IsKnownStatus(status) {
		return nil, store.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Status = status
	updated := *o
	return &updated, nil
}

func (s *Store) GetDailyReport(_ context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{}
	byPayment := map[string]*domain.DailyReportPayment{}

	for _, o := range s.ordersByID {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		if o.Status == domain.OrderStatusCancelled {
			report.Cancelled++
			continue
		}
		report.Orders++
		report.GrossSales += o.Subtotal
		report.Discount += o.Discount
		report.Tax += o.Tax
		report.NetSales += o.Total

		entry, ok := byPayment[o.PaymentMethod]
		if !ok {
			entry = &domain.DailyReportPayment{PaymentMethod: o.PaymentMethod}
			byPayment[o.PaymentMethod] = entry
		}
		entry.Orders++
		entry.Total += o.Total
	}

	methods := make([]string, 0, len(byPayment))
	for method := range byPayment {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		report.ByPayment = append(report.ByPayment, *byPayment[method])
	}
	return report, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.TrimSpace(user.Username)
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = password
	s.usersByUsername[username] = u
	return nil
}
