package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"brewpos/backend/internal/domain"
	"brewpos/backend/internal/store"
)

// Store is the PostgreSQL-backed Repository. Recipe lines and order lines are
// stored as JSONB payloads on their parent rows; an order and its lines are
// therefore created in a single atomic insert.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, base_price, active
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.BasePrice, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, base_price, active
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.BasePrice, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, base_price, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
	`, product.ID, product.Name, product.Category, product.BasePrice, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, base_price = $4, active = $5, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.BasePrice, product.Active)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, cost_per_unit, waste_percentage, current_stock, low_stock_threshold
		FROM ingredients
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]domain.Ingredient, 0, 64)
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CostPerUnit, &ing.WastePercentage, &ing.CurrentStock, &ing.LowStockThreshold); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

func (s *Store) GetIngredientsByIDs(ctx context.Context, ids []string) (map[string]domain.Ingredient, error) {
	found := make(map[string]domain.Ingredient, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, cost_per_unit, waste_percentage, current_stock, low_stock_threshold
		FROM ingredients
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CostPerUnit, &ing.WastePercentage, &ing.CurrentStock, &ing.LowStockThreshold); err != nil {
			return nil, err
		}
		found[ing.ID] = ing
	}
	return found, rows.Err()
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.ID == "" || ingredient.Name == "" || ingredient.Unit == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, name, unit, cost_per_unit, waste_percentage, current_stock, low_stock_threshold, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, ingredient.ID, ingredient.Name, ingredient.Unit, ingredient.CostPerUnit, ingredient.WastePercentage, ingredient.CurrentStock, ingredient.LowStockThreshold)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := ingredient
	return &created, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingredients
		SET name = $2, unit = $3, cost_per_unit = $4, waste_percentage = $5, current_stock = $6, low_stock_threshold = $7, updated_at = now()
		WHERE id = $1
	`, ingredient.ID, ingredient.Name, ingredient.Unit, ingredient.CostPerUnit, ingredient.WastePercentage, ingredient.CurrentStock, ingredient.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := ingredient
	return &updated, nil
}

func (s *Store) AdjustIngredientStock(ctx context.Context, id string, delta float64) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	err := s.db.QueryRowContext(ctx, `
		UPDATE ingredients
		SET current_stock = current_stock + $2, updated_at = now()
		WHERE id = $1 AND current_stock + $2 >= 0
		RETURNING id, name, unit, cost_per_unit, waste_percentage, current_stock, low_stock_threshold
	`, id, delta).Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CostPerUnit, &ing.WastePercentage, &ing.CurrentStock, &ing.LowStockThreshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if found, getErr := s.GetIngredientsByIDs(ctx, []string{id}); getErr == nil {
				if _, exists := found[id]; exists {
					// Row exists; the guard stopped a negative stock result.
					return nil, store.ErrInvalidInput
				}
			}
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &ing, nil
}

func (s *Store) CreateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error) {
	if recipe.ID == "" || recipe.ProductID == "" {
		return nil, store.ErrInvalidInput
	}
	lines, err := json.Marshal(recipe.Lines)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes (id, product_id, variant, price_modifier, lines, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, recipe.ID, recipe.ProductID, recipe.Variant, recipe.PriceModifier, lines)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := recipe
	return &created, nil
}

func scanRecipe(scan func(dest ...any) error) (*domain.Recipe, error) {
	var r domain.Recipe
	var lines []byte
	if err := scan(&r.ID, &r.ProductID, &r.Variant, &r.PriceModifier, &lines); err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &r.Lines); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func (s *Store) GetRecipeByID(ctx context.Context, id string) (*domain.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, variant, price_modifier, lines
		FROM recipes
		WHERE id = $1
	`, id)
	recipe, err := scanRecipe(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return recipe, nil
}

func (s *Store) GetBaseRecipe(ctx context.Context, productID string) (*domain.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, variant, price_modifier, lines
		FROM recipes
		WHERE product_id = $1 AND variant = ''
		LIMIT 1
	`, productID)
	recipe, err := scanRecipe(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return recipe, nil
}

func (s *Store) ListRecipesByProduct(ctx context.Context, productID string) ([]domain.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, variant, price_modifier, lines
		FROM recipes
		WHERE product_id = $1
		ORDER BY variant
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes := make([]domain.Recipe, 0, 4)
	for rows.Next() {
		recipe, err := scanRecipe(rows.Scan)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, *recipe)
	}
	return recipes, rows.Err()
}

func (s *Store) CreateVariantGroup(ctx context.Context, group domain.VariantGroup) (*domain.VariantGroup, error) {
	if group.ID == "" || group.ProductID == "" || group.Name == "" || len(group.Options) == 0 {
		return nil, store.ErrInvalidInput
	}
	options, err := json.Marshal(group.Options)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO variant_groups (id, product_id, name, options, created_at)
		VALUES ($1,$2,$3,$4,now())
	`, group.ID, group.ProductID, group.Name, options)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := group
	return &created, nil
}

func (s *Store) ListVariantGroupsByProduct(ctx context.Context, productID string) ([]domain.VariantGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, name, options
		FROM variant_groups
		WHERE product_id = $1
		ORDER BY name
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]domain.VariantGroup, 0, 4)
	for rows.Next() {
		var g domain.VariantGroup
		var options []byte
		if err := rows.Scan(&g.ID, &g.ProductID, &g.Name, &options); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &g.Options); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) CreateExtra(ctx context.Context, extra domain.Extra) (*domain.Extra, error) {
	if extra.ID == "" || extra.Name == "" || extra.Price < 0 {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extras (id, name, price, created_at)
		VALUES ($1,$2,$3,now())
	`, extra.ID, extra.Name, extra.Price)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := extra
	return &created, nil
}

func (s *Store) ListExtras(ctx context.Context) ([]domain.Extra, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price FROM extras ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	extras := make([]domain.Extra, 0, 16)
	for rows.Next() {
		var e domain.Extra
		if err := rows.Scan(&e.ID, &e.Name, &e.Price); err != nil {
			return nil, err
		}
		extras = append(extras, e)
	}
	return extras, rows.Err()
}

func (s *Store) GetExtrasByIDs(ctx context.Context, ids []string) (map[string]domain.Extra, error) {
	found := make(map[string]domain.Extra, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price FROM extras WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.Extra
		if err := rows.Scan(&e.ID, &e.Name, &e.Price); err != nil {
			return nil, err
		}
		found[e.ID] = e
	}
	return found, rows.Err()
}

func (s *Store) CreatePackaging(ctx context.Context, packaging domain.Packaging) (*domain.Packaging, error) {
	if packaging.ID == "" || packaging.Name == "" || packaging.CostPerUnit < 0 {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packaging (id, name, cost_per_unit, current_stock, low_stock_threshold, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, packaging.ID, packaging.Name, packaging.CostPerUnit, packaging.CurrentStock, packaging.LowStockThreshold)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := packaging
	return &created, nil
}

func (s *Store) ListPackaging(ctx context.Context) ([]domain.Packaging, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cost_per_unit, current_stock, low_stock_threshold
		FROM packaging
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packagings := make([]domain.Packaging, 0, 8)
	for rows.Next() {
		var p domain.Packaging
		if err := rows.Scan(&p.ID, &p.Name, &p.CostPerUnit, &p.CurrentStock, &p.LowStockThreshold); err != nil {
			return nil, err
		}
		packagings = append(packagings, p)
	}
	return packagings, rows.Err()
}

func (s *Store) GetPackagingByID(ctx context.Context, id string) (*domain.Packaging, error) {
	var p domain.Packaging
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cost_per_unit, current_stock, low_stock_threshold
		FROM packaging
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.CostPerUnit, &p.CurrentStock, &p.LowStockThreshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) AdjustPackagingStock(ctx context.Context, id string, delta int) (*domain.Packaging, error) {
	var p domain.Packaging
	err := s.db.QueryRowContext(ctx, `
		UPDATE packaging
		SET current_stock = current_stock + $2
		WHERE id = $1 AND current_stock + $2 >= 0
		RETURNING id, name, cost_per_unit, current_stock, low_stock_threshold
	`, id, delta).Scan(&p.ID, &p.Name, &p.CostPerUnit, &p.CurrentStock, &p.LowStockThreshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := s.GetPackagingByID(ctx, id); getErr == nil {
				return nil, store.ErrInvalidInput
			}
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.ID == "" || len(order.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return nil, err
	}

	var idemKey any
	if order.IdempotencyKey != "" {
		idemKey = order.IdempotencyKey
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, client_name, cashier_username, idempotency_key, lines,
			subtotal, tax, discount, total, status, payment_method, amount_paid, change_given, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, order.ID, order.ClientName, order.CashierUsername, idemKey, lines,
		order.Subtotal, order.Tax, order.Discount, order.Total, order.Status,
		order.PaymentMethod, order.AmountPaid, order.ChangeGiven, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := order
	return &created, nil
}

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	var o domain.Order
	var lines []byte
	var idemKey sql.NullString
	if err := scan(&o.ID, &o.ClientName, &o.CashierUsername, &idemKey, &lines,
		&o.Subtotal, &o.Tax, &o.Discount, &o.Total, &o.Status,
		&o.PaymentMethod, &o.AmountPaid, &o.ChangeGiven, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.IdempotencyKey = idemKey.String
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, err
	}
	return &o, nil
}

const orderColumns = `id, client_name, cashier_username, idempotency_key, lines,
	subtotal, tax, discount, total, status, payment_method, amount_paid, change_given, created_at`

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Store) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (s *Store) FindOrderByIdempotency(ctx context.Context, key string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	order, err := scanOrder(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error) {
	if !domain.IsKnownStatus(status) {
		return nil, store.ErrInvalidStatus
	}
	_, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, id)
}

func (s *Store) GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	var report domain.DailyReport

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status <> 'cancelled'),
			COALESCE(SUM(subtotal) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(discount) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(tax) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&report.Orders, &report.GrossSales, &report.Discount, &report.Tax, &report.NetSales, &report.Cancelled)
	if err != nil {
		return domain.DailyReport{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND status <> 'cancelled'
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.DailyReportPayment
		if err := rows.Scan(&entry.PaymentMethod, &entry.Orders, &entry.Total); err != nil {
			return domain.DailyReport{}, err
		}
		report.ByPayment = append(report.ByPayment, entry)
	}
	return report, rows.Err()
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
