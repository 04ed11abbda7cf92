package store

import (
	"context"
	"errors"
	"time"

	"brewpos/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownReference = errors.New("unknown catalog reference")
	ErrInvalidStatus    = errors.New("invalid status transition")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	GetIngredientsByIDs(ctx context.Context, ids []string) (map[string]domain.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	AdjustIngredientStock(ctx context.Context, id string, delta float64) (*domain.Ingredient, error)

	CreateRecipe(ctx context.Context, recipe domain.Recipe) (*domain.Recipe, error)
	GetRecipeByID(ctx context.Context, id string) (*domain.Recipe, error)
	GetBaseRecipe(ctx context.Context, productID string) (*domain.Recipe, error)
	ListRecipesByProduct(ctx context.Context, productID string) ([]domain.Recipe, error)

	CreateVariantGroup(ctx context.Context, group domain.VariantGroup) (*domain.VariantGroup, error)
	ListVariantGroupsByProduct(ctx context.Context, productID string) ([]domain.VariantGroup, error)

	CreateExtra(ctx context.Context, extra domain.Extra) (*domain.Extra, error)
	ListExtras(ctx context.Context) ([]domain.Extra, error)
	GetExtrasByIDs(ctx context.Context, ids []string) (map[string]domain.Extra, error)

	CreatePackaging(ctx context.Context, packaging domain.Packaging) (*domain.Packaging, error)
	ListPackaging(ctx context.Context) ([]domain.Packaging, error)
	GetPackagingByID(ctx context.Context, id string) (*domain.Packaging, error)
	AdjustPackagingStock(ctx context.Context, id string, delta int) (*domain.Packaging, error)

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error)
	FindOrderByIdempotency(ctx context.Context, key string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error)

	GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
