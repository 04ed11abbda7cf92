package domain

import (
	"time"

	"brewpos/backend/internal/pricing"
)

// Units of measure for ingredients.
const (
	UnitGram       = "g"
	UnitMilliliter = "ml"
	UnitPiece      = "pc"
)

type Ingredient struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Unit              string  `json:"unit"`
	CostPerUnit       float64 `json:"cost_per_unit"`
	WastePercentage   float64 `json:"waste_percentage"`
	CurrentStock      float64 `json:"current_stock"`
	LowStockThreshold float64 `json:"low_stock_threshold"`
}

type IngredientCreateRequest struct {
	Name              string  `json:"name"`
	Unit              string  `json:"unit"`
	CostPerUnit       float64 `json:"cost_per_unit"`
	WastePercentage   float64 `json:"waste_percentage"`
	InitialStock      float64 `json:"initial_stock"`
	LowStockThreshold float64 `json:"low_stock_threshold"`
}

type StockAdjustRequest struct {
	Delta float64 `json:"delta"`
	Note  string  `json:"note,omitempty"`
}

// RecipeLine binds a quantity of one ingredient into a recipe. Lines are
// read-only once an order has frozen a price derived from them.
type RecipeLine struct {
	IngredientID string  `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
}

// Recipe is one purchasable formulation of a product. Variant is the legacy
// free-text variant label; an empty Variant marks the base formulation used
// when pricing through variant groups.
type Recipe struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	Variant       string       `json:"variant"`
	PriceModifier float64      `json:"price_modifier"`
	Lines         []RecipeLine `json:"lines"`
}

type RecipeCreateRequest struct {
	ProductID     string       `json:"product_id"`
	Variant       string       `json:"variant"`
	PriceModifier float64      `json:"price_modifier"`
	Lines         []RecipeLine `json:"lines"`
}

type VariantOption struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	PriceAdjustment float64 `json:"price_adjustment"`
}

type VariantGroup struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Options   []VariantOption `json:"options"`
}

type VariantGroupCreateRequest struct {
	Name    string `json:"name"`
	Options []struct {
		Name            string  `json:"name"`
		PriceAdjustment float64 `json:"price_adjustment"`
	} `json:"options"`
}

type Extra struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type ExtraCreateRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Packaging struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	CostPerUnit       float64 `json:"cost_per_unit"`
	CurrentStock      int     `json:"current_stock"`
	LowStockThreshold int     `json:"low_stock_threshold"`
}

type PackagingCreateRequest struct {
	Name              string  `json:"name"`
	CostPerUnit       float64 `json:"cost_per_unit"`
	InitialStock      int     `json:"initial_stock"`
	LowStockThreshold int     `json:"low_stock_threshold"`
}

type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	BasePrice float64 `json:"base_price"`
	Active    bool    `json:"active"`
}

type ProductCreateRequest struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	BasePrice float64 `json:"base_price"`
}

type ProductUpdateRequest struct {
	Name      *string  `json:"name,omitempty"`
	Category  *string  `json:"category,omitempty"`
	BasePrice *float64 `json:"base_price,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

// Line kinds distinguish ingredient-costed lines from flat-priced retail lines.
const (
	LineKindRecipe = "recipe"
	LineKindRetail = "retail"
)

// OrderLineRequest selects a product plus either a legacy recipe (RecipeID)
// or at most one option per variant group (SelectedOptions, keyed by group id).
type OrderLineRequest struct {
	ProductID       string            `json:"product_id"`
	RecipeID        string            `json:"recipe_id,omitempty"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	ExtraIDs        []string          `json:"extra_ids,omitempty"`
	PackagingID     string            `json:"packaging_id,omitempty"`
	Quantity        int               `json:"quantity"`
}

// OrderLine is a persisted line item. UnitPrice and PackagingUnitPrice are
// frozen when the line is composed; later catalog edits never change them.
type OrderLine struct {
	ProductID          string   `json:"product_id"`
	ProductName        string   `json:"product_name"`
	Kind               string   `json:"kind"`
	RecipeID           string   `json:"recipe_id,omitempty"`
	VariantNames       []string `json:"variant_names,omitempty"`
	ExtraNames         []string `json:"extra_names,omitempty"`
	PackagingID        string   `json:"packaging_id,omitempty"`
	PackagingName      string   `json:"packaging_name,omitempty"`
	Quantity           int      `json:"quantity"`
	UnitPrice          float64  `json:"unit_price"`
	PackagingUnitPrice float64  `json:"packaging_unit_price"`
	LineSubtotal       float64  `json:"line_subtotal"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// CanTransition reports whether an order may move from one status to another.
// Requesting the current status is an idempotent no-op. Cancellation is only
// reachable from pending or preparing.
func CanTransition(from string, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case OrderStatusPending:
		return to == OrderStatusPreparing || to == OrderStatusCancelled
	case OrderStatusPreparing:
		return to == OrderStatusReady || to == OrderStatusCancelled
	case OrderStatusReady:
		return to == OrderStatusCompleted
	default:
		return false
	}
}

func IsKnownStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

type Order struct {
	ID              string      `json:"id"`
	ClientName      string      `json:"client_name"`
	CashierUsername string      `json:"cashier_username"`
	IdempotencyKey  string      `json:"idempotency_key,omitempty"`
	Lines           []OrderLine `json:"lines"`
	Subtotal        float64     `json:"subtotal"`
	Tax             float64     `json:"tax"`
	Discount        float64     `json:"discount"`
	Total           float64     `json:"total"`
	Status          string      `json:"status"`
	PaymentMethod   string      `json:"payment_method"`
	AmountPaid      float64     `json:"amount_paid"`
	ChangeGiven     float64     `json:"change_given"`
	CreatedAt       time.Time   `json:"created_at"`
}

type OrderCreateRequest struct {
	ClientName     string             `json:"client_name"`
	IdempotencyKey string             `json:"idempotency_key"`
	Lines          []OrderLineRequest `json:"lines"`
	TaxRate        *float64           `json:"tax_rate,omitempty"`
	Discount       float64            `json:"discount"`
	PaymentMethod  string             `json:"payment_method"`
	AmountPaid     float64            `json:"amount_paid"`
}

type OrderResponse struct {
	Order     Order    `json:"order"`
	Duplicate bool     `json:"duplicate"`
	Warnings  []string `json:"warnings,omitempty"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

// PriceQuoteResponse previews what a cart line would cost. Breakdown is nil
// for retail lines.
type PriceQuoteResponse struct {
	ProductID          string                  `json:"product_id"`
	Kind               string                  `json:"kind"`
	UnitPrice          float64                 `json:"unit_price"`
	PackagingUnitPrice float64                 `json:"packaging_unit_price"`
	Quantity           int                     `json:"quantity"`
	Breakdown          *pricing.CostBreakdown `json:"cost_breakdown,omitempty"`
}

type Receipt struct {
	OrderID      string `json:"order_id"`
	PreviewText  string `json:"preview_text"`
	EscposBase64 string `json:"escpos_base64"`
	FileName     string `json:"file_name"`
}

type LowStockAlert struct {
	Kind         string  `json:"kind"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CurrentStock float64 `json:"current_stock"`
	Threshold    float64 `json:"threshold"`
}

type LowStockResponse struct {
	Alerts []LowStockAlert `json:"alerts"`
}

type DailyReportPayment struct {
	PaymentMethod string  `json:"payment_method"`
	Orders        int64   `json:"orders"`
	Total         float64 `json:"total"`
}

type DailyReport struct {
	Date       string               `json:"date"`
	Orders     int64                `json:"orders"`
	GrossSales float64              `json:"gross_sales"`
	Discount   float64              `json:"discount"`
	Tax        float64              `json:"tax"`
	NetSales   float64              `json:"net_sales"`
	Cancelled  int64                `json:"cancelled"`
	ByPayment  []DailyReportPayment `json:"by_payment"`
}

type SuggestionRequest struct {
	CartProductIDs []string `json:"cart_product_ids"`
}

type Suggestion struct {
	ExtraID    string  `json:"extra_id"`
	ExtraName  string  `json:"extra_name"`
	Price      float64 `json:"price"`
	ReasonCode string  `json:"reason_code"`
	Confidence float64 `json:"confidence"`
}

type SuggestionResponse struct {
	Suggestion *Suggestion `json:"suggestion,omitempty"`
	LatencyMS  int64       `json:"latency_ms"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
