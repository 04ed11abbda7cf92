// Package pricing implements the recipe cost calculator, the per-line price
// composer and the order aggregator. Everything here is pure computation over
// in-memory values; catalog lookup and persistence live with the callers.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNegativeQuantity        = errors.New("negative ingredient quantity")
	ErrInvalidLine             = errors.New("invalid ingredient line")
	ErrInvalidConfig           = errors.New("invalid pricing config")
	ErrNegativePrice           = errors.New("composed price is negative")
	ErrInvalidTaxRate          = errors.New("invalid tax rate")
	ErrInvalidDiscount         = errors.New("invalid discount")
	ErrDiscountExceedsSubtotal = errors.New("discount exceeds subtotal")
	ErrInvalidQuantity         = errors.New("line quantity must be at least 1")
)

// Round2 rounds a currency amount to 2 decimal places, half away from zero.
// It is applied at output boundaries only; intermediate math keeps full
// precision so rounding error never compounds.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Config holds the pricing parameters used to derive a selling price from raw
// ingredient cost. Markup and overhead are percentages (150 = 150%).
type Config struct {
	MarkupPercentage   float64 `json:"markup_percentage"`
	LaborCostPerMinute float64 `json:"labor_cost_per_minute"`
	PreparationTime    float64 `json:"preparation_time"`
	OverheadPercentage float64 `json:"overhead_percentage"`
}

// DefaultConfig returns the house defaults: 150% markup, $0.25/min labor,
// 3 minutes preparation, 20% overhead.
func DefaultConfig() Config {
	return Config{
		MarkupPercentage:   150,
		LaborCostPerMinute: 0.25,
		PreparationTime:    3,
		OverheadPercentage: 20,
	}
}

var categoryConfigs = map[string]Config{
	"espresso":  {MarkupPercentage: 180, LaborCostPerMinute: 0.25, PreparationTime: 2, OverheadPercentage: 20},
	"coffee":    {MarkupPercentage: 150, LaborCostPerMinute: 0.25, PreparationTime: 3, OverheadPercentage: 20},
	"specialty": {MarkupPercentage: 160, LaborCostPerMinute: 0.30, PreparationTime: 5, OverheadPercentage: 20},
	"retail":    {MarkupPercentage: 50, LaborCostPerMinute: 0, PreparationTime: 0, OverheadPercentage: 10},
}

// ConfigForCategory maps a product category to its pricing config. Lookup is
// by lower-cased name; unrecognized categories fall back to "coffee".
func ConfigForCategory(category string) Config {
	if cfg, ok := categoryConfigs[strings.ToLower(strings.TrimSpace(category))]; ok {
		return cfg
	}
	return categoryConfigs["coffee"]
}

func (c Config) validate() error {
	if c.MarkupPercentage < 0 || c.LaborCostPerMinute < 0 || c.PreparationTime < 0 || c.OverheadPercentage < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// IngredientLine is one (ingredient, quantity) input to the cost calculator.
type IngredientLine struct {
	Name            string
	Unit            string
	Quantity        float64
	CostPerUnit     float64
	WastePercentage float64
}

// IngredientCost is the per-ingredient entry of a cost breakdown.
type IngredientCost struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	CostPerUnit float64 `json:"cost_per_unit"`
	TotalCost   float64 `json:"total_cost"`
}

type CostBreakdown struct {
	IngredientCost   float64          `json:"ingredient_cost"`
	LaborCost        float64          `json:"labor_cost"`
	BaseCost         float64          `json:"base_cost"`
	CostWithOverhead float64          `json:"cost_with_overhead"`
	SellingPrice     float64          `json:"selling_price"`
	Profit           float64          `json:"profit"`
	ProfitMargin     float64          `json:"profit_margin"`
	Breakdown        []IngredientCost `json:"breakdown"`
}

// CalculateRecipeCost derives the full cost breakdown for a recipe. An empty
// line list is not an error: it yields zero ingredient cost and the caller
// treats the recipe as a retail item. Negative quantities are rejected rather
// than clamped.
func CalculateRecipeCost(lines []IngredientLine, cfg Config) (CostBreakdown, error) {
	if err := cfg.validate(); err != nil {
		return CostBreakdown{}, err
	}

	ingredientCost := 0.0
	breakdown := make([]IngredientCost, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 0 {
			return CostBreakdown{}, fmt.Errorf("%w: %s", ErrNegativeQuantity, line.Name)
		}
		if line.CostPerUnit < 0 || line.WastePercentage < 0 {
			return CostBreakdown{}, fmt.Errorf("%w: %s", ErrInvalidLine, line.Name)
		}

		lineCost := line.CostPerUnit * (1 + line.WastePercentage) * line.Quantity
		ingredientCost += lineCost
		breakdown = append(breakdown, IngredientCost{
			Name:        line.Name,
			Quantity:    line.Quantity,
			Unit:        line.Unit,
			CostPerUnit: line.CostPerUnit,
			TotalCost:   Round2(lineCost),
		})
	}

	laborCost := cfg.LaborCostPerMinute * cfg.PreparationTime
	baseCost := ingredientCost + laborCost
	costWithOverhead := baseCost * (1 + cfg.OverheadPercentage/100)
	sellingPrice := costWithOverhead * (1 + cfg.MarkupPercentage/100)
	profit := sellingPrice - baseCost

	profitMargin := 0.0
	if sellingPrice != 0 {
		profitMargin = 100 * profit / sellingPrice
	}

	return CostBreakdown{
		IngredientCost:   Round2(ingredientCost),
		LaborCost:        Round2(laborCost),
		BaseCost:         Round2(baseCost),
		CostWithOverhead: Round2(costWithOverhead),
		SellingPrice:     Round2(sellingPrice),
		Profit:           Round2(profit),
		ProfitMargin:     Round2(profitMargin),
		Breakdown:        breakdown,
	}, nil
}

// Selections carries the already-resolved price components of a cart line.
// Resolution of ids against the catalog happens before this point, so an
// unknown option or extra never silently prices at zero here.
type Selections struct {
	VariantAdjustments []float64
	ExtraPrices        []float64
}

// ComposeLinePrice combines a base price with variant adjustments and extras
// into a per-unit price. Packaging is excluded; it is charged separately at
// aggregation time (one convention, applied everywhere). A negative composed
// price signals a catalog misconfiguration and is an error.
func ComposeLinePrice(base float64, sel Selections) (float64, error) {
	variantTotal := 0.0
	for _, adj := range sel.VariantAdjustments {
		variantTotal += adj
	}
	extrasTotal := 0.0
	for _, price := range sel.ExtraPrices {
		if price < 0 {
			return 0, fmt.Errorf("%w: negative extra price", ErrInvalidLine)
		}
		extrasTotal += price
	}

	unitPrice := base + variantTotal + extrasTotal
	if unitPrice < 0 {
		return 0, ErrNegativePrice
	}
	return Round2(unitPrice), nil
}

// PackagingCharge is the per-unit packaging charge: cost with a fixed 100%
// markup.
func PackagingCharge(costPerUnit float64) float64 {
	if costPerUnit <= 0 {
		return 0
	}
	return Round2(costPerUnit * 2)
}

// Line is one priced order line input to the aggregator.
type Line struct {
	UnitPrice          float64
	PackagingUnitPrice float64
	Quantity           int
}

// LineSubtotal is the charge for one line: (unit + packaging) × quantity.
func LineSubtotal(l Line) float64 {
	return Round2((l.UnitPrice + l.PackagingUnitPrice) * float64(l.Quantity))
}

type OrderTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// AggregateOrder sums priced lines into order totals. Discount applies before
// tax; an over-discount is surfaced to the caller, never silently absorbed.
// Subtotal, tax and total are rounded independently at output; the taxable
// amount is not rounded in between.
func AggregateOrder(lines []Line, taxRate float64, discount float64) (OrderTotals, error) {
	if taxRate < 0 || taxRate > 1 {
		return OrderTotals{}, ErrInvalidTaxRate
	}
	if discount < 0 {
		return OrderTotals{}, ErrInvalidDiscount
	}

	subtotal := 0.0
	for _, line := range lines {
		if line.Quantity < 1 {
			return OrderTotals{}, ErrInvalidQuantity
		}
		if line.UnitPrice < 0 || line.PackagingUnitPrice < 0 {
			return OrderTotals{}, ErrNegativePrice
		}
		subtotal += (line.UnitPrice + line.PackagingUnitPrice) * float64(line.Quantity)
	}

	if discount > subtotal+1e-9 {
		return OrderTotals{}, ErrDiscountExceedsSubtotal
	}

	taxableAmount := subtotal - discount
	tax := taxableAmount * taxRate
	total := taxableAmount + tax

	return OrderTotals{
		Subtotal: Round2(subtotal),
		Tax:      Round2(tax),
		Discount: Round2(discount),
		Total:    Round2(total),
	}, nil
}
