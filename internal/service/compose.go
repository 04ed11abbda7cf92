package service

import (
	"context"
	"errors"
	"fmt"

	"brewpos/backend/internal/domain"
	"brewpos/backend/internal/pricing"
	"brewpos/backend/internal/store"
)

// resolvedVariant is the outcome of resolving a line's product formulation:
// the base price before adjustments, the variant labels for the receipt and
// the cost breakdown when the price came from a costed recipe.
type resolvedVariant struct {
	kind               string
	recipeID           string
	basePrice          float64
	variantAdjustments []float64
	variantNames       []string
	breakdown          *pricing.CostBreakdown
}

// variantSelection resolves a cart line's variant choice against the catalog.
// Two strategies exist: legacy per-variant recipes selected by recipe id, and
// option groups layered on top of a product's base recipe.
type variantSelection interface {
	resolve(ctx context.Context, repo store.Repository, product domain.Product) (resolvedVariant, error)
}

// legacySelection prices a line straight from one recipe. The recipe's price
// modifier is folded into the base price.
type legacySelection struct {
	recipeID string
}

func (sel legacySelection) resolve(ctx context.Context, repo store.Repository, product domain.Product) (resolvedVariant, error) {
	recipe, err := repo.GetRecipeByID(ctx, sel.recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return resolvedVariant{}, fmt.Errorf("%w: recipe %q", store.ErrUnknownReference, sel.recipeID)
		}
		return resolvedVariant{}, err
	}
	if recipe.ProductID != product.ID {
		return resolvedVariant{}, fmt.Errorf("%w: recipe %q does not belong to product %q", store.ErrUnknownReference, sel.recipeID, product.ID)
	}
	return priceFromRecipe(ctx, repo, product, recipe)
}

// optionSelection prices a line from the product's base recipe (or base price
// for retail products) plus one chosen option per variant group.
type optionSelection struct {
	choices map[string]string
}

func (sel optionSelection) resolve(ctx context.Context, repo store.Repository, product domain.Product) (resolvedVariant, error) {
	var resolved resolvedVariant

	baseRecipe, err := repo.GetBaseRecipe(ctx, product.ID)
	switch {
	case err == nil:
		resolved, err = priceFromRecipe(ctx, repo, product, baseRecipe)
		if err != nil {
			return resolvedVariant{}, err
		}
	case errors.Is(err, store.ErrNotFound):
		resolved = resolvedVariant{kind: domain.LineKindRetail, basePrice: product.BasePrice}
	default:
		return resolvedVariant{}, err
	}

	if len(sel.choices) == 0 {
		return resolved, nil
	}

	groups, err := repo.ListVariantGroupsByProduct(ctx, product.ID)
	if err != nil {
		return resolvedVariant{}, err
	}
	byID := make(map[string]domain.VariantGroup, len(groups))
	for _, group := range groups {
		byID[group.ID] = group
	}

	for groupID, optionID := range sel.choices {
		group, ok := byID[groupID]
		if !ok {
			return resolvedVariant{}, fmt.Errorf("%w: variant group %q", store.ErrUnknownReference, groupID)
		}
		option, ok := findOption(group, optionID)
		if !ok {
			return resolvedVariant{}, fmt.Errorf("%w: option %q is no longer available in %q", store.ErrUnknownReference, optionID, group.Name)
		}
		resolved.variantAdjustments = append(resolved.variantAdjustments, option.PriceAdjustment)
		resolved.variantNames = append(resolved.variantNames, group.Name+": "+option.Name)
	}
	return resolved, nil
}

func findOption(group domain.VariantGroup, optionID string) (domain.VariantOption, bool) {
	for _, option := range group.Options {
		if option.ID == optionID {
			return option, true
		}
	}
	return domain.VariantOption{}, false
}

// priceFromRecipe derives a base price from a recipe. A recipe without lines
// prices as a retail item off the product's base price; otherwise the cost
// calculator runs with the product category's config. Either way the recipe's
// price modifier applies.
func priceFromRecipe(ctx context.Context, repo store.Repository, product domain.Product, recipe *domain.Recipe) (resolvedVariant, error) {
	resolved := resolvedVariant{recipeID: recipe.ID}
	if recipe.Variant != "" {
		resolved.variantNames = []string{recipe.Variant}
	}

	if len(recipe.Lines) == 0 {
		resolved.kind = domain.LineKindRetail
		resolved.basePrice = product.BasePrice + recipe.PriceModifier
		return resolved, nil
	}

	lines, err := ingredientLinesFor(ctx, repo, recipe.Lines)
	if err != nil {
		return resolvedVariant{}, err
	}
	breakdown, err := pricing.CalculateRecipeCost(lines, pricing.ConfigForCategory(product.Category))
	if err != nil {
		return resolvedVariant{}, err
	}

	resolved.kind = domain.LineKindRecipe
	resolved.basePrice = breakdown.SellingPrice + recipe.PriceModifier
	resolved.breakdown = &breakdown
	return resolved, nil
}

func ingredientLinesFor(ctx context.Context, repo store.Repository, recipeLines []domain.RecipeLine) ([]pricing.IngredientLine, error) {
	ids := make([]string, 0, len(recipeLines))
	for _, line := range recipeLines {
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := repo.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.IngredientLine, 0, len(recipeLines))
	for _, line := range recipeLines {
		ingredient, ok := ingredients[line.IngredientID]
		if !ok {
			return nil, fmt.Errorf("%w: ingredient %q", store.ErrUnknownReference, line.IngredientID)
		}
		lines = append(lines, pricing.IngredientLine{
			Name:            ingredient.Name,
			Unit:            ingredient.Unit,
			Quantity:        line.Quantity,
			CostPerUnit:     ingredient.CostPerUnit,
			WastePercentage: ingredient.WastePercentage,
		})
	}
	return lines, nil
}

func (s *Service) ingredientLines(ctx context.Context, recipeLines []domain.RecipeLine) ([]pricing.IngredientLine, error) {
	return ingredientLinesFor(ctx, s.repo, recipeLines)
}

// composeLine resolves and prices one cart line. The returned line carries the
// frozen unit and packaging prices; nothing downstream ever re-reads the
// catalog for this line.
func (s *Service) composeLine(ctx context.Context, req domain.OrderLineRequest) (domain.OrderLine, *pricing.CostBreakdown, error) {
	if req.Quantity < 1 {
		return domain.OrderLine{}, nil, pricing.ErrInvalidQuantity
	}
	if req.RecipeID != "" && len(req.SelectedOptions) > 0 {
		return domain.OrderLine{}, nil, fmt.Errorf("%w: a line selects either a recipe or options, not both", store.ErrInvalidInput)
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OrderLine{}, nil, fmt.Errorf("%w: product %q", store.ErrUnknownReference, req.ProductID)
		}
		return domain.OrderLine{}, nil, err
	}
	if !product.Active {
		return domain.OrderLine{}, nil, fmt.Errorf("%w: product %q is not available", store.ErrUnknownReference, req.ProductID)
	}

	var sel variantSelection
	if req.RecipeID != "" {
		sel = legacySelection{recipeID: req.RecipeID}
	} else {
		sel = optionSelection{choices: req.SelectedOptions}
	}
	resolved, err := sel.resolve(ctx, s.repo, *product)
	if err != nil {
		return domain.OrderLine{}, nil, err
	}

	extras, err := s.repo.GetExtrasByIDs(ctx, req.ExtraIDs)
	if err != nil {
		return domain.OrderLine{}, nil, err
	}
	extraPrices := make([]float64, 0, len(req.ExtraIDs))
	extraNames := make([]string, 0, len(req.ExtraIDs))
	for _, extraID := range req.ExtraIDs {
		extra, ok := extras[extraID]
		if !ok {
			return domain.OrderLine{}, nil, fmt.Errorf("%w: extra %q", store.ErrUnknownReference, extraID)
		}
		extraPrices = append(extraPrices, extra.Price)
		extraNames = append(extraNames, extra.Name)
	}

	unitPrice, err := pricing.ComposeLinePrice(resolved.basePrice, pricing.Selections{
		VariantAdjustments: resolved.variantAdjustments,
		ExtraPrices:        extraPrices,
	})
	if err != nil {
		return domain.OrderLine{}, nil, err
	}

	line := domain.OrderLine{
		ProductID:    product.ID,
		ProductName:  product.Name,
		Kind:         resolved.kind,
		RecipeID:     resolved.recipeID,
		VariantNames: resolved.variantNames,
		ExtraNames:   extraNames,
		Quantity:     req.Quantity,
		UnitPrice:    unitPrice,
	}

	if req.PackagingID != "" {
		pkg, err := s.repo.GetPackagingByID(ctx, req.PackagingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.OrderLine{}, nil, fmt.Errorf("%w: packaging %q", store.ErrUnknownReference, req.PackagingID)
			}
			return domain.OrderLine{}, nil, err
		}
		line.PackagingID = pkg.ID
		line.PackagingName = pkg.Name
		line.PackagingUnitPrice = pricing.PackagingCharge(pkg.CostPerUnit)
	}

	line.LineSubtotal = pricing.LineSubtotal(pricing.Line{
		UnitPrice:          line.UnitPrice,
		PackagingUnitPrice: line.PackagingUnitPrice,
		Quantity:           line.Quantity,
	})
	return line, resolved.breakdown, nil
}
