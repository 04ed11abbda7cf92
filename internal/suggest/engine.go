// Package suggest proposes one extra for the cashier to offer, based on the
// product categories already in the cart. Scores come from a static affinity
// table; results are cached briefly so repeated quotes for the same cart do
// not recompute.
package suggest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"brewpos/backend/internal/cache"
	"brewpos/backend/internal/domain"
)

type Engine struct {
	cache         cache.SuggestionCache
	cacheTTL      time.Duration
	minConfidence float64
}

func NewEngine(cacheStore cache.SuggestionCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSuggestionCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}

	return &Engine{
		cache:         cacheStore,
		cacheTTL:      cacheTTL,
		minConfidence: 0.35,
	}
}

// categoryAffinity maps a product category to extras that pair well with it,
// scored in [0, 1].
var categoryAffinity = map[string]map[string]float64{
	"espresso":  {"Extra Shot": 0.8, "Caramel Syrup": 0.5, "Vanilla Syrup": 0.45},
	"coffee":    {"Vanilla Syrup": 0.6, "Caramel Syrup": 0.55, "Extra Shot": 0.4},
	"specialty": {"Caramel Syrup": 0.7, "Vanilla Syrup": 0.6},
}

func (e *Engine) Suggest(
	ctx context.Context,
	req domain.SuggestionRequest,
	products map[string]domain.Product,
	extras []domain.Extra,
) domain.SuggestionResponse {
	startedAt := time.Now()

	if len(req.CartProductIDs) == 0 || len(extras) == 0 {
		return domain.SuggestionResponse{LatencyMS: time.Since(startedAt).Milliseconds()}
	}

	cacheKey := buildCacheKey(req)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		cached.LatencyMS = time.Since(startedAt).Milliseconds()
		return *cached
	}

	scores := make(map[string]float64, len(extras))
	for _, productID := range req.CartProductIDs {
		product, ok := products[productID]
		if !ok || !product.Active {
			continue
		}
		affinities := categoryAffinity[strings.ToLower(product.Category)]
		for extraName, score := range affinities {
			if score > scores[extraName] {
				scores[extraName] = score
			}
		}
	}

	var best *domain.Suggestion
	for _, extra := range extras {
		score := scores[extra.Name]
		if score < e.minConfidence {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &domain.Suggestion{
				ExtraID:    extra.ID,
				ExtraName:  extra.Name,
				Price:      extra.Price,
				ReasonCode: "category_pairing",
				Confidence: score,
			}
		}
	}

	resp := domain.SuggestionResponse{
		Suggestion: best,
		LatencyMS:  time.Since(startedAt).Milliseconds(),
	}
	_ = e.cache.Set(ctx, cacheKey, &resp, e.cacheTTL)
	return resp
}

func buildCacheKey(req domain.SuggestionRequest) string {
	ids := make([]string, len(req.CartProductIDs))
	copy(ids, req.CartProductIDs)
	sort.Strings(ids)

	sum := sha1.Sum([]byte(strings.Join(ids, "|")))
	return "suggest:" + hex.EncodeToString(sum[:])
}
