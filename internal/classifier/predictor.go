package classifier

import (
	"strings"

	"expensetracker/internal/cache"
)

// Predictor assigns a category to a description.
type Predictor interface {
	Predict(description string) string
	// Labels returns every category the predictor can emit.
	Labels() []string
}

var _ Predictor = (*Model)(nil)

// CachedPredictor memoises predictions keyed by the normalised description.
type CachedPredictor struct {
	next  Predictor
	cache cache.Cache[string]
}

func NewCachedPredictor(next Predictor, c cache.Cache[string]) *CachedPredictor {
	return &CachedPredictor{next: next, cache: c}
}

func (p *CachedPredictor) Predict(description string) string {
	key := cacheKey(description)
	if v, ok := p.cache.Get(key); ok {
		return v
	}
	v := p.next.Predict(description)
	p.cache.Set(key, v)
	return v
}

func (p *CachedPredictor) Labels() []string {
	return p.next.Labels()
}

// Predictions depend only on the terms, so descriptions that tokenize alike
// share an entry.
func cacheKey(description string) string {
	return strings.Join(Tokenize(description), " ")
}
