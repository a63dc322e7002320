package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pivotnote/pulse/internal/config"
)

// Tier selects which class of model a request should use. The dashboard
// runs cheap enrichment on a flash-class model and grid analysis on a
// pro-class model.
type Tier int

const (
	TierFlash Tier = iota // enrichment, classification
	TierPro               // intelligence grids, deep dives, scripts
)

// Router routes generation requests to the appropriate provider with a
// primary/fallback chain and bounded retries on rate limits.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	primary    string
	fallbacks  []string
	tierModels map[Tier]string
	maxRetries int
	retryDelay time.Duration
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithTierModels configures model selection by tier.
func WithTierModels(m map[Tier]string) RouterOption {
	return func(r *Router) { r.tierModels = m }
}

// WithMaxRetries sets the maximum number of retry attempts per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) { r.maxRetries = n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// NewRouter creates a router with the given primary provider name.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]Provider),
		primary:    primary,
		tierModels: make(map[Tier]string),
		maxRetries: 2,
		retryDelay: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRouterFromConfig builds a router from application configuration,
// registering every provider that has credentials.
func NewRouterFromConfig(cfg *config.Config) (*Router, error) {
	r := NewRouter(cfg.LLM.Primary)

	if cfg.LLM.GeminiKey != "" {
		p, err := NewGeminiProvider(cfg.LLM.GeminiKey, WithGeminiModel(cfg.LLM.ProModel))
		if err != nil {
			return nil, err
		}
		r.RegisterProvider(p)
	}
	if cfg.LLM.OpenAIKey != "" {
		p, err := NewOpenAIProvider(cfg.LLM.OpenAIKey)
		if err != nil {
			return nil, err
		}
		r.RegisterProvider(p)
	}
	if cfg.LLM.OllamaURL != "" {
		r.RegisterProvider(NewOllamaProvider(cfg.LLM.OllamaURL))
	}

	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}
	if _, ok := r.providers[r.primary]; !ok {
		// Fall back to whichever provider is configured.
		for name := range r.providers {
			r.primary = name
			break
		}
	}

	for name := range r.providers {
		if name != r.primary {
			r.fallbacks = append(r.fallbacks, name)
		}
	}

	r.tierModels[TierFlash] = cfg.LLM.FlashModel
	r.tierModels[TierPro] = cfg.LLM.ProModel

	return r, nil
}

// RegisterProvider adds a provider to the router.
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Generate routes a request through the provider chain. It tries the
// primary provider first, then falls back in order.
func (r *Router) Generate(ctx context.Context, prompt string, opts *Options) (*Response, error) {
	chain := r.providerChain()
	if len(chain) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for _, name := range chain {
		provider, ok := r.GetProvider(name)
		if !ok {
			continue
		}

		resp, err := r.generateWithRetry(ctx, provider, prompt, opts)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		log.Printf("llm/router: provider %s failed: %v, trying next", name, err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isNonRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("llm/router: all providers failed, last error: %w", lastErr)
}

// GenerateTier routes a request selecting the model configured for tier.
func (r *Router) GenerateTier(ctx context.Context, tier Tier, prompt string, opts *Options) (*Response, error) {
	if model, ok := r.tierModels[tier]; ok && model != "" {
		if opts == nil {
			opts = DefaultOptions()
		}
		if opts.Model == "" {
			opts.Model = model
		}
	}
	return r.Generate(ctx, prompt, opts)
}

func (r *Router) generateWithRetry(ctx context.Context, provider Provider, prompt string, opts *Options) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.retryDelay * time.Duration(attempt)):
			}
		}

		resp, err := provider.Generate(ctx, prompt, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Only rate limits are worth retrying against the same provider.
		if !errors.Is(err, ErrRateLimit) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *Router) providerChain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := make([]string, 0, 1+len(r.fallbacks))
	chain = append(chain, r.primary)
	chain = append(chain, r.fallbacks...)
	return chain
}

func isNonRetryable(err error) bool {
	return errors.Is(err, ErrContextLength) || errors.Is(err, ErrInvalidModel)
}

// HealthCheck pings all registered providers and returns their status.
func (r *Router) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]Provider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, provider := range providers {
		wg.Add(1)
		go func(n string, p Provider) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := p.Ping(pingCtx)
			mu.Lock()
			results[n] = err
			mu.Unlock()
		}(name, provider)
	}

	wg.Wait()
	return results
}

// Name returns the name of the primary provider (satisfies Provider).
func (r *Router) Name() string { return "router/" + r.primary }

// Models returns the union of models from all registered providers
// (satisfies Provider).
func (r *Router) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []string
	seen := make(map[string]bool)
	for _, p := range r.providers {
		for _, m := range p.Models() {
			if !seen[m] {
				seen[m] = true
				all = append(all, m)
			}
		}
	}
	return all
}

// Ping pings the primary provider (satisfies Provider).
func (r *Router) Ping(ctx context.Context) error {
	p, ok := r.GetProvider(r.primary)
	if !ok {
		return ErrNoProviders
	}
	return p.Ping(ctx)
}
