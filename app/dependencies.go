package app

import (
	"context"
	"fmt"

	"github.com/pastagem/pastagem-api/auth"
	"github.com/pastagem/pastagem-api/cognito"
	"github.com/pastagem/pastagem-api/config"
	"github.com/pastagem/pastagem-api/internal/observability"
	"github.com/pastagem/pastagem-api/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry // nil when metrics are disabled
	Metrics  *observability.Metrics

	// Token validation
	KeyCache *cognito.KeyCache
	Resolver *cognito.JWKSResolver
	Verifier *cognito.Verifier
	Gate     *middleware.Gate

	authHandler *auth.Handler
	stopWatch   context.CancelFunc
}

// AuthHandler returns the auth handler for route wiring (implements handlers.AuthDeps)
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics(cfg)

	if err := deps.initGate(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize request gate: %w", err)
	}

	if err := deps.watchRules(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to watch auth rules: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initMetrics creates the registry and collectors when metrics are enabled
func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		d.Logger.Info("metrics disabled")
		return
	}
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)
}

// initGate builds the key cache, resolver, verifier and gate
func (d *Dependencies) initGate(cfg *config.Config) error {
	rules, err := BypassRules(cfg.Auth.BypassRules)
	if err != nil {
		return err
	}

	d.KeyCache = cognito.NewKeyCache()
	d.Resolver = cognito.NewJWKSResolver(cognito.ResolverConfig{
		IssuerURL:   cfg.Cognito.IssuerURL(),
		UserPoolID:  cfg.Cognito.UserPoolID,
		HTTPTimeout: cfg.Cognito.JWKSTimeout,
	}, d.KeyCache, d.Metrics, d.Logger)

	policy := cognito.ClaimsPolicy{}
	if cfg.Cognito.ValidateClaims {
		policy = cognito.ClaimsPolicy{
			Enabled:  true,
			Issuer:   cfg.Cognito.Issuer(),
			Audience: cfg.Cognito.ClientID,
			Leeway:   cfg.Cognito.ClaimsLeeway,
		}
	}
	d.Verifier = cognito.NewVerifier(d.Resolver, policy, d.Logger)
	d.Gate = middleware.NewGate(d.Verifier, rules, d.Metrics, d.Logger)

	d.Logger.Info("request gate initialized",
		zap.String("jwks_url", d.Resolver.URL()),
		zap.Bool("validate_claims", policy.Enabled),
		zap.Int("bypass_rules", len(rules)))
	return nil
}

// watchRules swaps reloaded rule files into the gate
func (d *Dependencies) watchRules(ctx context.Context, cfg *config.Config) error {
	if cfg.Auth.RulesFile == "" {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	err := config.WatchRulesFile(watchCtx, cfg.Auth.RulesFile, func(loaded []config.BypassRule) {
		rules, err := BypassRules(loaded)
		if err != nil {
			d.Logger.Warn("ignoring invalid auth rules", zap.Error(err))
			return
		}
		d.Gate.SetRules(rules)
	}, d.Logger)
	if err != nil {
		cancel()
		return err
	}

	d.stopWatch = cancel
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Cognito.Domain == "" || cfg.Cognito.ClientID == "" {
		d.Logger.Warn("cognito hosted UI not configured, /auth endpoints disabled")
		return
	}
	exchanger := auth.NewCognitoTokenExchanger(cfg.Cognito, 0)
	d.authHandler = auth.NewHandler(cfg.Cognito, exchanger, d.Verifier, d.Logger)
	d.Logger.Info("auth handler initialized")
}

// BypassRules converts configured rules; no configured rules means the defaults
func BypassRules(configured []config.BypassRule) (middleware.Rules, error) {
	if configured == nil {
		return middleware.DefaultRules(), nil
	}
	rules := make(middleware.Rules, 0, len(configured))
	for _, r := range configured {
		rules = append(rules, middleware.Rule{Pattern: r.Pattern, Bypass: r.Bypass})
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.stopWatch != nil {
		d.stopWatch()
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
