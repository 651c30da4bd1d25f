package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	custommw "finitefield.org/tenant-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tenant-admin/internal/admin/httpserver/ui"
	"finitefield.org/tenant-admin/internal/admin/login"
	"finitefield.org/tenant-admin/internal/admin/metrics"
	"finitefield.org/tenant-admin/internal/admin/observability"
	"finitefield.org/tenant-admin/internal/admin/rbac"
	"finitefield.org/tenant-admin/public"
)

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address  string
	BasePath string
	// LoginPath defaults to {BasePath}/login and must sit under BasePath.
	LoginPath   string
	Environment string
	Logger      *zap.Logger

	// Authenticator submits credentials to the Authentication Service.
	Authenticator login.Authenticator
	// Sessions persists the cookie session.
	Sessions custommw.SessionStore
	// BearerAuthenticator, when set, admits API callers presenting a bearer token.
	BearerAuthenticator custommw.Authenticator

	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string

	// RedirectDelay is the pause on the confirmation page; zero redirects
	// immediately and a negative value keeps login.DefaultRedirectDelay.
	RedirectDelay time.Duration
	// LoginRate is the sustained per-client submission rate; zero disables throttling.
	LoginRate  rate.Limit
	LoginBurst int

	Metrics  Recorder
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Sessions == nil {
		panic("httpserver: session store is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))

	static, err := public.Handler()
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle(public.Prefix+"*", static)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Gatherer != nil {
		router.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	basePath := login.NormalizeBase(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	handlers := newAuthHandlers(cfg.Authenticator, basePath, loginPath)
	handlers.now = now
	if cfg.RedirectDelay >= 0 {
		handlers.redirectDelay = cfg.RedirectDelay
	}
	if cfg.Metrics != nil {
		handlers.recorder = cfg.Metrics
	}
	if cfg.LoginRate > 0 {
		handlers.limiter = newLoginLimiter(cfg.LoginRate, cfg.LoginBurst, now)
	}

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	mountAdminRoutes(router, basePath, routeOptions{
		Auth:        handlers,
		UI:          ui.NewHandlers(ui.Dependencies{BasePath: basePath, Now: now}),
		Bearer:      cfg.BearerAuthenticator,
		Sessions:    cfg.Sessions,
		LoginPath:   loginPath,
		Environment: cfg.Environment,
		CSRF:        csrfCfg,
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type routeOptions struct {
	Auth        *authHandlers
	UI          *ui.Handlers
	Bearer      custommw.Authenticator
	Sessions    custommw.SessionStore
	LoginPath   string
	Environment string
	CSRF        custommw.CSRFConfig
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	loginRoute := strings.TrimPrefix(opts.LoginPath, strings.TrimRight(base, "/"))

	router.Route(base, func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Environment(opts.Environment))
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get(loginRoute, opts.Auth.LoginForm)
		r.Post(loginRoute, opts.Auth.LoginSubmit)
		r.Post("/logout", opts.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Bearer, opts.LoginPath))
			r.With(custommw.RequireCapability(rbac.CapDashboardOverview)).Get("/", opts.UI.Dashboard)
		})
	})
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
