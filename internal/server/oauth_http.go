package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/prompt-trainer/internal/metrics"
)

const (
	// OAuthProviderDex is the Dex OIDC provider.
	OAuthProviderDex = "dex"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 120 * time.Second
	defaultIdleTimeout       = 120 * time.Second

	defaultMaxClientsPerIP = 10
)

// OAuthConfig configures the OAuth 2.1 protected MCP endpoint. Trainees
// authenticate against Dex before their assistant may call the tools.
type OAuthConfig struct {
	// BaseURL is the public URL clients reach the server at. It must use
	// HTTPS unless it points at a loopback address.
	BaseURL string

	// Provider names the identity provider. Only "dex" is supported.
	Provider string

	DexIssuerURL    string
	DexClientID     string
	DexClientSecret string

	// MaxClientsPerIP limits dynamic client registrations. Zero means 10.
	MaxClientsPerIP int
}

// ApplyEnv fills unset Dex settings from DEX_ISSUER_URL, DEX_CLIENT_ID and
// DEX_CLIENT_SECRET.
func (c *OAuthConfig) ApplyEnv() {
	for _, f := range []struct {
		dst *string
		env string
	}{
		{&c.DexIssuerURL, "DEX_ISSUER_URL"},
		{&c.DexClientID, "DEX_CLIENT_ID"},
		{&c.DexClientSecret, "DEX_CLIENT_SECRET"},
	} {
		if *f.dst == "" {
			*f.dst = os.Getenv(f.env)
		}
	}
}

// Validate reports the first missing or invalid setting.
func (c OAuthConfig) Validate() error {
	if c.Provider != "" && c.Provider != OAuthProviderDex {
		return fmt.Errorf("unsupported OAuth provider %q (supported: %s)", c.Provider, OAuthProviderDex)
	}
	if err := validateHTTPSRequirement(c.BaseURL); err != nil {
		return fmt.Errorf("OAuth base URL validation failed: %w", err)
	}
	switch {
	case c.DexIssuerURL == "":
		return fmt.Errorf("dex issuer URL is required (--dex-issuer-url or DEX_ISSUER_URL)")
	case c.DexClientID == "":
		return fmt.Errorf("dex client ID is required (--dex-client-id or DEX_CLIENT_ID)")
	case c.DexClientSecret == "":
		return fmt.Errorf("dex client secret is required (--dex-client-secret or DEX_CLIENT_SECRET)")
	}
	return nil
}

// OAuthHTTPServer serves the MCP tools behind OAuth token validation.
type OAuthHTTPServer struct {
	mcpServer    *mcpserver.MCPServer
	oauthServer  *oauth.Server
	oauthHandler *oauth.Handler
	httpServer   *http.Server
	mcpEndpoint  string
	mounts       []mount
}

type mount struct {
	pattern string
	handler http.Handler
}

// NewOAuthHTTPServer validates cfg and sets up the Dex-backed authorization
// server. Tokens and client registrations are kept in memory, so a restart
// signs every client out.
func NewOAuthHTTPServer(mcpSrv *mcpserver.MCPServer, mcpEndpoint string, cfg OAuthConfig) (*OAuthHTTPServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dexProvider, err := dex.NewProvider(&dex.Config{
		IssuerURL:    cfg.DexIssuerURL,
		ClientID:     cfg.DexClientID,
		ClientSecret: cfg.DexClientSecret,
		RedirectURL:  cfg.BaseURL + "/oauth/callback",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dex provider: %w", err)
	}

	maxClients := cfg.MaxClientsPerIP
	if maxClients <= 0 {
		maxClients = defaultMaxClientsPerIP
	}

	store := memory.New()
	logger := slog.Default()
	oauthSrv, err := oauth.NewServer(dexProvider, store, store, store,
		&oauthserver.Config{
			Issuer:                    cfg.BaseURL,
			AllowRefreshTokenRotation: true,
			MaxClientsPerIP:           maxClients,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	return &OAuthHTTPServer{
		mcpServer:    mcpSrv,
		oauthServer:  oauthSrv,
		oauthHandler: oauth.NewHandler(oauthSrv, logger),
		mcpEndpoint:  mcpEndpoint,
	}, nil
}

// Mount serves h under pattern next to the MCP endpoint. Mounted handlers
// are not behind OAuth. Mount must be called before Start.
func (s *OAuthHTTPServer) Mount(pattern string, h http.Handler) {
	s.mounts = append(s.mounts, mount{pattern: pattern, handler: h})
}

// Handler returns the OAuth endpoints, the protected MCP endpoint, mounted
// handlers and an unauthenticated /healthz.
func (s *OAuthHTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	s.oauthHandler.RegisterAuthorizationServerMetadataRoutes(mux)
	s.oauthHandler.RegisterProtectedResourceMetadataRoutes(mux, s.mcpEndpoint)
	mux.HandleFunc("/oauth/authorize", s.oauthHandler.ServeAuthorization)
	mux.HandleFunc("/oauth/token", s.oauthHandler.ServeToken)
	mux.HandleFunc("/oauth/callback", s.oauthHandler.ServeCallback)
	mux.HandleFunc("/oauth/register", s.oauthHandler.ServeClientRegistration)
	mux.HandleFunc("/oauth/revoke", s.oauthHandler.ServeTokenRevocation)
	mux.HandleFunc("/oauth/introspect", s.oauthHandler.ServeTokenIntrospection)

	mcpHandler := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(s.mcpEndpoint),
	)
	mux.Handle(s.mcpEndpoint, countRequests("mcp", s.oauthHandler.ValidateToken(mcpHandler)))

	for _, m := range s.mounts {
		mux.Handle(m.pattern, m.handler)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves Handler on addr until Shutdown is called.
func (s *OAuthHTTPServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the OAuth server's background cleanup and then the listener.
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if s.oauthServer != nil {
		if err := s.oauthServer.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OAuth server", "error", err)
		}
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// countRequests records responses from h in the request counter under route.
// Rejected tokens show up as 401s.
func countRequests(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streamed MCP responses working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// validateHTTPSRequirement allows plain HTTP only for loopback hosts.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
	default:
		return fmt.Errorf("invalid URL scheme: %s (must be http for localhost or https)", u.Scheme)
	}
}
