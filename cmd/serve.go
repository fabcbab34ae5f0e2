package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/prompt-trainer/internal/api"
	"github.com/giantswarm/prompt-trainer/internal/auth"
	"github.com/giantswarm/prompt-trainer/internal/kserve"
	mcptools "github.com/giantswarm/prompt-trainer/internal/mcp"
	"github.com/giantswarm/prompt-trainer/internal/metrics"
	"github.com/giantswarm/prompt-trainer/internal/server"
)

const (
	transportNone           = "none"
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		transport   string
		mcpAddr     string
		mcpEndpoint string
		inCluster   bool
		outputDir   string
		batchDir    string
		debug       bool

		enableOAuth     bool
		oauthBaseURL    string
		oauthProvider   string
		dexIssuerURL    string
		dexClientID     string
		dexClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API and, optionally, the MCP server",
		Long: `Start the REST API for trainees and, optionally, an MCP server exposing the
same challenges and evaluations as tools.

MCP transports:
  - none: REST API only (default)
  - stdio: Standard input/output (for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)

When using streamable-http transport, OAuth 2.1 authentication can be enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}

			cfg, err := loadConfig(cmd, map[string]string{
				"http.addr":               "api-addr",
				"providers.mock_fallback": "mock-fallback",
			})
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			issuer, err := newIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}

			namespace := lookupFlag(cmd, "namespace").Value.String()
			kubeconfig := lookupFlag(cmd, "kubeconfig").Value.String()

			sc := &server.ServerContext{
				Challenges: a.store,
				Trainer:    a.trainer,
				Evaluator:  a.evaluator,
				Providers:  a.providers,
				Store:      a.store,
				Namespace:  namespace,
				MaxTokens:  cfg.Providers.MaxTokens,
				OutputDir:  outputDir,
				BatchDir:   batchDir,
			}

			// Self-hosted models are optional; without a cluster the hosted
			// providers and the mock still serve evaluations.
			ksManager, err := kserve.NewManager(namespace, kubeconfig, inCluster)
			if err != nil {
				slog.Warn("KServe manager not available", "error", err)
			} else {
				sc.KServeManager = ksManager
				registered, err := ksManager.Sync(ctx, a.providers, cfg.Providers.MaxTokens)
				if err != nil {
					slog.Warn("failed to sync self-hosted models", "error", err)
				} else if len(registered) > 0 {
					slog.Info("registered self-hosted models", "models", registered)
				}
			}

			restAPI := api.New(api.Options{
				Store:       a.store,
				Trainer:     a.trainer,
				Models:      a.providers,
				Issuer:      issuer,
				Version:     rootCmd.Version,
				CORSOrigins: cfg.HTTP.CORSOrigins,
				Embedding:   cfg.Embedding.Backend,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := restAPI.ListenAndServe(gctx, cfg.HTTP.Addr); err != nil && err != http.ErrServerClosed {
					return fmt.Errorf("REST API error: %w", err)
				}
				return nil
			})

			if transport != transportNone {
				mcpSrv := mcpserver.NewMCPServer("prompt-trainer", rootCmd.Version,
					mcpserver.WithToolCapabilities(true),
				)
				if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
					return fmt.Errorf("failed to register MCP tools: %w", err)
				}

				switch transport {
				case transportStdio:
					g.Go(func() error {
						err := runStdioServer(mcpSrv)
						// Closing stdin ends the session and the process.
						cancel()
						return err
					})
				case transportStreamableHTTP:
					fmt.Fprintf(os.Stderr, "Starting prompt-trainer MCP server with %s transport...\n", transport)
					g.Go(func() error {
						if enableOAuth {
							return runOAuthHTTPServer(mcpSrv, mcpAddr, mcpEndpoint, gctx, oauthConfig{
								baseURL:         oauthBaseURL,
								provider:        oauthProvider,
								dexIssuerURL:    dexIssuerURL,
								dexClientID:     dexClientID,
								dexClientSecret: dexClientSecret,
							})
						}
						return runHTTPServer(mcpSrv, mcpAddr, mcpEndpoint, gctx)
					})
				default:
					return fmt.Errorf("unsupported transport: %s (supported: none, stdio, streamable-http)", transport)
				}
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportNone, "MCP transport: none, stdio or streamable-http")
	cmd.Flags().String("api-addr", ":8000", "REST API address (overrides http.addr)")
	cmd.Flags().StringVar(&mcpAddr, "mcp-addr", ":8080", "MCP HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "/mcp", "MCP HTTP endpoint path (for streamable-http)")
	cmd.Flags().Bool("mock-fallback", true, "Answer with the mock provider for hosted models without credentials")
	cmd.Flags().BoolVar(&inCluster, "in-cluster", false, "Use in-cluster Kubernetes authentication")
	cmd.Flags().StringVar(&outputDir, "output-dir", "results", "Directory for batch result sets")
	cmd.Flags().StringVar(&batchDir, "batch-dir", "batches", "Directory of batch files the run_batch tool may read")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// OAuth flags.
	cmd.Flags().BoolVar(&enableOAuth, "enable-oauth", false, "Enable OAuth 2.1 authentication (for HTTP transport)")
	cmd.Flags().StringVar(&oauthBaseURL, "oauth-base-url", "", "OAuth base URL (e.g. https://trainer.example.com)")
	cmd.Flags().StringVar(&oauthProvider, "oauth-provider", "dex", "OAuth provider: dex")
	cmd.Flags().StringVar(&dexIssuerURL, "dex-issuer-url", "", "Dex OIDC issuer URL")
	cmd.Flags().StringVar(&dexClientID, "dex-client-id", "", "Dex OAuth client ID")
	cmd.Flags().StringVar(&dexClientSecret, "dex-client-secret", "", "Dex OAuth client secret")

	return cmd
}

// newIssuer creates the session token issuer. Without a configured secret,
// tokens are signed with a random key and do not survive a restart.
func newIssuer(secret string, ttl time.Duration) (*auth.Issuer, error) {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		slog.Warn("auth.jwt_secret is not set, using a random secret; sessions end on restart")
	}
	return auth.NewIssuer(secret, ttl)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(mcpSrv *mcpserver.MCPServer, addr, endpoint string, ctx context.Context) error {
	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(endpoint),
	)

	mux := http.NewServeMux()
	mux.Handle(endpoint, mcpHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	slog.Info("MCP HTTP server listening", "addr", addr, "endpoint", endpoint, "health", "/healthz")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping MCP HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	slog.Info("MCP HTTP server stopped")
	return nil
}

type oauthConfig struct {
	baseURL         string
	provider        string
	dexIssuerURL    string
	dexClientID     string
	dexClientSecret string
}

func runOAuthHTTPServer(mcpSrv *mcpserver.MCPServer, addr, endpoint string, ctx context.Context, cfg oauthConfig) error {
	if cfg.baseURL == "" {
		return fmt.Errorf("--oauth-base-url is required when --enable-oauth is set")
	}

	oauthCfg := server.OAuthConfig{
		BaseURL:         cfg.baseURL,
		Provider:        cfg.provider,
		DexIssuerURL:    cfg.dexIssuerURL,
		DexClientID:     cfg.dexClientID,
		DexClientSecret: cfg.dexClientSecret,
	}
	oauthCfg.ApplyEnv()

	oauthSrv, err := server.NewOAuthHTTPServer(mcpSrv, endpoint, oauthCfg)
	if err != nil {
		return fmt.Errorf("failed to create OAuth HTTP server: %w", err)
	}
	oauthSrv.Mount("/metrics", metrics.Handler())

	slog.Info("OAuth-enabled MCP server listening",
		"addr", addr,
		"base_url", cfg.baseURL,
		"provider", cfg.provider,
		"endpoint", endpoint,
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := oauthSrv.Start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping OAuth HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := oauthSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down OAuth HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("OAuth HTTP server error: %w", err)
		}
	}

	slog.Info("OAuth HTTP server stopped")
	return nil
}
