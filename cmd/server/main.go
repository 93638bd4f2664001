package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/moviecatalog/internal/apierror"
	"github.com/tyemirov/moviecatalog/internal/authkit"
	"github.com/tyemirov/moviecatalog/internal/catalog"
	"github.com/tyemirov/moviecatalog/internal/storage"
	"github.com/tyemirov/moviecatalog/internal/web"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "moviecatalog",
		Short:   "Movie catalog API with JWT sessions and rotating refresh tokens",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for access and refresh tokens")
	rootCmd.Flags().String("jwt_issuer", defaultJWTIssuer, "Issuer claim placed in every token")
	rootCmd.Flags().Duration("access_ttl", time.Hour, "Access token TTL")
	rootCmd.Flags().Duration("refresh_ttl", 7*24*time.Hour, "Refresh token TTL")
	rootCmd.Flags().String("database_url", "", "Database URL (mongodb://, mongodb+srv://, postgres://, or sqlite://; empty for in-memory sqlite)")
	rootCmd.Flags().String("database_name", "sample_mflix", "Database name when database_url points at MongoDB")
	rootCmd.Flags().Int("password_cost", authkit.DefaultPasswordCost, "bcrypt cost for stored passwords")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	rootCmd.Flags().String("auth_rate_limit", "20-M", "Per-IP limit for login and register (limiter notation; empty disables)")
	rootCmd.Flags().StringSlice("trusted_proxies", []string{}, "Proxy IPs or CIDRs whose X-Forwarded-For is used as the client IP (empty trusts none)")
	rootCmd.Flags().Bool("dev_mode", false, "Relax security headers for local development")
	rootCmd.Flags().String("env_file", ".env", "Optional dotenv file loaded before configuration is read")

	for _, flagName := range []string{
		"listen_addr", "jwt_signing_key", "jwt_issuer", "access_ttl", "refresh_ttl",
		"database_url", "database_name", "password_cost", "enable_cors",
		"cors_allowed_origins", "auth_rate_limit", "trusted_proxies", "dev_mode", "env_file",
	} {
		_ = viper.BindPFlag(flagName, rootCmd.Flags().Lookup(flagName))
	}

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()
	_ = viper.BindEnv("jwt_signing_key", "APP_JWT_SIGNING_KEY", "JWT_SECRET")
	_ = viper.BindEnv("database_url", "APP_DATABASE_URL", "MONGODB_URI")

	return rootCmd
}

const (
	defaultJWTIssuer  = "moviecatalog"
	sessionCookieName = "token"
	metricsNamespace  = "moviecatalog"

	configCodeMissingJWTSigningKey    = "config.missing_jwt_signing_key"
	configCodeInvalidAccessTTL        = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeInvalidPasswordCost     = "config.invalid_password_cost"
	configCodeInvalidAuthRateLimit    = "config.invalid_auth_rate_limit"
	configCodeInvalidCORSOrigin       = "config.invalid_cors_origin"
	configCodeInvalidTrustedProxies   = "config.invalid_trusted_proxies"
	configCodeEnvFile                 = "config.env_file"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeStorageInit             = "config.storage_init"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	if envErr := loadEnvFile(viper.GetString("env_file")); envErr != nil {
		return envErr
	}
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

// loadEnvFile populates the process environment from path without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%s: %w", configCodeEnvFile, err)
	}
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func LoadServerConfig() (authkit.ServerConfig, error) {
	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	jwtIssuer := defaultJWTIssuer
	if configuredIssuer := strings.TrimSpace(viper.GetString("jwt_issuer")); configuredIssuer != "" {
		jwtIssuer = configuredIssuer
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	passwordCost := authkit.DefaultPasswordCost
	if configuredCost := viper.GetInt("password_cost"); configuredCost != 0 {
		passwordCost = configuredCost
	}
	if passwordCost < bcrypt.MinCost || passwordCost > bcrypt.MaxCost {
		return authkit.ServerConfig{}, configError(configCodeInvalidPasswordCost,
			fmt.Sprintf("password_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if viper.GetBool("enable_cors") {
		if _, originErr := web.NormalizeOrigins(viper.GetStringSlice("cors_allowed_origins")); originErr != nil {
			return authkit.ServerConfig{}, configError(configCodeInvalidCORSOrigin, originErr.Error())
		}
	}

	return authkit.ServerConfig{
		AppJWTSigningKey:  []byte(jwtSigningKey),
		AppJWTIssuer:      jwtIssuer,
		AccessTTL:         accessTTL,
		RefreshTTL:        refreshTTL,
		PasswordCost:      passwordCost,
		SessionCookieName: sessionCookieName,
		SameSiteMode:      http.SameSiteStrictMode,
	}, nil
}

// routerSettings carries the HTTP options that do not belong to authkit.ServerConfig.
type routerSettings struct {
	EnableCORS         bool
	CORSAllowedOrigins []string
	AuthRateLimit      string
	TrustedProxies     []string
	DevMode            bool
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	listenAddr := viper.GetString("listen_addr")
	settings := routerSettings{
		EnableCORS:         viper.GetBool("enable_cors"),
		CORSAllowedOrigins: viper.GetStringSlice("cors_allowed_origins"),
		AuthRateLimit:      viper.GetString("auth_rate_limit"),
		TrustedProxies:     viper.GetStringSlice("trusted_proxies"),
		DevMode:            viper.GetBool("dev_mode"),
	}
	if settings.EnableCORS {
		serverConfig.SameSiteMode = http.SameSiteNoneMode
	}

	stores, storageErr := storage.Open(context.Background(), viper.GetString("database_url"), viper.GetString("database_name"), logger)
	if storageErr != nil {
		return fmt.Errorf("%s: %w", configCodeStorageInit, storageErr)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if closeErr := stores.Close(closeCtx); closeErr != nil {
			logger.Error("storage close error", zap.Error(closeErr))
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router, routerErr := buildRouter(serverConfig, settings, stores, logger)
	if routerErr != nil {
		return routerErr
	}

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr), zap.String("driver", stores.Driver))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func buildRouter(serverConfig authkit.ServerConfig, settings routerSettings, stores storage.Stores, logger *zap.Logger) (*gin.Engine, error) {
	tokens, tokensErr := authkit.NewTokenIssuer(serverConfig, authkit.NewSystemClock())
	if tokensErr != nil {
		return nil, tokensErr
	}
	passwords, passwordsErr := authkit.NewPasswordHasher(serverConfig.PasswordCost)
	if passwordsErr != nil {
		return nil, passwordsErr
	}
	throttle, throttleErr := web.NewRateLimiter(settings.AuthRateLimit, logger)
	if throttleErr != nil {
		return nil, fmt.Errorf("%s: %w", configCodeInvalidAuthRateLimit, throttleErr)
	}
	metrics := web.NewPrometheusMetrics(metricsNamespace)
	authEvents := authkit.NewCounterMetrics()

	router := gin.New()
	var trustedProxies []string
	if len(settings.TrustedProxies) > 0 {
		trustedProxies = settings.TrustedProxies
	}
	if proxyErr := router.SetTrustedProxies(trustedProxies); proxyErr != nil {
		return nil, fmt.Errorf("%s: %w", configCodeInvalidTrustedProxies, proxyErr)
	}
	router.HandleMethodNotAllowed = true
	router.NoMethod(apierror.MethodNotAllowed)
	router.NoRoute(apierror.RouteNotFound)
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))
	router.Use(metrics.Middleware())
	router.Use(web.SecureHeaders(web.SecureOptions(settings.DevMode), logger))

	if settings.EnableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, settings.CORSAllowedOrigins)
		if corsErr != nil {
			return nil, corsErr
		}
		router.Use(corsMiddleware)
	}

	router.GET("/healthz", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok", "driver": stores.Driver, "auth_events": authEvents.Snapshot()})
	})
	router.GET("/metrics", metrics.Handler())

	authkit.MountAuthRoutes(router, serverConfig, authkit.Dependencies{
		Users:     stores.Users,
		Tokens:    tokens,
		Passwords: passwords,
		Metrics:   authkit.FanOutMetrics{metrics, authEvents},
		Logger:    logger,
		Throttle:  throttle,
	})
	catalog.MountCatalogRoutes(router, catalog.Dependencies{
		Movies:   stores.Movies,
		Comments: stores.Comments,
		Logger:   logger,
	}, authkit.RequireBearer(tokens, logger))

	return router, nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
