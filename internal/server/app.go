// Package server initializes and runs the application: it loads the root
// secrets (refusing to start on missing or undersized ones), opens the
// database, runs migrations, and wires the security core together.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authcore/internal/cryptox"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/netx"
	"github.com/dmitrijs2005/authcore/internal/secrets"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	gs "github.com/dmitrijs2005/authcore/internal/server/grpc"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcore/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	authService  *services.AuthService
	tokenService *services.TokenService
	fieldCipher  *cryptox.FieldCipher
	egressGuard  *netx.Guard
	grpcServer   *gs.GRPCServer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	// Fail-fast: a missing or undersized root secret prevents startup.
	sec, err := loadSecrets(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading secrets: %w", err)
	}

	hasher, err := cryptox.NewHasher(sec.Pepper)
	if err != nil {
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	fieldCipher, err := cryptox.NewFieldCipher(sec.FieldMasterKey, uint8(cfg.FieldKeyVersion))
	if err != nil {
		return nil, fmt.Errorf("field cipher init error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	denylist := auth.NewDenylist()
	tokenService := services.NewTokenService(db, m, denylist, sec.SigningKey,
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration, logger)
	lockoutService := services.NewLockoutService(m.Lockouts(db))
	authService := services.NewAuthService(db, m, hasher, tokenService, lockoutService, logger)

	interceptor := gs.NewAuthInterceptor(tokenService, logger, nil)
	grpcServer := gs.NewGRPCServer(cfg.EndpointAddrGRPC, logger, interceptor)

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		authService:  authService,
		tokenService: tokenService,
		fieldCipher:  fieldCipher,
		egressGuard:  netx.NewGuard(cfg.EgressAllowPrivate),
		grpcServer:   grpcServer,
	}, nil
}

func loadSecrets(ctx context.Context, cfg *config.Config) (*secrets.Secrets, error) {
	switch cfg.SecretsSource {
	case "env":
		return secrets.FromEnv()
	case "file":
		return secrets.FromFile(cfg.SecretsFile)
	case "s3":
		return secrets.FromS3(ctx, secrets.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Key:          cfg.SecretsS3Key,
		})
	default:
		return nil, fmt.Errorf("unknown secrets source %q", cfg.SecretsSource)
	}
}

// Auth returns the authentication flow for the orchestration layer.
func (app *App) Auth() *services.AuthService { return app.authService }

// Tokens returns the token service.
func (app *App) Tokens() *services.TokenService { return app.tokenService }

// FieldCipher returns the field-encryption component.
func (app *App) FieldCipher() *cryptox.FieldCipher { return app.fieldCipher }

// EgressGuard returns the outbound-URL validator.
func (app *App) EgressGuard() *netx.Guard { return app.egressGuard }

// GRPCServer returns the server so the orchestration layer can register
// its services before Run.
func (app *App) GRPCServer() *gs.GRPCServer { return app.grpcServer }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.grpcServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
}
