package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusride/internal/auth"
	intconfig "campusride/internal/config"
	"campusride/internal/events"
	router "campusride/internal/http"
	"campusride/internal/logging"
	"campusride/internal/realtime"
	"campusride/internal/repositories"
	"campusride/internal/repositories/memory"
	"campusride/internal/repositories/mysql"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	env    intconfig.Env
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "campusride",
	Short: "CampusRide university carpooling API",
	Long: `CampusRide lets students offer rides, book seats, message each other,
review trips and raise emergency alerts.

Run without a subcommand to start the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		env, err = intconfig.LoadEnv(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(env.LogLevel, env.LogFormat)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the MySQL schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if env.StorageDriver != intconfig.StorageMySQL {
			return fmt.Errorf("migrate needs STORAGE_DRIVER=%s, got %q", intconfig.StorageMySQL, env.StorageDriver)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		db, err := intconfig.OpenDB(ctx, env.DatabaseDSN)
		if err != nil {
			return err
		}
		store := mysql.New(db)
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (env vars override it)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (repositories.Store, error) {
	switch env.StorageDriver {
	case intconfig.StorageMySQL:
		db, err := intconfig.OpenDB(ctx, env.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return mysql.New(db), nil
	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}
}

func openPublisher() events.Publisher {
	if env.AMQPURL == "" {
		return events.Nop{}
	}
	pub, err := events.NewAMQPPublisher(env.AMQPURL, env.AMQPExchange, logger)
	if err != nil {
		logger.Warn("amqp unavailable, domain events disabled", zap.Error(err))
		return events.Nop{}
	}
	return pub
}

func serve(ctx context.Context) error {
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	pub := openPublisher()
	defer pub.Close()

	hub := realtime.NewHub(realtime.DefaultBuffer, logger)
	r := router.NewRouter(router.Deps{
		Env:    env,
		Log:    logger,
		Store:  store,
		Tokens: auth.NewTokenService(env.JWTSecret, env.SessionTTL),
		Events: pub,
		Hub:    hub,
	})
	srv := router.NewServer(env.AppAddr, r, hub)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", env.AppAddr),
			zap.String("storage", env.StorageDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("run server: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
