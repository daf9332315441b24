package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"repairshop-backend/config"
	"repairshop-backend/controllers"
	"repairshop-backend/models"
	"repairshop-backend/routes"
	"repairshop-backend/services"
	"repairshop-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "repairshop",
		Short:         "Device repair shop backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and opens the database.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	log, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			return config.Migrate(db, log)
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, password, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			admin := models.User{
				Email:     strings.ToLower(strings.TrimSpace(email)),
				Password:  password,
				FirstName: firstName,
				LastName:  lastName,
				Role:      models.RoleAdmin,
				IsActive:  true,
			}
			if err := db.Create(&admin).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("a user with email %s already exists", admin.Email)
				}
				return err
			}
			log.Info("admin created", zap.String("email", admin.Email), zap.String("id", admin.ID.String()))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&firstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, log, db, skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not migrate the schema on start")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, log *zap.Logger, db *gorm.DB, skipMigrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting repair shop backend",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	if !skipMigrate {
		if err := config.Migrate(db, log); err != nil {
			return err
		}
	}

	files, uploadDir, err := newFileStorage(ctx, cfg)
	if err != nil {
		return err
	}

	settings := services.NewSettingsService(db)
	notifier := services.NewNotificationService(db, settings, services.NotificationConfig{
		BatchSize:   cfg.Notify.BatchSize,
		MaxAttempts: cfg.Notify.MaxAttempts,
	}, log.Named("notifications"))

	closers, err := registerDispatchers(cfg, notifier, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	if err := notifier.StartScheduler(ctx, cfg.Notify.Schedule); err != nil {
		return err
	}

	repairs := services.NewRepairService(db, settings, notifier, files, log.Named("repairs"))
	stats := services.NewDashboardService(db, log.Named("stats"))

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.Debug = cfg.Debug
	router := routes.SetupRouter(cfg, log, routes.Deps{
		Repairs:       repairs,
		Settings:      settings,
		Notifications: notifier,
		Stats:         stats,
		UploadDir:     uploadDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	return nil
}

// newFileStorage returns the configured image storage and, for local storage,
// the directory to serve under /uploads.
func newFileStorage(ctx context.Context, cfg *config.Config) (storage.FileStorage, string, error) {
	sc := cfg.Storage
	if sc.Driver == "minio" {
		s, err := storage.NewMinIOStorage(ctx, sc.MinIOEndpoint, sc.MinIOAccessKey, sc.MinIOSecretKey, sc.MinIOBucket, sc.MinIOUseSSL)
		return s, "", err
	}
	s, err := storage.NewLocalStorage(sc.UploadDir)
	return s, sc.UploadDir, err
}

// registerDispatchers attaches one dispatcher per configured channel. Channels
// without configuration are skipped and their events are never queued.
func registerDispatchers(cfg *config.Config, notifier *services.NotificationService, log *zap.Logger) ([]func(), error) {
	templates, err := services.LoadTemplates()
	if err != nil {
		return nil, err
	}

	var closers []func()
	if cfg.SMTP.Host != "" {
		notifier.Register(models.ChannelEmail, services.NewEmailDispatcher(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, templates))
	} else {
		log.Warn("SMTP_HOST not set, email notifications disabled")
	}

	if cfg.Twilio.AccountSID != "" {
		notifier.Register(models.ChannelSMS, services.NewSMSDispatcher(
			cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber, templates))
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewEventPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return closers, err
		}
		notifier.Register(models.ChannelBroker, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				log.Warn("close event publisher", zap.Error(err))
			}
		})
	}
	return closers, nil
}
