// ris-server is the radiology workflow API: patient intake, department
// assignment, case and report lifecycle, billing, the patient portal, and
// room-based real-time notifications.
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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ris/ris/internal/config"
	"github.com/ris/ris/internal/domain/billing"
	"github.com/ris/ris/internal/domain/department"
	"github.com/ris/ris/internal/domain/identity"
	"github.com/ris/ris/internal/domain/notification"
	"github.com/ris/ris/internal/domain/patient"
	"github.com/ris/ris/internal/domain/portal"
	"github.com/ris/ris/internal/domain/workflow"
	"github.com/ris/ris/internal/platform/auth"
	"github.com/ris/ris/internal/platform/blobstore"
	"github.com/ris/ris/internal/platform/db"
	"github.com/ris/ris/internal/platform/middleware"
	"github.com/ris/ris/internal/platform/realtime"
)

func main() {
	root := &cobra.Command{
		Use:   "ris-server",
		Short: "Radiology workflow server",
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.DebugLevel)
	}
	log.Logger = logger
	return logger
}

// workflowPatientGateway adapts the patient service to the view the
// workflow engine needs.
type workflowPatientGateway struct {
	svc *patient.Service
}

func (g *workflowPatientGateway) Info(ctx context.Context, id uuid.UUID) (*workflow.PatientInfo, error) {
	p, err := g.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, workflow.ErrPatientNotFound
		}
		return nil, err
	}
	tests := make([]workflow.CaseTest, 0, len(p.SelectedTests))
	for _, t := range p.SelectedTests {
		tests = append(tests, workflow.CaseTest{
			TestID:       t.TestID,
			Name:         t.Name,
			Price:        t.Price,
			OfferRate:    t.OfferRate,
			Code:         t.Code,
			DepartmentID: t.DepartmentID,
		})
	}
	return &workflow.PatientInfo{
		ID:            p.ID,
		PatientID:     p.PatientID,
		Status:        string(p.Status),
		PaymentStatus: string(p.PaymentStatus),
		DepartmentID:  p.DepartmentAssignedTo,
		Phone:         p.Phone,
		SelectedTests: tests,
	}, nil
}

func (g *workflowPatientGateway) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return g.svc.SetStatus(ctx, id, patient.Status(status))
}

// portalPatientDirectory adapts the patient service for OTP login.
type portalPatientDirectory struct {
	svc *patient.Service
}

func (d *portalPatientDirectory) LookupByPhone(ctx context.Context, phone string) (uuid.UUID, string, error) {
	p, err := d.svc.FindByPhone(ctx, phone)
	if err != nil {
		return uuid.Nil, "", err
	}
	return p.ID, p.PatientID, nil
}

func buildServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) *echo.Echo {
	hub := realtime.NewHub()

	// Platform
	signer := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer)
	files := blobstore.NewMemoryStore(cfg.UploadMaxMB*1024*1024, "/files")

	// Repositories
	patientRepo := patient.NewRepoPG(pool)
	caseRepo := workflow.NewCaseRepoPG(pool)
	reportRepo := workflow.NewReportRepoPG(pool)
	notificationRepo := notification.NewRepoPG(pool)
	paymentRepo := billing.NewRepoPG(pool)
	departmentRepo := department.NewRepoPG(pool)
	userRepo := identity.NewRepoPG(pool)

	// Services
	notifier := notification.NewService(notificationRepo, hub)
	patientSvc := patient.NewService(patientRepo, notifier)
	workflowSvc := workflow.NewService(caseRepo, reportRepo,
		&workflowPatientGateway{svc: patientSvc}, files, notifier, hub, pool)
	billingSvc := billing.NewService(paymentRepo, reportRepo, pool)
	departmentSvc := department.NewService(departmentRepo, patientRepo, pool)
	identitySvc := identity.NewService(userRepo, signer, cfg.TokenDuration())
	portalSvc := portal.NewService(&portalPatientDirectory{svc: patientSvc},
		workflowSvc, portal.NewOTPStore(cfg.OTPDuration()), portal.LogSMSSender{},
		signer, cfg.PortalTokenDuration())

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/health", db.HealthHandler(pool))

	public := e.Group("/api/v1")

	api := e.Group("/api/v1")
	if cfg.JWTSecret == "" && cfg.IsDev() {
		logger.Warn().Msg("JWT_SECRET unset, running with the development identity")
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(signer))
	}

	patient.NewHandler(patientSvc).RegisterRoutes(api)
	workflow.NewHandler(workflowSvc).RegisterRoutes(api)
	notification.NewHandler(notifier).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	department.NewHandler(departmentSvc).RegisterRoutes(api)
	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	portal.NewHandler(portalSvc).RegisterRoutes(public, api)

	realtime.NewHandler(hub).RegisterRoutes(api)

	return e
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			e := buildServer(cfg, logger, pool)

			go func() {
				addr := ":" + cfg.Port
				logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info().Msg("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("shutdown error")
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	var dir string
	migrate.PersistentFlags().StringVar(&dir, "dir", "migrations", "migrations directory")

	withPool := func(fn func(ctx context.Context, m *db.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL, 2, 1)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			return fn(cmd.Context(), db.NewMigrator(pool, dir))
		}
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withPool(func(ctx context.Context, m *db.Migrator) error {
			n, err := m.Up(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("applied", n).Msg("migrations complete")
			return nil
		}),
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: withPool(func(ctx context.Context, m *db.Migrator) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%04d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		}),
	})

	return migrate
}
