package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/devmasterhq/devmaster/backend/handlers"
	"github.com/devmasterhq/devmaster/backend/middleware"
	"github.com/devmasterhq/devmaster/devmaster"
	"github.com/devmasterhq/devmaster/devmaster/achievements"
	"github.com/devmasterhq/devmaster/devmaster/database"
	"github.com/devmasterhq/devmaster/devmaster/database/repositories"
	"github.com/devmasterhq/devmaster/devmaster/energy"
	"github.com/devmasterhq/devmaster/devmaster/grader"
	"github.com/devmasterhq/devmaster/devmaster/logger"
	"github.com/devmasterhq/devmaster/devmaster/payments"
	"github.com/devmasterhq/devmaster/devmaster/progress"
	"github.com/devmasterhq/devmaster/devmaster/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncDB := flag.Bool("sync-db", false, "create tables and seed defaults on startup")
	path := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	cfg, err := devmaster.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	customHandler := logger.NewHandler("DevMaster", cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	logger.LogSystem("Starting DevMaster API",
		"version", version,
		"commit", commit)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	if *shouldSyncDB {
		if err := db.CreateTables(ctx); err != nil {
			slog.Error("Failed to create tables", slog.Any("err", err))
			os.Exit(1)
		}
		if err := db.SeedAchievements(ctx); err != nil {
			slog.Error("Failed to seed achievements", slog.Any("err", err))
			os.Exit(1)
		}
	}
	logger.LogSystem("Database connected")

	energyRepo := repositories.NewEnergyRepository(db.BunDB())
	challengeRepo := repositories.NewChallengeRepository(db.BunDB())
	progressRepo := repositories.NewProgressRepository(db.BunDB())
	profileRepo := repositories.NewProfileRepository(db.BunDB())
	achievementRepo := repositories.NewAchievementRepository(db.BunDB())
	purchaseRepo := repositories.NewPurchaseRepository(db.BunDB())

	ledger := energy.NewLedger(energyRepo, cfg.Energy.MaxEnergy,
		time.Duration(cfg.Energy.RegenIntervalMinutes)*time.Minute)
	tracker := progress.NewTracker(progressRepo, profileRepo)
	evaluator := achievements.NewEvaluator(achievementRepo, progressRepo, profileRepo)
	codeGrader := grader.New(cfg.Grader.Timeout())
	challengeService := services.NewChallengeService(
		challengeRepo, profileRepo, ledger, codeGrader, tracker, evaluator)

	processor := payments.NewMercadoPagoClient(cfg.MercadoPago.BaseURL, cfg.MercadoPago.AccessToken)
	reconciler := payments.NewReconciler(processor, purchaseRepo, ledger,
		cfg.MercadoPago.BackURLBase, cfg.MercadoPago.NotificationURL)

	webApp := &handlers.WebApp{
		Config:       cfg,
		DB:           db,
		Challenges:   challengeService,
		Ledger:       ledger,
		Tracker:      tracker,
		Reconciler:   reconciler,
		Profiles:     profileRepo,
		Achievements: achievementRepo,
		Version:      version,
	}

	app := fiber.New(fiber.Config{
		AppName:      "DevMaster API",
		ServerHeader: "DevMaster",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware())

	webApp.RegisterRoutes(app)

	go func() {
		if err := app.Listen(cfg.Server.Addr); err != nil {
			slog.Error("Server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()
	logger.LogSystem("Listening", "addr", cfg.Server.Addr)

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	logger.LogSystem("Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("Shutdown failed", slog.Any("err", err))
	}
}
