package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/cafe-bot/internal/application/auth"
	"github.com/jhoicas/cafe-bot/internal/application/conversation"
	"github.com/jhoicas/cafe-bot/internal/application/evidence"
	appinventory "github.com/jhoicas/cafe-bot/internal/application/inventory"
	"github.com/jhoicas/cafe-bot/internal/application/report"
	"github.com/jhoicas/cafe-bot/internal/application/trade"
	"github.com/jhoicas/cafe-bot/internal/domain/inventory"
	infrapdf "github.com/jhoicas/cafe-bot/internal/infrastructure/pdf"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/session"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/storage"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/stores"
	"github.com/jhoicas/cafe-bot/internal/infrastructure/tabular"
	httpRouter "github.com/jhoicas/cafe-bot/internal/interfaces/http"
	"github.com/jhoicas/cafe-bot/internal/interfaces/telegram"
	"github.com/jhoicas/cafe-bot/pkg/config"
	"github.com/jhoicas/cafe-bot/pkg/keylock"
	"github.com/jhoicas/cafe-bot/pkg/logger"
)

const sessionCleanupInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Almacén tabular: una hoja con encabezados incorrectos impide arrancar.
	store, closeStore, err := stores.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacén")
	}
	defer closeStore()
	if err := tabular.EnsureAll(ctx, store, tabular.AllSchemas()...); err != nil {
		log.Fatal().Err(err).Bool("critical", true).Msg("estructura de hojas")
	}
	repos := tabular.NewRepositories(store, cfg.App.Location())

	graph := inventory.DefaultGraph()
	if cfg.Inventory.ShrinkageRatios != "" {
		ratios, err := inventory.ParseRatios(cfg.Inventory.ShrinkageRatios)
		if err != nil {
			log.Fatal().Err(err).Msg("SHRINKAGE_RATIOS")
		}
		graph = graph.WithRatios(ratios)
	}

	locks := keylock.New()
	ledger := appinventory.NewLedger(repos.Inventory, repos.Purchases, log, appinventory.WithLocks(locks))
	transformUC := appinventory.NewTransformUseCase(ledger, graph, repos.Process, log)
	tradeUC := trade.NewUseCase(ledger, trade.Repos{
		Purchases: repos.Purchases,
		Sales:     repos.Sales,
		Advances:  repos.Advances,
		Expenses:  repos.Expenses,
	}, log)

	// Evidencias: sin almacenamiento de objetos se guarda el file id de Telegram.
	var objects evidence.ObjectStorage
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3Storage(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatal().Err(err).Msg("almacenamiento de evidencias")
		}
		objects = s3
	}
	evidenceUC := evidence.NewUseCase(repos.Evidence, objects, cfg.Storage.Folder, log)

	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfg.App.Name)
	reportUC := report.NewUseCase(ledger, repos.Sales, repos.Expenses, repos.Advances, pdfGenerator, log)

	var wg sync.WaitGroup
	var sessions conversation.SessionStore
	switch cfg.Session.Driver {
	case config.SessionRedis:
		rs, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rs.Close()
		sessions = rs
	default:
		ms := session.NewMemoryStore()
		wg.Add(1)
		go func() {
			defer wg.Done()
			ms.Run(ctx, sessionCleanupInterval)
		}()
		sessions = ms
	}

	dispatcher := conversation.NewDispatcher(sessions, conversation.Services{
		Ledger:    ledger,
		Transform: transformUC,
		Trade:     tradeUC,
		Evidence:  evidenceUC,
		Report:    reportUC,
	}, conversation.Options{
		AllowedUsers:       cfg.Telegram.AllowedUsers,
		FlowTimeout:        cfg.Session.FlowTimeout,
		ProcessFlowTimeout: cfg.Session.ProcessFlowTimeout,
	}, log)

	bot, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.Debug, dispatcher, dispatcher.Commands(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("bot de Telegram")
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.Run(ctx); err != nil {
			log.Error().Err(err).Msg("bot finalizado")
		}
		stop()
	}()

	var app *fiber.App
	if cfg.HTTP.Enabled {
		authUC := auth.NewAuthUseCase(
			auth.AdminCredentials{Username: cfg.Admin.User, PasswordHash: cfg.Admin.PasswordHash},
			auth.JWTConfig{Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer},
		)
		app = fiber.New(fiber.Config{
			AppName:               cfg.App.Name,
			ReadTimeout:           time.Second * 10,
			WriteTimeout:          time.Second * 30,
			IdleTimeout:           time.Second * 60,
			DisableStartupMessage: true,
		})
		app.Use(recover.New())
		httpRouter.Router(app, httpRouter.RouterDeps{
			AuthUC:    authUC,
			Ledger:    ledger,
			Report:    reportUC,
			JWTSecret: cfg.JWT.Secret,
		})
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP de administración")
			if err := app.Listen(cfg.HTTP.Addr()); err != nil {
				log.Error().Err(err).Msg("servidor HTTP finalizado")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando...")

	if app != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("apagado del servidor")
		}
		cancel()
	}
	wg.Wait()

	log.Info().Msg("aplicación detenida")
}
