package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/config"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/gateway"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/ledger"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/middleware"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/notification"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/records"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Store     wallet.Store
	Connector gateway.Connector
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil || d.Connector == nil {
		return fmt.Errorf("wallet store and ledger connector are required")
	}
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Tracing())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	app.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Cache != nil {
		notifier = notification.NewRedisNotifier(d.Cache, notification.DefaultChannel)
	}
	tx := d.Cfg.Fabric.Transactions
	l := ledger.New(d.Connector, ledger.WithTransactions(ledger.Transactions{
		Store:  tx.Store,
		Update: tx.Update,
		Query:  tx.Query,
	}))
	recordSvc := records.NewService(l, notifier, d.Logger)
	recordHandler := records.NewHandler(recordSvc, d.Logger)
	limiter := middleware.WriteRateLimit(d.Cache, d.Cfg.WriteRateLimit, d.Logger)
	RegisterRecordRoutes(app, recordHandler, limiter)

	return nil
}
