package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/ledger"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

const (
	statusOK       = "ok"
	statusDisabled = "disabled"
	statusMissing  = "missing"
)

// RegisterHealthRoutes adds a readiness endpoint covering the backing stores
// and the presence of the ledger identity in the wallet. The identity is
// reported as disabled when the in-memory contract stands in for the network.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := statusDisabled
		redisStatus := statusDisabled
		identityStatus := statusOK

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			dbStatus = statusOK
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			redisStatus = statusOK
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		if _, local := d.Connector.(*ledger.InMemoryContract); local {
			identityStatus = statusDisabled
		} else {
			exists, err := wallet.Exists(ctx, d.Store, d.Cfg.Fabric.IdentityLabel)
			switch {
			case err != nil:
				identityStatus = err.Error()
			case !exists:
				identityStatus = statusMissing
			}
		}

		status := http.StatusOK
		if !healthy(dbStatus) || !healthy(redisStatus) || !healthy(identityStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status": fiber.Map{
				"postgres": dbStatus,
				"redis":    redisStatus,
				"identity": identityStatus,
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func healthy(s string) bool {
	return s == statusOK || s == statusDisabled
}
