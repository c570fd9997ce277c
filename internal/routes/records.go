package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/records"
)

// RegisterRecordRoutes mounts the file hash endpoints. Writes pass through limiter.
func RegisterRecordRoutes(r fiber.Router, h *records.Handler, limiter fiber.Handler) {
	r.Post("/upload", limiter, h.Upload)
	r.Put("/update", limiter, h.Update)
	r.Get("/query/:userId", h.Query)
}
