package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestRequestIDAndAudit(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Tracing(), Audit(logger))
	app.Get("/query/:userId", func(c *fiber.Ctx) error {
		if RequestIDFromContext(c.UserContext()) != "req-1" {
			return fiber.NewError(fiber.StatusInternalServerError, "request id missing from context")
		}
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	})

	req := httptest.NewRequest(fiber.MethodGet, "/query/alice", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) != "req-1" {
		t.Fatalf("expected request id echoed, got %q", resp.Header.Get(requestIDHeader))
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode audit line %q: %v", buf.String(), err)
	}
	if line["level"] != "WARN" || line["user_id"] != "alice" || line["request_id"] != "req-1" {
		t.Fatalf("unexpected audit line %v", line)
	}
	if status, _ := line["status"].(float64); status != fiber.StatusNotFound {
		t.Fatalf("expected logged status 404 got %v", line["status"])
	}
}

func TestRequestIDGenerated(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFromContext(c.UserContext()))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}
