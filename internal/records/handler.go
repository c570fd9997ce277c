package records

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/ledger"
)

// Handler exposes the upload, update and query endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a records HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type writeResponse struct {
	Message  string            `json:"message"`
	Metadata ledger.HashRecord `json:"metadata"`
}

// Upload handles POST /upload.
func (h *Handler) Upload(c *fiber.Ctx) error {
	in, err := h.readUpload(c, "Failed to store hash")
	if err != nil {
		return err
	}

	rec, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return fiber.NewError(http.StatusBadRequest, "User ID is required")
		case errors.Is(err, ErrConflict):
			return fiber.NewError(http.StatusConflict, "User hash already exists. Use /update to modify.")
		default:
			h.logger.Error("upload failed", slog.String("user_id", in.UserID), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "Failed to store hash")
		}
	}

	return c.Status(http.StatusOK).JSON(writeResponse{
		Message:  fmt.Sprintf("File hash for %s stored successfully", rec.UserID),
		Metadata: rec,
	})
}

// Update handles PUT /update.
func (h *Handler) Update(c *fiber.Ctx) error {
	in, err := h.readUpload(c, "Failed to update hash")
	if err != nil {
		return err
	}

	rec, err := h.service.Update(c.UserContext(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return fiber.NewError(http.StatusBadRequest, "User ID is required")
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "User not found. Use /upload first.")
		default:
			h.logger.Error("update failed", slog.String("user_id", in.UserID), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "Failed to update hash")
		}
	}

	return c.Status(http.StatusOK).JSON(writeResponse{
		Message:  fmt.Sprintf("File hash for %s updated successfully", rec.UserID),
		Metadata: rec,
	})
}

// Query handles GET /query/:userId.
func (h *Handler) Query(c *fiber.Ctx) error {
	userID := c.Params("userId")
	rec, err := h.service.Query(c.UserContext(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "User not found")
		default:
			h.logger.Error("query failed", slog.String("user_id", userID), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "Failed to retrieve user hash")
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(http.StatusOK).Send(rec)
}

// readUpload extracts the multipart file and userId, answering 400 when
// either is missing and 500 with failure when the upload cannot be read back.
func (h *Handler) readUpload(c *fiber.Ctx, failure string) (Upload, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return Upload{}, fiber.NewError(http.StatusBadRequest, "No file uploaded")
	}
	userID := c.FormValue("userId")
	if userID == "" {
		return Upload{}, fiber.NewError(http.StatusBadRequest, "User ID is required")
	}

	content, err := readFile(header)
	if err != nil {
		h.logger.Error("read upload failed", slog.String("user_id", userID), slog.Any("error", err))
		return Upload{}, fiber.NewError(http.StatusInternalServerError, failure)
	}
	return Upload{UserID: userID, Filename: header.Filename, Content: content}, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}
	return content, nil
}
