package handlers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gabarito/internal/imaging"
	"gabarito/internal/middleware"
	"gabarito/internal/models"
	"gabarito/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MaxArtworkBytes bounds the artwork part of a generation request.
const MaxArtworkBytes = 32 << 20

// TemplateHandler handles HTTP requests for template and proof generation.
type TemplateHandler struct {
	service *services.TemplateService
	logger  *zap.Logger
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(service *services.TemplateService, logger *zap.Logger) *TemplateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateHandler{service: service, logger: logger}
}

// RegisterRoutes registers the template routes with the Fiber app.
func (h *TemplateHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/templates", h.HandleGenerate)
}

type templateRequestBody struct {
	Width          flexibleNumber `json:"width"`
	Height         flexibleNumber `json:"height"`
	Label          string         `json:"label"`
	ColorMode      string         `json:"color-mode"`
	PersistArtwork flexibleBool   `json:"persist-artwork"`
	ProductID      string         `json:"product-id"`
}

// HandleGenerate renders a PDF from a multipart form or a JSON body and
// returns it as an attachment.
func (h *TemplateHandler) HandleGenerate(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	doc, err := h.service.Generate(c.UserContext(), req, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidDimensions) || errors.Is(err, services.ErrInvalidColorMode) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("Error generating document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Attachment(doc.Filename)
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Status(fiber.StatusOK).Send(doc.PDF)
}

func (h *TemplateHandler) parseRequest(c *fiber.Ctx) (models.TemplateRequest, error) {
	var req models.TemplateRequest
	var width, height, mode string

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var body templateRequestBody
		if err := c.BodyParser(&body); err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
		width, height, mode = string(body.Width), string(body.Height), body.ColorMode
		req.Label = body.Label
		req.PersistArtwork = bool(body.PersistArtwork)
		req.ProductID = strings.TrimSpace(body.ProductID)
	} else {
		width, height, mode = c.FormValue("width"), c.FormValue("height"), c.FormValue("color-mode")
		req.Label = c.FormValue("label")
		req.PersistArtwork = isTrue(c.FormValue("persist-artwork"))
		req.ProductID = strings.TrimSpace(c.FormValue("product-id"))

		artwork, err := readArtwork(c)
		if err != nil {
			return req, err
		}
		req.Artwork = artwork
	}

	var err error
	if req.Page.Width, err = parseDimension("width", width); err != nil {
		return req, err
	}
	if req.Page.Height, err = parseDimension("height", height); err != nil {
		return req, err
	}
	if req.Page.Mode, err = models.ParseColorMode(mode); err != nil {
		return req, err
	}
	return req, nil
}

// readArtwork returns the optional "artwork" file part, or nil when absent or empty.
func readArtwork(c *fiber.Ctx) (*models.Artwork, error) {
	fh, err := c.FormFile("artwork")
	if err != nil {
		return nil, nil
	}
	if fh.Size > MaxArtworkBytes {
		return nil, fmt.Errorf("artwork exceeds %d bytes", MaxArtworkBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxArtworkBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == fiber.MIMEOctetStream {
		contentType = imaging.SniffMIME(data)
	}
	return &models.Artwork{Data: data, ContentType: contentType, Filename: fh.Filename}, nil
}
