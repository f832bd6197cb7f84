package handlers

import (
	"errors"
	"strings"

	"gabarito/internal/middleware"
	"gabarito/internal/models"
	"gabarito/internal/services"
	"gabarito/pkg/itemstore"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.CatalogService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{service: service, logger: logger}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Post("/", h.HandleRegisterProduct)
}

// HandleListProducts returns published products; an unreachable store yields [].
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	return c.JSON(h.service.ListProducts(c.UserContext()))
}

type productRequestBody struct {
	Name   string         `json:"name"`
	SKU    string         `json:"sku"`
	Width  flexibleNumber `json:"width"`
	Height flexibleNumber `json:"height"`
}

// HandleRegisterProduct validates and stores a product.
func (h *ProductHandler) HandleRegisterProduct(c *fiber.Ctx) error {
	var body productRequestBody
	if err := c.BodyParser(&body); err != nil {
		return registrationFailure(c, "Invalid request body: "+err.Error())
	}

	reg := models.ProductRegistration{Name: body.Name, SKU: body.SKU}
	var err error
	if reg.Width, err = parseDimension("width", string(body.Width)); err != nil {
		return registrationFailure(c, err.Error())
	}
	if reg.Height, err = parseDimension("height", string(body.Height)); err != nil {
		return registrationFailure(c, err.Error())
	}

	id, err := h.service.RegisterProduct(c.UserContext(), reg, middleware.UserID(c))
	if err != nil {
		h.logger.Warn("Product registration failed", zap.Error(err))
		return registrationFailure(c, upstreamText(err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": id})
}

func registrationFailure(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": msg})
}

// upstreamText prefers the raw body of a store rejection over the wrapped message.
func upstreamText(err error) string {
	var se *itemstore.StatusError
	if errors.As(err, &se) && strings.TrimSpace(se.Body) != "" {
		return se.Body
	}
	return err.Error()
}
