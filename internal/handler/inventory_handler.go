package handler

import (
	"go-stock-resi/internal/middleware"
	"go-stock-resi/internal/model"
	"go-stock-resi/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

type productRequest struct {
	Name           string         `json:"name"`
	Category       model.Category `json:"category"`
	Quantity       int            `json:"quantity"`
	MinStock       int            `json:"min_stock"`
	Unit           string         `json:"unit"`
	ExpirationDate string         `json:"expiration_date"`
}

// patchRequest mirrors model.ProductPatch. An empty expiration_date clears it.
type patchRequest struct {
	Name           *string         `json:"name"`
	Category       *model.Category `json:"category"`
	Quantity       *int            `json:"quantity"`
	MinStock       *int            `json:"min_stock"`
	Unit           *string         `json:"unit"`
	ExpirationDate *string         `json:"expiration_date"`
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	exp, err := parseDate(req.ExpirationDate)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.service.AddProduct(c.UserContext(), middleware.CurrentSession(c), service.ProductInput{
		Name:           req.Name,
		Category:       req.Category,
		Quantity:       req.Quantity,
		MinStock:       req.MinStock,
		Unit:           req.Unit,
		ExpirationDate: exp,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req patchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	patch := model.ProductPatch{
		Name:     req.Name,
		Category: req.Category,
		Quantity: req.Quantity,
		MinStock: req.MinStock,
		Unit:     req.Unit,
	}
	if req.ExpirationDate != nil {
		exp, err := parseDate(*req.ExpirationDate)
		if err != nil {
			return respondError(c, err)
		}
		patch.ExpirationDate = exp
		patch.ClearExpiry = exp == nil
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), middleware.CurrentSession(c), productID, patch)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if err := h.service.DeleteProduct(c.UserContext(), middleware.CurrentSession(c), productID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// GetProducts lists the catalog.
// Query params: q, category, low_stock
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	filter := service.ProductFilter{
		Query:        c.Query("q"),
		Category:     model.Category(c.Query("category")),
		LowStockOnly: c.QueryBool("low_stock", false),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown category"})
	}
	return c.JSON(h.service.SearchProducts(filter))
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	product, err := h.service.GetProduct(productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *InventoryHandler) CreateTransaction(c *fiber.Ctx) error {
	var movement model.Movement
	if err := c.BodyParser(&movement); err != nil {
		return invalidJSON(c)
	}

	txn, err := h.service.RecordMovement(c.UserContext(), middleware.CurrentSession(c), movement)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Transaction recorded", "data": txn})
}

func (h *InventoryHandler) GetTransactions(c *fiber.Ctx) error {
	return c.JSON(h.service.GetAllTransactions())
}

func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	txID, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	tx, err := h.service.GetTransactionByID(txID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tx)
}

// ClearAll wipes every product and transaction.
// DELETE /api/v1/data?confirm=true
func (h *InventoryHandler) ClearAll(c *fiber.Ctx) error {
	if !c.QueryBool("confirm", false) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Pass confirm=true to delete all data"})
	}
	if err := h.service.ClearAll(c.UserContext(), middleware.CurrentSession(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "All data cleared"})
}
