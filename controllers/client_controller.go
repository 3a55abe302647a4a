package controller

import (
	"strings"

	"duechaser/models"
	"duechaser/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ClientController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewClientController(db *gorm.DB, logger *logrus.Entry) *ClientController {
	return &ClientController{
		DB:     db,
		Logger: logger,
	}
}

type clientInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company" validate:"omitempty,max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// CreateClient creates a new client with validation
func (cc *ClientController) CreateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input clientInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client email", err)
	}

	client := models.Client{
		UserID:  user.ID,
		Name:    input.Name,
		Email:   strings.ToLower(input.Email),
		Company: input.Company,
		Phone:   input.Phone,
		Address: input.Address,
		Notes:   input.Notes,
	}

	if err := cc.DB.Create(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create client", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(client))
}

// GetClients lists the user's clients
func (cc *ClientController) GetClients(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var clients []models.Client
	if err := cc.DB.Where("user_id = ?", user.ID).Order("name").Find(&clients).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch clients", err)
	}

	return c.JSON(utils.SuccessResponse(clients))
}

// GetClient fetches a single client
func (cc *ClientController) GetClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var client models.Client
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}

	return c.JSON(utils.SuccessResponse(client))
}

// UpdateClient updates an existing client
func (cc *ClientController) UpdateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var client models.Client
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}

	var input clientInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client email", err)
	}

	client.Name = input.Name
	client.Email = strings.ToLower(input.Email)
	client.Company = input.Company
	client.Phone = input.Phone
	client.Address = input.Address
	client.Notes = input.Notes

	if err := cc.DB.Save(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update client", err)
	}

	return c.JSON(utils.SuccessResponse(client))
}

// DeleteClient deletes a client unless invoices still reference it
func (cc *ClientController) DeleteClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var client models.Client
	if err := cc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}

	var invoiceCount int64
	if err := cc.DB.Model(&models.Invoice{}).Where("client_id = ?", client.ID).Count(&invoiceCount).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check client invoices", err)
	}
	if invoiceCount > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Client has invoices and cannot be deleted", nil)
	}

	if err := cc.DB.Delete(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete client", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": client.ID}))
}
