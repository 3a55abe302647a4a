package controller

import (
	"duechaser/models"
	"duechaser/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type TemplateController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewTemplateController(db *gorm.DB, logger *logrus.Entry) *TemplateController {
	return &TemplateController{
		DB:     db,
		Logger: logger,
	}
}

type templateInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Subject  string `json:"subject" validate:"required,max=500"`
	Body     string `json:"body" validate:"required"`
	Severity int    `json:"severity" validate:"omitempty,min=1,max=10"`
}

// CreateTemplate creates a user-owned message template
func (tc *TemplateController) CreateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input templateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	severity := input.Severity
	if severity == 0 {
		severity = 1
	}

	tmpl := models.MessageTemplate{
		UserID:   &user.ID,
		Name:     input.Name,
		Subject:  input.Subject,
		Body:     input.Body,
		Severity: severity,
	}

	if err := tc.DB.Create(&tmpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create template", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(tmpl))
}

// GetTemplates lists the user's templates plus the shared system ones,
// gentlest first
func (tc *TemplateController) GetTemplates(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var templates []models.MessageTemplate
	err := tc.DB.Where("user_id = ? OR user_id IS NULL", user.ID).
		Order("severity, name").Find(&templates).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch templates", err)
	}

	return c.JSON(utils.SuccessResponse(templates))
}

// GetTemplate fetches one accessible template
func (tc *TemplateController) GetTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var tmpl models.MessageTemplate
	err := tc.DB.Where("id = ? AND (user_id = ? OR user_id IS NULL)", c.Params("id"), user.ID).
		First(&tmpl).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}

	return c.JSON(utils.SuccessResponse(tmpl))
}

// UpdateTemplate edits a user-owned template. Shared system templates
// and templates already referenced by a sent reminder are immutable.
func (tc *TemplateController) UpdateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var tmpl models.MessageTemplate
	if err := tc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&tmpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}

	referenced, err := tc.sentReminderReferences(tmpl.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check template usage", err)
	}
	if referenced {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Template was used by a sent reminder and is immutable", nil)
	}

	var input templateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	tmpl.Name = input.Name
	tmpl.Subject = input.Subject
	tmpl.Body = input.Body
	if input.Severity != 0 {
		tmpl.Severity = input.Severity
	}

	if err := tc.DB.Save(&tmpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update template", err)
	}

	return c.JSON(utils.SuccessResponse(tmpl))
}

// DeleteTemplate removes a user-owned template not referenced by any
// reminder
func (tc *TemplateController) DeleteTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var tmpl models.MessageTemplate
	if err := tc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&tmpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}

	var count int64
	if err := tc.DB.Model(&models.Reminder{}).Where("template_id = ?", tmpl.ID).Count(&count).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check template usage", err)
	}
	if count > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Template is referenced by reminders and cannot be deleted", nil)
	}

	if err := tc.DB.Delete(&tmpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete template", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": tmpl.ID}))
}

func (tc *TemplateController) sentReminderReferences(templateID uint) (bool, error) {
	var count int64
	err := tc.DB.Model(&models.Reminder{}).
		Where("template_id = ? AND status = ?", templateID, models.ReminderStatusSent).
		Count(&count).Error
	return count > 0, err
}
