package controller

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"duechaser/config"
	"duechaser/models"
	"duechaser/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"
)

// InitStripe wires the Stripe client to the configured secret key.
func InitStripe() {
	stripe.Key = config.AppConfig.StripeSecretKey
}

type PaymentController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewPaymentController(db *gorm.DB, logger *logrus.Entry) *PaymentController {
	return &PaymentController{
		DB:     db,
		Logger: logger,
	}
}

// amountInCents converts an invoice amount to Stripe's integer cents.
// Rounding, not truncation: 19.99 stored as a float is fractionally
// below 1999 cents and would otherwise charge a cent short.
func amountInCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreatePaymentIntent creates a Stripe Payment Intent for an open
// invoice so the client can pay it online.
func (pc *PaymentController) CreatePaymentIntent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if stripe.Key == "" {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Payment collection is not configured", nil)
	}

	var invoice models.Invoice
	if err := pc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}
	if invoice.Status == models.InvoiceStatusDraft {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invoice has not been sent", nil)
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invoice is already paid", nil)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents(invoice.Amount)),
		Currency: stripe.String(invoice.Currency),
		Metadata: map[string]string{
			"invoice_id":     strconv.Itoa(int(invoice.ID)),
			"invoice_number": invoice.Number,
		},
		Description: stripe.String("Payment of invoice " + invoice.Number),
	}
	params.IdempotencyKey = stripe.String(uuid.New().String())

	pi, err := paymentintent.New(params)
	if err != nil {
		pc.Logger.WithError(err).WithField("invoice_id", invoice.ID).Error("failed to create payment intent")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create payment intent", nil)
	}

	invoice.StripePaymentIntentID = pi.ID
	if err := pc.DB.Save(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record payment intent", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"client_secret": pi.ClientSecret,
		"amount":        pi.Amount,
		"currency":      pi.Currency,
	}))
}

// HandlePaymentWebhook settles invoices on Stripe payment events.
func (pc *PaymentController) HandlePaymentWebhook(c *fiber.Ctx) error {
	event, err := pc.constructEvent(c)
	if err != nil {
		pc.Logger.WithError(err).Warn("rejected stripe webhook")
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid webhook payload", nil)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Error parsing payment intent", err)
		}
		return pc.settleInvoice(c, &pi)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Error parsing payment intent", err)
		}
		pc.Logger.WithField("payment_intent", pi.ID).Warn("invoice payment failed")
		return c.SendStatus(fiber.StatusOK)

	default:
		return c.SendStatus(fiber.StatusOK)
	}
}

// settleInvoice marks the invoice of a succeeded payment intent paid
// and cancels its pending reminders.
func (pc *PaymentController) settleInvoice(c *fiber.Ctx, pi *stripe.PaymentIntent) error {
	var invoice models.Invoice
	if err := pc.DB.Where("stripe_payment_intent_id = ?", pi.ID).First(&invoice).Error; err != nil {
		pc.Logger.WithField("payment_intent", pi.ID).Warn("payment for unknown invoice")
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invoice not found", nil)
	}

	if invoice.Status == models.InvoiceStatusPaid {
		return c.SendStatus(fiber.StatusOK)
	}

	invoice.Status = models.InvoiceStatusPaid
	invoice.PaidAt = utils.Pointer(time.Now())
	if err := pc.DB.Save(&invoice).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to settle invoice", err)
	}

	if err := cancelPendingReminders(pc.DB, invoice.ID); err != nil {
		pc.Logger.WithError(err).WithField("invoice_id", invoice.ID).
			Warn("failed to cancel pending reminders for paid invoice")
	}

	pc.Logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"number":     invoice.Number,
	}).Info("invoice paid via stripe")

	return c.SendStatus(fiber.StatusOK)
}

// constructEvent verifies the webhook signature before trusting the
// payload.
func (pc *PaymentController) constructEvent(c *fiber.Ctx) (stripe.Event, error) {
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return stripe.Event{}, fmt.Errorf("missing Stripe-Signature header")
	}

	return webhook.ConstructEventWithTolerance(
		c.Body(),
		signature,
		config.AppConfig.StripeWebhookSecret,
		5*time.Minute,
	)
}
