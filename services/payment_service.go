package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/casaluna/casaluna-api/models"
)

// Webhook event types handled by the reconciliation flow. Anything else is
// acknowledged and ignored.
const (
	EventChargeSucceeded          = "charge.succeeded"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
	EventCheckoutSessionCompleted = "checkout.session.completed"
)

// signatureTolerance bounds how old a webhook timestamp may be
const signatureTolerance = 5 * time.Minute

// ErrInvalidSignature is returned when the webhook signature does not
// verify. The HTTP layer maps it to a 4xx so the provider redelivers.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// PaymentEvent is the provider's webhook envelope
type PaymentEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Charge is the provider's charge object as carried in charge.succeeded
type Charge struct {
	ID                   string            `json:"id"`
	Amount               int64             `json:"amount"` // smallest currency unit
	Currency             string            `json:"currency"`
	PaymentIntentID      string            `json:"payment_intent"`
	PaymentMethodDetails struct {
		Type string `json:"type"`
	} `json:"payment_method_details"`
	Metadata map[string]string `json:"metadata"`
}

// PaymentIntent is the provider's payment intent object
type PaymentIntent struct {
	ID               string `json:"id"`
	LastPaymentError struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
	Metadata map[string]string `json:"metadata"`
}

// CheckoutSessionEvent is the provider's checkout session object
type CheckoutSessionEvent struct {
	ID              string            `json:"id"`
	PaymentIntentID string            `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
}

// PaymentService reconciles asynchronous payment provider notifications
// onto order and payment status. Processing is idempotent under
// at-least-once delivery, keyed by the external payment intent id.
type PaymentService struct {
	db     *gorm.DB
	orders *OrderService
}

// NewPaymentService creates a payment service bound to a database handle
func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{
		db:     db,
		orders: NewOrderService(db),
	}
}

// VerifySignature checks the provider's signature header against the exact
// raw payload bytes. The header format is "t=<unix>,v1=<hex hmac>" and the
// signed material is "<unix>.<payload>". The timestamp must be within
// tolerance of now to limit replay.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// ProcessEvent dispatches a verified webhook event. Errors are returned to
// the caller for logging but the HTTP layer still acknowledges the event;
// once the signature has verified we never ask the provider to retry.
func (s *PaymentService) ProcessEvent(event *PaymentEvent) error {
	switch event.Type {
	case EventChargeSucceeded:
		var charge Charge
		if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
			return fmt.Errorf("failed to decode charge object: %w", err)
		}
		return s.handleChargeSucceeded(&charge)

	case EventPaymentIntentSucceeded:
		var intent PaymentIntent
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return fmt.Errorf("failed to decode payment intent object: %w", err)
		}
		return s.handlePaymentIntentSucceeded(&intent)

	case EventPaymentIntentFailed:
		var intent PaymentIntent
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return fmt.Errorf("failed to decode payment intent object: %w", err)
		}
		return s.handlePaymentIntentFailed(&intent)

	case EventCheckoutSessionCompleted:
		var session CheckoutSessionEvent
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return fmt.Errorf("failed to decode checkout session object: %w", err)
		}
		return s.handleCheckoutSessionCompleted(&session)

	default:
		log.Printf("Ignoring unhandled webhook event type %q (id %s)", event.Type, event.ID)
		return nil
	}
}

// handleChargeSucceeded marks the referenced order as paid. When the charge
// carries no order reference in its metadata, the order is reconstructed
// from the charge's own metadata instead.
func (s *PaymentService) handleChargeSucceeded(charge *Charge) error {
	order, err := s.findOrderForCharge(charge)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return s.reconstructOrder(charge)
		}
		return err
	}

	return s.markPaid(order, charge.PaymentIntentID, charge.ID, charge.PaymentMethodDetails.Type)
}

// findOrderForCharge locates the order a charge refers to. The payment
// intent id is the primary idempotency key; the charge's own id covers
// notifications that arrive without one, then the metadata order number.
func (s *PaymentService) findOrderForCharge(charge *Charge) (*models.Order, error) {
	if charge.PaymentIntentID != "" {
		var order models.Order
		err := s.db.Where("payment_intent_id = ?", charge.PaymentIntentID).First(&order).Error
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if charge.ID != "" {
		var order models.Order
		err := s.db.Where("charge_id = ?", charge.ID).First(&order).Error
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if number := charge.Metadata["order_number"]; number != "" {
		return s.orders.GetOrderByNumber(number)
	}

	return nil, &NotFoundError{Resource: "order"}
}

// markPaid is the idempotent upsert-by-id path: re-delivering the same
// notification finds the order already paid and does nothing.
func (s *PaymentService) markPaid(order *models.Order, intentID, chargeID, method string) error {
	if order.PaymentStatus == models.PaymentStatusPaid {
		log.Printf("Order %s already paid, ignoring duplicate notification", order.Number)
		return nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"status":         models.OrderStatusConfirmed,
		}
		if intentID != "" {
			updates["payment_intent_id"] = intentID
		}
		if chargeID != "" {
			updates["charge_id"] = chargeID
		}
		if method != "" {
			updates["payment_method"] = method
		}

		// Conditional write so concurrently delivered duplicates cannot
		// both record a confirmation; only the delivery that flips the
		// status appends the audit row.
		result := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status <> ?", order.ID, models.PaymentStatusPaid).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			log.Printf("Order %s was paid by a concurrent delivery, skipping audit append", order.Number)
			return nil
		}

		audit := models.OrderStatusUpdate{
			OrderID: order.ID,
			Status:  models.OrderStatusConfirmed,
			Note:    "Payment confirmed",
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return err
	}

	GetCacheService().InvalidateReports()
	return nil
}

// reconstructOrder derives a new order from the charge's own metadata when
// no existing order can be matched. Customer identity and the item list
// are required; an individual unresolvable item is skipped rather than
// aborting, provided at least one item resolves.
func (s *PaymentService) reconstructOrder(charge *Charge) error {
	// Idempotency: a previous delivery may already have reconstructed it.
	// The charge id is always present on the event, so it catches
	// redeliveries even when the charge carries no payment intent.
	if charge.ID != "" {
		var existing models.Order
		err := s.db.Where("charge_id = ?", charge.ID).First(&existing).Error
		if err == nil {
			log.Printf("Order %s already reconstructed for charge %s", existing.Number, charge.ID)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if charge.PaymentIntentID != "" {
		var existing models.Order
		err := s.db.Where("payment_intent_id = ?", charge.PaymentIntentID).First(&existing).Error
		if err == nil {
			log.Printf("Order %s already reconstructed for payment %s", existing.Number, charge.PaymentIntentID)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	email := charge.Metadata["customer_email"]
	if email == "" {
		return &ValidationError{Code: "MISSING_CUSTOMER", Message: "Charge metadata carries no customer identity"}
	}
	itemsJSON := charge.Metadata["items"]
	if itemsJSON == "" {
		return &ValidationError{Code: "MISSING_ITEMS", Message: "Charge metadata carries no item list"}
	}

	var customer models.User
	if err := s.db.Where("email = ?", email).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationError{Code: "UNKNOWN_CUSTOMER", Message: fmt.Sprintf("No customer with email %s", email)}
		}
		return err
	}

	var requested []CheckoutItem
	if err := json.Unmarshal([]byte(itemsJSON), &requested); err != nil {
		return &ValidationError{Code: "MALFORMED_ITEMS", Message: "Charge metadata item list is not valid JSON"}
	}

	orderType := charge.Metadata["order_type"]
	if !models.ValidOrderType(orderType) {
		orderType = models.OrderTypePickup
	}
	pickupTime := ParsePickupTime(charge.Metadata["pickup_time"])

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Resolve what we can; skip lines that no longer map to the catalog
		var lines []OrderLine
		var instructions []string
		for _, item := range requested {
			var menuItem models.MenuItem
			if err := tx.First(&menuItem, item.MenuItemID).Error; err != nil {
				log.Printf("Skipping unresolvable item %d while reconstructing order for payment %s: %v",
					item.MenuItemID, charge.PaymentIntentID, err)
				continue
			}
			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			lines = append(lines, OrderLine{Item: menuItem, Quantity: quantity, UnitPrice: menuItem.Price})
			instructions = append(instructions, item.Instructions)
		}
		if len(lines) == 0 {
			return &ValidationError{Code: "NO_RESOLVABLE_ITEMS", Message: "No item in the charge metadata resolves to the catalog"}
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			subtotal = subtotal.Add(line.LineTotal())
		}

		// The charged amount is authoritative for the total; any gap to
		// the snapshot subtotal is recorded as discount.
		total := decimal.New(charge.Amount, -2)
		discount := subtotal.Sub(total)
		if discount.IsNegative() {
			discount = decimal.Zero
			total = subtotal
		}

		method := charge.PaymentMethodDetails.Type
		order := models.Order{
			Number:              uuid.NewString(),
			CustomerID:          customer.ID,
			Status:              models.OrderStatusConfirmed,
			PaymentStatus:       models.PaymentStatusPaid,
			OrderType:           orderType,
			Subtotal:            subtotal,
			DiscountAmount:      discount,
			Total:               total,
			EstimatedPickupTime: pickupTime,
			ChargeID:            &charge.ID,
		}
		if method != "" {
			order.PaymentMethod = &method
		}
		if charge.PaymentIntentID != "" {
			intentID := charge.PaymentIntentID
			order.PaymentIntentID = &intentID
		}

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i, line := range lines {
			orderItem := models.OrderItem{
				OrderID:      order.ID,
				MenuItemID:   line.Item.ID,
				Quantity:     line.Quantity,
				UnitPrice:    line.UnitPrice,
				Instructions: instructions[i],
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
		}

		for _, audit := range []models.OrderStatusUpdate{
			{OrderID: order.ID, Status: models.OrderStatusPending, Note: "Order reconstructed from payment notification"},
			{OrderID: order.ID, Status: models.OrderStatusConfirmed, Note: "Payment confirmed"},
		} {
			if err := tx.Create(&audit).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	GetCacheService().InvalidateReports()
	return nil
}

// handlePaymentIntentSucceeded confirms payment when only the intent-level
// notification arrives (the charge event may be delayed or dropped).
func (s *PaymentService) handlePaymentIntentSucceeded(intent *PaymentIntent) error {
	order, err := s.findOrderForIntent(intent)
	if err != nil {
		return err
	}
	return s.markPaid(order, intent.ID, "", "")
}

// handlePaymentIntentFailed records the failure and moves the order back to
// PENDING so the customer can retry payment on the same order.
func (s *PaymentService) handlePaymentIntentFailed(intent *PaymentIntent) error {
	order, err := s.findOrderForIntent(intent)
	if err != nil {
		return err
	}

	note := "Payment failed"
	if intent.LastPaymentError.Message != "" {
		note = fmt.Sprintf("Payment failed: %s", intent.LastPaymentError.Message)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"payment_status": models.PaymentStatusFailed,
			"status":         models.OrderStatusPending,
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return err
		}

		audit := models.OrderStatusUpdate{
			OrderID: order.ID,
			Status:  models.OrderStatusPending,
			Note:    note,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return err
	}

	GetCacheService().InvalidateReports()
	return nil
}

// handleCheckoutSessionCompleted records the session's payment intent on
// the order so later intent-level events can be matched to it.
func (s *PaymentService) handleCheckoutSessionCompleted(session *CheckoutSessionEvent) error {
	number := session.Metadata["order_number"]
	if number == "" || session.PaymentIntentID == "" {
		return nil
	}

	order, err := s.orders.GetOrderByNumber(number)
	if err != nil {
		return err
	}
	if order.PaymentIntentID != nil && *order.PaymentIntentID == session.PaymentIntentID {
		return nil
	}

	return s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_intent_id", session.PaymentIntentID).Error
}

// findOrderForIntent locates the order for an intent-level event
func (s *PaymentService) findOrderForIntent(intent *PaymentIntent) (*models.Order, error) {
	var order models.Order
	err := s.db.Where("payment_intent_id = ?", intent.ID).First(&order).Error
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if number := intent.Metadata["order_number"]; number != "" {
		return s.orders.GetOrderByNumber(number)
	}
	return nil, &NotFoundError{Resource: "order"}
}

// pickupTimeLayouts are tried in order against free-text pickup times
// after normalization ("7:30 p.m." becomes "7:30 PM").
var pickupTimeLayouts = []string{"3:04 PM", "3 PM", "15:04"}

// ParsePickupTime best-effort-parses a pickup time from either an RFC3339
// timestamp or a free-text "H:MM a.m./p.m." clock time (interpreted as the
// next occurrence of that clock time). Unparseable input yields nil rather
// than an error.
func ParsePickupTime(value string) *time.Time {
	if value == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}

	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), ".", ""))
	for _, layout := range pickupTimeLayouts {
		clock, err := time.Parse(layout, normalized)
		if err != nil {
			continue
		}
		now := time.Now()
		t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local)
		if t.Before(now) {
			t = t.AddDate(0, 0, 1)
		}
		return &t
	}

	return nil
}
