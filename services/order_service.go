package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/casaluna/casaluna-api/models"
)

// CheckoutItem is one cart line as submitted by the client
type CheckoutItem struct {
	MenuItemID   uint   `json:"menu_item_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
	Instructions string `json:"instructions"`
}

// CreateOrderInput carries everything needed to turn a cart into an order
type CreateOrderInput struct {
	CustomerID uint
	Items      []CheckoutItem
	OrderType  string
	Notes      string
	PickupTime *time.Time
	CouponCode string
}

// OrderService owns the order lifecycle: creation, status transitions and
// the append-only audit trail behind them.
type OrderService struct {
	db         *gorm.DB
	promotions *PromotionService
}

// NewOrderService creates an order service bound to a database handle
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{
		db:         db,
		promotions: NewPromotionService(db),
	}
}

// CreateOrder validates the cart, snapshots catalog prices, applies the
// coupon's promotion if one qualifies, and inserts the order in PENDING
// with its first audit entry. Price snapshot, total computation, promotion
// usage accounting and the inserts all commit or roll back as one
// transaction.
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, &ValidationError{Code: "EMPTY_ORDER", Message: "Order must contain at least one item"}
	}
	if !models.ValidOrderType(input.OrderType) {
		return nil, &ValidationError{Code: "INVALID_ORDER_TYPE", Message: fmt.Sprintf("Unknown order type %q", input.OrderType)}
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{Code: "INVALID_QUANTITY", Message: "Item quantity must be positive"}
		}
	}

	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Resolve every referenced catalog item and snapshot its price
		lines := make([]OrderLine, 0, len(input.Items))
		for _, item := range input.Items {
			var menuItem models.MenuItem
			if err := tx.First(&menuItem, item.MenuItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ValidationError{
						Code:    "UNKNOWN_ITEM",
						Message: fmt.Sprintf("Menu item %d does not exist", item.MenuItemID),
					}
				}
				return err
			}
			if !menuItem.IsAvailable {
				return &ValidationError{
					Code:    "ITEM_UNAVAILABLE",
					Message: fmt.Sprintf("%s is currently unavailable", menuItem.Name),
				}
			}
			lines = append(lines, OrderLine{
				Item:      menuItem,
				Quantity:  item.Quantity,
				UnitPrice: menuItem.Price,
			})
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			subtotal = subtotal.Add(line.LineTotal())
		}

		// Evaluate the coupon's promotion against the cart. A coupon that
		// does not qualify is not an error; the order simply proceeds at
		// full price.
		discount := decimal.Zero
		var promo *models.Promotion
		if input.CouponCode != "" {
			found, err := s.promotions.FindByCoupon(input.CouponCode)
			if err != nil {
				var notFound *NotFoundError
				if !errors.As(err, &notFound) {
					return err
				}
			} else if d, applicable := s.promotions.Evaluate(found, lines, subtotal, time.Now()); applicable {
				reserved, err := s.promotions.Reserve(tx, found)
				if err != nil {
					return err
				}
				if reserved {
					promo = found
					discount = d
				}
			}
		}

		newOrder := models.Order{
			Number:              uuid.NewString(),
			CustomerID:          input.CustomerID,
			Status:              models.OrderStatusPending,
			PaymentStatus:       models.PaymentStatusUnpaid,
			OrderType:           input.OrderType,
			Subtotal:            subtotal,
			DiscountAmount:      discount,
			Total:               subtotal.Sub(discount),
			Notes:               input.Notes,
			EstimatedPickupTime: input.PickupTime,
		}
		if promo != nil {
			newOrder.PromotionID = &promo.ID
		}

		if err := tx.Create(&newOrder).Error; err != nil {
			return err
		}

		for i, line := range lines {
			orderItem := models.OrderItem{
				OrderID:      newOrder.ID,
				MenuItemID:   line.Item.ID,
				Quantity:     line.Quantity,
				UnitPrice:    line.UnitPrice,
				Instructions: input.Items[i].Instructions,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
		}

		if promo != nil {
			if err := s.promotions.RecordUsage(tx, promo, newOrder.ID, subtotal, discount); err != nil {
				return err
			}
		}

		if err := s.appendAudit(tx, newOrder.ID, models.OrderStatusPending, "Order placed", nil); err != nil {
			return err
		}

		order = &newOrder
		return nil
	})
	if err != nil {
		return nil, err
	}

	GetCacheService().InvalidateReports()

	return s.GetOrder(order.ID)
}

// GetOrder loads an order with its items and customer
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Customer").Preload("Items").Preload("Items.MenuItem").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "order"}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber loads an order by its public order number
func (s *OrderService) GetOrderByNumber(number string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Customer").Preload("Items").Preload("Items.MenuItem").
		Where("number = ?", number).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "order"}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns orders, newest first. customerID of 0 lists all
// orders (staff view); a non-empty status filters by lifecycle state.
func (s *OrderService) ListOrders(customerID uint, status string) ([]models.Order, error) {
	query := s.db.Preload("Customer").Preload("Items").Preload("Items.MenuItem").
		Order("created_at DESC")
	if customerID != 0 {
		query = query.Where("customer_id = ?", customerID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus writes the new status and appends an audit entry recording
// who made the change. Transitions are not restricted to the forward
// sequence; staff may set any known status from any state.
func (s *OrderService) UpdateStatus(orderID uint, newStatus string, actor *models.User, note string) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, &ValidationError{Code: "INVALID_STATUS", Message: fmt.Sprintf("Unknown order status %q", newStatus)}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order"}
			}
			return err
		}

		if err := tx.Model(&order).Update("status", newStatus).Error; err != nil {
			return err
		}

		var actorID *uint
		if actor != nil {
			actorID = &actor.ID
		}
		return s.appendAudit(tx, orderID, newStatus, note, actorID)
	})
	if err != nil {
		return nil, err
	}

	GetCacheService().InvalidateReports()

	return s.GetOrder(orderID)
}

// Cancel cancels an order on behalf of the owning customer. Only permitted
// while the order is PENDING or CONFIRMED. The update is conditional on the
// current status and owner so a concurrent staff transition cannot race a
// customer cancellation.
func (s *OrderService) Cancel(orderID uint, customer *models.User) (*models.Order, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Order{}).
			Where("id = ? AND customer_id = ? AND status IN ?",
				orderID, customer.ID,
				[]string{models.OrderStatusPending, models.OrderStatusConfirmed}).
			Update("status", models.OrderStatusCanceled)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// Work out why the guarded update matched nothing
			var order models.Order
			if err := tx.First(&order, orderID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Resource: "order"}
				}
				return err
			}
			if order.CustomerID != customer.ID {
				return &AuthorizationError{Code: "NOT_ORDER_OWNER", Message: "You can only cancel your own orders"}
			}
			return &InvalidStateError{
				Code:    "ORDER_NOT_CANCELABLE",
				Message: "Order cannot be canceled because it is already being prepared",
			}
		}

		return s.appendAudit(tx, orderID, models.OrderStatusCanceled, "Canceled by customer", &customer.ID)
	})
	if err != nil {
		return nil, err
	}

	GetCacheService().InvalidateReports()

	return s.GetOrder(orderID)
}

// GetAuditTrail returns the order's status history, oldest first
func (s *OrderService) GetAuditTrail(orderID uint) ([]models.OrderStatusUpdate, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, err
	}

	var updates []models.OrderStatusUpdate
	err := s.db.Preload("Actor").Where("order_id = ?", orderID).
		Order("id ASC").Find(&updates).Error
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// appendAudit writes one append-only status trail entry
func (s *OrderService) appendAudit(tx *gorm.DB, orderID uint, status, note string, actorID *uint) error {
	update := models.OrderStatusUpdate{
		OrderID: orderID,
		Status:  status,
		Note:    note,
		ActorID: actorID,
	}
	if err := tx.Create(&update).Error; err != nil {
		log.Printf("Failed to append audit entry for order %d: %v", orderID, err)
		return err
	}
	return nil
}
