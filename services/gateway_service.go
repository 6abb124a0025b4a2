package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/models"
)

// decimalHundred converts between dollars and the gateway's cent amounts
var decimalHundred = decimal.NewFromInt(100)

// CheckoutSession is the payment session created for an order. The client
// is redirected to URL to complete card payment; the provider reports the
// outcome asynchronously through the webhook.
type CheckoutSession struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	PaymentIntentID string `json:"payment_intent"`
}

// GatewayInterface defines the outbound payment gateway operations
type GatewayInterface interface {
	CreateCheckoutSession(order *models.Order) (*CheckoutSession, error)
}

// GatewayService handles outbound calls to the payment provider's API
type GatewayService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var gatewayServiceInstance GatewayInterface

// InitGatewayService initializes the payment gateway client. Returns nil
// when no API key is configured; checkout then skips session creation.
func InitGatewayService(cfg *config.Config) GatewayInterface {
	if cfg.PaymentGatewayKey == "" {
		gatewayServiceInstance = nil
		return nil
	}
	gatewayServiceInstance = NewGatewayService(cfg)
	return gatewayServiceInstance
}

// GetGatewayService returns the gateway client instance (may be nil)
func GetGatewayService() GatewayInterface {
	return gatewayServiceInstance
}

// SetGatewayService sets the gateway client instance (primarily for testing)
func SetGatewayService(service GatewayInterface) {
	gatewayServiceInstance = service
}

// NewGatewayService creates a new payment gateway client
func NewGatewayService(cfg *config.Config) *GatewayService {
	return &GatewayService{
		baseURL: cfg.PaymentGatewayURL,
		apiKey:  cfg.PaymentGatewayKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// sessionLineItem is one order line in the session creation request
type sessionLineItem struct {
	Name      string `json:"name"`
	UnitCents int64  `json:"unit_amount"`
	Quantity  int    `json:"quantity"`
}

// CreateCheckoutSession opens a payment session for the order. The order
// number rides along in the session metadata so the webhook can find its
// way back to the order.
func (s *GatewayService) CreateCheckoutSession(order *models.Order) (*CheckoutSession, error) {
	lineItems := make([]sessionLineItem, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, sessionLineItem{
			Name:      item.MenuItem.Name,
			UnitCents: item.UnitPrice.Mul(decimalHundred).IntPart(),
			Quantity:  item.Quantity,
		})
	}

	body, err := json.Marshal(map[string]interface{}{
		"amount":     order.Total.Mul(decimalHundred).IntPart(),
		"currency":   "usd",
		"line_items": lineItems,
		"metadata": map[string]string{
			"order_number":   order.Number,
			"customer_email": order.Customer.Email,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/checkout/sessions", s.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &ExternalServiceError{Service: "payment gateway", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ExternalServiceError{
			Service: "payment gateway",
			Err:     fmt.Errorf("session endpoint returned status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, &ExternalServiceError{
			Service: "payment gateway",
			Err:     fmt.Errorf("failed to decode session response: %w", err),
		}
	}

	return &session, nil
}
