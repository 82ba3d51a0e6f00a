package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
)

// payOSSuccessCode is the gateway's status code for a completed payment
const payOSSuccessCode = "00"

// PayOSService handles payment gateway integration with PayOS.
// The gateway is untrusted: webhook deliveries may be delayed, duplicated or
// out of order, and every inbound payload is signature-verified before use.
type PayOSService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// PayOSLinkRequest is the body sent to POST /v2/payment-requests
type PayOSLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

// PayOSLinkData is the payload of a successful link creation
type PayOSLinkData struct {
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode,omitempty"`
	Amount        int64  `json:"amount"`
	OrderCode     int64  `json:"orderCode"`
	Status        string `json:"status"`
}

// PayOSLinkResponse is the envelope PayOS wraps every API response in
type PayOSLinkResponse struct {
	Code string         `json:"code"`
	Desc string         `json:"desc"`
	Data *PayOSLinkData `json:"data"`
}

// PayOSWebhookPayload is the envelope of an inbound payment notification
type PayOSWebhookPayload struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// PayOSWebhookData is the signed payment data inside a webhook
type PayOSWebhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Code      string `json:"code"` // "00" means the payment settled
	Desc      string `json:"desc"`
	Reference string `json:"reference,omitempty"`
}

// NewPayOSService creates a new PayOS payment service
func NewPayOSService(cfg *config.PaymentConfig, logger *logrus.Logger) *PayOSService {
	return &PayOSService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if the gateway credentials are present
func (s *PayOSService) IsConfigured() bool {
	return s.config.ClientID != "" && s.config.APIKey != "" && s.config.ChecksumKey != ""
}

// signLinkRequest computes the HMAC-SHA256 signature PayOS requires on
// outbound link requests. Field order is fixed by the gateway:
// amount, cancelUrl, description, orderCode, returnUrl.
func (s *PayOSService) signLinkRequest(req *PayOSLinkRequest) string {
	data := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)
	mac := hmac.New(sha256.New, []byte(s.config.ChecksumKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink requests a hosted checkout page for an order code.
// This is a blocking network call; callers must not hold row locks across it.
func (s *PayOSService) CreatePaymentLink(orderCode, amount int64, description string) (*PayOSLinkData, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing merchant credentials")
	}

	request := &PayOSLinkRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		ReturnURL:   s.config.ReturnURL,
		CancelURL:   s.config.CancelURL,
	}
	request.Signature = s.signLinkRequest(request)

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_code": orderCode,
		"amount":     amount,
	}).Info("Creating PayOS payment link")

	httpReq, err := http.NewRequest(http.MethodPost, s.config.BaseURL+"/v2/payment-requests", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", s.config.ClientID)
	httpReq.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call PayOS endpoint")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var linkResp PayOSLinkResponse
	if err := json.Unmarshal(body, &linkResp); err != nil {
		s.logger.WithField("body", string(body)).WithError(err).Error("Failed to parse PayOS response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if linkResp.Code != payOSSuccessCode || linkResp.Data == nil {
		errMsg := linkResp.Desc
		if errMsg == "" {
			errMsg = fmt.Sprintf("code=%s, raw=%s", linkResp.Code, string(body))
		}
		return nil, fmt.Errorf("payment link creation failed: %s", errMsg)
	}
	if linkResp.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("payment link creation failed: no checkout URL returned")
	}

	s.logger.WithFields(logrus.Fields{
		"order_code":   orderCode,
		"payment_link": linkResp.Data.PaymentLinkID,
	}).Info("PayOS payment link created")

	return linkResp.Data, nil
}

// VerifyWebhook checks the signature on a raw webhook body and returns the
// signed payment data. An error here means the payload cannot be trusted;
// the webhook handler acknowledges and ignores it rather than failing.
func (s *PayOSService) VerifyWebhook(body []byte) (*PayOSWebhookData, error) {
	var payload PayOSWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if len(payload.Data) == 0 || string(payload.Data) == "null" {
		return nil, fmt.Errorf("webhook missing data")
	}
	if payload.Signature == "" {
		return nil, fmt.Errorf("webhook missing signature")
	}

	expected, err := s.signWebhookData(payload.Data)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(payload.Signature))) {
		return nil, fmt.Errorf("webhook signature mismatch")
	}

	var data PayOSWebhookData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, fmt.Errorf("invalid webhook data: %w", err)
	}

	return &data, nil
}

// signWebhookData canonicalizes the data object the way PayOS signs it:
// fields sorted by key, joined as key=value&key=value, null as empty string.
func (s *PayOSService) signWebhookData(raw json.RawMessage) (string, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("invalid webhook data: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(canonicalValue(fields[k]))
	}

	mac := hmac.New(sha256.New, []byte(s.config.ChecksumKey))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// canonicalValue renders a JSON value the way PayOS does when signing
func canonicalValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// JSON numbers arrive as float64; order codes and amounts are
		// integral, so render without an exponent or trailing zeros.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// IsPaymentSuccessful reports whether webhook data marks a settled payment
func (s *PayOSService) IsPaymentSuccessful(data *PayOSWebhookData) bool {
	return data.Code == payOSSuccessCode
}
