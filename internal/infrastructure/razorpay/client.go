package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	apppayment "github.com/skyvolt/storefront/internal/application/payment"
)

const defaultBaseURL = "https://api.razorpay.com"

// Client talks to the Razorpay Orders API and verifies payment signatures.
// Amounts cross the wire in paise.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func New(baseURL, keyID, keySecret string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) KeyID() string { return c.keyID }

type createOrderRequest struct {
	Receipt  string `json:"receipt"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent registers a gateway-side order for the expected amount.
func (c *Client) CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*apppayment.Intent, error) {
	body, err := json.Marshal(createOrderRequest{
		Receipt:  receipt,
		Amount:   toPaise(amount),
		Currency: currency,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("razorpay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("razorpay: create order: status %d: %s", resp.StatusCode, snippet)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("razorpay: decode order: %w", err)
	}
	return &apppayment.Intent{
		GatewayOrderID: out.ID,
		Amount:         fromPaise(out.Amount),
		Currency:       out.Currency,
	}, nil
}

// VerifySignature recomputes the expected HMAC over "orderID|paymentID" with
// the key secret and compares in constant time. Client-supplied success
// claims are never trusted without this check.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func toPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromPaise(paise int64) float64 {
	return float64(paise) / 100
}
