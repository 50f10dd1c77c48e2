package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SyncSphere7/smartwin-official/internal/metrics"
)

// Client is the payment processor surface used by the orchestrator.
type Client interface {
	GetToken(ctx context.Context) (string, error)
	RegisterCallback(ctx context.Context, token, callbackURL string) (string, error)
	SubmitOrder(ctx context.Context, token string, order Order) (*OrderResult, error)
	GetStatus(ctx context.Context, token, trackingID string) (*TransactionStatus, error)
}

type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

type Order struct {
	MerchantReference string         `json:"id"`
	Currency          string         `json:"currency"`
	Amount            float64        `json:"amount"`
	Description       string         `json:"description"`
	CallbackURL       string         `json:"callback_url"`
	NotificationID    string         `json:"notification_id"`
	BillingAddress    BillingAddress `json:"billing_address"`
}

type OrderResult struct {
	TrackingID        string `json:"order_tracking_id"`
	MerchantReference string `json:"merchant_reference"`
	RedirectURL       string `json:"redirect_url"`
}

// Pesapal status_code values.
const (
	StatusCodeInvalid   = 0
	StatusCodeCompleted = 1
	StatusCodeFailed    = 2
	StatusCodeReversed  = 3
)

type TransactionStatus struct {
	Description       string  `json:"payment_status_description"`
	StatusCode        int     `json:"status_code"`
	MerchantReference string  `json:"merchant_reference"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	PaymentMethod     string  `json:"payment_method"`
	ConfirmationCode  string  `json:"confirmation_code"`
}

func (s *TransactionStatus) Completed() bool {
	return strings.EqualFold(s.Description, "Completed")
}

// Normalized is the lowercase status reported to callers.
func (s *TransactionStatus) Normalized() string {
	if s.Description != "" {
		return strings.ToLower(s.Description)
	}
	switch s.StatusCode {
	case StatusCodeCompleted:
		return "completed"
	case StatusCodeFailed:
		return "failed"
	case StatusCodeReversed:
		return "reversed"
	default:
		return "invalid"
	}
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

type apiError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type envelope struct {
	Error   *apiError `json:"error"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// failure returns the upstream complaint carried in a 2xx body, if any.
func (e envelope) failure() string {
	if e.Error != nil && (e.Error.Code != "" || e.Error.Message != "") {
		if e.Error.Message != "" {
			return strings.TrimSpace(e.Error.Code + " " + e.Error.Message)
		}
		return e.Error.Code
	}
	if e.Status != "" && e.Status != "200" {
		return fmt.Sprintf("status %s: %s", e.Status, e.Message)
	}
	return ""
}

// PesapalClient implements Client against the Pesapal v3 REST API.
type PesapalClient struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
}

func NewPesapalClient(baseURL, consumerKey, consumerSecret string, timeout time.Duration) *PesapalClient {
	return &PesapalClient{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

func (c *PesapalClient) do(ctx context.Context, op string, kind Kind, method, path, token string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if IsKind(err, KindTimeout) {
				outcome = "timeout"
			}
		}
		metrics.RecordGatewayCall(op, outcome, time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: kind, Op: op, Err: fmt.Errorf("marshal body: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: kind, Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transportError(op, kind, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := env.failure()
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return &Error{Kind: kind, Op: op, StatusCode: resp.StatusCode, Detail: detail}
	}
	if detail := env.failure(); detail != "" {
		return &Error{Kind: kind, Op: op, StatusCode: resp.StatusCode, Detail: detail}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: kind, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// RequestToken obtains a bearer token together with its expiry.
func (c *PesapalClient) RequestToken(ctx context.Context) (Token, error) {
	var out struct {
		Token      string `json:"token"`
		ExpiryDate string `json:"expiryDate"`
	}
	err := c.do(ctx, "request_token", KindAuth, http.MethodPost, "/api/Auth/RequestToken", "", map[string]string{
		"consumer_key":    c.consumerKey,
		"consumer_secret": c.consumerSecret,
	}, &out)
	if err != nil {
		return Token{}, err
	}
	if out.Token == "" {
		return Token{}, &Error{Kind: KindAuth, Op: "request_token", Detail: "response carried no token"}
	}

	// Tokens live five minutes; trust the gateway's expiry when it parses.
	expires := time.Now().Add(5 * time.Minute)
	if t, err := time.Parse(time.RFC3339Nano, out.ExpiryDate); err == nil {
		expires = t
	}
	return Token{Value: out.Token, ExpiresAt: expires}, nil
}

func (c *PesapalClient) GetToken(ctx context.Context) (string, error) {
	tok, err := c.RequestToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

func (c *PesapalClient) RegisterCallback(ctx context.Context, token, callbackURL string) (string, error) {
	var out struct {
		IPNID string `json:"ipn_id"`
	}
	err := c.do(ctx, "register_ipn", KindRegistration, http.MethodPost, "/api/URLSetup/RegisterIPN", token, map[string]string{
		"url":                   callbackURL,
		"ipn_notification_type": "GET",
	}, &out)
	if err != nil {
		return "", err
	}
	if out.IPNID == "" {
		return "", &Error{Kind: KindRegistration, Op: "register_ipn", Detail: "response carried no ipn_id"}
	}
	return out.IPNID, nil
}

func (c *PesapalClient) SubmitOrder(ctx context.Context, token string, order Order) (*OrderResult, error) {
	var out OrderResult
	if err := c.do(ctx, "submit_order", KindSubmission, http.MethodPost, "/api/Transactions/SubmitOrderRequest", token, order, &out); err != nil {
		return nil, err
	}
	if out.TrackingID == "" || out.RedirectURL == "" {
		return nil, &Error{Kind: KindSubmission, Op: "submit_order", Detail: "response carried no tracking id or redirect url"}
	}
	return &out, nil
}

func (c *PesapalClient) GetStatus(ctx context.Context, token, trackingID string) (*TransactionStatus, error) {
	path := "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(trackingID)

	var out TransactionStatus
	if err := c.do(ctx, "get_status", KindLookup, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
