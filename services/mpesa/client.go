package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	tokenPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath = "/mpesa/stkpushquery/v1/query"

	// Daraja tokens live for ~an hour; cache with a margin so a token is
	// never used right at its expiry.
	tokenCacheKey = "mpesa:access_token"
	tokenCacheTTL = 50 * time.Minute

	timestampLayout = "20060102150405"
)

// Config holds the Daraja application credentials and callback settings.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	Environment    string // "sandbox" or "production"
	CallbackURL    string
}

// PushParams are the per-transaction inputs to an STK push.
type PushParams struct {
	Phone            string
	Amount           int
	AccountReference string
	Description      string
}

// Client talks to the Daraja API. BaseURL is derived from the configured
// environment; tests point it at a local server.
type Client struct {
	BaseURL string

	cfg        Config
	httpClient *http.Client
	cache      *redis.Client
	logger     *zap.Logger
}

// NewClient builds a Daraja client. The cache client may be nil, in which
// case every call fetches a fresh token.
func NewClient(cfg Config, cache *redis.Client, logger *zap.Logger) *Client {
	baseURL := sandboxBaseURL
	if cfg.Environment == "production" {
		baseURL = productionBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		logger:     logger,
	}
}

func nairobiLocation() *time.Location {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}

// timestampNow returns the current time in the gateway's YYYYMMDDHHmmss form.
// Daraja validates the password against Nairobi time.
func timestampNow() string {
	return time.Now().In(nairobiLocation()).Format(timestampLayout)
}

// password implements the Daraja signing scheme: base64 of the concatenation
// shortcode + passkey + timestamp. No HMAC, per the vendor docs.
func password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// AccessToken returns a bearer token for the Daraja API, from cache when one
// is still live.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cache != nil {
		if token, err := c.cache.Get(ctx, tokenCacheKey).Result(); err == nil && token != "" {
			return token, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, tokenCacheKey, tr.AccessToken, tokenCacheTTL).Err(); err != nil {
			c.logger.Warn("failed to cache mpesa access token", zap.Error(err))
		}
	}
	return tr.AccessToken, nil
}

// STKPush sends a push-payment request to the subscriber's phone.
func (c *Client) STKPush(ctx context.Context, params PushParams) (*STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := timestampNow()
	body := STKPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password(c.cfg.Shortcode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            params.Amount,
		PartyA:            params.Phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       params.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  params.AccountReference,
		TransactionDesc:   params.Description,
	}

	var out STKPushResponse
	if err := c.postJSON(ctx, stkPushPath, token, body, &out); err != nil {
		return nil, err
	}
	if out.ResponseCode != "0" {
		return &out, fmt.Errorf("gateway rejected STK push: %s (%s)", out.ResponseDescription, out.ResponseCode)
	}
	return &out, nil
}

// QueryStatus asks the gateway for the current state of an STK push.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := timestampNow()
	body := STKQueryRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password(c.cfg.Shortcode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var out STKQueryResponse
	if err := c.postJSON(ctx, stkQueryPath, token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
