package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signature errors
var (
	ErrBadSignature     = errors.New("webhook signature verification failed")
	ErrStaleSignature   = errors.New("webhook timestamp outside tolerance")
	ErrMissingSignature = errors.New("webhook signature header missing")
)

// signatureTolerance bounds how old a signed webhook may be
const signatureTolerance = 5 * time.Minute

// IntentProvider is the card payment backend. CreateIntent returns the
// provider's intent ID and the client secret the frontend confirms
// with.
type IntentProvider interface {
	CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (intentID, clientSecret string, err error)
	Refund(ctx context.Context, intentID string) error
}

type httpIntentProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPIntentProvider creates a client for a Stripe-compatible
// payment API. Returns nil when no API key is configured.
func NewHTTPIntentProvider(baseURL, apiKey string) IntentProvider {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &httpIntentProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *httpIntentProvider) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode payment response: %w", err)
		}
	}
	return nil
}

func (p *httpIntentProvider) CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (string, string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("description", description)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := p.post(ctx, "/v1/payment_intents", form, &out); err != nil {
		return "", "", err
	}
	return out.ID, out.ClientSecret, nil
}

func (p *httpIntentProvider) Refund(ctx context.Context, intentID string) error {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	return p.post(ctx, "/v1/refunds", form, nil)
}

// VerifySignature checks a provider webhook signature header of the
// form "t=<unix>,v1=<hex hmac>" against the raw request body. The
// signed payload is "<timestamp>.<body>".
func VerifySignature(secret string, body []byte, header string, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrBadSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrStaleSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrBadSignature
}

// SignPayload produces a signature header for a body, used by tests
// and local webhook replays
func SignPayload(secret string, body []byte, now time.Time) string {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
