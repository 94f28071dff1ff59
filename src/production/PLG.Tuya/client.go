package tuya

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	config "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Config"
)

// tokenCache holds the short-lived cloud access token together with its
// expiry bookkeeping. It is owned by the client and injected nowhere else,
// so token state never leaks into process-wide globals.
type tokenCache struct {
	mu        sync.Mutex
	value     string
	fetchedAt time.Time
	ttl       time.Duration
}

func (tc *tokenCache) get(now time.Time) (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.value != "" && now.Sub(tc.fetchedAt) < tc.ttl {
		return tc.value, true
	}
	return "", false
}

func (tc *tokenCache) set(value string, now time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.value = value
	tc.fetchedAt = now
}

// Client talks to the Tuya cloud API. Every request is signed with
// HMAC-SHA256 over the client id, the access token, a millisecond timestamp
// and the canonical request, per the cloud's signing contract.
type Client struct {
	accessID     string
	accessSecret string
	endpoint     string
	httpClient   *http.Client
	tokens       *tokenCache
	now          func() time.Time
}

// NewClient creates a new Tuya cloud client
func NewClient(cfg *config.TuyaConfig) *Client {
	return &Client{
		accessID:     cfg.AccessID,
		accessSecret: cfg.AccessSecret,
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		tokens: &tokenCache{ttl: cfg.TokenTTL},
		now:    time.Now,
	}
}

// StatusCode is one datapoint in a device status response.
type StatusCode struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

// StatusResponse is the cloud's device status envelope.
type StatusResponse struct {
	Success bool         `json:"success"`
	Code    int          `json:"code"`
	Msg     string       `json:"msg"`
	Result  []StatusCode `json:"result"`
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Result  struct {
		AccessToken string `json:"access_token"`
	} `json:"result"`
}

// sign computes the request signature and the millisecond timestamp it was
// computed for.
func (c *Client) sign(method, path, token, body string) (string, string) {
	t := strconv.FormatInt(c.now().UnixMilli(), 10)

	bodyHash := sha256.Sum256([]byte(body))
	stringToSign := strings.Join([]string{
		strings.ToUpper(method),
		hex.EncodeToString(bodyHash[:]),
		"",
		path,
	}, "\n")

	mac := hmac.New(sha256.New, []byte(c.accessSecret))
	mac.Write([]byte(c.accessID + token + t + stringToSign))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil))), t
}

func (c *Client) doRequest(ctx context.Context, method, path, token, body string) ([]byte, error) {
	sign, t := c.sign(method, path, token, body)

	var reqBody io.Reader
	if body != "" {
		reqBody = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("client_id", c.accessID)
	req.Header.Set("sign", sign)
	req.Header.Set("t", t)
	req.Header.Set("sign_method", "HMAC-SHA256")
	if token != "" {
		req.Header.Set("access_token", token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	return data, nil
}

// Authenticate returns a valid access token, reusing the cached one while it
// is fresh.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if token, ok := c.tokens.get(c.now()); ok {
		return token, nil
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/v1.0/token?grant_type=1", "", "")
	if err != nil {
		return "", err
	}

	var res tokenResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if !res.Success {
		return "", fmt.Errorf("failed to get Tuya token: %s", res.Msg)
	}

	c.tokens.set(res.Result.AccessToken, c.now())
	return res.Result.AccessToken, nil
}

// ReadStatus fetches the raw datapoint list for a device.
func (c *Client) ReadStatus(ctx context.Context, deviceID, token string) (*StatusResponse, error) {
	path := fmt.Sprintf("/v1.0/devices/%s/status", deviceID)
	data, err := c.doRequest(ctx, http.MethodGet, path, token, "")
	if err != nil {
		return nil, err
	}

	var res StatusResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if !res.Success {
		return nil, fmt.Errorf("device status request failed: %s", res.Msg)
	}
	return &res, nil
}

// SendCommand dispatches a single command to a device and returns the raw
// cloud result.
func (c *Client) SendCommand(ctx context.Context, deviceID, token, code string, value interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(map[string]interface{}{
		"commands": []map[string]interface{}{{"code": code, "value": value}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command body: %w", err)
	}

	path := fmt.Sprintf("/v1.0/devices/%s/commands", deviceID)
	data, err := c.doRequest(ctx, http.MethodPost, path, token, string(body))
	if err != nil {
		return nil, err
	}

	var res map[string]interface{}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode command response: %w", err)
	}
	return res, nil
}
