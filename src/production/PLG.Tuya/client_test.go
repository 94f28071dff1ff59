package tuya

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	config "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Config"
)

func TestParseMetricsScaling(t *testing.T) {
	status := &StatusResponse{
		Success: true,
		Result: []StatusCode{
			{Code: "switch_1", Value: true},
			{Code: "cur_voltage", Value: float64(2305)},
			{Code: "cur_power", Value: float64(1234)},
			{Code: "cur_current", Value: float64(450)},
			{Code: "add_ele", Value: float64(103500)},
		},
	}

	m := ParseMetrics(status)
	if m.Voltage != 230.5 {
		t.Errorf("Voltage = %v, want 230.5", m.Voltage)
	}
	if m.Power != 123.4 {
		t.Errorf("Power = %v, want 123.4", m.Power)
	}
	if m.Current != 0.45 {
		t.Errorf("Current = %v, want 0.45", m.Current)
	}
	if m.EnergyKWh != 103.5 {
		t.Errorf("EnergyKWh = %v, want 103.5", m.EnergyKWh)
	}
}

func TestParseMetricsMissingCodes(t *testing.T) {
	m := ParseMetrics(&StatusResponse{Success: true, Result: []StatusCode{{Code: "switch_1", Value: true}}})
	if m != (Metrics{}) {
		t.Fatalf("missing datapoints must decode as zero, got %+v", m)
	}
}

func newTestClient(serverURL string) *Client {
	return NewClient(&config.TuyaConfig{
		AccessID:     "test-id",
		AccessSecret: "test-secret",
		Endpoint:     serverURL,
		HTTPTimeout:  5 * time.Second,
		TokenTTL:     55 * time.Second,
	})
}

var signPattern = regexp.MustCompile(`^[0-9A-F]{64}$`)

func TestAuthenticateSignsAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/v1.0/token" {
			t.Errorf("path = %q, want /v1.0/token", r.URL.Path)
		}
		if r.URL.Query().Get("grant_type") != "1" {
			t.Errorf("grant_type = %q, want 1", r.URL.Query().Get("grant_type"))
		}
		if got := r.Header.Get("client_id"); got != "test-id" {
			t.Errorf("client_id header = %q", got)
		}
		if got := r.Header.Get("sign"); !signPattern.MatchString(got) {
			t.Errorf("sign header %q is not 64 uppercase hex chars", got)
		}
		if r.Header.Get("t") == "" {
			t.Error("t header missing")
		}
		if got := r.Header.Get("sign_method"); got != "HMAC-SHA256" {
			t.Errorf("sign_method header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result":  map[string]string{"access_token": "tok-123"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	token, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("token = %q, want tok-123", token)
	}

	// A second call within the TTL reuses the cached token.
	token, err = c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate (cached): %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("cached token = %q, want tok-123", token)
	}
	if hits != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", hits)
	}
}

func TestAuthenticateExpiredTokenRefetches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result":  map[string]string{"access_token": "tok-123"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	base := time.Now()
	c.now = func() time.Time { return base }

	if _, err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	c.now = func() time.Time { return base.Add(56 * time.Second) }
	if _, err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate after expiry: %v", err)
	}
	if hits != 2 {
		t.Fatalf("token endpoint hit %d times, want 2 after TTL expiry", hits)
	}
}

func TestAuthenticateCloudError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "msg": "sign invalid"})
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Authenticate(context.Background()); err == nil {
		t.Fatal("want error on unsuccessful token response")
	}
}

func TestReadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/devices/dev-1/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("access_token"); got != "tok-123" {
			t.Errorf("access_token header = %q, want tok-123", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result": []map[string]interface{}{
				{"code": "cur_voltage", "value": 2310},
			},
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).ReadStatus(context.Background(), "dev-1", "tok-123")
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if len(res.Result) != 1 || res.Result[0].Code != "cur_voltage" {
		t.Fatalf("unexpected result: %+v", res.Result)
	}
}

func TestSendCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/v1.0/devices/dev-1/commands" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("access_token"); got != "tok-123" {
			t.Errorf("access_token header = %q", got)
		}

		var body struct {
			Commands []struct {
				Code  string      `json:"code"`
				Value interface{} `json:"value"`
			} `json:"commands"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Commands) != 1 || body.Commands[0].Code != "switch_1" || body.Commands[0].Value != true {
			t.Errorf("unexpected command body: %+v", body.Commands)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "result": true})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).SendCommand(context.Background(), "dev-1", "tok-123", "switch_1", true)
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if res["success"] != true {
		t.Fatalf("unexpected response: %v", res)
	}
}
