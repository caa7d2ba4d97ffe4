package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

func newTestSetup(handler http.Handler) (*Handlers, func()) {
	ts := httptest.NewServer(handler)
	client := NewSentinelClient(Config{APIURL: ts.URL})
	h := NewHandlers(client)
	return h, ts.Close
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

// ============================================================
// Client tests
// ============================================================

func TestClient_DoRequest_HTTPError_WithAPIMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "missing_field",
			"message": "missing required field: Unique_Holders_Count",
		})
	}))
	defer ts.Close()

	client := NewSentinelClient(Config{APIURL: ts.URL})
	_, err := client.CheckDrift(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Unique_Holders_Count")
}

func TestClient_DoRequest_HTTPError_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer ts.Close()

	client := NewSentinelClient(Config{APIURL: ts.URL})
	_, err := client.GetSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestClient_DoRequest_ConnectionRefused(t *testing.T) {
	client := NewSentinelClient(Config{APIURL: "http://127.0.0.1:1"})
	_, err := client.GetSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_DeepScan_PostsRecord(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"verdict":"SAFE"}`))
	}))
	defer ts.Close()

	client := NewSentinelClient(Config{APIURL: ts.URL})
	_, err := client.DeepScan(context.Background(), map[string]any{"revert_rate": 0.2})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/scan", gotPath)
	assert.Equal(t, 0.2, gotBody["revert_rate"])
}

// ============================================================
// Handler tests
// ============================================================

func TestHandleDeepScan_Success(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scan", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"verdict":             "BLOCK",
			"scam_probability":    0.8542,
			"calibrated":          true,
			"confidence_interval": []float64{0.79, 0.919},
			"uncertainty":         0.292,
			"risk_band":           "HIGH",
			"reason":              "High risk detected: owner-restricted execution paths",
			"model_version":       "calibrated-v2.0",
		})
	}))
	defer cleanup()

	req := makeRequest(map[string]any{
		"features": map[string]any{"owner_privilege_ratio": 0.8},
	})
	result, err := h.HandleDeepScan(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "BLOCK")
	assert.Contains(t, text, "HIGH")
	assert.Contains(t, text, "0.8542")
	assert.Contains(t, text, "owner-restricted execution paths")
	assert.Contains(t, text, "calibrated-v2.0")
}

func TestHandleDeepScan_MissingFeatures(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API should not be called when features are missing")
	}))
	defer cleanup()

	result, err := h.HandleDeepScan(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleDeepScan_APIError(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "invalid_feature_value",
			"message": "invalid feature value: feature \"revert_rate\"",
		})
	}))
	defer cleanup()

	req := makeRequest(map[string]any{
		"features": map[string]any{"revert_rate": "garbage"},
	})
	result, err := h.HandleDeepScan(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Scan failed")
}

func TestHandleCheckDrift_Success(t *testing.T) {
	var gotBody map[string]any
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/drift", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"is_anomaly":    true,
			"verdict":       "WARN - Behavior Changed",
			"anomaly_score": -1,
			"message":       "Contract behavior has changed unexpectedly",
		})
	}))
	defer cleanup()

	req := makeRequest(map[string]any{
		"sim_risk_score":           0.9,
		"capability_hash_distance": 1.0,
		"liquidity_amount":         100.0,
		"unique_holders_count":     500.0,
	})
	result, err := h.HandleCheckDrift(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	// Argument names are translated to the detector's field names
	assert.Equal(t, 0.9, gotBody["Sim_RiskScore"])
	assert.Equal(t, 100.0, gotBody["Liquidity_Amount"])

	text := resultText(t, result)
	assert.Contains(t, text, "WARN - Behavior Changed")
	assert.Contains(t, text, "changed unexpectedly")
}

func TestHandleCheckDrift_MissingArgument(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API should not be called when arguments are missing")
	}))
	defer cleanup()

	req := makeRequest(map[string]any{
		"sim_risk_score": 0.9,
	})
	result, err := h.HandleCheckDrift(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetSchema_Success(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/schema", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model_version": "calibrated-v2.0",
			"calibration":   "sigmoid",
			"features":      []string{"sim_success_rate", "owner_privilege_ratio"},
			"drift_fields":  []string{"Sim_RiskScore", "Capability_Hash_Distance", "Liquidity_Amount", "Unique_Holders_Count"},
		})
	}))
	defer cleanup()

	result, err := h.HandleGetSchema(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "calibrated-v2.0")
	assert.Contains(t, text, "sim_success_rate")
	assert.Contains(t, text, "Liquidity_Amount")
}

func TestHandleRecentScans_Empty(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"scans": []any{}, "count": 0})
	}))
	defer cleanup()

	result, err := h.HandleRecentScans(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "No scans recorded yet")
}

func TestHandleRecentScans_PassesLimit(t *testing.T) {
	var gotLimit string
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"scans": []map[string]any{{
				"id":              "scan_abc",
				"contractAddress": "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
				"scamProbability": 0.91,
				"verdict":         "BLOCK",
				"riskBand":        "HIGH",
				"reason":          "High risk detected: gas usage anomalies",
				"evaluatedAt":     "2026-08-24T12:00:00Z",
			}},
		})
	}))
	defer cleanup()

	result, err := h.HandleRecentScans(context.Background(), makeRequest(map[string]any{"limit": 5.0}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "5", gotLimit)

	text := resultText(t, result)
	assert.Contains(t, text, "BLOCK")
	assert.Contains(t, text, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
}
