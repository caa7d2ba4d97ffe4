package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *SentinelClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *SentinelClient) *Handlers {
	return &Handlers{client: client}
}

// HandleDeepScan submits a feature record and formats the verdict.
func (h *Handlers) HandleDeepScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetArguments()["features"]
	features, ok := raw.(map[string]any)
	if !ok || len(features) == 0 {
		return mcp.NewToolResultError("features is required and must be an object of name->number pairs"), nil
	}

	resp, err := h.client.DeepScan(ctx, features)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	text, err := formatScanResult(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scan result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleCheckDrift submits an observation and formats the drift result.
func (h *Handlers) HandleCheckDrift(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	observation := map[string]any{}
	required := map[string]string{
		"sim_risk_score":           "Sim_RiskScore",
		"capability_hash_distance": "Capability_Hash_Distance",
		"liquidity_amount":         "Liquidity_Amount",
		"unique_holders_count":     "Unique_Holders_Count",
	}
	for arg, field := range required {
		v, ok := args[arg].(float64)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s is required and must be a number", arg)), nil
		}
		observation[field] = v
	}
	if addr := req.GetString("contract_address", ""); addr != "" {
		observation["contract_address"] = addr
	}

	resp, err := h.client.CheckDrift(ctx, observation)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Drift check failed: %v", err)), nil
	}

	text, err := formatDriftResult(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse drift result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetSchema returns the deployed model's feature schema.
func (h *Handlers) HandleGetSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := h.client.GetSchema(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get schema: %v", err)), nil
	}

	text, err := formatSchema(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse schema: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRecentScans lists recent audit records.
func (h *Handlers) HandleRecentScans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	resp, err := h.client.RecentScans(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list scans: %v", err)), nil
	}

	text, err := formatRecentScans(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scans: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// -----------------------------------------------------------------------------
// Formatters
// -----------------------------------------------------------------------------

type scanResult struct {
	Verdict            string     `json:"verdict"`
	ScamProbability    float64    `json:"scam_probability"`
	Calibrated         bool       `json:"calibrated"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
	Uncertainty        float64    `json:"uncertainty"`
	RiskBand           string     `json:"risk_band"`
	Reason             string     `json:"reason"`
	ModelVersion       string     `json:"model_version"`
}

func formatScanResult(raw json.RawMessage) (string, error) {
	var r scanResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Verdict: %s (risk band: %s)\n", r.Verdict, r.RiskBand)
	fmt.Fprintf(&sb, "Scam probability: %.4f (90%%-style interval [%.3f, %.3f], uncertainty %.3f)\n",
		r.ScamProbability, r.ConfidenceInterval[0], r.ConfidenceInterval[1], r.Uncertainty)
	fmt.Fprintf(&sb, "Reason: %s\n", r.Reason)
	fmt.Fprintf(&sb, "Model: %s", r.ModelVersion)
	return sb.String(), nil
}

type driftResult struct {
	IsAnomaly    bool   `json:"is_anomaly"`
	Verdict      string `json:"verdict"`
	AnomalyScore int    `json:"anomaly_score"`
	Message      string `json:"message"`
}

func formatDriftResult(raw json.RawMessage) (string, error) {
	var r driftResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Verdict: %s\n", r.Verdict)
	fmt.Fprintf(&sb, "Anomaly: %t (score %d)\n", r.IsAnomaly, r.AnomalyScore)
	fmt.Fprintf(&sb, "%s", r.Message)
	return sb.String(), nil
}

type schemaInfo struct {
	ModelVersion string   `json:"model_version"`
	Calibration  string   `json:"calibration"`
	Features     []string `json:"features"`
	DriftFields  []string `json:"drift_fields"`
}

func formatSchema(raw json.RawMessage) (string, error) {
	var s schemaInfo
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Model: %s (calibration: %s)\n\n", s.ModelVersion, s.Calibration)
	fmt.Fprintf(&sb, "Scan features (%d, missing values default to 0):\n", len(s.Features))
	for _, f := range s.Features {
		fmt.Fprintf(&sb, "  - %s\n", f)
	}
	fmt.Fprintf(&sb, "\nDrift fields (all required):\n")
	for _, f := range s.DriftFields {
		fmt.Fprintf(&sb, "  - %s\n", f)
	}
	return sb.String(), nil
}

type recentScansResponse struct {
	Count int `json:"count"`
	Scans []struct {
		ID              string  `json:"id"`
		ContractAddress string  `json:"contractAddress"`
		ScamProbability float64 `json:"scamProbability"`
		Verdict         string  `json:"verdict"`
		RiskBand        string  `json:"riskBand"`
		Reason          string  `json:"reason"`
		EvaluatedAt     string  `json:"evaluatedAt"`
	} `json:"scans"`
}

func formatRecentScans(raw json.RawMessage) (string, error) {
	var r recentScansResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}

	if r.Count == 0 {
		return "No scans recorded yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d recent scan(s), newest first:\n\n", r.Count)
	for _, s := range r.Scans {
		addr := s.ContractAddress
		if addr == "" {
			addr = "(no address)"
		}
		fmt.Fprintf(&sb, "%s  %s  p=%.4f  %s\n    %s\n", s.EvaluatedAt, addr, s.ScamProbability, s.Verdict, s.Reason)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
