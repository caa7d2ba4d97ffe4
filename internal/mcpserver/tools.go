package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Sentinel MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolDeepScan = mcp.NewTool("deep_scan",
	mcp.WithDescription(
		"Run a deep risk scan on a smart contract's extracted feature record. "+
			"Returns a calibrated scam probability with a confidence interval, an actionable "+
			"verdict (SAFE/WARN/BLOCK), a coarser risk band (LOW/MEDIUM/HIGH), and a "+
			"human-readable reason. Use get_schema first to see which features the model expects; "+
			"missing features default to 0."),
	mcp.WithObject("features",
		mcp.Required(),
		mcp.Description("Feature record as name->number pairs, e.g. {\"owner_privilege_ratio\": 0.8, \"revert_rate\": 0.3}. May include an optional \"contract_address\".")),
)

var ToolCheckDrift = mcp.NewTool("check_drift",
	mcp.WithDescription(
		"Check whether a contract's current behavior has drifted from its historical patterns. "+
			"Requires all four observation fields: Sim_RiskScore, Capability_Hash_Distance, "+
			"Liquidity_Amount, Unique_Holders_Count. Returns whether the behavior is anomalous "+
			"(e.g. sudden liquidity drain or capability change)."),
	mcp.WithNumber("sim_risk_score",
		mcp.Required(),
		mcp.Description("Current simulated risk score in [0, 1]")),
	mcp.WithNumber("capability_hash_distance",
		mcp.Required(),
		mcp.Description("Distance between current and historical capability hashes (0 = unchanged)")),
	mcp.WithNumber("liquidity_amount",
		mcp.Required(),
		mcp.Description("Current liquidity amount in base units")),
	mcp.WithNumber("unique_holders_count",
		mcp.Required(),
		mcp.Description("Current number of unique token holders")),
	mcp.WithString("contract_address",
		mcp.Description("Optional contract address label (e.g. '0x1234...')")),
)

var ToolGetSchema = mcp.NewTool("get_schema",
	mcp.WithDescription(
		"Get the feature schema of the deployed risk model: model version, calibration method, "+
			"the ordered feature names deep_scan accepts, and the fields check_drift requires."),
)

var ToolRecentScans = mcp.NewTool("recent_scans",
	mcp.WithDescription(
		"List the most recent scan verdicts from the audit trail, newest first. "+
			"Useful for reviewing what has been scored recently."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of scans to return (default 20, max 500)")),
)
