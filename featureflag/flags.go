package featureflag

type Flag string

const (
	// Builds cluster ids from member tokens in the order features were
	// grouped instead of sorting them.
	FlagOrderSensitiveClusterIDs Flag = "ORDER_SENSITIVE_CLUSTER_IDS"

	// Stops sending a render summary to clients after each render pass.
	FlagDisableRenderSummary Flag = "DISABLE_RENDER_SUMMARY"
)
