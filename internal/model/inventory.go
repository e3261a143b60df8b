package model

type GpuInfo struct {
	Slot        string `json:"slot"`
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	IsFree      bool   `json:"is_free"`
}

type InventoryResponse struct {
	Gpus           []GpuInfo `json:"gpus"`
	AllowAttachAll bool      `json:"allow_attach_all"`
}

// InventoryMetadata is the structured form embedded (as a serialized string)
// in a HealthReport when the backend probe succeeds.
type InventoryMetadata struct {
	GpuCount       int       `json:"gpu_count"`
	Gpus           []GpuInfo `json:"gpus"`
	AllowAttachAll bool      `json:"allow_attach_all"`
}
