package model

const PermissionModeAllowAll = "AllowAll"

type WorkerRegistration struct {
	Pubkey   string `json:"pubkey"`
	Owner    string `json:"owner"`
	NodeType string `json:"node_type"`
}

type PermissionResponse struct {
	Write PermissionDetail `json:"write"`
}

type PermissionDetail struct {
	Mode string `json:"mode"`
}
