package dto

type DeviceRegisterRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type DeviceRegisterResponse struct {
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
}

type DeviceUnregisterRequest struct {
	Token string `json:"token"`
}

type DeviceUnregisterResponse struct {
	Removed bool `json:"removed"`
}

type TokenListResponse struct {
	Tokens []string `json:"tokens"`
}
