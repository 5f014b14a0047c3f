package packets

// body for registering an app install
type RegisterRequest struct {
	DeviceID string  `json:"device_id" binding:"required"`
	Secret   string  `json:"secret" binding:"required,min=16"`
	Platform *string `json:"platform"`
}

// body for refreshing an access token
type TokenRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}
