package command

// FanSettings is published to {userId}/fan/{location}/{deviceId}/settings.
type FanSettings struct {
	FanMode string `json:"fanMode"`
}

// TemperatureThresholds is published to
// {userId}/temperatur/{location}/{deviceId}/settings.
type TemperatureThresholds struct {
	MaxTemperature    float64 `json:"maxTemperature"`
	NormalTemperature float64 `json:"normalTemperature"`
	MinTemperature    float64 `json:"minTemperature"`
}

// LockState is published to {userId}/rfid/{location}/{deviceId}/settings.
type LockState struct {
	IsLocked bool `json:"isLocked"`
}

// Assignment is published to rfid/assign/{deviceId}.
type Assignment struct {
	UserID   string `json:"userId"`
	Location string `json:"location"`
}

// ScanResponse answers one RFID scan.
type ScanResponse struct {
	Authorised bool `json:"authorised"`
}
