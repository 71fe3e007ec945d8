package constvars

const (
	HealthStatusOK = "ok"
)
