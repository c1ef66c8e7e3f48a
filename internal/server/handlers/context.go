package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// ActorKey ключ для хранения идентификатора актора в контексте
	ActorKey contextKey = "actor"
	// DeviceIDKey ключ для хранения device_id в контексте
	DeviceIDKey contextKey = "device_id"
)

// GetActor извлекает идентификатор актора из контекста запроса.
// Устанавливается auth middleware до вызова координатора.
func GetActor(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(ActorKey).(string)
	return actor, ok
}

// GetDeviceID извлекает device_id из контекста запроса
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(DeviceIDKey).(string)
	return deviceID, ok
}
