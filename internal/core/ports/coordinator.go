package ports

import "github.com/lcalzada-xor/cellwatch/internal/core/domain"

// CoordinatorService defines the read side exposed to the web adapter.
type CoordinatorService interface {
	GetStats() domain.CoordinatorStats
	ListDevices() []domain.DeviceSession
	RecentThreats(limit int) ([]domain.Threat, error)
	DeviceThreats(deviceID string, limit int) ([]domain.Threat, error)
}
