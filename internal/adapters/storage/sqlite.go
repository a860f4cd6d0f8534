package storage

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
)

// SQLiteAdapter implements ports.Storage using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// ThreatModel is the GORM model for threat reports.
type ThreatModel struct {
	ID          uint   `gorm:"primaryKey"`
	ThreatID    string `gorm:"uniqueIndex"`
	Type        string
	Severity    string
	Description string
	Confidence  float64
	DeviceID    string `gorm:"index"`
	Latitude    *float64
	Longitude   *float64
	Cellular    string // JSON encoded CellularMetrics, empty when absent
	Timestamp   time.Time
}

// DeviceSessionModel is the GORM model for device sessions.
type DeviceSessionModel struct {
	DeviceID        string `gorm:"primaryKey"`
	DeviceName      string
	DeviceType      string
	AppVersion      string
	State           string
	ConnectedAt     time.Time
	LastSeen        time.Time
	ConnectionCount int
	ThreatCount     int
}

// EventModel is the GORM model for the monitoring event log.
type EventModel struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"uniqueIndex"`
	DeviceID  string `gorm:"index"`
	EventType string
	Details   string
	Timestamp time.Time
}

// KeyModel stores registration keys as bcrypt hashes. Plaintext keys are
// never written to disk.
type KeyModel struct {
	KeyID string `gorm:"primaryKey"`
	Hash  string
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ThreatModel{}, &DeviceSessionModel{}, &EventModel{}, &KeyModel{}); err != nil {
		return nil, err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_threats_timestamp ON threat_models(timestamp)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_threats_type ON threat_models(type)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_threats_severity ON threat_models(severity)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_events_timestamp ON event_models(timestamp)")

	return &SQLiteAdapter{db: db}, nil
}

// SaveThreat inserts a threat report. Re-delivered reports with a known
// threat ID are ignored so retries stay idempotent.
func (a *SQLiteAdapter) SaveThreat(t domain.Threat) error {
	model := threatToModel(t)
	return a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "threat_id"}},
		DoNothing: true,
	}).Create(&model).Error
}

// SaveThreatsBatch inserts multiple threats in a single transaction.
func (a *SQLiteAdapter) SaveThreatsBatch(threats []domain.Threat) error {
	if len(threats) == 0 {
		return nil
	}

	models := make([]ThreatModel, len(threats))
	for i, t := range threats {
		models[i] = threatToModel(t)
	}

	return a.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "threat_id"}},
			DoNothing: true,
		}).CreateInBatches(models, 100).Error
	})
}

// GetAllThreats retrieves stored threats, newest first.
func (a *SQLiteAdapter) GetAllThreats(limit int) ([]domain.Threat, error) {
	var models []ThreatModel
	q := a.db.Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	threats := make([]domain.Threat, len(models))
	for i, m := range models {
		threats[i] = threatToDomain(m)
	}
	return threats, nil
}

// GetThreatsByDevice retrieves one device's threats, newest first.
func (a *SQLiteAdapter) GetThreatsByDevice(deviceID string, limit int) ([]domain.Threat, error) {
	var models []ThreatModel
	q := a.db.Where("device_id = ?", deviceID).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	threats := make([]domain.Threat, len(models))
	for i, m := range models {
		threats[i] = threatToDomain(m)
	}
	return threats, nil
}

// CountThreatsSince counts threats at or after the given time.
func (a *SQLiteAdapter) CountThreatsSince(since time.Time) (int, error) {
	var count int64
	err := a.db.Model(&ThreatModel{}).Where("timestamp >= ?", since).Count(&count).Error
	return int(count), err
}

// ThreatTypeCounts returns the per-type totals over all stored threats.
func (a *SQLiteAdapter) ThreatTypeCounts() (map[domain.ThreatType]int, error) {
	var rows []struct {
		Type  string
		Count int
	}
	err := a.db.Model(&ThreatModel{}).
		Select("type, count(*) as count").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.ThreatType]int, len(rows))
	for _, r := range rows {
		counts[domain.ThreatType(r.Type)] = r.Count
	}
	return counts, nil
}

// SaveSession saves or updates a device session record.
func (a *SQLiteAdapter) SaveSession(s domain.DeviceSession) error {
	model := sessionToModel(s)
	return a.db.Save(&model).Error
}

// GetSession retrieves a session by device ID.
func (a *SQLiteAdapter) GetSession(deviceID string) (*domain.DeviceSession, error) {
	var model DeviceSessionModel
	if err := a.db.First(&model, "device_id = ?", deviceID).Error; err != nil {
		return nil, err
	}
	s := sessionToDomain(model)
	return &s, nil
}

// GetAllSessions retrieves all known sessions.
func (a *SQLiteAdapter) GetAllSessions() ([]domain.DeviceSession, error) {
	var models []DeviceSessionModel
	if err := a.db.Find(&models).Error; err != nil {
		return nil, err
	}

	sessions := make([]domain.DeviceSession, len(models))
	for i, m := range models {
		sessions[i] = sessionToDomain(m)
	}
	return sessions, nil
}

// SaveEvent appends to the monitoring event log.
func (a *SQLiteAdapter) SaveEvent(e domain.MonitoringEvent) error {
	model := eventToModel(e)
	return a.db.Create(&model).Error
}

// Save upserts a registration key hash under its ID.
func (a *SQLiteAdapter) Save(id string, hash string) error {
	return a.db.Save(&KeyModel{KeyID: id, Hash: hash}).Error
}

// All returns every stored (key ID, hash) pair.
func (a *SQLiteAdapter) All() (map[string]string, error) {
	var models []KeyModel
	if err := a.db.Find(&models).Error; err != nil {
		return nil, err
	}

	hashes := make(map[string]string, len(models))
	for _, m := range models {
		hashes[m.KeyID] = m.Hash
	}
	return hashes, nil
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var (
	_ ports.Storage       = (*SQLiteAdapter)(nil)
	_ ports.KeyRepository = (*SQLiteAdapter)(nil)
)
