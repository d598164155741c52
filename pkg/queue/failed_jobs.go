package queue

import (
	"context"
	"time"

	"github.com/kumarketplace/marketplace/pkg/logger"
)

// FailedJobRecord is the row written to failed_jobs. The table is created by
// the database migrations.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// persistFailed keeps the failure in the bounded in-memory list and, when a
// store is configured, writes it to failed_jobs.
func (m *Manager) persistFailed(ctx context.Context, env envelope, lastErr error) {
	now := time.Now()

	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Type: env.Type, Payload: env.Payload, Err: lastErr, FailedAt: now, Attempts: env.Attempt,
	})
	if over := len(m.failed) - m.keep; over > 0 {
		m.failed = append(m.failed[:0], m.failed[over:]...)
	}
	m.mu.Unlock()

	if m.store == nil {
		return
	}

	record := FailedJobRecord{
		JobType:  env.Type,
		Payload:  string(env.Payload),
		Error:    lastErr.Error(),
		Attempts: env.Attempt,
		FailedAt: now,
	}
	if err := m.store.WithContext(context.WithoutCancel(ctx)).Create(&record).Error; err != nil {
		logger.Error("queue: persist failed job", "type", env.Type, "error", err)
	}
}
