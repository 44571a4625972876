package store

import (
	"time"

	"github.com/satlink-project/satlink-go/pkg/delivery"
)

// counterName is the row holding the last issued datagram id.
const counterName = "datagram_id"

// Counter is a named persistent counter.
type Counter struct {
	Name      string `gorm:"primarykey;size:64"`
	Value     uint64 `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (Counter) TableName() string {
	return "counters"
}

// DatagramRecord is an unacknowledged inbound datagram.
type DatagramRecord struct {
	ID           uint64    `gorm:"primarykey;autoIncrement:false"`
	Channel      string    `gorm:"index;size:128;not null"`
	Payload      []byte    `gorm:"not null"`
	PendingCount int       `gorm:"not null;default:0"`
	ReceivedAt   time.Time `gorm:"index;not null"`
}

// TableName specifies the table name for GORM
func (DatagramRecord) TableName() string {
	return "datagram_records"
}

func fromRecord(rec delivery.Record) DatagramRecord {
	return DatagramRecord{
		ID:           rec.ID,
		Channel:      rec.Channel,
		Payload:      rec.Payload,
		PendingCount: rec.PendingCount,
		ReceivedAt:   rec.ReceivedAt,
	}
}

func (r DatagramRecord) toRecord() delivery.Record {
	return delivery.Record{
		ID:           r.ID,
		Channel:      r.Channel,
		Payload:      r.Payload,
		PendingCount: r.PendingCount,
		ReceivedAt:   r.ReceivedAt,
	}
}
