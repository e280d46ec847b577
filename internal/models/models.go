package models

import (
	"time"
)

// Upload is the ledger row for one stored audio file. The quota counter of
// record lives at the identity provider; this table only tracks what landed
// on disk.
type Upload struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StoredName   string    `gorm:"uniqueIndex;not null" json:"stored_name"`
	OriginalName string    `gorm:"type:varchar(255)" json:"original_name"`
	OwnerID      string    `gorm:"index;type:varchar(64)" json:"owner_id"`
	Plan         string    `gorm:"type:varchar(50)" json:"plan"`
	MimeType     string    `gorm:"type:varchar(100)" json:"mime_type"`
	Size         int64     `json:"size"`
	ExpiresAt    int64     `json:"expires_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Upload) TableName() string {
	return "uploads"
}
