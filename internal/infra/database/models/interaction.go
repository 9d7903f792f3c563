package models

import "time"

// Interaction is the persisted row for one user action. The primary key
// is assigned by the writing client; Seq exists only as a stable
// server-side tie-break for equal client timestamps.
type Interaction struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Type      string    `json:"type" gorm:"type:text;index"`
	ImageID   string    `json:"imageId" gorm:"type:text;index"`
	Payload   string    `json:"payload" gorm:"type:text"`
	Username  string    `json:"username" gorm:"type:text"`
	UserColor string    `json:"userColor" gorm:"type:text"`
	Timestamp int64     `json:"timestamp" gorm:"index"`
	Seq       int64     `json:"-" gorm:"autoIncrement;uniqueIndex"`
	CDate     time.Time `json:"-" gorm:"autoCreateTime"`
}
