package images

import "time"

// Image is one persisted prediction record. Rows are written once, as the
// terminal step of a successful prediction, and never updated afterwards.
type Image struct {
	ID                  uint   `gorm:"primaryKey"`
	URL                 string `gorm:"size:10000;not null"`
	JSONifiedPrediction string `gorm:"size:10000;not null"`
	UserID              uint   `gorm:"not null;index"`
	CreatedAt           time.Time
}
