package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DispatchRecord 每次派发一条记录, 成功失败都落库
type DispatchRecord struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind         string          `gorm:"type:varchar(10);not null;index:idx_kind_descriptor" json:"kind"` // sell, swap
	DescriptorID int64           `gorm:"not null;index:idx_kind_descriptor" json:"descriptor_id"`
	Account      string          `gorm:"type:varchar(64);not null" json:"account"`
	Chain        string          `gorm:"type:varchar(32)" json:"chain"`
	Amount       decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"amount"`
	Path         string          `gorm:"type:varchar(16)" json:"path"` // batch, delegation, standard
	Skipped      string          `gorm:"type:varchar(64)" json:"skipped,omitempty"`
	BundleID     string          `gorm:"type:varchar(128)" json:"bundle_id,omitempty"`
	TxHash       string          `gorm:"type:varchar(66);index" json:"tx_hash,omitempty"`
	ConfirmedID  int64           `json:"confirmed_id,omitempty"`
	State        string          `gorm:"type:varchar(16);not null;index" json:"state"` // DONE, FAILED
	ErrorCode    int             `json:"error_code,omitempty"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	PollAttempts int             `gorm:"not null;default:0" json:"poll_attempts"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (DispatchRecord) TableName() string {
	return "dispatch_records"
}
