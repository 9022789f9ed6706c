package storage

// AppState stores application state such as per-source cursors
type AppState struct {
	StateKey   string `gorm:"primaryKey;size:64"`
	StateValue string `gorm:"type:text;not null"`
	UpdatedTS  int64  `gorm:"not null;index"`
}

func (AppState) TableName() string {
	return "app_state"
}

// Alert stores one raised whale alert for the history query
type Alert struct {
	ID                int64   `gorm:"primaryKey;autoIncrement"`
	AlertUUID         string  `gorm:"size:36;not null;uniqueIndex"`
	Platform          string  `gorm:"size:32;not null;index"`
	AlertType         string  `gorm:"size:32;not null;index"`
	Action            string  `gorm:"size:10;not null"`
	TradeID           string  `gorm:"size:128;index"`
	MarketKey         string  `gorm:"size:255;index"`
	MarketTitle       string  `gorm:"size:512"`
	Outcome           string  `gorm:"size:255"`
	ValueUSD          float64 `gorm:"type:decimal(20,6);not null"`
	Price             float64 `gorm:"type:decimal(10,6);not null"`
	Size              float64 `gorm:"type:decimal(24,6);not null"`
	WalletID          string  `gorm:"size:128;index"`
	WalletActivity    string  `gorm:"type:text"` // JSON
	Anomalies         string  `gorm:"type:text"` // JSON
	Environment       string  `gorm:"size:32"`
	TradeTimestampSec int64   `gorm:"not null"`
	CreatedTS         int64   `gorm:"not null;index"`
}

func (Alert) TableName() string {
	return "alerts"
}
