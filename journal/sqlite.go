package journal

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EventRow is the SQLite projection of an Event, one row per committed
// event, so external analysis can query runs without re-parsing JSONL.
type EventRow struct {
	Seq             uint64 `gorm:"primaryKey"`
	Day             int    `gorm:"index"`
	Kind            string `gorm:"index"`
	FromAgent       string
	ToAgent         string
	Issuer          string
	Holder          string
	Instrument      uint64
	OtherInstrument uint64
	InstrumentKind  string
	Bucket          string `gorm:"index"`
	Maturity        int
	Amount          string
	Price           string
	Side            string
	Interior        bool
	PinnedBid       bool
	PinnedAsk       bool
	Recovery        string
	Loss            string
	Mid             string
	Spread          string
	DepositRate     string
	LoanRate        string
}

// TableName keeps the table name stable across gorm versions.
func (EventRow) TableName() string { return "events" }

// SQLiteSink persists events to a SQLite database file.
type SQLiteSink struct {
	db *gorm.DB
}

// NewSQLiteSink opens (or creates) the database and migrates the events
// table.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if err := db.AutoMigrate(&EventRow{}); err != nil {
		return nil, fmt.Errorf("migrate journal db: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Append inserts one event row.
func (s *SQLiteSink) Append(e Event) error {
	row := EventRow{
		Seq:             e.Seq,
		Day:             e.Day,
		Kind:            string(e.Kind),
		FromAgent:       e.From,
		ToAgent:         e.To,
		Issuer:          e.Issuer,
		Holder:          e.Holder,
		Instrument:      e.Instrument,
		OtherInstrument: e.OtherInstrument,
		InstrumentKind:  e.InstrumentKind,
		Bucket:          e.Bucket,
		Maturity:        e.Maturity,
		Amount:          e.Amount,
		Price:           e.Price,
		Side:            e.Side,
		Interior:        e.Interior,
		PinnedBid:       e.PinnedBid,
		PinnedAsk:       e.PinnedAsk,
		Recovery:        e.Recovery,
		Loss:            e.Loss,
		Mid:             e.Mid,
		Spread:          e.Spread,
		DepositRate:     e.DepositRate,
		LoanRate:        e.LoanRate,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("insert event %d: %w", e.Seq, err)
	}
	return nil
}
