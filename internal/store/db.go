package store

import (
	"context"

	"github.com/pitabwire/frame/data"
	"github.com/pitabwire/frame/datastore/pool"

	"github.com/awaazlabs/awaaz/pkg/slots"
)

// MedicineRecord is the persisted row for a committed medicine entry.
type MedicineRecord struct {
	data.BaseModel

	Name      string `gorm:"type:varchar(255);not null" json:"name"`
	Strength  string `gorm:"type:varchar(100);not null" json:"strength"`
	Frequency string `gorm:"type:varchar(100);not null" json:"frequency"`
}

func (MedicineRecord) TableName() string { return "medicine_records" }

// DBStore persists the medicine log to the service datastore.
type DBStore struct {
	pool pool.Pool
}

// NewDBStore creates a database-backed medicine log.
func NewDBStore(pool pool.Pool) *DBStore {
	return &DBStore{pool: pool}
}

func (s *DBStore) Append(ctx context.Context, rec slots.Record) (Entry, error) {
	row := MedicineRecord{
		Name:      rec.Name,
		Strength:  rec.Strength,
		Frequency: rec.Frequency,
	}
	if err := s.pool.DB(ctx, false).Create(&row).Error; err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:        row.ID,
		Name:      row.Name,
		Strength:  row.Strength,
		Frequency: row.Frequency,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *DBStore) List(ctx context.Context) ([]Entry, error) {
	var rows []MedicineRecord
	err := s.pool.DB(ctx, true).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ID:        row.ID,
			Name:      row.Name,
			Strength:  row.Strength,
			Frequency: row.Frequency,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}
