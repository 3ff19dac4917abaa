package storage

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Credential is the row persisted by the SQLite backend
type Credential struct {
	Name      string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name
func (Credential) TableName() string {
	return "credentials"
}

// SQLite keeps credentials in a SQL table through gorm
type SQLite struct {
	db    *gorm.DB
	owned bool
}

// OpenSQLite opens the database at dsn and migrates the credentials table
func OpenSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, pkgerrors.New("sqlite store requires a DSN")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open sqlite")
	}
	s, err := NewSQLite(db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLite wraps an existing database handle and migrates the credentials table
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if db == nil {
		return nil, pkgerrors.New("sqlite store requires database handle")
	}
	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, pkgerrors.Wrap(err, "migrate credentials table")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var row Credential
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Wrapf(err, "sqlite store: get %s", key)
	}
	return row.Value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	row := Credential{Name: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return pkgerrors.Wrapf(err, "sqlite store: set %s", key)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("name = ?", key).Delete(&Credential{}).Error; err != nil {
		return pkgerrors.Wrapf(err, "sqlite store: remove %s", key)
	}
	return nil
}

// Close closes the database if the store opened it
func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return pkgerrors.Wrap(err, "sqlite store: close")
	}
	return sqlDB.Close()
}
