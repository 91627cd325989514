package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erp/console/internal/domain/session"
)

// Entry is one persisted session value.
type Entry struct {
	Key       string `gorm:"column:session_key;primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (Entry) TableName() string {
	return "console_session_entries"
}

// SQLStore keeps the session in a SQL table through gorm.
type SQLStore struct {
	db        *gorm.DB
	keyPrefix string
}

// OpenSQL opens a sqlite or postgres database and migrates the table.
func OpenSQL(driver, dsn, keyPrefix string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported session database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}
	if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(dialector.Name()), otelgorm.WithoutQueryVariables())); err != nil {
		return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
	}
	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		// every connection to ":memory:" would be a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLStore(db, keyPrefix)
}

// NewSQLStore creates a store on an open database and migrates the table.
func NewSQLStore(db *gorm.DB, keyPrefix string) (*SQLStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session table: %w", err)
	}
	return &SQLStore{db: db, keyPrefix: keyPrefix}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("session_key = ?", s.keyPrefix+key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", session.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	e := Entry{Key: s.keyPrefix + key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("failed to write session key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.keyPrefix + k
	}
	if err := s.db.WithContext(ctx).Where("session_key IN ?", prefixed).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete session keys: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

var _ session.Store = (*SQLStore)(nil)
