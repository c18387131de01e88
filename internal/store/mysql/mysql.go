package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"eventcontrol/backend/internal/domain"
	"eventcontrol/backend/internal/store"
)

// userData is one row per account with a longtext JSON column per
// collection. A NULL column means the collection was never saved.
type userData struct {
	UserID            string  `gorm:"primaryKey;size:128"`
	Events            *string `gorm:"type:longtext"`
	Products          *string `gorm:"type:longtext"`
	Sales             *string `gorm:"type:longtext"`
	Expenses          *string `gorm:"type:longtext"`
	ExpenseCategories *string `gorm:"type:longtext"`
	Revenues          *string `gorm:"type:longtext"`
	Notifications     *string `gorm:"type:longtext"`
	Templates         *string `gorm:"type:longtext"`
	TicketInfo        *string `gorm:"type:longtext"`
	UndoHistory       *string `gorm:"type:longtext"`
	UpdatedAt         time.Time
}

func (userData) TableName() string {
	return "user_data"
}

func (u *userData) fields() map[string]**string {
	return map[string]**string{
		domain.KeyEvents:            &u.Events,
		domain.KeyProducts:          &u.Products,
		domain.KeySales:             &u.Sales,
		domain.KeyExpenses:          &u.Expenses,
		domain.KeyExpenseCategories: &u.ExpenseCategories,
		domain.KeyRevenues:          &u.Revenues,
		domain.KeyNotifications:     &u.Notifications,
		domain.KeyTemplates:         &u.Templates,
		domain.KeyTicketInfo:        &u.TicketInfo,
		domain.KeyUndoHistory:       &u.UndoHistory,
	}
}

type Store struct {
	db *gorm.DB
}

func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(&userData{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate user_data: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, accountID string) (domain.Snapshot, error) {
	if !store.ValidAccountID(accountID) {
		return nil, store.ErrInvalidInput
	}

	var row userData
	err := s.db.WithContext(ctx).Where("user_id = ?", accountID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	snap := make(domain.Snapshot, len(domain.SnapshotKeys))
	fields := row.fields()
	for _, key := range domain.SnapshotKeys {
		if v := *fields[key]; v != nil {
			snap[key] = []byte(*v)
		}
	}
	if len(snap) == 0 {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

// Save upserts the keys present in snapshot; absent keys keep their stored
// value.
func (s *Store) Save(ctx context.Context, accountID string, snapshot domain.Snapshot) error {
	if !store.ValidAccountID(accountID) {
		return store.ErrInvalidInput
	}

	row := userData{UserID: accountID, UpdatedAt: time.Now().UTC()}
	fields := row.fields()
	columns := []string{"updated_at"}
	for _, key := range domain.SnapshotKeys {
		raw, ok := snapshot[key]
		if !ok {
			continue
		}
		v := string(raw)
		*fields[key] = &v
		columns = append(columns, store.ColumnName(key))
	}
	if len(columns) == 1 {
		return nil
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&row).Error
}

func (s *Store) Delete(ctx context.Context, accountID string) error {
	return s.db.WithContext(ctx).Where("user_id = ?", accountID).Delete(&userData{}).Error
}
