// Package repository содержит доступ к таблице staff_users.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"example.com/staff-users/pkg/circuitbreaker"
	"example.com/staff-users/services/staffusers/internal/domain"
)

const defaultQueryTimeout = 3 * time.Second

// StaffUserRepository определяет операции чтения staff_users.
type StaffUserRepository interface {
	// ResolveName возвращает имя пользователя по user_id.
	// Ошибки: domain.ErrUserNotFound, domain.ErrUserAmbiguous, domain.ErrUnavailable.
	ResolveName(ctx context.Context, userID string) (string, error)

	// List возвращает все строки таблицы.
	List(ctx context.Context) ([]domain.StaffUser, error)
}

// StaffUserModel - GORM модель таблицы staff_users.
// Схемой владеет другой сервис, миграций здесь нет.
type StaffUserModel struct {
	UserID      string `gorm:"column:user_id"`
	Name        string `gorm:"column:name"`
	Username    string `gorm:"column:username"`
	MobPhone    string `gorm:"column:mob_phone"`
	AccessLevel string `gorm:"column:access_level"`
	Status      string `gorm:"column:status"`
	ACreated    string `gorm:"column:a_created"`
}

// TableName возвращает имя таблицы в БД.
func (StaffUserModel) TableName() string {
	return "staff_users"
}

func (m *StaffUserModel) toDomain() domain.StaffUser {
	return domain.StaffUser{
		UserID:      m.UserID,
		Name:        m.Name,
		Username:    m.Username,
		MobPhone:    m.MobPhone,
		AccessLevel: m.AccessLevel,
		Status:      m.Status,
		ACreated:    m.ACreated,
	}
}

type staffUserRepository struct {
	db           *gorm.DB
	breaker      *circuitbreaker.Breaker
	queryTimeout time.Duration
}

// NewStaffUserRepository создаёт репозиторий.
// breaker может быть nil, queryTimeout <= 0 заменяется значением по умолчанию.
func NewStaffUserRepository(db *gorm.DB, breaker *circuitbreaker.Breaker, queryTimeout time.Duration) StaffUserRepository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &staffUserRepository{db: db, breaker: breaker, queryTimeout: queryTimeout}
}

// ResolveName выполняет один параметризованный запрос
// SELECT name FROM staff_users WHERE user_id = $1. Кэша нет.
// LIMIT 2 достаточно, чтобы отличить единственную строку от нескольких.
func (r *staffUserRepository) ResolveName(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var names []string
	err := r.execute(func() error {
		err := r.db.WithContext(ctx).
			Model(&StaffUserModel{}).
			Where("user_id = ?", userID).
			Limit(2).
			Pluck("name", &names).Error
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(names) {
	case 0:
		return "", domain.ErrUserNotFound
	case 1:
		return names[0], nil
	default:
		return "", domain.ErrUserAmbiguous
	}
}

// List возвращает все строки staff_users.
func (r *staffUserRepository) List(ctx context.Context) ([]domain.StaffUser, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var models []StaffUserModel
	err := r.execute(func() error {
		if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
			return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	users := make([]domain.StaffUser, 0, len(models))
	for i := range models {
		users = append(users, models[i].toDomain())
	}
	return users, nil
}

// execute пропускает запрос через circuit breaker.
// Открытый breaker означает недоступную базу.
func (r *staffUserRepository) execute(fn func() error) error {
	if r.breaker == nil {
		return fn()
	}

	err := r.breaker.Execute(fn, isUnavailable)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrUnavailable)
}
