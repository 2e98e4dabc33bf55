// Package handler содержит HTTP обработчики для REST API.
package handler

import (
	"context"

	"example.com/staff-users/services/staffusers/internal/domain"
)

// UserLister - источник строк staff_users.
// Позволяет мокировать репозиторий в тестах.
type UserLister interface {
	// List возвращает все строки таблицы.
	List(ctx context.Context) ([]domain.StaffUser, error)
}
