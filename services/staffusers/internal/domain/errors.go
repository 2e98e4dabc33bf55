// Package domain содержит сущности и доменные ошибки сервиса сотрудников.
package domain

import "errors"

// Ошибки разрешения user_id в имя.
// Воркер шины по ним решает, коммитить offset или повторять сообщение.
var (
	// ErrUserNotFound - в staff_users нет строки с таким user_id.
	ErrUserNotFound = errors.New("пользователь не найден")

	// ErrUserAmbiguous - для user_id найдено больше одной строки.
	ErrUserAmbiguous = errors.New("найдено несколько пользователей с одним user_id")

	// ErrUnavailable - база недоступна (пул, сеть, таймаут, открытый circuit breaker).
	// Временная ошибка: сообщение нужно обработать повторно.
	ErrUnavailable = errors.New("хранилище пользователей недоступно")
)
