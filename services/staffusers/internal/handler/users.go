package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/staff-users/pkg/logger"
)

// MsgNoUsersFound - тело ответа 404 при ошибке чтения таблицы (JSON-строка).
const MsgNoUsersFound = "No users found"

// UserHandler - обработчик списка сотрудников.
type UserHandler struct {
	users UserLister
}

// NewUserHandler создаёт новый обработчик сотрудников.
func NewUserHandler(users UserLister) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers возвращает всю таблицу staff_users.
// GET /api/v1/users и GET /api/v1/userstwo
// Любая ошибка чтения отдаётся клиенту как 404 "No users found".
func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.users.List(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("path", c.FullPath()).Msg("Ошибка чтения staff_users")
		c.JSON(http.StatusNotFound, MsgNoUsersFound)
		return
	}

	c.JSON(http.StatusOK, users)
}
