package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/myrealm/backend/internal/middleware"
	"github.com/myrealm/backend/internal/services"
	"github.com/myrealm/backend/pkg/logger"
	"github.com/myrealm/backend/pkg/utils"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB     *gorm.DB
	Search *services.SearchService
}

func NewUsersHandler(db *gorm.DB, search *services.SearchService) *UsersHandler {
	return &UsersHandler{DB: db, Search: search}
}

// SearchUsers finds profiles the current user could send a request to.
func (h *UsersHandler) SearchUsers(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	term := strings.TrimSpace(c.Query("q"))
	if term != "" {
		logger.InfoWithUser(currentUser.ID.String(), "user_search", map[string]interface{}{
			"query": term,
		})
	}

	users, err := h.Search.Search(c.Context(), term, currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching users")
	}

	return utils.Success(c, fiber.StatusOK, users)
}
