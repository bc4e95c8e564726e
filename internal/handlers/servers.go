package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/myrealm/backend/internal/middleware"
	"github.com/myrealm/backend/internal/models"
	"github.com/myrealm/backend/pkg/utils"
	"gorm.io/gorm"
)

type ServersHandler struct {
	DB *gorm.DB
}

func NewServersHandler(db *gorm.DB) *ServersHandler {
	return &ServersHandler{DB: db}
}

type serverRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	Kind    string `json:"kind"`
	Notes   string `json:"notes"`
}

func validServerKind(value string) (models.ServerKind, bool) {
	switch models.ServerKind(strings.ToLower(strings.TrimSpace(value))) {
	case models.ServerKindGame:
		return models.ServerKindGame, true
	case models.ServerKindFile:
		return models.ServerKindFile, true
	case models.ServerKindOther, "":
		return models.ServerKindOther, true
	default:
		return "", false
	}
}

func (h *ServersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req serverRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	address := strings.TrimSpace(req.Address)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}
	if address == "" {
		return utils.Error(c, fiber.StatusBadRequest, "address is required")
	}
	if req.Port < 0 || req.Port > 65535 {
		return utils.Error(c, fiber.StatusBadRequest, "port must be between 0 and 65535")
	}
	kind, ok := validServerKind(req.Kind)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "kind must be game, file or other")
	}

	server := models.Server{
		OwnerID: currentUser.ID,
		Name:    name,
		Address: address,
		Port:    req.Port,
		Kind:    kind,
		Notes:   strings.TrimSpace(req.Notes),
	}
	if err := h.DB.Create(&server).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating server")
	}

	return utils.Success(c, fiber.StatusCreated, server)
}

func (h *ServersHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var servers []models.Server
	if err := h.DB.Where("owner_id = ?", currentUser.ID).Order("created_at DESC").Find(&servers).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing servers")
	}

	return utils.Success(c, fiber.StatusOK, servers)
}

func (h *ServersHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	serverID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid server id")
	}

	var server models.Server
	if err := h.DB.First(&server, "id = ? AND owner_id = ?", serverID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "server not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading server")
	}

	return utils.Success(c, fiber.StatusOK, server)
}

func (h *ServersHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	serverID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid server id")
	}

	var server models.Server
	if err := h.DB.First(&server, "id = ? AND owner_id = ?", serverID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "server not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading server")
	}

	var req serverRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		server.Name = name
	}
	if address := strings.TrimSpace(req.Address); address != "" {
		server.Address = address
	}
	if req.Port > 0 {
		if req.Port > 65535 {
			return utils.Error(c, fiber.StatusBadRequest, "port must be between 0 and 65535")
		}
		server.Port = req.Port
	}
	if strings.TrimSpace(req.Kind) != "" {
		kind, ok := validServerKind(req.Kind)
		if !ok {
			return utils.Error(c, fiber.StatusBadRequest, "kind must be game, file or other")
		}
		server.Kind = kind
	}
	server.Notes = strings.TrimSpace(req.Notes)

	if err := h.DB.Save(&server).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating server")
	}

	return utils.Success(c, fiber.StatusOK, server)
}

func (h *ServersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	serverID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid server id")
	}

	result := h.DB.Delete(&models.Server{}, "id = ? AND owner_id = ?", serverID, currentUser.ID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting server")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "server not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "server deleted"})
}
