package handlers

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/myrealm/backend/internal/events"
	"github.com/myrealm/backend/internal/middleware"
	"github.com/myrealm/backend/internal/models"
	"github.com/myrealm/backend/internal/storage"
	"github.com/myrealm/backend/pkg/logger"
	"github.com/myrealm/backend/pkg/utils"
	"gorm.io/gorm"
)

const downloadURLExpiry = 15 * time.Minute

type FilesHandler struct {
	DB      *gorm.DB
	Storage storage.ObjectStore
	Hub     *events.Hub
}

func NewFilesHandler(db *gorm.DB, store storage.ObjectStore, hub *events.Hub) *FilesHandler {
	return &FilesHandler{DB: db, Storage: store, Hub: hub}
}

// Upload stores the blob first, then the metadata row. If the row insert
// fails the just-written blob is deleted best-effort so it does not leak.
func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("%s/%s/%s", currentUser.ID.String(), uuid.New().String(), filename)
	if err := h.Storage.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading file")
	}

	entry := models.File{
		Name:        filename,
		MimeType:    contentType,
		Size:        fileHeader.Size,
		OwnerID:     currentUser.ID,
		StoragePath: objectName,
	}

	if err := h.DB.Create(&entry).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating file record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_uploaded", map[string]interface{}{
		"file_id":      entry.ID.String(),
		"file_name":    filename,
		"file_size":    fileHeader.Size,
		"mime_type":    contentType,
		"storage_path": objectName,
	})

	h.Hub.PublishToUser(currentUser.ID, &events.Message{Event: "file_uploaded", Data: entry})

	return utils.Success(c, fiber.StatusCreated, entry)
}

func (h *FilesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.File{}).Where("owner_id = ?", currentUser.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting files")
	}

	var files []models.File
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}

	return utils.Paginated(c, files, p.Page, p.Limit, total)
}

func (h *FilesHandler) DownloadURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ? AND owner_id = ?", fileID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}

	url, err := h.Storage.PresignedGetURL(c.Context(), file.StoragePath, downloadURLExpiry)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating download url")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":       url,
		"expiresIn": int(downloadURLExpiry.Seconds()),
	})
}

// Delete removes the blob, then the row. A blob that is already gone is not
// an error; any other storage failure leaves the row intact for retry.
func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ? AND owner_id = ?", fileID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}

	if err := h.Storage.Delete(c.Context(), file.StoragePath); err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return utils.Error(c, fiber.StatusInternalServerError, "failed deleting file from storage")
		}
		logger.WarnWithUser(currentUser.ID.String(), "file_blob_already_missing", map[string]interface{}{
			"file_id":      file.ID.String(),
			"storage_path": file.StoragePath,
		})
	}

	if err := h.DB.Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting file record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_deleted", map[string]interface{}{
		"file_id": file.ID.String(),
	})

	h.Hub.PublishToUser(currentUser.ID, &events.Message{
		Event: "file_deleted",
		Data:  fiber.Map{"fileID": file.ID},
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "file deleted"})
}
