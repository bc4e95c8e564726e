package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/myrealm/backend/internal/models"
	"github.com/myrealm/backend/pkg/logger"
	"gorm.io/gorm"
)

type ActivityEntry struct {
	UserID       uuid.UUID
	ActorID      uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Message      string
}

// ActivityService writes feed entries off the request path. Entries are
// dropped with a warning when the queue is full rather than blocking a
// handler.
type ActivityService struct {
	DB    *gorm.DB
	queue chan models.Activity
}

func NewActivityService(db *gorm.DB) *ActivityService {
	s := &ActivityService{
		DB:    db,
		queue: make(chan models.Activity, 1000),
	}
	go s.processQueue()
	return s
}

func (s *ActivityService) RecordAsync(entry ActivityEntry) {
	row := models.Activity{
		UserID:       entry.UserID,
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Message:      entry.Message,
	}
	row.CreatedAt = time.Now().UTC()

	select {
	case s.queue <- row:
	default:
		logger.Warn("activity_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *ActivityService) processQueue() {
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("activity_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}
