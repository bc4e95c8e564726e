package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/myrealm/backend/internal/models"
	"gorm.io/gorm"
)

// SearchService looks up user profiles for the "add friend" flow. Terms
// containing "@" match the email exactly; anything else is a prefix match on
// the lowercase display name. The caller and anyone already related to them
// (friends or a pending request in either direction) are filtered out.
type SearchService struct {
	DB      *gorm.DB
	Friends *FriendService
}

func NewSearchService(db *gorm.DB, friends *FriendService) *SearchService {
	return &SearchService{DB: db, Friends: friends}
}

func (s *SearchService) Search(ctx context.Context, term string, excludeID uuid.UUID) ([]models.User, error) {
	term = strings.TrimSpace(term)
	// Very short terms would match most of the user table.
	if utf8.RuneCountInString(term) < 2 {
		return []models.User{}, nil
	}

	query := s.DB.WithContext(ctx).Model(&models.User{}).Where("id <> ?", excludeID)
	if strings.Contains(term, "@") {
		query = query.Where("email = ?", strings.ToLower(term))
	} else {
		query = query.Where("display_name_lower LIKE ?", escapeLike(strings.ToLower(term))+"%")
	}

	related, err := s.Friends.RelatedUserIDs(ctx, excludeID)
	if err != nil {
		return nil, err
	}
	if len(related) > 0 {
		query = query.Where("id NOT IN ?", related)
	}

	var users []models.User
	if err := query.Order("display_name_lower").Limit(20).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
