package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/myrealm/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrDuplicateRequest = errors.New("a friend request is already pending between these users")
	ErrAlreadyFriends   = errors.New("users are already friends")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrRequestClosed    = errors.New("friend request is no longer pending")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotAuthorized    = errors.New("friend request does not involve this user")
	ErrNotFriends       = errors.New("users are not friends")
	ErrInvalidDecision  = errors.New("decision must be accepted or declined")
)

// FriendService owns the request lifecycle and the symmetric friendship rows.
// Every mutation that touches both users' state runs in a single transaction.
type FriendService struct {
	DB *gorm.DB
}

func NewFriendService(db *gorm.DB) *FriendService {
	return &FriendService{DB: db}
}

// SendRequest creates a pending request from sender to receiverID. Display
// names are denormalized onto the request at creation time.
func (s *FriendService) SendRequest(ctx context.Context, sender *models.User, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if sender.ID == receiverID {
		return nil, ErrSelfRequest
	}

	var receiver models.User
	if err := s.DB.WithContext(ctx).First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	friends, err := s.AreFriends(ctx, sender.ID, receiverID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	pending, err := s.hasPendingBetween(ctx, sender.ID, receiverID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	request := models.FriendRequest{
		SenderID:     sender.ID,
		ReceiverID:   receiver.ID,
		SenderName:   sender.DisplayName,
		ReceiverName: receiver.DisplayName,
		Status:       models.RequestStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}

	return &request, nil
}

// RespondToRequest accepts or declines a pending request addressed to the
// responder. Accepting writes the request status and both friendship rows in
// one transaction so the symmetry invariant cannot be observed half-applied.
func (s *FriendService) RespondToRequest(ctx context.Context, responder *models.User, requestID uuid.UUID, decision models.RequestStatus) (*models.FriendRequest, error) {
	if decision != models.RequestStatusAccepted && decision != models.RequestStatusDeclined {
		return nil, ErrInvalidDecision
	}

	var request models.FriendRequest
	if err := s.DB.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.ReceiverID != responder.ID {
		return nil, ErrNotAuthorized
	}
	if request.Status != models.RequestStatusPending {
		return nil, ErrRequestClosed
	}

	if decision == models.RequestStatusDeclined {
		request.Status = models.RequestStatusDeclined
		if err := s.DB.WithContext(ctx).Save(&request).Error; err != nil {
			return nil, err
		}
		return &request, nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request.Status = models.RequestStatusAccepted
		if err := tx.Save(&request).Error; err != nil {
			return err
		}

		pair := []models.Friendship{
			{UserID: request.SenderID, FriendID: request.ReceiverID},
			{UserID: request.ReceiverID, FriendID: request.SenderID},
		}
		for i := range pair {
			if err := tx.Create(&pair[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// CancelRequest terminates a pending request; only the original sender may
// cancel. The record is kept with a terminal status.
func (s *FriendService) CancelRequest(ctx context.Context, canceller *models.User, requestID uuid.UUID) (*models.FriendRequest, error) {
	var request models.FriendRequest
	if err := s.DB.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if request.SenderID != canceller.ID {
		return nil, ErrNotAuthorized
	}
	if request.Status != models.RequestStatusPending {
		return nil, ErrRequestClosed
	}

	request.Status = models.RequestStatusCancelled
	if err := s.DB.WithContext(ctx).Save(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// RemoveFriend deletes both friendship rows and flips any accepted request
// between the pair to unfriended, all in one transaction.
func (s *FriendService) RemoveFriend(ctx context.Context, user *models.User, friendID uuid.UUID) error {
	friends, err := s.AreFriends(ctx, user.ID, friendID)
	if err != nil {
		return err
	}
	if !friends {
		return ErrNotFriends
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
				user.ID, friendID, friendID, user.ID).
			Delete(&models.Friendship{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.FriendRequest{}).
			Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND status = ?",
				user.ID, friendID, friendID, user.ID, models.RequestStatusAccepted).
			Update("status", models.RequestStatusUnfriended).Error
	})
}

func (s *FriendService) AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, otherID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// hasPendingBetween checks both directions with two queries, mirroring the
// at-most-one-pending-per-pair invariant.
func (s *FriendService) hasPendingBetween(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	for _, pair := range [][2]uuid.UUID{{userID, otherID}, {otherID, userID}} {
		var count int64
		err := s.DB.WithContext(ctx).Model(&models.FriendRequest{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?", pair[0], pair[1], models.RequestStatusPending).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *FriendService) Friends(ctx context.Context, userID uuid.UUID) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := s.DB.WithContext(ctx).
		Preload("Friend").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

func (s *FriendService) IncomingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := s.DB.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", userID, models.RequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *FriendService) OutgoingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := s.DB.WithContext(ctx).
		Where("sender_id = ? AND status = ?", userID, models.RequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// RelatedUserIDs returns everyone connected to userID: confirmed friends plus
// the counterpart of any pending request in either direction. Search uses it
// to filter candidates.
func (s *FriendService) RelatedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	related := map[uuid.UUID]bool{}

	var friendships []models.Friendship
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&friendships).Error; err != nil {
		return nil, err
	}
	for _, f := range friendships {
		related[f.FriendID] = true
	}

	var requests []models.FriendRequest
	err := s.DB.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.RequestStatusPending).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	for _, r := range requests {
		if r.SenderID == userID {
			related[r.ReceiverID] = true
		} else {
			related[r.SenderID] = true
		}
	}

	ids := make([]uuid.UUID, 0, len(related))
	for id := range related {
		ids = append(ids, id)
	}
	return ids, nil
}
