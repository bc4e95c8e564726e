package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/myrealm/backend/internal/events"
	"github.com/myrealm/backend/internal/middleware"
	"github.com/myrealm/backend/internal/models"
	"github.com/myrealm/backend/internal/services"
	"github.com/myrealm/backend/pkg/logger"
	"github.com/myrealm/backend/pkg/utils"
	"gorm.io/gorm"
)

type FriendsHandler struct {
	DB       *gorm.DB
	Friends  *services.FriendService
	Activity *services.ActivityService
	Hub      *events.Hub
}

func NewFriendsHandler(db *gorm.DB, friends *services.FriendService, activity *services.ActivityService, hub *events.Hub) *FriendsHandler {
	return &FriendsHandler{DB: db, Friends: friends, Activity: activity, Hub: hub}
}

// friendErrorStatus maps workflow errors onto HTTP statuses. Unknown errors
// fall through to 500 at the call site.
func friendErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, services.ErrSelfRequest), errors.Is(err, services.ErrInvalidDecision):
		return fiber.StatusBadRequest, true
	case errors.Is(err, services.ErrDuplicateRequest),
		errors.Is(err, services.ErrAlreadyFriends),
		errors.Is(err, services.ErrRequestClosed):
		return fiber.StatusConflict, true
	case errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNotFriends):
		return fiber.StatusNotFound, true
	case errors.Is(err, services.ErrNotAuthorized):
		return fiber.StatusForbidden, true
	default:
		return 0, false
	}
}

// friendListEntry augments a friendship with the friend's live-feed presence.
type friendListEntry struct {
	models.Friendship
	Online bool `json:"online"`
}

func (h *FriendsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	friendships, err := h.Friends.Friends(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing friends")
	}

	entries := make([]friendListEntry, 0, len(friendships))
	for _, friendship := range friendships {
		entries = append(entries, friendListEntry{
			Friendship: friendship,
			Online:     h.Hub.IsOnline(friendship.FriendID),
		})
	}

	return utils.Success(c, fiber.StatusOK, entries)
}

func (h *FriendsHandler) IncomingRequests(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	requests, err := h.Friends.IncomingRequests(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing incoming requests")
	}

	return utils.Success(c, fiber.StatusOK, requests)
}

func (h *FriendsHandler) OutgoingRequests(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	requests, err := h.Friends.OutgoingRequests(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing outgoing requests")
	}

	return utils.Success(c, fiber.StatusOK, requests)
}

type sendRequestBody struct {
	ReceiverID string `json:"receiverID"`
}

func (h *FriendsHandler) SendRequest(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body sendRequestBody
	if err := c.BodyParser(&body); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	receiverID, err := parseUUID(body.ReceiverID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid receiverID")
	}

	request, err := h.Friends.SendRequest(c.Context(), currentUser, receiverID)
	if err != nil {
		if status, ok := friendErrorStatus(err); ok {
			return utils.Error(c, status, err.Error())
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed sending friend request")
	}

	logger.InfoWithUser(currentUser.ID.String(), "friend_request_sent", map[string]interface{}{
		"request_id":  request.ID.String(),
		"receiver_id": receiverID.String(),
	})

	h.Activity.RecordAsync(services.ActivityEntry{
		UserID:       receiverID,
		ActorID:      currentUser.ID,
		Action:       "friend.request",
		ResourceType: "friend_request",
		ResourceID:   &request.ID,
		Message:      fmt.Sprintf("%s sent you a friend request", currentUser.DisplayName),
	})
	h.Hub.PublishToUser(receiverID, &events.Message{Event: "friend_request_received", Data: request})

	return utils.Success(c, fiber.StatusCreated, request)
}

type respondRequestBody struct {
	Decision string `json:"decision"`
}

func (h *FriendsHandler) RespondToRequest(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	requestID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request id")
	}

	var body respondRequestBody
	if err := c.BodyParser(&body); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	request, err := h.Friends.RespondToRequest(c.Context(), currentUser, requestID, models.RequestStatus(body.Decision))
	if err != nil {
		if status, ok := friendErrorStatus(err); ok {
			return utils.Error(c, status, err.Error())
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed responding to friend request")
	}

	logger.InfoWithUser(currentUser.ID.String(), "friend_request_responded", map[string]interface{}{
		"request_id": request.ID.String(),
		"decision":   string(request.Status),
	})

	if request.Status == models.RequestStatusAccepted {
		h.Activity.RecordAsync(services.ActivityEntry{
			UserID:       request.SenderID,
			ActorID:      currentUser.ID,
			Action:       "friend.accept",
			ResourceType: "friend_request",
			ResourceID:   &request.ID,
			Message:      fmt.Sprintf("%s accepted your friend request", currentUser.DisplayName),
		})
		h.Hub.PublishToUsers([]uuid.UUID{request.SenderID, request.ReceiverID}, &events.Message{
			Event: "friend_request_accepted",
			Data:  request,
		})
	} else {
		h.Hub.PublishToUser(request.SenderID, &events.Message{Event: "friend_request_declined", Data: request})
	}

	return utils.Success(c, fiber.StatusOK, request)
}

func (h *FriendsHandler) CancelRequest(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	requestID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request id")
	}

	request, err := h.Friends.CancelRequest(c.Context(), currentUser, requestID)
	if err != nil {
		if status, ok := friendErrorStatus(err); ok {
			return utils.Error(c, status, err.Error())
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed cancelling friend request")
	}

	logger.InfoWithUser(currentUser.ID.String(), "friend_request_cancelled", map[string]interface{}{
		"request_id": request.ID.String(),
	})

	h.Hub.PublishToUser(request.ReceiverID, &events.Message{Event: "friend_request_cancelled", Data: request})

	return utils.Success(c, fiber.StatusOK, request)
}

func (h *FriendsHandler) RemoveFriend(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	friendID, err := parseUUID(c.Params("userID"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.Friends.RemoveFriend(c.Context(), currentUser, friendID); err != nil {
		if status, ok := friendErrorStatus(err); ok {
			return utils.Error(c, status, err.Error())
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing friend")
	}

	logger.InfoWithUser(currentUser.ID.String(), "friend_removed", map[string]interface{}{
		"friend_id": friendID.String(),
	})

	h.Hub.PublishToUsers([]uuid.UUID{currentUser.ID, friendID}, &events.Message{
		Event: "friend_removed",
		Data:  fiber.Map{"userID": currentUser.ID, "friendID": friendID},
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "friend removed"})
}
