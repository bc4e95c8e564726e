package models

import "github.com/google/uuid"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusDeclined  RequestStatus = "declined"
	RequestStatusCancelled RequestStatus = "cancelled"
	// Set on a previously accepted request when the friendship is removed.
	RequestStatusUnfriended RequestStatus = "unfriended"
)

// FriendRequest moves through pending -> accepted|declined|cancelled, and
// accepted -> unfriended. Terminal records are kept for history, never deleted.
// Display names are captured at creation time so later profile edits do not
// rewrite old requests.
type FriendRequest struct {
	BaseModel
	SenderID     uuid.UUID     `json:"senderID" gorm:"type:uuid;not null;index"`
	ReceiverID   uuid.UUID     `json:"receiverID" gorm:"type:uuid;not null;index"`
	SenderName   string        `json:"senderName" gorm:"type:varchar(100);not null"`
	ReceiverName string        `json:"receiverName" gorm:"type:varchar(100);not null"`
	Status       RequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`

	Sender   User `json:"-" gorm:"foreignKey:SenderID;references:ID"`
	Receiver User `json:"-" gorm:"foreignKey:ReceiverID;references:ID"`
}
