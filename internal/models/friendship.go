package models

import "github.com/google/uuid"

// Friendship is one direction of a confirmed friendship. Rows exist in
// symmetric pairs: whenever (A,B) exists, (B,A) must exist too. Both rows are
// written or removed inside a single transaction by the friend service.
type Friendship struct {
	BaseModel
	UserID   uuid.UUID `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_friend_pair"`
	FriendID uuid.UUID `json:"friendID" gorm:"type:uuid;not null;uniqueIndex:idx_friend_pair"`

	Friend User `json:"friend,omitempty" gorm:"foreignKey:FriendID;references:ID"`
}
