package models

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	BaseModel
	Email        string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"type:text;not null"`
	DisplayName  string `json:"displayName" gorm:"type:varchar(100);not null"`
	// Lowercase shadow of DisplayName, kept for prefix search.
	DisplayNameLower string   `json:"-" gorm:"type:varchar(100);not null;index"`
	AvatarURL        *string  `json:"avatarURL,omitempty" gorm:"type:text"`
	Files            []File   `json:"-" gorm:"foreignKey:OwnerID"`
	Servers          []Server `json:"-" gorm:"foreignKey:OwnerID"`
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.DisplayNameLower = strings.ToLower(u.DisplayName)
	return nil
}
