package models

import "github.com/google/uuid"

type File struct {
	BaseModel
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	MimeType    string    `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size        int64     `json:"size" gorm:"not null;default:0"`
	OwnerID     uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;index"`
	StoragePath string    `json:"storagePath" gorm:"type:text;not null"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
}
