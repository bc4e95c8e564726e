package models

import "github.com/google/uuid"

type ServerKind string

const (
	ServerKindGame  ServerKind = "game"
	ServerKindFile  ServerKind = "file"
	ServerKindOther ServerKind = "other"
)

// Server is a self-hosted server the user tracks on their dashboard.
type Server struct {
	BaseModel
	OwnerID uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	Name    string     `json:"name" gorm:"type:varchar(100);not null"`
	Address string     `json:"address" gorm:"type:varchar(255);not null"`
	Port    int        `json:"port" gorm:"not null;default:0"`
	Kind    ServerKind `json:"kind" gorm:"type:varchar(20);not null;default:'other'"`
	Notes   string     `json:"notes" gorm:"type:text"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
}
