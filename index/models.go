package index

import (
	"time"

	"gorm.io/datatypes"
)

// Capture is one captured node of an indexed file.
type Capture struct {
	ID       uint   `gorm:"primaryKey"`
	Path     string `gorm:"type:varchar(1024);index;not null"`
	Language string `gorm:"type:varchar(50);not null"`

	Pattern  int    `gorm:"not null"`
	Name     string `gorm:"type:varchar(255);index;not null"`
	NodeType string `gorm:"type:varchar(255)"`
	Text     string `gorm:"type:text;index"`

	StartByte   uint32
	EndByte     uint32
	StartRow    uint32
	StartColumn uint32
	EndRow      uint32
	EndColumn   uint32

	// Settings holds the #set! properties of the pattern that matched.
	Settings datatypes.JSON

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Run records one indexing pass.
type Run struct {
	ID        uint   `gorm:"primaryKey"`
	Query     string `gorm:"type:text"`
	Languages datatypes.JSON
	Files     int
	Captures  int
	Exceeded  bool
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
