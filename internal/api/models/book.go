package models

import "time"

const (
	BookStatusAvailable   = "available"
	BookStatusUnavailable = "unavailable"
)

type Book struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title           string    `json:"title" gorm:"not null;index"`
	Author          string    `json:"author" gorm:"not null"`
	ISBN            string    `json:"isbn" gorm:"size:20;index"`
	PublishedYear   int       `json:"published_year,omitempty"`
	Category        string    `json:"category" gorm:"index"`
	Description     string    `json:"description,omitempty"`
	ShelfLocation   string    `json:"shelf_location,omitempty"`
	CoverImage      string    `json:"cover_image,omitempty"`
	TotalCopies     int       `json:"total_copies" gorm:"not null;default:1"`
	AvailableCopies int       `json:"available_copies" gorm:"not null;default:1"`
	Status          string    `json:"status" gorm:"default:'available';not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// IsAvailable reports whether at least one copy can be loaned out.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// StatusFor derives the stored status value from an availability count.
func StatusFor(availableCopies int) string {
	if availableCopies > 0 {
		return BookStatusAvailable
	}
	return BookStatusUnavailable
}
