package dto

import "librarium/internal/api/models"

// BookRequest is bound from the multipart book form; the cover file itself is
// read separately from the request.
type BookRequest struct {
	Title         string `form:"title" binding:"required,min=3"`
	Author        string `form:"author" binding:"required"`
	ISBN          string `form:"isbn" binding:"required"`
	PublishedYear int    `form:"published_year" binding:"required"`
	Category      string `form:"category" binding:"required"`
	Description   string `form:"description"`
	ShelfLocation string `form:"shelf_location"`
	TotalCopies   int    `form:"total_copies" binding:"required,min=0"`
}

type BookListResponse struct {
	Items      []models.Book `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Categories []string      `json:"categories,omitempty"`
}
