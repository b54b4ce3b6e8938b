package dto

import "librarium/internal/api/models"

type CreateMemberRequest struct {
	Name     string `json:"name" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Role     string `json:"role" binding:"omitempty,oneof=member librarian"`
	Status   string `json:"status" binding:"omitempty,oneof=active inactive suspended"`
	Notes    string `json:"notes"`
}

type UpdateMemberRequest struct {
	Name     string `json:"name" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Role     string `json:"role" binding:"omitempty,oneof=member librarian"`
	Status   string `json:"status" binding:"omitempty,oneof=active inactive suspended"`
	Notes    string `json:"notes"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type MemberListResponse struct {
	Items      []models.Member `json:"items"`
	Pagination Pagination      `json:"pagination"`
}
