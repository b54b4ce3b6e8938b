package dto

import "librarium/internal/api/repository"

type CreateLoanRequest struct {
	BookID   int64  `json:"book_id" binding:"required"`
	MemberID string `json:"member_id" binding:"required,uuid"`
	DueDate  string `json:"due_date" binding:"omitempty,datetime=2006-01-02"` // empty means today + default loan days
	Notes    string `json:"notes"`
}

type ReturnLoanRequest struct {
	// nil means "compute from the due date"; an explicit 0 waives the fine
	FineAmount *float64 `json:"fine_amount" binding:"omitempty,min=0"`
	Notes      string   `json:"notes"`
}

type RenewLoanRequest struct {
	ExtensionDays int `json:"extension_days" binding:"omitempty,min=1"`
}

type LoanListResponse struct {
	Items      []repository.LoanDetail `json:"items"`
	Pagination Pagination              `json:"pagination"`
}
