package dto

import "librarium/internal/api/repository"

type AuditListResponse struct {
	Items      []repository.AuditEntry `json:"items"`
	Pagination Pagination              `json:"pagination"`
	Actions    []string                `json:"actions,omitempty"`
}
