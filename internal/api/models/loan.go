package models

import "time"

const (
	LoanStatusActive   = "active"
	LoanStatusOverdue  = "overdue"
	LoanStatusReturned = "returned"
)

type Loan struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	BookID     int64      `json:"book_id" gorm:"not null;index"`
	MemberID   string     `json:"member_id" gorm:"type:uuid;not null;index"`
	IssueDate  time.Time  `json:"issue_date" gorm:"not null"`
	DueDate    time.Time  `json:"due_date" gorm:"not null"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	FineAmount float64    `json:"fine_amount" gorm:"type:decimal(8,2);default:0"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// associations
	Book   *Book   `json:"book,omitempty" gorm:"foreignKey:BookID"`
	Member *Member `json:"member,omitempty" gorm:"foreignKey:MemberID"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsOpen reports whether the book is still checked out.
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// StatusAt derives the loan state against a single reference time. Callers must
// reuse the same reference for every loan touched in one request so a loan
// cannot flicker between active and overdue mid-computation.
func (l *Loan) StatusAt(asOf time.Time) string {
	if l.ReturnedAt != nil {
		return LoanStatusReturned
	}
	if dateOnly(l.DueDate).Before(dateOnly(asOf)) {
		return LoanStatusOverdue
	}
	return LoanStatusActive
}

// dateOnly truncates to the civil date in UTC so dates carrying different
// locations compare by calendar day, not by instant.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
