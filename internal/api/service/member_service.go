package service

import (
	"context"
	"errors"

	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/config"
	"librarium/internal/middleware/auth"
)

// MemberInput carries the validated fields of an admin member write.
type MemberInput struct {
	Name     string
	Email    string
	Password string // empty on update keeps the current password
	Phone    string
	Address  string
	Role     string
	Status   string
	Notes    string
}

// ProfileInput is the self-service subset: members may not change their own
// role, status or notes.
type ProfileInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// MemberService owns member records and borrowing eligibility.
type MemberService interface {
	Create(ctx context.Context, in MemberInput) (*models.Member, error)
	GetByID(ctx context.Context, id string) (*models.Member, error)
	Update(ctx context.Context, id string, in MemberInput) (*models.Member, error)
	UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.Member, error)
	Delete(ctx context.Context, id string) error

	CountOpenLoans(ctx context.Context, memberID string) (int64, error)
	CanBorrow(ctx context.Context, memberID string) (bool, error)

	List(ctx context.Context, filters repository.MemberFilters, page int) ([]models.Member, int64, error)
	MembersWithOverdue(ctx context.Context) ([]repository.MemberWithOverdue, error)
}

type memberService struct {
	memberRepo repository.MemberRepository
	loanRepo   repository.LoanRepository

	maxLoansPerMember int
	pageSize          int
}

func NewMemberService(memberRepo repository.MemberRepository, loanRepo repository.LoanRepository, cfg *config.Config) MemberService {
	return &memberService{
		memberRepo:        memberRepo,
		loanRepo:          loanRepo,
		maxLoansPerMember: cfg.MaxLoansPerMember,
		pageSize:          cfg.ItemsPerPage,
	}
}

func (s *memberService) Create(ctx context.Context, in MemberInput) (*models.Member, error) {
	if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleMember
	}
	status := in.Status
	if status == "" {
		status = models.MemberStatusActive
	}

	member := &models.Member{
		Name:     in.Name,
		Email:    in.Email,
		Password: hashed,
		Phone:    in.Phone,
		Address:  in.Address,
		Role:     role,
		Status:   status,
		Notes:    in.Notes,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *memberService) GetByID(ctx context.Context, id string) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return member, nil
}

func (s *memberService) Update(ctx context.Context, id string, in MemberInput) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if in.Email != member.Email {
		if err := s.ensureEmailFree(ctx, in.Email, id); err != nil {
			return nil, err
		}
	}

	member.Name = in.Name
	member.Email = in.Email
	member.Phone = in.Phone
	member.Address = in.Address
	if in.Role != "" {
		member.Role = in.Role
	}
	if in.Status != "" {
		member.Status = in.Status
	}
	member.Notes = in.Notes

	if in.Password != "" {
		hashed, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		member.Password = hashed
	}

	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *memberService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.Member, error) {
	return s.Update(ctx, id, MemberInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Phone:    in.Phone,
		Address:  in.Address,
	})
}

// Delete refuses to remove a member who still has open loans.
func (s *memberService) Delete(ctx context.Context, id string) error {
	open, err := s.loanRepo.CountOpenByMember(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrHasOpenLoans
	}

	err = s.memberRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *memberService) CountOpenLoans(ctx context.Context, memberID string) (int64, error) {
	return s.loanRepo.CountOpenByMember(ctx, memberID)
}

// CanBorrow reports whether the member is under the borrowing limit.
func (s *memberService) CanBorrow(ctx context.Context, memberID string) (bool, error) {
	open, err := s.loanRepo.CountOpenByMember(ctx, memberID)
	if err != nil {
		return false, err
	}
	return open < int64(s.maxLoansPerMember), nil
}

func (s *memberService) List(ctx context.Context, filters repository.MemberFilters, page int) ([]models.Member, int64, error) {
	return s.memberRepo.ListWithFilters(ctx, filters, normalizePage(page), s.pageSize)
}

func (s *memberService) MembersWithOverdue(ctx context.Context) ([]repository.MemberWithOverdue, error) {
	return s.memberRepo.MembersWithOverdue(ctx)
}

func (s *memberService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.memberRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrEmailInUse
	}
	return nil
}
