package service

import (
	"context"
	"testing"

	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMemberService(memberRepo repository.MemberRepository, loanRepo repository.LoanRepository) MemberService {
	cfg := &config.Config{MaxLoansPerMember: 5, ItemsPerPage: 10}
	return NewMemberService(memberRepo, loanRepo, cfg)
}

func TestCanBorrow(t *testing.T) {
	tests := []struct {
		name      string
		openLoans int64
		want      bool
	}{
		{"no open loans", 0, true},
		{"under the limit", 4, true},
		{"at the limit", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLoanRepo := new(MockLoanRepository)
			svc := newTestMemberService(new(MockMemberRepository), mockLoanRepo)

			mockLoanRepo.On("CountOpenByMember", mock.Anything, "member-1").Return(tt.openLoans, nil)

			got, err := svc.CanBorrow(context.Background(), "member-1")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateMember_EmailTaken(t *testing.T) {
	mockMemberRepo := new(MockMemberRepository)
	svc := newTestMemberService(mockMemberRepo, new(MockLoanRepository))

	mockMemberRepo.On("FindByEmail", mock.Anything, "bob@example.com").Return(&models.Member{
		ID: "other", Email: "bob@example.com",
	}, nil)

	_, err := svc.Create(context.Background(), MemberInput{
		Name: "Bob", Email: "bob@example.com", Password: "password123",
	})

	assert.ErrorIs(t, err, ErrEmailInUse)
	mockMemberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateMember_Defaults(t *testing.T) {
	mockMemberRepo := new(MockMemberRepository)
	svc := newTestMemberService(mockMemberRepo, new(MockLoanRepository))

	mockMemberRepo.On("FindByEmail", mock.Anything, "bob@example.com").Return(nil, repository.ErrNotFound)
	mockMemberRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Member")).Return(nil)

	member, err := svc.Create(context.Background(), MemberInput{
		Name: "Bob", Email: "bob@example.com", Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, member.Role)
	assert.Equal(t, models.MemberStatusActive, member.Status)
}

func TestUpdateMember_KeepOwnEmail(t *testing.T) {
	mockMemberRepo := new(MockMemberRepository)
	svc := newTestMemberService(mockMemberRepo, new(MockLoanRepository))

	mockMemberRepo.On("GetByID", mock.Anything, "member-1").Return(&models.Member{
		ID: "member-1", Name: "Bob", Email: "bob@example.com",
	}, nil)
	mockMemberRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Member")).Return(nil)

	// same email: no uniqueness lookup needed
	member, err := svc.Update(context.Background(), "member-1", MemberInput{
		Name: "Robert", Email: "bob@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "Robert", member.Name)
	mockMemberRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestUpdateMember_EmailCollision(t *testing.T) {
	mockMemberRepo := new(MockMemberRepository)
	svc := newTestMemberService(mockMemberRepo, new(MockLoanRepository))

	mockMemberRepo.On("GetByID", mock.Anything, "member-1").Return(&models.Member{
		ID: "member-1", Email: "bob@example.com",
	}, nil)
	mockMemberRepo.On("FindByEmail", mock.Anything, "alice@example.com").Return(&models.Member{
		ID: "member-2", Email: "alice@example.com",
	}, nil)

	_, err := svc.Update(context.Background(), "member-1", MemberInput{
		Name: "Bob", Email: "alice@example.com",
	})

	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestDeleteMember_OpenLoans(t *testing.T) {
	mockMemberRepo := new(MockMemberRepository)
	mockLoanRepo := new(MockLoanRepository)
	svc := newTestMemberService(mockMemberRepo, mockLoanRepo)

	mockLoanRepo.On("CountOpenByMember", mock.Anything, "member-1").Return(int64(1), nil)

	err := svc.Delete(context.Background(), "member-1")

	assert.ErrorIs(t, err, ErrHasOpenLoans)
	mockMemberRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteMember_Success(t *testing.T) {
	mockMemberRepo := new(MockMemberRepository)
	mockLoanRepo := new(MockLoanRepository)
	svc := newTestMemberService(mockMemberRepo, mockLoanRepo)

	mockLoanRepo.On("CountOpenByMember", mock.Anything, "member-1").Return(int64(0), nil)
	mockMemberRepo.On("Delete", mock.Anything, "member-1").Return(nil)

	err := svc.Delete(context.Background(), "member-1")

	require.NoError(t, err)
	mockMemberRepo.AssertExpectations(t)
}
