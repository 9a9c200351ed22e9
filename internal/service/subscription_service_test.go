package service

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSubscriptionRepository is a mock of the repository.SubscriptionRepository interface.
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByUserAuthor(ctx context.Context, userID, authorID uint) (*models.Subscription, error) {
	args := m.Called(ctx, userID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByUserCategory(ctx context.Context, userID uint, category string) (*models.Subscription, error) {
	args := m.Called(ctx, userID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserRepository is a mock of the repository.UserRepository interface.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

func uintPtr(v uint) *uint { return &v }

func TestSubscribe_ExactlyOneTarget(t *testing.T) {
	svc := NewSubscriptionService(new(MockSubscriptionRepository), new(MockUserRepository))

	_, err := svc.Subscribe(context.Background(), SubscribeInput{UserID: 1})
	assert.Error(t, err, "neither target must fail")

	_, err = svc.Subscribe(context.Background(), SubscribeInput{
		UserID: 1, AuthorID: uintPtr(2), Category: "tech",
	})
	assert.Error(t, err, "both targets must fail")
}

func TestSubscribe_ToAuthor(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	svc := NewSubscriptionService(subRepo, userRepo)

	userRepo.On("GetByID", mock.Anything, uint(2)).
		Return(&models.User{ID: 2, IsActive: true}, nil)
	subRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.UserID == 1 && s.AuthorID != nil && *s.AuthorID == 2 && s.Category == nil
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Subscription).ID = 10
	})
	subRepo.On("GetByID", mock.Anything, uint(10)).
		Return(&models.Subscription{ID: 10, UserID: 1, AuthorID: uintPtr(2)}, nil)

	sub, err := svc.Subscribe(context.Background(), SubscribeInput{UserID: 1, AuthorID: uintPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, uint(10), sub.ID)
}

func TestSubscribe_SelfSubscriptionRejected(t *testing.T) {
	svc := NewSubscriptionService(new(MockSubscriptionRepository), new(MockUserRepository))

	_, err := svc.Subscribe(context.Background(), SubscribeInput{UserID: 1, AuthorID: uintPtr(1)})
	assert.Error(t, err)
}

func TestSubscribe_InactiveAuthorNotFound(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	svc := NewSubscriptionService(subRepo, userRepo)

	userRepo.On("GetByID", mock.Anything, uint(2)).
		Return(&models.User{ID: 2, IsActive: false}, nil)

	_, err := svc.Subscribe(context.Background(), SubscribeInput{UserID: 1, AuthorID: uintPtr(2)})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestSubscribe_CategoryLowercased(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	svc := NewSubscriptionService(subRepo, new(MockUserRepository))

	subRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.Category != nil && *s.Category == "technology"
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Subscription).ID = 11
	})
	cat := "technology"
	subRepo.On("GetByID", mock.Anything, uint(11)).
		Return(&models.Subscription{ID: 11, Category: &cat}, nil)

	sub, err := svc.Subscribe(context.Background(), SubscribeInput{UserID: 1, Category: "  Technology "})
	require.NoError(t, err)
	assert.Equal(t, "technology", *sub.Category)
}

func TestSubscribe_DuplicateConflicts(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	svc := NewSubscriptionService(subRepo, new(MockUserRepository))

	subRepo.On("Create", mock.Anything, mock.Anything).
		Return(models.NewConflictError("Already subscribed"))

	_, err := svc.Subscribe(context.Background(), SubscribeInput{UserID: 1, Category: "tech"})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestUnsubscribe_OnlyOwner(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	svc := NewSubscriptionService(subRepo, new(MockUserRepository))

	subRepo.On("GetByID", mock.Anything, uint(5)).
		Return(&models.Subscription{ID: 5, UserID: 2}, nil)

	err := svc.Unsubscribe(context.Background(), 1, 5)
	require.Error(t, err)
	subRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAuthorStatus(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	svc := NewSubscriptionService(subRepo, new(MockUserRepository))

	subRepo.On("FindByUserAuthor", mock.Anything, uint(1), uint(2)).
		Return(&models.Subscription{ID: 9, UserID: 1, AuthorID: uintPtr(2)}, nil)
	subRepo.On("FindByUserAuthor", mock.Anything, uint(1), uint(3)).
		Return(nil, nil)

	status, err := svc.AuthorStatus(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, status.Subscribed)
	require.NotNil(t, status.ID)
	assert.Equal(t, uint(9), *status.ID)

	status, err = svc.AuthorStatus(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, status.Subscribed)
	assert.Nil(t, status.ID)
}

func TestUnsubscribeFromAuthor(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	svc := NewSubscriptionService(subRepo, userRepo)
	ctx := context.Background()

	subRepo.On("FindByUserAuthor", ctx, uint(3), uint(9)).Return(&models.Subscription{
		ID: 55, UserID: 3, AuthorID: uintPtr(9),
	}, nil)
	subRepo.On("Delete", ctx, uint(55)).Return(nil)

	err := svc.UnsubscribeFromAuthor(ctx, 3, 9)
	assert.NoError(t, err)
	subRepo.AssertExpectations(t)
}

func TestUnsubscribeFromAuthorNotSubscribed(t *testing.T) {
	subRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	svc := NewSubscriptionService(subRepo, userRepo)
	ctx := context.Background()

	subRepo.On("FindByUserAuthor", ctx, uint(3), uint(9)).Return(nil, nil)

	err := svc.UnsubscribeFromAuthor(ctx, 3, 9)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	subRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
