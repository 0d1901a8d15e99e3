package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/StrawThePie/expense-tracker-api/apperrors"
	"github.com/StrawThePie/expense-tracker-api/internal/auth"
	"github.com/google/uuid"
)

const (
	MAX_EXPENSE_CATEGORY_LENGTH    = 255
	MAX_EXPENSE_DESCRIPTION_LENGTH = 1000
)

type Tracker struct {
	storage     Storage
	tokens      *auth.TokenService
	StorageType string
}

func NewTracker(s Storage, tokens *auth.TokenService) Tracker {
	return Tracker{
		storage:     s,
		tokens:      tokens,
		StorageType: s.GetStorageType(),
	}
}

type Storage interface {
	SaveUser(ctx context.Context, user auth.User) error
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error)
	GetUserById(ctx context.Context, userId string) (auth.User, error)
	SaveExpense(ctx context.Context, e Expense) error
	GetFilteredExpenses(ctx context.Context, userId string, filters *ExpenseList) ([]Expense, error)
	GetExpenseById(ctx context.Context, userId string, expenseId string) (Expense, error)
	UpdateExpense(ctx context.Context, userId string, expenseId string, fields UpdateExpenseRequest) (Expense, error)
	DeleteExpense(ctx context.Context, userId string, expenseId string) error
	GetStorageType() string
}

func (tr *Tracker) RegisterUser(ctx context.Context, newUser auth.NewUser) (auth.User, error) {
	email := strings.ToLower(newUser.Email)

	isEmailTaken, err := tr.storage.IsEmailTaken(ctx, email)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to check email availability: %w", err)
	}
	if isEmailTaken {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrConflict,
			Message: "Email already registered.",
		}
	}

	hashedPassword, err := auth.HashPassword(newUser.PasswordPlain)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := auth.User{
		ID:             uuid.New().String(),
		Email:          email,
		PasswordHashed: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}

	if err := tr.storage.SaveUser(ctx, user); err != nil {
		return auth.User{}, fmt.Errorf("failed to registration: %w", err)
	}

	return user, nil
}

// Authenticate validates the credentials and issues a signed access token.
// Unknown email and wrong password produce the same error.
func (tr *Tracker) Authenticate(ctx context.Context, credentials auth.UserCredentialsPure) (string, error) {
	credentials.Email = strings.ToLower(credentials.Email)

	user, err := tr.storage.ValidateUser(ctx, credentials)
	if err != nil {
		return "", err
	}

	token, err := tr.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return token, nil
}

// ResolveToken verifies the presented token and resolves its subject to a
// stored user. Every expense endpoint goes through here first.
func (tr *Tracker) ResolveToken(ctx context.Context, token string) (auth.User, error) {
	userId, err := tr.tokens.Verify(token)
	if err != nil {
		return auth.User{}, err
	}

	user, err := tr.storage.GetUserById(ctx, userId)
	if err != nil {
		return auth.User{}, err
	}
	return user, nil
}

func (tr *Tracker) SaveExpense(ctx context.Context, userId string, request ExpenseRequest) (Expense, error) {
	if request.Category == "" {
		return Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Expense category is required.",
		}
	}
	if len(request.Category) > MAX_EXPENSE_CATEGORY_LENGTH {
		return Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Expense category so long, maximum allowed length is: %d", MAX_EXPENSE_CATEGORY_LENGTH),
		}
	}
	if len(request.Description) > MAX_EXPENSE_DESCRIPTION_LENGTH {
		return Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Expense description so long, maximum allowed length is: %d", MAX_EXPENSE_DESCRIPTION_LENGTH),
		}
	}

	e := Expense{
		ID:          uuid.New().String(),
		Amount:      request.Amount,
		Category:    request.Category,
		Description: request.Description,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   userId,
	}

	if err := tr.storage.SaveExpense(ctx, e); err != nil {
		return Expense{}, fmt.Errorf("failed to save expense to db: %w", err)
	}
	return e, nil
}

func (tr *Tracker) GetFilteredExpenses(ctx context.Context, userId string, filters *ExpenseList) ([]Expense, error) {
	expenses, err := tr.storage.GetFilteredExpenses(ctx, userId, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	return expenses, nil
}

func (tr *Tracker) GetExpenseById(ctx context.Context, userId string, expenseId string) (Expense, error) {
	e, err := tr.storage.GetExpenseById(ctx, userId, expenseId)
	if err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (tr *Tracker) UpdateExpense(ctx context.Context, userId string, expenseId string, fields UpdateExpenseRequest) (Expense, error) {
	if fields.NewCategory != nil {
		if *fields.NewCategory == "" {
			return Expense{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: "Expense category cannot be empty.",
			}
		}
		if len(*fields.NewCategory) > MAX_EXPENSE_CATEGORY_LENGTH {
			return Expense{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("Expense category so long, maximum allowed length is: %d", MAX_EXPENSE_CATEGORY_LENGTH),
			}
		}
	}
	if fields.NewDescription != nil && len(*fields.NewDescription) > MAX_EXPENSE_DESCRIPTION_LENGTH {
		return Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Expense description so long, maximum allowed length is: %d", MAX_EXPENSE_DESCRIPTION_LENGTH),
		}
	}

	e, err := tr.storage.UpdateExpense(ctx, userId, expenseId, fields)
	if err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (tr *Tracker) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	if err := tr.storage.DeleteExpense(ctx, userId, expenseId); err != nil {
		return err
	}
	return nil
}
