package storage

import (
	"context"
	"sort"
	"sync"

	appErrors "github.com/StrawThePie/expense-tracker-api/apperrors"
	authModel "github.com/StrawThePie/expense-tracker-api/internal/auth"
	expenseModel "github.com/StrawThePie/expense-tracker-api/internal/expense"
)

// InMemoryStorage implements the same scoped-lookup semantics as the MySQL
// storage; tests run against it.
type InMemoryStorage struct {
	mu       sync.Mutex
	users    []authModel.User
	expenses []expenseModel.Expense
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{}
}

func (inMem *InMemoryStorage) GetStorageType() string {
	return "inmemory"
}

func (inMem *InMemoryStorage) SaveUser(ctx context.Context, user authModel.User) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, existing := range inMem.users {
		if existing.Email == user.Email {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "Email already registered.",
			}
		}
	}
	inMem.users = append(inMem.users, user)
	return nil
}

func (inMem *InMemoryStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, user := range inMem.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (inMem *InMemoryStorage) ValidateUser(ctx context.Context, credentials authModel.UserCredentialsPure) (authModel.User, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	invalidCredentials := appErrors.ErrorResponse{
		Code:    appErrors.ErrAuth,
		Message: "Invalid email or password.",
	}

	for _, user := range inMem.users {
		if user.Email == credentials.Email {
			if authModel.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
				return user, nil
			}
			return authModel.User{}, invalidCredentials
		}
	}
	return authModel.User{}, invalidCredentials
}

func (inMem *InMemoryStorage) GetUserById(ctx context.Context, userId string) (authModel.User, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, user := range inMem.users {
		if user.ID == userId {
			return user, nil
		}
	}
	return authModel.User{}, appErrors.ErrorResponse{
		Code:    appErrors.ErrAuth,
		Message: "Invalid token, please login.",
	}
}

func (inMem *InMemoryStorage) SaveExpense(ctx context.Context, e expenseModel.Expense) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	inMem.expenses = append(inMem.expenses, e)
	return nil
}

func (inMem *InMemoryStorage) GetFilteredExpenses(ctx context.Context, userId string, filters *expenseModel.ExpenseList) ([]expenseModel.Expense, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	var result []expenseModel.Expense
	for _, e := range inMem.expenses {
		if e.CreatedBy != userId {
			continue
		}
		if !filters.IsAllNil {
			if !filters.CreatedAt.IsZero() && e.CreatedAt.Before(filters.CreatedAt) {
				continue
			}
			if !filters.EndDate.IsZero() && e.CreatedAt.After(filters.EndDate) {
				continue
			}
		}
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (inMem *InMemoryStorage) GetExpenseById(ctx context.Context, userId string, expenseId string) (expenseModel.Expense, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for _, e := range inMem.expenses {
		if e.ID == expenseId && e.CreatedBy == userId {
			return e, nil
		}
	}
	return expenseModel.Expense{}, appErrors.ErrorResponse{
		Code:    appErrors.ErrNotFound,
		Message: "Expense not found.",
	}
}

func (inMem *InMemoryStorage) UpdateExpense(ctx context.Context, userId string, expenseId string, fields expenseModel.UpdateExpenseRequest) (expenseModel.Expense, error) {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, e := range inMem.expenses {
		if e.ID == expenseId && e.CreatedBy == userId {
			if fields.NewAmount != nil {
				inMem.expenses[i].Amount = *fields.NewAmount
			}
			if fields.NewCategory != nil {
				inMem.expenses[i].Category = *fields.NewCategory
			}
			if fields.NewDescription != nil {
				inMem.expenses[i].Description = *fields.NewDescription
			}
			return inMem.expenses[i], nil
		}
	}
	return expenseModel.Expense{}, appErrors.ErrorResponse{
		Code:    appErrors.ErrNotFound,
		Message: "Expense not found.",
	}
}

func (inMem *InMemoryStorage) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	inMem.mu.Lock()
	defer inMem.mu.Unlock()

	for i, e := range inMem.expenses {
		if e.ID == expenseId && e.CreatedBy == userId {
			inMem.expenses = append(inMem.expenses[:i], inMem.expenses[i+1:]...)
			return nil
		}
	}
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrNotFound,
		Message: "Expense not found.",
	}
}
