package api

import (
	"fmt"
	"net/url"
	"time"

	appErrors "github.com/StrawThePie/expense-tracker-api/apperrors"
	"github.com/StrawThePie/expense-tracker-api/internal/expense"
)

// REQUESTS START:
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateExpenseRequest struct {
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
}

type UpdateExpenseRequest struct {
	Amount      *float64 `json:"amount"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
}

//REQUESTS END:

//RESPONSES:

type UserCreatedResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ExpenseItem struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
	CreatedBy   string  `json:"created_by"`
}

type ListExpensesResponse struct {
	Expenses []ExpenseItem `json:"expenses"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrExpired:
		return 401 // unauthorized, token past its expiry
	case appErrors.ErrAccessDenied:
		return 403 // access denied
	case appErrors.ErrConflict:
		return 409 // conflict
	default:
		return 500 //internal error
	}
}

func ExpenseToHttp(e expense.Expense) ExpenseItem {
	return ExpenseItem{
		ID:          e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		CreatedAt:   e.CreatedAt.Format("02/01/2006 15:04"),
		CreatedBy:   e.CreatedBy,
	}
}

func parseDateParam(value string) (time.Time, error) {
	if date, err := time.Parse(time.RFC3339, value); err == nil {
		return date, nil
	}
	return time.Parse("2006-01-02", value)
}

// ListValidateParams resolves the period query params into a listing window.
// Absent and unrecognized period values both mean an unfiltered listing.
func ListValidateParams(params url.Values) (*expense.ExpenseList, error) {
	var filters expense.ExpenseList
	now := time.Now().UTC()

	switch params.Get("period") {
	case "week":
		filters.CreatedAt = now.AddDate(0, 0, -7)
	case "month":
		filters.CreatedAt = now.AddDate(0, 0, -30)
	case "3months":
		filters.CreatedAt = now.AddDate(0, 0, -90)
	case "custom":
		startStr := params.Get("start_date")
		endStr := params.Get("end_date")
		if startStr == "" || endStr == "" {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: "start_date and end_date are required for custom period",
			}
		}
		start, err := parseDateParam(startStr)
		if err != nil {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("invalid start_date: %s", startStr),
			}
		}
		end, err := parseDateParam(endStr)
		if err != nil {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("invalid end_date: %s", endStr),
			}
		}
		filters.CreatedAt = start
		filters.EndDate = end
	default:
		filters.IsAllNil = true
	}

	return &filters, nil
}
