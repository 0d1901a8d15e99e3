package expense

import (
	"time"
)

// REQUESTS START:
type ExpenseRequest struct {
	Amount      float64
	Category    string
	Description string
}

type UpdateExpenseRequest struct {
	NewAmount      *float64
	NewCategory    *string
	NewDescription *string
}

// REQUESTS END:

// MODELS:

type Expense struct {
	ID          string
	Amount      float64
	Category    string
	Description string
	CreatedAt   time.Time
	CreatedBy   string
}

// ExpenseList carries the resolved listing window: CreatedAt is the lower
// bound and EndDate the inclusive upper bound; zero values mean unbounded.
type ExpenseList struct {
	CreatedAt time.Time
	EndDate   time.Time
	IsAllNil  bool
}
