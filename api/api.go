package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/0xcafe-io/iz"
	appErrors "github.com/StrawThePie/expense-tracker-api/apperrors"
	"github.com/StrawThePie/expense-tracker-api/internal/auth"
	"github.com/StrawThePie/expense-tracker-api/internal/contextutil"
	"github.com/StrawThePie/expense-tracker-api/internal/expense"
	"github.com/StrawThePie/expense-tracker-api/logging"
	"github.com/google/uuid"
)

type Api struct {
	Service *expense.Tracker
}

func NewApi(service *expense.Tracker) *Api {
	return &Api{
		Service: service,
	}
}

func requestContext(r *iz.Request) context.Context {
	return contextutil.WithTraceID(r.Context(), uuid.New().String())
}

func extractBearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func (api *Api) authorize(ctx context.Context, r *iz.Request) (auth.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Authorization header is required.",
		}
	}

	token := extractBearerToken(header)
	if token == "" {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Authorization header must carry a bearer token.",
		}
	}

	return api.Service.ResolveToken(ctx, token)
}

func (api *Api) HealthHandler(r *iz.Request) iz.Responder {
	return iz.Respond().Status(200).JSON(HealthResponse{Status: "ok"})
}

func (api *Api) SaveUserHandler(r *iz.Request) iz.Responder {
	ctx := requestContext(r)

	var signupReq SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&signupReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	newUser := auth.NewUser{
		Email:         signupReq.Email,
		PasswordPlain: signupReq.Password,
	}

	if err := newUser.ValidateUserFields(); err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	user, err := api.Service.RegisterUser(ctx, newUser)
	if err != nil {
		msg := fmt.Sprintf("registration failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := UserCreatedResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format("02/01/2006 15:04"),
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) LoginUserHandler(r *iz.Request) iz.Responder {
	ctx := requestContext(r)

	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		return iz.Respond().Status(400).Text("invalid request body")
	}

	credentials := auth.UserCredentialsPure{
		Email:         loginReq.Email,
		PasswordPlain: loginReq.Password,
	}

	token, err := api.Service.Authenticate(ctx, credentials)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	resp := LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) SaveExpenseHandler(r *iz.Request) iz.Responder {
	ctx := requestContext(r)

	user, err := api.authorize(ctx, r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var createReq CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		logging.Logger.Errorf("Failed to parse save expense request: %v", err)
		msg := fmt.Sprintf("failed to parse save expense request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	if createReq.Amount == nil {
		return iz.Respond().Status(400).Text("expense amount is required")
	}

	newExpense := expense.ExpenseRequest{
		Amount:      *createReq.Amount,
		Category:    createReq.Category,
		Description: createReq.Description,
	}

	e, err := api.Service.SaveExpense(ctx, user.ID, newExpense)
	if err != nil {
		msg := fmt.Sprintf("failed to create expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(201).JSON(ExpenseToHttp(e))
}

func (api *Api) GetFilteredExpensesHandler(r *iz.Request) iz.Responder {
	ctx := requestContext(r)

	user, err := api.authorize(ctx, r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	filters, err := ListValidateParams(r.URL.Query())
	if err != nil {
		msg := fmt.Sprintf("invalid filter parameteres: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	expenses, err := api.Service.GetFilteredExpenses(ctx, user.ID, filters)
	if err != nil {
		logging.Logger.Errorf("Failed to get filtered expenses request: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text("failed to get expenses")
	}

	resp := ListExpensesResponse{
		Expenses: make([]ExpenseItem, 0, len(expenses)),
	}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, ExpenseToHttp(e))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetExpenseByIdHandler(r *iz.Request) iz.Responder {
	ctx := requestContext(r)

	user, err := api.authorize(ctx, r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	expenseId := r.PathValue("id")

	e, err := api.Service.GetExpenseById(ctx, user.ID, expenseId)
	if err != nil {
		msg := fmt.Sprintf("failed to get expense by ID: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(200).JSON(ExpenseToHttp(e))
}

func (api *Api) UpdateExpenseHandler(r *iz.Request) iz.Responder {
	ctx := requestContext(r)

	user, err := api.authorize(ctx, r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	expenseId := r.PathValue("id")

	var updateReq UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		msg := fmt.Sprintf("failed to parse update expense request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	fields := expense.UpdateExpenseRequest{
		NewAmount:      updateReq.Amount,
		NewCategory:    updateReq.Category,
		NewDescription: updateReq.Description,
	}

	e, err := api.Service.UpdateExpense(ctx, user.ID, expenseId, fields)
	if err != nil {
		msg := fmt.Sprintf("failed to update expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(200).JSON(ExpenseToHttp(e))
}

func (api *Api) DeleteExpenseHandler(r *iz.Request) iz.Responder {
	ctx := requestContext(r)

	user, err := api.authorize(ctx, r)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	expenseId := r.PathValue("id")

	if err := api.Service.DeleteExpense(ctx, user.ID, expenseId); err != nil {
		msg := fmt.Sprintf("failed to delete expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(204).Text("")
}
