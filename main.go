package main

import (
	"fmt"
	"net/http"

	"github.com/0xcafe-io/iz"
	"github.com/StrawThePie/expense-tracker-api/api"
	"github.com/StrawThePie/expense-tracker-api/config"
	"github.com/StrawThePie/expense-tracker-api/internal/auth"
	"github.com/StrawThePie/expense-tracker-api/internal/expense"
	"github.com/StrawThePie/expense-tracker-api/internal/storage"
	"github.com/StrawThePie/expense-tracker-api/logging"
	"github.com/rs/cors"
)

var corsConf = cors.New(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	AllowedHeaders:   []string{"Authorization", "Content-Type"},
	AllowCredentials: true,
})

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("failed to load configuration:", err)
		return
	}

	if err := logging.Init(cfg.AppEnv, "debug"); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return
	}

	logging.Logger.Info("application starting...")

	db, err := storage.Init(cfg)
	if err != nil {
		logging.Logger.Errorf("failed to initialize database: %v", err)
		return
	}

	storageInstance := storage.NewMySQLStorage(db)

	tokenService, err := auth.NewTokenService(cfg)
	if err != nil {
		logging.Logger.Errorf("failed to create token service: %v", err)
		return
	}

	tracker := expense.NewTracker(storageInstance, tokenService)

	server := http.NewServeMux()
	api := api.NewApi(&tracker)

	// AUTH ENDPOINTS.
	server.HandleFunc("POST /auth/signup", iz.Bind(api.SaveUserHandler)) // Create User
	server.HandleFunc("POST /auth/login", iz.Bind(api.LoginUserHandler)) // Login User, returns access token

	// EXPENSE ENDPOINTS.
	server.HandleFunc("POST /expenses/", iz.Bind(api.SaveExpenseHandler))          // Create Expense
	server.HandleFunc("GET /expenses/", iz.Bind(api.GetFilteredExpensesHandler))   // Get Expenses with period filters
	server.HandleFunc("GET /expenses/{id}", iz.Bind(api.GetExpenseByIdHandler))    // Get Expense by ID
	server.HandleFunc("PUT /expenses/{id}", iz.Bind(api.UpdateExpenseHandler))     // Update Expense
	server.HandleFunc("DELETE /expenses/{id}", iz.Bind(api.DeleteExpenseHandler))  // Delete Expense

	// HEALTH ENDPOINT.
	server.HandleFunc("GET /health", iz.Bind(api.HealthHandler))

	fmt.Println("Starting server on port: ", cfg.AppPort)
	handlerwithCors := corsConf.Handler(server)
	err = http.ListenAndServe(":"+cfg.AppPort, handlerwithCors) // Start the server
	if err != nil {
		logging.Logger.Errorf("failed to start server: %v", err)
		return
	}
}
