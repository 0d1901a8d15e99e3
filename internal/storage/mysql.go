package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	appErrors "github.com/StrawThePie/expense-tracker-api/apperrors"
	"github.com/StrawThePie/expense-tracker-api/config"
	"github.com/StrawThePie/expense-tracker-api/internal/auth"
	"github.com/StrawThePie/expense-tracker-api/internal/contextutil"
	"github.com/StrawThePie/expense-tracker-api/internal/expense"
	"github.com/StrawThePie/expense-tracker-api/logging"
	"github.com/go-sql-driver/mysql"
)

// --- INIT START --- //

func Init(cfg config.Config) (*sql.DB, error) {
	var adminDsn string
	if cfg.FullDSN != "" {
		parts := strings.Split(cfg.FullDSN, "/")
		adminDsn = strings.Join(parts[:len(parts)-1], "/") + "/"
	} else {
		if cfg.DBUser == "" || cfg.DBPass == "" || cfg.DBHost == "" || cfg.DBPort == "" {
			return nil, fmt.Errorf("missing required DB environment variables")
		}
		adminDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort)
	}

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", adminDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin mysql handle: %v", err)
	}
	connected := false
	for i := 0; i < 15; i++ {
		if err := adminDb.Ping(); err == nil {
			connected = true
			break
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/15)", i+1)
		time.Sleep(3 * time.Second)
	}
	if !connected {
		return nil, fmt.Errorf("database unreachable after multiple attempts")
	}

	var dbnameExistence string
	checkDbnameExistQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	err = adminDb.QueryRow(checkDbnameExistQuery, cfg.DBName).Scan(&dbnameExistence)

	if err == sql.ErrNoRows {
		logging.Logger.Infof("Database '%s' does not exist, creating...", cfg.DBName)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", cfg.DBName)
		if _, err := adminDb.Exec(createDbSql); err != nil {
			adminDb.Close()
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	} else if err != nil {
		adminDb.Close()
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	adminDb.Close()

	var finalDsn string
	if cfg.FullDSN != "" {
		finalDsn = cfg.FullDSN
	} else {
		finalDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}

	logging.Logger.Info("Connecting to database...")
	db, err := sql.Open("mysql", finalDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %v", err)
	}

	if _, err := db.Exec("SET GLOBAL time_zone = '+00:00'"); err != nil {
		logging.Logger.Warn("failed to set database timezone(UTC+0)")
	}

	logging.Logger.Info("Connected to database successfully")
	logging.Logger.Info("Running migrations...")

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrationFiles, err := getMigrationFiles("db/migrations")
	if err != nil {
		return fmt.Errorf("failed to get migration files: %v", err)
	}

	lastAppliedMigration, err := getLastAppliedMigration(db)
	if err != nil {
		return fmt.Errorf("failed to get last applied migration name: %v", err)
	}

	newMigrations := filterNewMigrations(migrationFiles, lastAppliedMigration)

	if len(newMigrations) == 0 {
		logging.Logger.Info("no new migration")
		return nil
	}

	for _, migrationFile := range newMigrations {
		logging.Logger.Info("applying migration: ", migrationFile)
		migrationContent, err := os.ReadFile(filepath.Join("db/migrations/", migrationFile))
		if err != nil {
			return fmt.Errorf("failed to read this '%s' migration file, error: %v", migrationFile, err)
		}

		err = applyMigration(db, migrationFile, string(migrationContent))
		if err != nil {
			return fmt.Errorf("failed to apply this '%s' migration file, error: %v", migrationFile, err)
		}

	}

	logging.Logger.Info("all migrations applied successfully")
	return nil
}

func getMigrationFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	return migrationFiles, nil
}

func getLastAppliedMigration(db *sql.DB) (string, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migration (
        id INT AUTO_INCREMENT PRIMARY KEY,
        migration_name VARCHAR(255) NOT NULL UNIQUE,
        applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );`)

	if err != nil {
		return "", err
	}

	var lastMigration string
	err = db.QueryRow("SELECT migration_name FROM migration ORDER BY migration_name DESC LIMIT 1").Scan(&lastMigration)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return lastMigration, err
}

func filterNewMigrations(all []string, lastApplied string) []string {
	if lastApplied == "" {
		return all
	}

	var result []string
	for _, migration := range all {
		if migration > lastApplied {
			result = append(result, migration)
		}
	}
	return result
}

func applyMigration(db *sql.DB, name, sqlContent string) error {
	txn, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	statements := strings.Split(sqlContent, ";")

	for _, statement := range statements {
		trimmedStmt := strings.TrimSpace(statement)
		if trimmedStmt == "" {
			continue
		}

		if _, err := txn.Exec(trimmedStmt); err != nil {
			txn.Rollback()
			return fmt.Errorf("migration statement failed: %w\nStatement: %s", err, trimmedStmt)
		}
	}

	if _, err := txn.Exec("INSERT INTO migration (migration_name) VALUES (?)", name); err != nil {
		txn.Rollback()
		return fmt.Errorf("failed to record migration name: %w", err)
	}

	return txn.Commit()
}

// --- INIT END --- //

type MySQLStorage struct {
	db *sql.DB
}

func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

func (mySql *MySQLStorage) GetStorageType() string {
	return "mysql"
}

func (mySql *MySQLStorage) SaveUser(ctx context.Context, user auth.User) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO user (id, email, hashed_password, created_at) VALUES (?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, user.ID, user.Email, user.PasswordHashed, user.CreatedAt)
	if err != nil {
		if mysqlErr, ok := err.(*mysql.MySQLError); ok {
			if mysqlErr.Number == 1062 {
				return appErrors.ErrorResponse{
					Code:    appErrors.ErrConflict,
					Message: "Email already registered.",
				}
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to save user in Storage.SaveUser() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Registration failed, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id FROM user WHERE email = ?;"
	var userId string
	err := mySql.db.QueryRow(query, email).Scan(&userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check email existance in Storage.IsEmailTaken() function | Error: %v", traceID, err)
		return false, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check email availability, try again later.",
		}
	}
	return true, nil
}

// ValidateUser returns the same error for an unknown email and a wrong
// password, so a caller cannot probe which emails are registered.
func (mySql *MySQLStorage) ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	invalidCredentials := appErrors.ErrorResponse{
		Code:    appErrors.ErrAuth,
		Message: "Invalid email or password.",
	}

	query := "SELECT id, email, hashed_password, created_at FROM user WHERE email = ?;"
	row := mySql.db.QueryRow(query, credentials.Email)

	var user auth.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHashed, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, invalidCredentials
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get user by email in Storage.ValidateUser() function | Error: %v", traceID, err)
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Login failed, try again later.",
		}
	}

	if !auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
		return auth.User{}, invalidCredentials
	}

	return user, nil
}

func (mySql *MySQLStorage) GetUserById(ctx context.Context, userId string) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, email, hashed_password, created_at FROM user WHERE id = ?;"
	row := mySql.db.QueryRow(query, userId)

	var user auth.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHashed, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Invalid token, please login.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get user by id in Storage.GetUserById() function | Error: %v", traceID, err)
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to resolve user, try again later.",
		}
	}
	return user, nil
}

func (mySql *MySQLStorage) SaveExpense(ctx context.Context, e expense.Expense) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO expense (id, amount, category, description, created_at, created_by) VALUES (?, ?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, e.ID, e.Amount, e.Category, e.Description, e.CreatedAt, e.CreatedBy)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save expense in Storage.SaveExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save expense, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) processExpenseRows(ctx context.Context, rows *sql.Rows) ([]expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	defer rows.Close()

	var expenses []expense.Expense

	for rows.Next() {
		var e expense.Expense

		err := rows.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &e.CreatedAt, &e.CreatedBy)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.processExpenseRows() function | Error : %v", traceID, err)
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to get expenses, try again later.",
			}
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.processExpenseRows() function | Error : %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get expenses, try again later.",
		}
	}

	return expenses, nil
}

func (mySql *MySQLStorage) GetFilteredExpenses(ctx context.Context, userId string, filters *expense.ExpenseList) ([]expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	query := "SELECT id, amount, category, description, created_at, created_by FROM expense WHERE created_by = ?"
	args := []interface{}{userId}

	if filters.IsAllNil {
		query += " ORDER BY created_at DESC;"
		rows, err := mySql.db.Query(query, args...)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to get all expenses in Storage.GetFilteredExpenses() function | Error : %v", traceID, err)
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to get expenses, try again later.",
			}
		}
		return mySql.processExpenseRows(ctx, rows)
	}

	if !filters.CreatedAt.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filters.CreatedAt)
	}

	if !filters.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filters.EndDate)
	}

	query += " ORDER BY created_at DESC;"
	rows, err := mySql.db.Query(query, args...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get filtered expenses in Storage.GetFilteredExpenses() function | Error : %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get expenses, try again later.",
		}
	}
	return mySql.processExpenseRows(ctx, rows)
}

func (mySql *MySQLStorage) GetExpenseById(ctx context.Context, userId string, expenseId string) (expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, amount, category, description, created_at, created_by FROM expense WHERE created_by = ? AND id = ?;"
	row := mySql.db.QueryRow(query, userId, expenseId)

	var e expense.Expense
	err := row.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &e.CreatedAt, &e.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return expense.Expense{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Expense not found.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.GetExpenseById() function | Error : %v", traceID, err)
		return expense.Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get expense, try again later.",
		}
	}

	return e, nil
}

func (mySql *MySQLStorage) UpdateExpense(ctx context.Context, userId string, expenseId string, fields expense.UpdateExpenseRequest) (expense.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var sets []string
	var args []interface{}

	if fields.NewAmount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *fields.NewAmount)
	}
	if fields.NewCategory != nil {
		sets = append(sets, "category = ?")
		args = append(args, *fields.NewCategory)
	}
	if fields.NewDescription != nil {
		sets = append(sets, "description = ?")
		args = append(args, *fields.NewDescription)
	}

	if len(sets) > 0 {
		query := "UPDATE expense SET " + strings.Join(sets, ", ") + " WHERE created_by = ? AND id = ?;"
		args = append(args, userId, expenseId)
		_, err := mySql.db.Exec(query, args...)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to update expense in Storage.UpdateExpense() function | Error : %v", traceID, err)
			return expense.Expense{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to update expense, try again later.",
			}
		}
	}

	return mySql.GetExpenseById(ctx, userId, expenseId)
}

func (mySql *MySQLStorage) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "DELETE FROM expense WHERE created_by = ? AND id = ?;"
	result, err := mySql.db.Exec(query, userId, expenseId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete expense in Storage.DeleteExpense() function | Error : %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete expense, try again later.",
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check expense delete status in Storage.DeleteExpense() function | Error : %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete expense, try again later.",
		}
	}
	if rowsAffected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Expense not found.",
		}
	}

	return nil
}
