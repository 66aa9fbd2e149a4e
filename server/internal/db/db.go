package db

import (
	"database/sql"
	"log"

	"captcha-client/server/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// Connect opens (or creates) the SQLite database at path and bootstraps
// the schema. The handle is stored in config.DB.
func Connect(path string) {
	var err error
	config.DB, err = sql.Open("sqlite3", path)
	if err != nil {
		log.Fatalf("Error opening DB: %v", err)
	}
	if err := createTables(); err != nil {
		log.Fatalf("Error creating tables: %v", err)
	}
	config.CreateDefaultAdmin()
}

func createTables() error {
	// Create users table.
	_, err := config.DB.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		api_key TEXT,
		balance REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)
	`)
	if err != nil {
		return err
	}

	// Create tasks table. task_id is the opaque identifier handed to
	// clients; the integer id stays internal.
	_, err = config.DB.Exec(`
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL,
		solver_id INTEGER,
		captcha_type TEXT NOT NULL,
		website_url TEXT NOT NULL,
		website_key TEXT NOT NULL,
		solution TEXT,
		error_code TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(solver_id) REFERENCES users(id)
	)
	`)
	return err
}
