package db

import (
	"database/sql"
	"errors"
	"time"

	"captcha-client/server/internal/config"
	"captcha-client/server/internal/models"
)

var ErrNoTask = errors.New("no task available")

// InsertTask stores a freshly created task.
func InsertTask(task *models.CaptchaTask) error {
	res, err := config.DB.Exec(
		"INSERT INTO tasks (task_id, user_id, captcha_type, website_url, website_key, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		task.TaskID, task.UserID, task.Type, task.WebsiteURL, task.WebsiteKey, task.CreatedAt)
	if err != nil {
		return err
	}
	task.ID, _ = res.LastInsertId()
	return nil
}

// GetTaskForUser fetches a task by its opaque id, scoped to the user who
// created it. A task id is meaningful only with the key that created it.
func GetTaskForUser(taskID string, userID int64) (*models.CaptchaTask, error) {
	var (
		task     models.CaptchaTask
		solverID sql.NullInt64
		solution sql.NullString
		errCode  sql.NullString
	)
	err := config.DB.QueryRow(`
		SELECT id, task_id, user_id, solver_id, captcha_type, website_url, website_key, solution, error_code, created_at
		FROM tasks
		WHERE task_id = ? AND user_id = ?
	`, taskID, userID).Scan(
		&task.ID, &task.TaskID, &task.UserID, &solverID,
		&task.Type, &task.WebsiteURL, &task.WebsiteKey,
		&solution, &errCode, &task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if solverID.Valid {
		task.SolverID = solverID.Int64
	}
	if solution.Valid {
		task.Solution = solution.String
	}
	if errCode.Valid {
		task.ErrorCode = errCode.String
	}
	return &task, nil
}

// ClaimNextTask assigns the oldest unsolved, unassigned task to the given
// worker and returns it. ErrNoTask when the queue is empty.
func ClaimNextTask(solverID int64) (*models.CaptchaTask, error) {
	var task models.CaptchaTask
	err := config.DB.QueryRow(`
		SELECT id, task_id, captcha_type, website_url, website_key
		FROM tasks
		WHERE solver_id IS NULL AND (solution IS NULL OR solution = '') AND error_code IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`).Scan(&task.ID, &task.TaskID, &task.Type, &task.WebsiteURL, &task.WebsiteKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoTask
		}
		return nil, err
	}

	if _, err := config.DB.Exec("UPDATE tasks SET solver_id = ? WHERE id = ?", solverID, task.ID); err != nil {
		return nil, err
	}
	task.SolverID = solverID
	return &task, nil
}

// ReleaseTask unassigns a claimed task so another worker can pick it up.
func ReleaseTask(taskID string) {
	_, _ = config.DB.Exec("UPDATE tasks SET solver_id = NULL WHERE task_id = ?", taskID)
}

// SaveSolution stores a worker's token for the task it claimed.
func SaveSolution(taskID string, solverID int64, token string) error {
	res, err := config.DB.Exec(
		"UPDATE tasks SET solution = ? WHERE task_id = ? AND solver_id = ?",
		token, taskID, solverID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FailTask marks a task as terminally failed with the given error code.
func FailTask(taskID, code string) error {
	_, err := config.DB.Exec("UPDATE tasks SET error_code = ? WHERE task_id = ?", code, taskID)
	return err
}

// ExpireIfStale fails an unsolved task whose age exceeds config.TaskExpiry.
// Returns true when the task was expired by this call.
func ExpireIfStale(task *models.CaptchaTask) (bool, error) {
	if task.Solution != "" || task.ErrorCode != "" {
		return false, nil
	}
	if time.Since(task.CreatedAt) < config.TaskExpiry {
		return false, nil
	}
	if err := FailTask(task.TaskID, models.ErrCodeTaskExpired); err != nil {
		return false, err
	}
	task.ErrorCode = models.ErrCodeTaskExpired
	return true, nil
}

// QueueCount returns the number of tasks waiting for a worker.
func QueueCount() (int, error) {
	var count int
	err := config.DB.QueryRow(
		"SELECT COUNT(*) FROM tasks WHERE solver_id IS NULL AND (solution IS NULL OR solution = '') AND error_code IS NULL",
	).Scan(&count)
	return count, err
}

// ListTasks returns every task, newest first, for the dashboard.
func ListTasks() ([]*models.CaptchaTask, error) {
	rows, err := config.DB.Query(`
		SELECT id, task_id, user_id, solver_id, captcha_type, website_url, website_key, solution, error_code, created_at
		FROM tasks
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.CaptchaTask
	for rows.Next() {
		var (
			task     models.CaptchaTask
			solverID sql.NullInt64
			solution sql.NullString
			errCode  sql.NullString
		)
		if err := rows.Scan(
			&task.ID, &task.TaskID, &task.UserID, &solverID,
			&task.Type, &task.WebsiteURL, &task.WebsiteKey,
			&solution, &errCode, &task.CreatedAt,
		); err != nil {
			continue
		}
		if solverID.Valid {
			task.SolverID = solverID.Int64
		}
		if solution.Valid {
			task.Solution = solution.String
		}
		if errCode.Valid {
			task.ErrorCode = errCode.String
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// UpsertTask refreshes a task row from a queue message, inserting it if the
// consumer sees it before the API's own insert landed.
func UpsertTask(task *models.CaptchaTask) error {
	_, err := config.DB.Exec(`
		INSERT INTO tasks (task_id, user_id, captcha_type, website_url, website_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO NOTHING
	`, task.TaskID, task.UserID, task.Type, task.WebsiteURL, task.WebsiteKey, task.CreatedAt)
	return err
}

// GetUserByAPIKey resolves an account from its API key.
func GetUserByAPIKey(apiKey string) (*models.User, error) {
	var (
		user    models.User
		keyDB   sql.NullString
		balance sql.NullFloat64
	)
	err := config.DB.QueryRow(
		"SELECT id, username, role, api_key, balance, created_at FROM users WHERE api_key = ?", apiKey).
		Scan(&user.ID, &user.Username, &user.Role, &keyDB, &balance, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	if keyDB.Valid {
		user.APIKey = keyDB.String
	}
	if balance.Valid {
		user.Balance = balance.Float64
	}
	return &user, nil
}
