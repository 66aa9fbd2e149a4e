package models

import "time"

// Task statuses as reported through getTaskResult.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Error codes reported to polling clients.
const (
	ErrCodeKeyDenied         = "ERROR_KEY_DENIED"
	ErrCodeNoSuchTask        = "ERROR_NO_SUCH_TASK"
	ErrCodeCaptchaUnsolvable = "ERROR_CAPTCHA_UNSOLVABLE"
	ErrCodeTaskExpired       = "ERROR_TASK_EXPIRED"
	ErrCodeBadRequest        = "ERROR_BAD_REQUEST"
)

// CaptchaTask is one submitted challenge as stored in the tasks table.
type CaptchaTask struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"` // opaque identifier handed to clients
	UserID     int64     `json:"user_id"`
	SolverID   int64     `json:"solver_id,omitempty"`
	Type       string    `json:"type"`
	WebsiteURL string    `json:"website_url"`
	WebsiteKey string    `json:"website_key"`
	Solution   string    `json:"solution,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Status maps the stored row to the status a polling client sees.
func (t *CaptchaTask) Status() string {
	switch {
	case t.ErrorCode != "":
		return StatusFailed
	case t.Solution != "":
		return StatusReady
	default:
		return StatusProcessing
	}
}

// WorkerTask is the simple task structure for WebSocket communication
// with solver workers.
type WorkerTask struct {
	Type     string `json:"type"`
	SiteKey  string `json:"sitekey"`
	URL      string `json:"url"`
	TaskID   string `json:"task_id"`
	Solution string `json:"solution,omitempty"` // For sending solutions back
}
