package client

// Wire types for the createTask / getTaskResult protocol. Field names and
// json tags follow the service's API exactly.

// Task types accepted by the service.
const (
	TaskTypeRecaptchaV2 = "ReCaptchaV2Task"
)

// Result statuses returned by getTaskResult. Anything outside this set is
// treated as a failure carrying an error code.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// TaskPayload describes the challenge to solve.
type TaskPayload struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type createTaskRequest struct {
	ClientKey string      `json:"clientKey"`
	Task      TaskPayload `json:"task"`
}

type createTaskResponse struct {
	ErrorID   int    `json:"errorId"`
	ErrorCode string `json:"errorCode"`
	TaskID    string `json:"taskId"`
}

// resultQuery is the body of a getTaskResult (and reportIncorrect) call.
// It is built once per polling loop and reused for every attempt.
type resultQuery struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

// Solution carries the solved challenge-response token.
type Solution struct {
	GRecaptchaResponse string `json:"gRecaptchaResponse"`
}

// Result is one getTaskResult response.
type Result struct {
	Status    string    `json:"status"`
	Solution  *Solution `json:"solution,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
}

type balanceRequest struct {
	ClientKey string `json:"clientKey"`
}

type balanceResponse struct {
	ErrorID   int     `json:"errorId"`
	ErrorCode string  `json:"errorCode"`
	Balance   float64 `json:"balance"`
}

type reportResponse struct {
	ErrorID   int    `json:"errorId"`
	ErrorCode string `json:"errorCode"`
}
