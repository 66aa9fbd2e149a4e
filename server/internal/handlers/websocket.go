package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"captcha-client/server/internal/config"
	"captcha-client/server/internal/db"
	"captcha-client/server/internal/models"

	"github.com/gofiber/websocket/v2"
)

// AuthRequest is the first message a worker sends over the socket.
type AuthRequest struct {
	APIKey string `json:"api_key"`
}

// HandleWebSocket drives one solver worker connection: authenticate by API
// key, then serve get_task / submit_solution commands until the peer goes
// away.
func HandleWebSocket(c *websocket.Conn) {
	defer c.Close()

	_, msg, err := c.ReadMessage()
	if err != nil {
		log.Println("auth read error:", err)
		return
	}

	var auth AuthRequest
	if err := json.Unmarshal(msg, &auth); err != nil {
		log.Println("Invalid auth JSON over WebSocket")
		return
	}

	// Workers only; clients talk to the JSON API.
	var user models.User
	err = config.DB.QueryRow(
		"SELECT id, username, role, balance FROM users WHERE api_key = ? AND (role = 'worker' OR role = 'admin')",
		auth.APIKey).Scan(&user.ID, &user.Username, &user.Role, &user.Balance)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Println("Invalid API key over WebSocket:", auth.APIKey)
		} else {
			log.Println("Error checking API key:", err)
		}
		return
	}

	log.Printf("WebSocket authorized for %s (ID: %d, role: %s)", user.Username, user.ID, user.Role)

	authOK := map[string]string{"status": "ok", "balance": fmt.Sprintf("%.2f", user.Balance), "username": user.Username}
	if err := c.WriteJSON(authOK); err != nil {
		log.Println("Error sending auth success message:", err)
		return
	}

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			log.Println("WebSocket read error:", err)
			break
		}

		var commandMsg struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal(msgBytes, &commandMsg); err != nil {
			log.Println("Invalid message JSON:", err)
			continue
		}

		switch commandMsg.Command {
		case "get_task":
			fetchAndSendTask(c, &user)

		case "submit_solution":
			var solution models.WorkerTask
			if err := json.Unmarshal(msgBytes, &solution); err != nil {
				log.Println("Invalid solution JSON:", err)
				continue
			}
			if solution.TaskID == "" || solution.Solution == "" {
				continue
			}

			if err := db.SaveSolution(solution.TaskID, user.ID, solution.Solution); err != nil {
				log.Printf("Error saving solution for task %s: %v", solution.TaskID, err)
				writeStatus(c, "error", "Failed to save solution")
				continue
			}
			log.Printf("Received solution for task %s from worker %s", solution.TaskID, user.Username)
			writeStatus(c, "solution_saved", "")

		default:
			log.Printf("Unknown command: %s", commandMsg.Command)
			writeStatus(c, "error", "Unknown command")
		}
	}
}

func fetchAndSendTask(c *websocket.Conn, user *models.User) {
	task, err := db.ClaimNextTask(user.ID)
	if err != nil {
		if err == db.ErrNoTask {
			writeStatus(c, "no_tasks", "")
		} else {
			log.Println("Error claiming task:", err)
			writeStatus(c, "error", "Database error")
		}
		return
	}

	out := models.WorkerTask{
		Type:    task.Type,
		SiteKey: task.WebsiteKey,
		URL:     task.WebsiteURL,
		TaskID:  task.TaskID,
	}

	if err := c.WriteJSON(out); err != nil {
		log.Println("Error sending task over WebSocket:", err)
		// Failed to deliver, put the task back for another worker.
		db.ReleaseTask(task.TaskID)
		return
	}
	log.Printf("Task %s assigned to worker %s (ID: %d)", task.TaskID, user.Username, user.ID)
}

func writeStatus(c *websocket.Conn, status, message string) {
	out := map[string]string{"status": status}
	if message != "" {
		out["message"] = message
	}
	if err := c.WriteJSON(out); err != nil {
		log.Println("Error sending status message:", err)
	}
}
