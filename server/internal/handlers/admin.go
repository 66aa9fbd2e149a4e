package handlers

import (
	"fmt"
	"time"

	"captcha-client/server/internal/config"
	"captcha-client/server/internal/db"
	"captcha-client/server/internal/models"
	"captcha-client/server/internal/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// ShowTaskList renders the tasks dashboard.
func ShowTaskList(c *fiber.Ctx) error {
	tasks, err := db.ListTasks()
	if err != nil {
		return c.Status(500).SendString("Error getting tasks")
	}

	count, _ := db.QueueCount()

	return c.Render("tasks", fiber.Map{
		"Title":      "Tasks",
		"User":       c.Locals("user").(*models.User),
		"Tasks":      tasks,
		"QueueCount": count,
	}, "layout")
}

func ShowUsersAdmin(c *fiber.Ctx) error {
	rows, err := config.DB.Query("SELECT id, username, role, api_key, created_at FROM users")
	if err != nil {
		return c.Status(500).SendString("Error getting users")
	}
	defer rows.Close()

	var userList []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Role, &user.APIKey, &user.CreatedAt); err != nil {
			continue
		}
		userList = append(userList, &user)
	}
	return c.Render("users", fiber.Map{
		"Title": "Manage Users",
		"User":  c.Locals("user").(*models.User),
		"Users": userList,
	}, "layout")
}

// CreateUser adds an account with an explicit role (admin only).
func CreateUser(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	role := c.FormValue("role")

	if username == "" || password == "" || role == "" {
		return c.Status(400).SendString("All fields are required")
	}

	if role != "admin" && role != "worker" && role != "client" {
		return c.Status(400).SendString("Invalid role")
	}

	var exists int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&exists)
	if err != nil {
		return c.Status(500).SendString("Error checking user")
	}
	if exists > 0 {
		return c.Status(400).SendString("Username already taken")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).SendString("Password hashing error")
	}

	apiKey := ""
	if role == "client" || role == "worker" {
		if key, err := utils.GenerateAPIKey(); err == nil {
			apiKey = key
		}
	}

	now := time.Now()
	_, err = config.DB.Exec("INSERT INTO users (username, password_hash, role, api_key, created_at) VALUES (?, ?, ?, ?, ?)",
		username, string(passwordHash), role, apiKey, now)
	if err != nil {
		return c.Status(500).SendString("User creation error")
	}
	return c.Redirect("/admin/users")
}

func DeleteUser(c *fiber.Ctx) error {
	idParam := c.Params("id")
	var userID int64
	if _, err := fmt.Sscan(idParam, &userID); err != nil {
		return c.Status(400).SendString("Invalid user ID")
	}

	res, err := config.DB.Exec("DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return c.Status(500).SendString("User deletion error")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return c.Status(404).SendString("User not found")
	}
	return c.SendString("OK")
}
