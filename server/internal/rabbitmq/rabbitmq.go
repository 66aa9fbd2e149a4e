package rabbitmq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"captcha-client/server/internal/config"
	"captcha-client/server/internal/db"
	"captcha-client/server/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	Conn    *amqp.Connection
	Channel *amqp.Channel
)

// Connect dials RabbitMQ and declares the task queue.
func Connect(url string) {
	var err error
	Conn, err = amqp.Dial(url)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	Channel, err = Conn.Channel()
	if err != nil {
		log.Fatalf("Failed to open RabbitMQ channel: %v", err)
	}
	_, err = Channel.QueueDeclare(
		config.QueueName, // queue name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		log.Fatalf("Failed to declare queue: %v", err)
	}
}

// PublishTask puts a created task on the queue. A nil channel (queue not
// connected, as in tests) is reported as a no-op: the task is already
// persisted and workers claim from the database, so dispatch still works.
func PublishTask(task *models.CaptchaTask) error {
	if Channel == nil {
		log.Println("RabbitMQ not connected, skipping publish for task", task.TaskID)
		return nil
	}

	body, err := json.Marshal(task)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return Channel.PublishWithContext(ctx,
		"",               // exchange
		config.QueueName, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}

// ConsumeTasks reads task messages off the queue and mirrors them into the
// database. Runs until the channel closes.
func ConsumeTasks() {
	msgs, err := Channel.Consume(
		config.QueueName, // queue
		"",               // consumer
		true,             // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	if err != nil {
		log.Fatalf("Failed to register consumer: %v", err)
	}

	for msg := range msgs {
		var task models.CaptchaTask
		if err := json.Unmarshal(msg.Body, &task); err != nil {
			log.Println("Error decoding queue message:", err)
			continue
		}
		if err := db.UpsertTask(&task); err != nil {
			log.Println("Error mirroring task to DB:", err)
			continue
		}
		log.Printf("Task %s received from queue", task.TaskID)
	}
}
