package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const SmoothingQueue = "answer_smoothing"

// SmoothingTask is the message body consumed by the smoothing worker.
type SmoothingTask struct {
	AnswerID uint `json:"answer_id"`
}

type RabbitMQQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQQueue(url string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{conn: conn, channel: channel}
	if _, err := q.declareQueue(SmoothingQueue); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

func (q *RabbitMQQueue) declareQueue(name string) (amqp.Queue, error) {
	return q.channel.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *RabbitMQQueue) EnqueueSmoothing(ctx context.Context, answerID uint) error {
	body, err := json.Marshal(SmoothingTask{AnswerID: answerID})
	if err != nil {
		return err
	}

	return q.channel.PublishWithContext(
		ctx,
		"",             // exchange
		SmoothingQueue, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
}

// Consume hands deliveries to a smoothing worker. Acks are manual so the
// broker retries on worker failure.
func (q *RabbitMQQueue) Consume() (<-chan amqp.Delivery, error) {
	return q.channel.Consume(
		SmoothingQueue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
}

func (q *RabbitMQQueue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
