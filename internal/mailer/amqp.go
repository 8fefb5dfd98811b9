package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// AMQPMailer publishes magic-link messages to a broker for the delivery
// worker to consume.
type AMQPMailer struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *slog.Logger
}

// NewAMQPMailer dials the broker and declares the exchange, queue and
// binding.
func NewAMQPMailer(url, exchangeName, queueName string, logger *slog.Logger) (*AMQPMailer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	m := &AMQPMailer{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}

	if err := m.setup(); err != nil {
		m.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return m, nil
}

func (m *AMQPMailer) setup() error {
	err := m.channel.ExchangeDeclare(
		m.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = m.channel.QueueDeclare(
		m.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = m.channel.QueueBind(
		m.queueName,    // queue name
		m.queueName,    // routing key (same as queue name for direct exchange)
		m.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// SendMagicLink publishes a delivery message for the login link.
func (m *AMQPMailer) SendMagicLink(ctx context.Context, email, link string) error {
	msg := NewMagicLinkMessage(email, link)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = m.channel.PublishWithContext(
		ctx,
		m.exchangeName, // exchange
		m.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	m.logger.Info("published magic link mail",
		"email", email,
		"exchange", m.exchangeName,
		"queue", m.queueName)

	return nil
}

func (m *AMQPMailer) Close() error {
	if m.channel != nil {
		m.channel.Close()
	}
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
