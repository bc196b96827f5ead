package service

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/kavyan/clipvault/internal/queue"
)

// Publisher sends a notification event to the broker. Grant paths
// treat publish failures as non-fatal: the grant itself has already
// been persisted.
type Publisher interface {
    Publish(ctx context.Context, n q.Notification) error
}

// NotifyPublisher publishes notifications to the notify.outbound
// queue over RabbitMQ. It dials per publish, which keeps the happy
// path simple and makes each publish independent of broker restarts.
type NotifyPublisher struct {
    URL string
}

// NewNotifyPublisher takes the broker URL from config so the publisher
// and the consumer always talk to the same broker.
func NewNotifyPublisher(url string) *NotifyPublisher {
    return &NotifyPublisher{URL: url}
}

// Publish marshals the notification and publishes it persistently to
// the notify.outbound queue. Any error is logged and returned so the
// caller can choose to ignore it.
func (p *NotifyPublisher) Publish(ctx context.Context, n q.Notification) error {
    if n.EventID == "" {
        n.EventID = uuid.NewString()
    }
    if n.OccurredAt == "" {
        n.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    }

    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        "notify.outbound", // name
        true,              // durable
        false,             // autoDelete
        false,             // exclusive
        false,             // noWait
        nil,               // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(n)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        MessageId:    n.EventID,
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                // default exchange
        "notify.outbound", // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}
