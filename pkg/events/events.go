package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oceaniatours/passport-intake/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	PassportVerified    = "passport.verified"
	PassportPhotoUpdate = "passport.photo.updated"
	CodeSent            = "verification.code.sent"
	TouristCreated      = "tourist.created"
)

// Event payloads
type PassportVerifiedEvent struct {
	TouristID      int64     `json:"tourist_id"`
	UploadLink     string    `json:"upload_link"`
	PassportName   string    `json:"passport_name"`
	PassportNumber string    `json:"passport_number"`
	Nationality    string    `json:"nationality"`
	VerifiedAt     time.Time `json:"verified_at"`
}

type PassportPhotoUpdatedEvent struct {
	TouristID  int64     `json:"tourist_id"`
	UploadLink string    `json:"upload_link"`
	Operator   string    `json:"operator"`
	Recognized bool      `json:"recognized"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CodeSentEvent struct {
	Email      string    `json:"email"`
	UploadLink string    `json:"upload_link"`
	SentAt     time.Time `json:"sent_at"`
}

type TouristCreatedEvent struct {
	TouristID   int64     `json:"tourist_id"`
	TouristName string    `json:"tourist_name"`
	UploadLink  string    `json:"upload_link"`
	CreatedAt   time.Time `json:"created_at"`
}
