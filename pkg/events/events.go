package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

const DefaultTopic = "multiswap-swaps"

// SwapEvent is published after a swap was broadcast
type SwapEvent struct {
	IntentID    string    `json:"intentId,omitempty"`
	Chain       string    `json:"chain"`
	Wallet      string    `json:"wallet"`
	Direction   string    `json:"direction,omitempty"`
	InputToken  string    `json:"inputToken"`
	OutputToken string    `json:"outputToken"`
	AmountIn    string    `json:"amountIn"`
	AmountOut   string    `json:"amountOut,omitempty"`
	TxID        string    `json:"txid"`
	Explorer    string    `json:"explorer"`
	Confirmed   bool      `json:"confirmed"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers swap events
type Publisher interface {
	Publish(ctx context.Context, event SwapEvent) error
	Close() error
}

// Encode validates and serializes an event
func Encode(event SwapEvent) ([]byte, error) {
	if event.Chain == "" || event.TxID == "" {
		return nil, errors.New("swap event needs a chain and a txid")
	}
	return json.Marshal(event)
}

// KafkaPublisher writes events to a kafka topic keyed by wallet address
type KafkaPublisher struct {
	writer *kafka.Writer
}

// KafkaConfig configures a KafkaPublisher
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaPublisher creates a publisher; brokers are required
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event SwapEvent) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	headers := make([]kafka.Header, 0, 2)
	InjectHeaders(ctx, &headers)
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.Chain + ":" + event.Wallet),
		Value:   payload,
		Headers: headers,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, SwapEvent) error { return nil }
func (Nop) Close() error                             { return nil }

type headerCarrier struct {
	headers []kafka.Header
}

func (c headerCarrier) Get(key string) string {
	for _, header := range c.headers {
		if strings.EqualFold(header.Key, key) {
			return string(header.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if strings.EqualFold(c.headers[i].Key, key) {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, header := range c.headers {
		keys = append(keys, header.Key)
	}
	return keys
}

// InjectHeaders propagates the trace context of ctx into kafka headers
func InjectHeaders(ctx context.Context, headers *[]kafka.Header) {
	carrier := headerCarrier{headers: *headers}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	*headers = carrier.headers
}
