// backend/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/models"
)

// Event types.
const (
	TypeDrawIngested     = "draw.ingested"
	TypeWeatherCollected = "weather.collected"
)

// Publisher announces ingested draws and collected observations.
type Publisher interface {
	PublishDraws(ctx context.Context, draws []models.DrawRecord) error
	PublishWeather(ctx context.Context, obs models.WeatherObservation) error
	Close() error
}

// NewPublisher returns a Kafka publisher when brokers are configured and a no-op
// publisher otherwise.
func NewPublisher(cfg config.KafkaConfig, logger *zap.Logger) Publisher {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		logger.Info("kafka brokers not configured, events disabled")
		return Nop{}
	}
	return NewKafkaPublisher(cfg)
}

// KafkaPublisher writes JSON events to one topic.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

// NewKafkaPublisher creates a producer for the configured topic.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

// PublishDraws writes one draw.ingested message per draw, keyed by draw id.
func (p *KafkaPublisher) PublishDraws(ctx context.Context, draws []models.DrawRecord) error {
	if len(draws) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(draws))
	for _, d := range draws {
		msg, err := drawMessage(d)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// PublishWeather writes one weather.collected message.
func (p *KafkaPublisher) PublishWeather(ctx context.Context, obs models.WeatherObservation) error {
	msg, err := weatherMessage(obs)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func drawMessage(d models.DrawRecord) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize draw %s: %w", d.DrawID, err)
	}
	return kafkago.Message{
		Key:   []byte(d.DrawID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(TypeDrawIngested)},
		},
	}, nil
}

func weatherMessage(obs models.WeatherObservation) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(obs.Timestamp.UTC().Format(time.RFC3339)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(TypeWeatherCollected)},
			{Key: "city", Value: []byte(obs.City)},
		},
	}, nil
}

// Nop discards events.
type Nop struct{}

func (Nop) PublishDraws(context.Context, []models.DrawRecord) error       { return nil }
func (Nop) PublishWeather(context.Context, models.WeatherObservation) error { return nil }
func (Nop) Close() error                                                    { return nil }
