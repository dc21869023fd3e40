package repository

import (
	"context"
	"fmt"
	"time"

	"IgniteX/internal/domain/models"
	domrepo "IgniteX/internal/domain/repository"
	"IgniteX/pkg/kafka"
)

// KafkaSubscriberStore publishes released signals onto one topic per
// subscriber tier, keyed by instrument so a consumer sees one instrument's
// releases in order. Operator alerts go to a dedicated topic.
type KafkaSubscriberStore struct {
	producer    *kafka.Producer
	topicPrefix string
	alertTopic  string
}

func NewKafkaSubscriberStore(producer *kafka.Producer, topicPrefix, alertTopic string) *KafkaSubscriberStore {
	return &KafkaSubscriberStore{
		producer:    producer,
		topicPrefix: topicPrefix,
		alertTopic:  alertTopic,
	}
}

func (s *KafkaSubscriberStore) Publish(ctx context.Context, tier string, signal models.AdmittedSignal) error {
	topic := fmt.Sprintf("%s.%s", s.topicPrefix, tier)
	key := []byte(signal.Verdict.Instrument)
	if err := s.producer.Publish(ctx, topic, key, signal); err != nil {
		return fmt.Errorf("publish signal %s to %s: %w", signal.ID, topic, err)
	}
	return nil
}

func (s *KafkaSubscriberStore) Alert(ctx context.Context, message string, signal models.AdmittedSignal) error {
	payload := operatorAlert{
		Message:  message,
		Signal:   signal,
		RaisedAt: time.Now(),
	}
	if err := s.producer.Publish(ctx, s.alertTopic, []byte(signal.ID), payload); err != nil {
		return fmt.Errorf("publish alert for %s: %w", signal.ID, err)
	}
	return nil
}

func (s *KafkaSubscriberStore) Close() error {
	return s.producer.Close()
}

type operatorAlert struct {
	Message  string                `json:"message"`
	Signal   models.AdmittedSignal `json:"signal"`
	RaisedAt time.Time             `json:"raised_at"`
}

var _ domrepo.SubscriberStore = (*KafkaSubscriberStore)(nil)
