// Package events publishes schedule lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"nrm-schedules/internal/config"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
)

const (
	ScheduleUploaded     = "schedule.uploaded"
	ScheduleStandardized = "schedule.standardized"
	ScheduleGrouped      = "schedule.grouped"
	ScheduleReset        = "schedule.reset"
	DrawingsUploaded     = "drawings.uploaded"
)

type Event struct {
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	ProjectID  string    `json:"project_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Details    any       `json:"details,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PubSubPublisher sends events to a Google Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PubSubPublisher{client: client, topic: client.Topic(topicID)}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": e.Type},
	})
	_, err = res.Get(ctx)
	return err
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// LogPublisher writes events to the structured log when no topic is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	config.GetLogger().WithFields(logrus.Fields{
		"event":      e.Type,
		"entity_id":  e.EntityID,
		"project_id": e.ProjectID,
		"user_id":    e.UserID,
	}).Info("[event]")
	return nil
}
