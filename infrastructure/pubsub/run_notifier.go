package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"kayzen-ingest/domain/model"
	"kayzen-ingest/domain/repository"
	"kayzen-ingest/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

var ErrNilPubSubClient = errors.New("pubsub client is nil")

// RunNotifier publishes a JSON summary of every finished run to one topic.
type RunNotifier struct {
	client    *pubsub.Client
	topicName string

	mu    sync.Mutex
	topic *pubsub.Topic
}

var _ repository.IRunNotifier = (*RunNotifier)(nil)

func NewRunNotifier(client *pubsub.Client, topicName string) *RunNotifier {
	return &RunNotifier{client: client, topicName: topicName}
}

func (n *RunNotifier) NotifyRun(ctx context.Context, run *model.IngestionRun) (string, error) {
	if n.client == nil {
		return "", ErrNilPubSubClient
	}
	msg, err := runMessage(run)
	if err != nil {
		return "", err
	}
	topic, err := n.ensureTopic(ctx)
	if err != nil {
		return "", err
	}

	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", err
	}
	logger.GetLogger().
		WithField("server ID", serverID).
		WithField("run_id", run.ID).
		Info("Run notification published")
	return serverID, nil
}

// Stop flushes pending messages of the topic.
func (n *RunNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.topic != nil {
		n.topic.Stop()
	}
}

// ensureTopic resolves the topic once, creating it if needed. Failures are
// not cached so the next run tries again.
func (n *RunNotifier) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.topic != nil {
		return n.topic, nil
	}

	topic := n.client.Topic(n.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		logger.GetLogger().WithField("topic", n.topicName).Info("Topic doesn't exist - creating it")
		if topic, err = n.client.CreateTopic(ctx, n.topicName); err != nil {
			return nil, err
		}
	}
	n.topic = topic
	return topic, nil
}

func runMessage(run *model.IngestionRun) (*pubsub.Message, error) {
	payload, err := json.Marshal(run)
	if err != nil {
		return nil, err
	}
	return &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"run_id":              run.ID,
			"status":              run.Status,
			"table":               run.Table,
			"campaigns_processed": strconv.Itoa(run.CampaignsProcessed),
		},
	}, nil
}
