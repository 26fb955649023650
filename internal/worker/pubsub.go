package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the subscription.
const (
	JobTypeGeocodeWarm = "geocode_warm"
	JobTypeHealthCheck = "health_check"
)

// healthCheckPlace is geocoded by the health_check job.
const healthCheckPlace = "Amsterdam"

// Message errors that redelivery cannot fix.
var (
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrMalformedMessage = errors.New("malformed job message")
)

// JobMessage is the payload of a worker Pub/Sub message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Places overrides the configured places for a geocode_warm job.
	Places []string `json:"places,omitempty"`
}

// JobRunner executes decoded job messages. It is independent of Pub/Sub so
// the same jobs can run on a timer or at startup.
type JobRunner struct {
	warmJob *WarmJob
	logger  zerolog.Logger
}

// NewJobRunner creates a runner for warmJob.
func NewJobRunner(warmJob *WarmJob, logger zerolog.Logger) *JobRunner {
	return &JobRunner{warmJob: warmJob, logger: logger}
}

// Handle decodes data and runs the job it names.
func (r *JobRunner) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobTypeGeocodeWarm:
		return r.handleGeocodeWarm(ctx, msg)
	case JobTypeHealthCheck:
		return r.handleHealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (r *JobRunner) handleGeocodeWarm(ctx context.Context, msg JobMessage) error {
	var result *WarmResult
	if len(msg.Places) > 0 {
		result = r.warmJob.RunPlaces(ctx, msg.Places)
	} else {
		result = r.warmJob.Run(ctx)
	}

	if result.Skipped > 0 {
		return fmt.Errorf("warm interrupted: %d of %d places skipped", result.Skipped, result.TotalPlaces)
	}
	// Consider it successful if at least half resolved.
	if result.NotFound > result.Resolved {
		return fmt.Errorf("too many unresolved places: %d/%d", result.NotFound, result.TotalPlaces)
	}
	return nil
}

func (r *JobRunner) handleHealthCheck(ctx context.Context) error {
	r.logger.Debug().Msg("running health check")

	result := r.warmJob.RunPlaces(ctx, []string{healthCheckPlace})
	if result.Resolved != 1 {
		return fmt.Errorf("health check failed: %q not resolved", healthCheckPlace)
	}

	r.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler receives job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	runner           *JobRunner
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Runner           *JobRunner
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Warm jobs are cheap; keep few in flight to respect provider quotas.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		runner:           cfg.Runner,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.runner.Handle(ctx, msg.Data)
	switch {
	case err == nil:
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed successfully")
		msg.Ack()
	case errors.Is(err, ErrUnknownJobType), errors.Is(err, ErrMalformedMessage):
		logger.Warn().Err(err).Msg("dropping message")
		msg.Ack() // redelivery would fail the same way
	default:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	}
}
