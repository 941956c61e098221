// Package notify implements notification fan-out. Domain events are explicit
// types; the engine resolves recipients from the subscription relation and
// writes one notification row per recipient. Delivery is best-effort:
// failures are logged and counted, never returned to the caller.
package notify

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"cookstream/internal/models"
	"cookstream/internal/observability/metrics"
	"cookstream/internal/storage"
)

// Event is a domain occurrence that may produce notifications.
type Event interface {
	kind() models.NotificationType
}

// LiveEvent announces a stream to the broadcaster's subscribers. It fires
// both when a stream is scheduled and when it actually goes live.
type LiveEvent struct {
	SenderID string
	StreamID string
}

// CommentEvent notifies a video's owner about a new comment or reply.
type CommentEvent struct {
	SenderID  string
	VideoID   string
	CommentID string
}

// LikeEvent notifies a video's owner that someone liked it. It fires only on
// the off-to-on transition of the like toggle.
type LikeEvent struct {
	SenderID string
	VideoID  string
}

// SubscribeEvent notifies a creator about a new subscriber.
type SubscribeEvent struct {
	SenderID    string
	RecipientID string
}

func (LiveEvent) kind() models.NotificationType      { return models.NotificationLive }
func (CommentEvent) kind() models.NotificationType   { return models.NotificationComment }
func (LikeEvent) kind() models.NotificationType      { return models.NotificationLike }
func (SubscribeEvent) kind() models.NotificationType { return models.NotificationSubscribe }

// Store is the slice of the repository the engine needs. Both storage drivers
// satisfy it.
type Store interface {
	ListSubscriberIDs(creatorID string) ([]string, error)
	GetVideo(id string) (models.Video, bool)
	CreateNotification(params storage.CreateNotificationParams) (models.Notification, error)
}

// maxConcurrentWrites bounds parallel notification writes during a large
// subscriber fan-out.
const maxConcurrentWrites = 8

type Engine struct {
	store    Store
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// EngineOption mutates engine configuration.
type EngineOption func(*Engine)

// WithRecorder overrides the metrics recorder used for fan-out counters.
func WithRecorder(recorder *metrics.Recorder) EngineOption {
	return func(e *Engine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

func NewEngine(store Store, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	engine := &Engine{
		store:    store,
		logger:   logger.With("component", "notify"),
		recorder: metrics.Default(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Fanout resolves the event's recipients and writes their notifications. An
// empty recipient set is a no-op, and the sender never notifies themselves.
func (e *Engine) Fanout(ctx context.Context, event Event) {
	eventKind := string(event.kind())
	recipients, params, err := e.resolve(event)
	if err != nil {
		e.logger.WarnContext(ctx, "fan-out recipient resolution failed",
			"event", eventKind, "error", err)
		e.recorder.ObserveFanoutFailure(eventKind)
		return
	}

	delivered := 0
	if len(recipients) > 0 {
		group, _ := errgroup.WithContext(ctx)
		group.SetLimit(maxConcurrentWrites)
		results := make([]bool, len(recipients))
		for i, recipientID := range recipients {
			if recipientID == params.SenderID {
				continue
			}
			i, recipientID := i, recipientID
			group.Go(func() error {
				p := params
				p.RecipientID = recipientID
				if _, err := e.store.CreateNotification(p); err != nil {
					e.logger.WarnContext(ctx, "notification write failed",
						"event", eventKind, "recipient", recipientID, "error", err)
					e.recorder.ObserveFanoutFailure(eventKind)
					return nil
				}
				results[i] = true
				return nil
			})
		}
		_ = group.Wait()
		for _, ok := range results {
			if ok {
				delivered++
			}
		}
	}

	e.recorder.ObserveFanout(eventKind, delivered)
	e.logger.DebugContext(ctx, "fan-out completed",
		"event", eventKind, "recipients", len(recipients), "delivered", delivered)
}

// resolve maps an event to its recipient set and the notification template
// shared by every write.
func (e *Engine) resolve(event Event) ([]string, storage.CreateNotificationParams, error) {
	switch ev := event.(type) {
	case LiveEvent:
		subscribers, err := e.store.ListSubscriberIDs(ev.SenderID)
		if err != nil {
			return nil, storage.CreateNotificationParams{}, err
		}
		return subscribers, storage.CreateNotificationParams{
			SenderID: ev.SenderID,
			Type:     models.NotificationLive,
			StreamID: ev.StreamID,
		}, nil
	case CommentEvent:
		video, ok := e.store.GetVideo(ev.VideoID)
		if !ok {
			return nil, storage.CreateNotificationParams{}, storage.NotFoundError{Entity: "video", ID: ev.VideoID}
		}
		recipients := []string{}
		if video.UserID != ev.SenderID {
			recipients = append(recipients, video.UserID)
		}
		return recipients, storage.CreateNotificationParams{
			SenderID:  ev.SenderID,
			Type:      models.NotificationComment,
			VideoID:   ev.VideoID,
			CommentID: ev.CommentID,
		}, nil
	case LikeEvent:
		video, ok := e.store.GetVideo(ev.VideoID)
		if !ok {
			return nil, storage.CreateNotificationParams{}, storage.NotFoundError{Entity: "video", ID: ev.VideoID}
		}
		recipients := []string{}
		if video.UserID != ev.SenderID {
			recipients = append(recipients, video.UserID)
		}
		return recipients, storage.CreateNotificationParams{
			SenderID: ev.SenderID,
			Type:     models.NotificationLike,
			VideoID:  ev.VideoID,
		}, nil
	case SubscribeEvent:
		recipients := []string{}
		if ev.RecipientID != ev.SenderID {
			recipients = append(recipients, ev.RecipientID)
		}
		return recipients, storage.CreateNotificationParams{
			SenderID: ev.SenderID,
			Type:     models.NotificationSubscribe,
		}, nil
	default:
		return nil, storage.CreateNotificationParams{}, nil
	}
}
