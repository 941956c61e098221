package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cookstream/internal/models"
	"cookstream/internal/observability/metrics"
	"cookstream/internal/storage"
)

// fakeStore records notification writes in memory for fan-out assertions.
type fakeStore struct {
	mu          sync.Mutex
	subscribers map[string][]string
	videos      map[string]models.Video
	written     []storage.CreateNotificationParams
	failFor     map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subscribers: make(map[string][]string),
		videos:      make(map[string]models.Video),
		failFor:     make(map[string]error),
	}
}

func (f *fakeStore) ListSubscriberIDs(creatorID string) ([]string, error) {
	return f.subscribers[creatorID], nil
}

func (f *fakeStore) GetVideo(id string) (models.Video, bool) {
	video, ok := f.videos[id]
	return video, ok
}

func (f *fakeStore) CreateNotification(params storage.CreateNotificationParams) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[params.RecipientID]; ok {
		return models.Notification{}, err
	}
	f.written = append(f.written, params)
	return models.Notification{
		RecipientID: params.RecipientID,
		SenderID:    params.SenderID,
		Type:        params.Type,
	}, nil
}

func (f *fakeStore) writtenParams() []storage.CreateNotificationParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.CreateNotificationParams, len(f.written))
	copy(out, f.written)
	return out
}

func TestFanoutLiveEventReachesEverySubscriber(t *testing.T) {
	store := newFakeStore()
	store.subscribers["chef"] = []string{"a", "b", "c", "d", "e"}
	recorder := metrics.New()
	engine := NewEngine(store, nil, WithRecorder(recorder))

	engine.Fanout(context.Background(), LiveEvent{SenderID: "chef", StreamID: "stream-1"})

	written := store.writtenParams()
	if len(written) != 5 {
		t.Fatalf("expected 5 notifications, got %d", len(written))
	}
	seen := map[string]bool{}
	for _, params := range written {
		if params.Type != models.NotificationLive {
			t.Fatalf("wrong type: %v", params.Type)
		}
		if params.StreamID != "stream-1" || params.SenderID != "chef" {
			t.Fatalf("wrong payload: %+v", params)
		}
		seen[params.RecipientID] = true
	}
	if len(seen) != 5 {
		t.Fatalf("duplicate recipients: %v", seen)
	}

	counts := recorder.FanoutCounts()
	if counts["live/delivered"] != 5 {
		t.Fatalf("expected 5 delivered in metrics, got %v", counts)
	}
}

func TestFanoutLiveEventWithNoSubscribersWritesNothing(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, WithRecorder(metrics.New()))

	engine.Fanout(context.Background(), LiveEvent{SenderID: "chef", StreamID: "stream-1"})

	if written := store.writtenParams(); len(written) != 0 {
		t.Fatalf("expected no notifications, got %+v", written)
	}
}

func TestFanoutSkipsTheSender(t *testing.T) {
	store := newFakeStore()
	store.subscribers["chef"] = []string{"a", "chef", "b"}
	engine := NewEngine(store, nil, WithRecorder(metrics.New()))

	engine.Fanout(context.Background(), LiveEvent{SenderID: "chef", StreamID: "stream-1"})

	written := store.writtenParams()
	if len(written) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(written))
	}
	for _, params := range written {
		if params.RecipientID == "chef" {
			t.Fatal("sender must not notify themselves")
		}
	}
}

func TestFanoutCommentEventNotifiesVideoOwnerOnly(t *testing.T) {
	store := newFakeStore()
	store.videos["video-1"] = models.Video{ID: "video-1", UserID: "chef"}
	engine := NewEngine(store, nil, WithRecorder(metrics.New()))

	engine.Fanout(context.Background(), CommentEvent{SenderID: "fan", VideoID: "video-1", CommentID: "c1"})

	written := store.writtenParams()
	if len(written) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(written))
	}
	if written[0].RecipientID != "chef" || written[0].CommentID != "c1" || written[0].Type != models.NotificationComment {
		t.Fatalf("wrong notification: %+v", written[0])
	}
}

func TestFanoutCommentOnOwnVideoWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.videos["video-1"] = models.Video{ID: "video-1", UserID: "chef"}
	engine := NewEngine(store, nil, WithRecorder(metrics.New()))

	engine.Fanout(context.Background(), CommentEvent{SenderID: "chef", VideoID: "video-1", CommentID: "c1"})

	if written := store.writtenParams(); len(written) != 0 {
		t.Fatalf("expected no notifications, got %+v", written)
	}
}

func TestFanoutLikeEventNotifiesVideoOwner(t *testing.T) {
	store := newFakeStore()
	store.videos["video-1"] = models.Video{ID: "video-1", UserID: "chef"}
	engine := NewEngine(store, nil, WithRecorder(metrics.New()))

	engine.Fanout(context.Background(), LikeEvent{SenderID: "fan", VideoID: "video-1"})

	written := store.writtenParams()
	if len(written) != 1 || written[0].Type != models.NotificationLike {
		t.Fatalf("expected one like notification, got %+v", written)
	}
}

func TestFanoutSubscribeEventNotifiesCreator(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, nil, WithRecorder(metrics.New()))

	engine.Fanout(context.Background(), SubscribeEvent{SenderID: "fan", RecipientID: "chef"})

	written := store.writtenParams()
	if len(written) != 1 || written[0].RecipientID != "chef" || written[0].Type != models.NotificationSubscribe {
		t.Fatalf("expected one subscribe notification, got %+v", written)
	}
}

func TestFanoutSurvivesPartialWriteFailures(t *testing.T) {
	store := newFakeStore()
	store.subscribers["chef"] = []string{"a", "b", "c"}
	store.failFor["b"] = errors.New("write failed")
	recorder := metrics.New()
	engine := NewEngine(store, nil, WithRecorder(recorder))

	engine.Fanout(context.Background(), LiveEvent{SenderID: "chef", StreamID: "stream-1"})

	written := store.writtenParams()
	if len(written) != 2 {
		t.Fatalf("expected 2 successful writes, got %d", len(written))
	}
	counts := recorder.FanoutCounts()
	if counts["live/delivered"] != 2 || counts["live/failed"] != 1 {
		t.Fatalf("unexpected fan-out counts: %v", counts)
	}
}

func TestFanoutCommentOnMissingVideoWritesNothing(t *testing.T) {
	store := newFakeStore()
	recorder := metrics.New()
	engine := NewEngine(store, nil, WithRecorder(recorder))

	engine.Fanout(context.Background(), CommentEvent{SenderID: "fan", VideoID: "gone", CommentID: "c1"})

	if written := store.writtenParams(); len(written) != 0 {
		t.Fatalf("expected no notifications, got %+v", written)
	}
	counts := recorder.FanoutCounts()
	if counts["comment/failed"] != 1 {
		t.Fatalf("resolution failure should be counted: %v", counts)
	}
}
