package storage

import (
	"strings"
	"testing"
	"time"
)

func TestCreateCommentLinksVideoAndParentExactlyOnce(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "Chef", "chef@example.com")
	fan := createTestUser(t, store, "Fan", "fan@example.com")
	video := createTestVideo(t, store, owner.ID, CreateVideoParams{})

	parent, err := store.CreateComment(fan.ID, video.ID, "  Looks great  ", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	if parent.Text != "Looks great" {
		t.Fatalf("text not trimmed: %q", parent.Text)
	}

	reply, err := store.CreateComment(owner.ID, video.ID, "Thanks!", &parent.ID)
	if err != nil {
		t.Fatalf("CreateComment reply error: %v", err)
	}
	if reply.ParentID == nil || *reply.ParentID != parent.ID {
		t.Fatalf("reply not linked to parent: %+v", reply)
	}

	gotParent, _ := store.GetComment(parent.ID)
	if len(gotParent.Replies) != 1 || gotParent.Replies[0] != reply.ID {
		t.Fatalf("parent reply list wrong: %v", gotParent.Replies)
	}
	gotVideo, _ := store.GetVideo(video.ID)
	if len(gotVideo.Comments) != 2 {
		t.Fatalf("video should reference both comments, got %v", gotVideo.Comments)
	}
	seen := map[string]int{}
	for _, id := range gotVideo.Comments {
		seen[id]++
	}
	if seen[parent.ID] != 1 || seen[reply.ID] != 1 {
		t.Fatalf("comment IDs linked more than once: %v", gotVideo.Comments)
	}
}

func TestCreateCommentRejectsNestedReplies(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "Chef", "chef@example.com")
	video := createTestVideo(t, store, owner.ID, CreateVideoParams{})

	parent, err := store.CreateComment(owner.ID, video.ID, "Top level", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	reply, err := store.CreateComment(owner.ID, video.ID, "Reply", &parent.ID)
	if err != nil {
		t.Fatalf("CreateComment reply error: %v", err)
	}

	if _, err := store.CreateComment(owner.ID, video.ID, "Nested", &reply.ID); !IsValidation(err) {
		t.Fatalf("expected validation error for nested reply, got %v", err)
	}
}

func TestCreateCommentRejectsCrossVideoParent(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "Chef", "chef@example.com")
	videoA := createTestVideo(t, store, owner.ID, CreateVideoParams{Title: "A"})
	videoB := createTestVideo(t, store, owner.ID, CreateVideoParams{Title: "B"})

	parent, err := store.CreateComment(owner.ID, videoA.ID, "On video A", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	if _, err := store.CreateComment(owner.ID, videoB.ID, "Wrong video", &parent.ID); !IsValidation(err) {
		t.Fatalf("expected validation error for cross-video parent, got %v", err)
	}
}

func TestCreateCommentValidation(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "Chef", "chef@example.com")
	video := createTestVideo(t, store, owner.ID, CreateVideoParams{})

	if _, err := store.CreateComment(owner.ID, video.ID, "   ", nil); !IsValidation(err) {
		t.Fatalf("expected validation error for blank text, got %v", err)
	}
	long := strings.Repeat("x", MaxCommentLength+1)
	if _, err := store.CreateComment(owner.ID, video.ID, long, nil); !IsValidation(err) {
		t.Fatalf("expected validation error for oversized text, got %v", err)
	}
	if _, err := store.CreateComment("missing", video.ID, "hi", nil); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown author, got %v", err)
	}
	if _, err := store.CreateComment(owner.ID, "missing", "hi", nil); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown video, got %v", err)
	}
	missingParent := "missing"
	if _, err := store.CreateComment(owner.ID, video.ID, "hi", &missingParent); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown parent, got %v", err)
	}
}

func TestListCommentThreadsNewestFirstWithReplies(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "Chef", "chef@example.com")
	video := createTestVideo(t, store, owner.ID, CreateVideoParams{})

	older, err := store.CreateComment(owner.ID, video.ID, "First thread", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	time.Sleep(time.Millisecond)
	newer, err := store.CreateComment(owner.ID, video.ID, "Second thread", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	replyA, err := store.CreateComment(owner.ID, video.ID, "Reply A", &older.ID)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	replyB, err := store.CreateComment(owner.ID, video.ID, "Reply B", &older.ID)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}

	threads, err := store.ListCommentThreads(video.ID)
	if err != nil {
		t.Fatalf("ListCommentThreads error: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("replies must not appear as threads: %+v", threads)
	}
	if threads[0].ID != newer.ID || threads[1].ID != older.ID {
		t.Fatalf("threads not newest-first: %+v", threads)
	}

	replies, err := store.ListReplies(older.ID)
	if err != nil {
		t.Fatalf("ListReplies error: %v", err)
	}
	if len(replies) != 2 || replies[0].ID != replyA.ID || replies[1].ID != replyB.ID {
		t.Fatalf("replies not in posting order: %+v", replies)
	}
}

func TestToggleCommentLike(t *testing.T) {
	store := newTestStore(t)
	owner := createTestUser(t, store, "Chef", "chef@example.com")
	fan := createTestUser(t, store, "Fan", "fan@example.com")
	video := createTestVideo(t, store, owner.ID, CreateVideoParams{})
	comment, err := store.CreateComment(owner.ID, video.ID, "Hello", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}

	liked, err := store.ToggleCommentLike(comment.ID, fan.ID)
	if err != nil {
		t.Fatalf("ToggleCommentLike error: %v", err)
	}
	if !liked {
		t.Fatal("first toggle should like")
	}
	liked, err = store.ToggleCommentLike(comment.ID, fan.ID)
	if err != nil {
		t.Fatalf("ToggleCommentLike error: %v", err)
	}
	if liked {
		t.Fatal("second toggle should unlike")
	}
	got, _ := store.GetComment(comment.ID)
	if len(got.Likes) != 0 {
		t.Fatalf("like not removed: %v", got.Likes)
	}
}
