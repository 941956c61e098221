package api

import (
	"net/http"
	"testing"
)

func TestGetCommentWithReplies(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createAPIUser(t, store, "Chef", "chef@example.com")
	video := createAPIVideo(t, store, owner.ID)
	parent, err := store.CreateComment(owner.ID, video.ID, "Top level", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	if _, err := store.CreateComment(owner.ID, video.ID, "A reply", &parent.ID); err != nil {
		t.Fatalf("CreateComment reply error: %v", err)
	}

	rec := doRequest(t, handler.CommentByID, http.MethodGet, "/api/comments/"+parent.ID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view commentView
	decodeBody(t, rec, &view)
	if view.ID != parent.ID || view.Author == nil || view.Author.ID != owner.ID {
		t.Fatalf("comment not joined with author: %+v", view)
	}
	if len(view.Replies) != 1 || view.Replies[0].Text != "A reply" {
		t.Fatalf("replies missing: %+v", view.Replies)
	}

	if rec := doRequest(t, handler.CommentByID, http.MethodGet, "/api/comments/missing", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown comment should return 404, got %d", rec.Code)
	}
}

func TestToggleCommentLikeOverHTTP(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createAPIUser(t, store, "Chef", "chef@example.com")
	fan := createAPIUser(t, store, "Fan", "fan@example.com")
	video := createAPIVideo(t, store, owner.ID)
	comment, err := store.CreateComment(owner.ID, video.ID, "Hello", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}

	rec := doRequest(t, handler.CommentByID, http.MethodPost, "/api/comments/"+comment.ID+"/like", nil, &fan)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var toggled map[string]bool
	decodeBody(t, rec, &toggled)
	if !toggled["liked"] {
		t.Fatalf("expected liked=true, got %v", toggled)
	}

	rec = doRequest(t, handler.CommentByID, http.MethodPost, "/api/comments/"+comment.ID+"/like", nil, &fan)
	decodeBody(t, rec, &toggled)
	if toggled["liked"] {
		t.Fatalf("second toggle should unlike: %v", toggled)
	}

	if rec := doRequest(t, handler.CommentByID, http.MethodPost, "/api/comments/"+comment.ID+"/like", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous like should return 401, got %d", rec.Code)
	}
}

func TestListRepliesOverHTTP(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := createAPIUser(t, store, "Chef", "chef@example.com")
	video := createAPIVideo(t, store, owner.ID)
	parent, err := store.CreateComment(owner.ID, video.ID, "Top level", nil)
	if err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	for _, text := range []string{"first", "second"} {
		if _, err := store.CreateComment(owner.ID, video.ID, text, &parent.ID); err != nil {
			t.Fatalf("CreateComment reply error: %v", err)
		}
	}

	rec := doRequest(t, handler.CommentByID, http.MethodGet, "/api/comments/"+parent.ID+"/replies", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var replies []commentView
	decodeBody(t, rec, &replies)
	if len(replies) != 2 || replies[0].Text != "first" || replies[1].Text != "second" {
		t.Fatalf("replies wrong or out of order: %+v", replies)
	}
}
