package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jmylchreest/instacomment/internal/cookies"
	"github.com/jmylchreest/instacomment/internal/session"
)

const validRaw = "sessionid=abc; csrftoken=xyz; ds_user_id=1; ig_did=2; tracker=zzz"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, raw string, h http.HandlerFunc) (*Client, *session.Holder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	holder := session.NewHolder(raw, nil, testLogger())
	return NewClient(holder, testLogger(), WithBaseURL(srv.URL)), holder
}

const postsBody = `{
  "data": {
    "xdt_api__v1__clips__user__connection_v2": {
      "edges": [
        {"node": {"media": {"pk": "111", "id": "111_9", "code": "AbC", "media_type": 2, "play_count": 40, "like_count": 3, "comment_count": 1,
          "image_versions2": {"candidates": [{"height": 640, "width": 360, "url": "https://cdn.example/a.jpg"}]}}}},
        {"node": {"media": {"pk": "222", "id": "222_9", "code": "DeF", "media_type": 2, "like_count": 0, "comment_count": 0,
          "image_versions2": {"candidates": []}}}}
      ],
      "page_info": {"has_next_page": true, "end_cursor": "cursor-2"}
    }
  }
}`

func TestClient_UserPosts(t *testing.T) {
	var gotForm url.Values
	var gotHeader http.Header

	client, _ := newTestClient(t, validRaw, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/graphql/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotHeader = r.Header.Clone()
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, postsBody)
	})

	page, err := client.UserPosts(context.Background(), "42", 5, "cursor-1")
	if err != nil {
		t.Fatalf("UserPosts: %v", err)
	}

	if gotForm.Get("doc_id") != reelsDocID {
		t.Errorf("doc_id = %q", gotForm.Get("doc_id"))
	}
	var vars struct {
		Data struct {
			IncludeFeedVideo bool   `json:"include_feed_video"`
			PageSize         int    `json:"page_size"`
			TargetUserID     string `json:"target_user_id"`
			After            string `json:"after"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(gotForm.Get("variables")), &vars); err != nil {
		t.Fatalf("variables: %v", err)
	}
	if !vars.Data.IncludeFeedVideo || vars.Data.PageSize != 5 || vars.Data.TargetUserID != "42" || vars.Data.After != "cursor-1" {
		t.Errorf("variables = %+v", vars.Data)
	}

	if got := gotHeader.Get("Cookie"); got != "sessionid=abc; csrftoken=xyz; ds_user_id=1; ig_did=2" {
		t.Errorf("Cookie = %q", got)
	}
	if gotHeader.Get("X-Csrftoken") != "xyz" {
		t.Errorf("X-Csrftoken = %q", gotHeader.Get("X-Csrftoken"))
	}
	if gotHeader.Get("X-Fb-Friendly-Name") != reelsFriendlyName {
		t.Errorf("X-Fb-Friendly-Name = %q", gotHeader.Get("X-Fb-Friendly-Name"))
	}
	if gotHeader.Get("X-IG-App-ID") != appID {
		t.Errorf("X-IG-App-ID = %q", gotHeader.Get("X-IG-App-ID"))
	}

	if len(page.Data) != 2 || page.Data[0].ID != "111_9" || page.Data[1].Code != "DeF" {
		t.Errorf("Data = %+v", page.Data)
	}
	if page.Data[0].PlayCount == nil || *page.Data[0].PlayCount != 40 {
		t.Error("expected play_count 40 on first post")
	}
	if page.Data[1].PlayCount != nil {
		t.Error("expected nil play_count on second post")
	}
	if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor != "cursor-2" {
		t.Errorf("PageInfo = %+v", page.PageInfo)
	}
}

func TestClient_UserPostsPageSizeDefault(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, DefaultPageSize},
		{"too large", 500, DefaultPageSize},
		{"in range", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int
			client, _ := newTestClient(t, validRaw, func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				var vars struct {
					Data struct {
						PageSize int    `json:"page_size"`
						After    *string `json:"after"`
					} `json:"data"`
				}
				json.Unmarshal([]byte(r.PostForm.Get("variables")), &vars)
				got = vars.Data.PageSize
				if vars.Data.After != nil {
					t.Error("after sent without a cursor")
				}
				io.WriteString(w, postsBody)
			})
			if _, err := client.UserPosts(context.Background(), "42", tt.in, ""); err != nil {
				t.Fatalf("UserPosts: %v", err)
			}
			if got != tt.want {
				t.Errorf("page_size = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClient_InvalidSessionSendsNothing(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, "sessionid=abc; ds_user_id=1; ig_did=2", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	if _, err := client.UserPosts(context.Background(), "42", 0, ""); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("UserPosts err = %v, want ErrInvalidSession", err)
	}
	if _, err := client.AddComment(context.Background(), "1", "hi"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("AddComment err = %v, want ErrInvalidSession", err)
	}
	if calls.Load() != 0 {
		t.Errorf("remote called %d times", calls.Load())
	}
}

func TestClient_AddComment(t *testing.T) {
	client, holder := newTestClient(t, validRaw, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/web/comments/111_9/add/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		r.ParseForm()
		if r.PostForm.Get("comment_text") != "Nice post" {
			t.Errorf("comment_text = %q", r.PostForm.Get("comment_text"))
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "rotated", Domain: ".instagram.com", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "rur", Value: "CLN"})
		http.SetCookie(w, &http.Cookie{Name: "analytics", Value: "nope"})
		io.WriteString(w, `{"id":"c1","from":{"id":"1","username":"me","full_name":"Me","profile_picture":"p"},"text":"Nice post","created_time":1700000000,"status":"ok"}`)
	})

	comment, err := client.AddComment(context.Background(), "111_9", "Nice post")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if comment.ID != "c1" || comment.From.Username != "me" || comment.Status != "ok" || comment.CreatedTime != 1700000000 {
		t.Errorf("comment = %+v", comment)
	}

	raw := holder.Raw()
	if tok, _ := cookies.CSRFToken(raw); tok != "rotated" {
		t.Errorf("csrftoken = %q, want rotated", tok)
	}
	if !strings.Contains(raw, "rur=CLN") {
		t.Errorf("rur not merged: %q", raw)
	}
	if strings.Contains(raw, "analytics") {
		t.Errorf("non-platform cookie merged: %q", raw)
	}
}

func TestClient_AddCommentTextBounds(t *testing.T) {
	client, _ := newTestClient(t, validRaw, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"c1","status":"ok"}`)
	})

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"empty", "", true},
		{"one char", "a", false},
		{"max runes", strings.Repeat("é", MaxCommentLength), false},
		{"too long", strings.Repeat("a", MaxCommentLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.AddComment(context.Background(), "1", tt.text)
			if tt.wantErr != errors.Is(err, ErrInvalidCommentText) {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_RemoteErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"remote message", http.StatusBadRequest, `{"message":"feedback_required","status":"fail"}`, http.StatusBadRequest, "feedback_required"},
		{"no message", http.StatusForbidden, `<html></html>`, http.StatusForbidden, "Failed to add comment"},
		{"throttled", http.StatusTooManyRequests, `{"message":"Please wait a few minutes"}`, http.StatusTooManyRequests, "Please wait a few minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, validRaw, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.AddComment(context.Background(), "1", "hi")
			var re *RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("err = %v, want *RemoteError", err)
			}
			if re.Status != tt.wantStatus || re.Message != tt.wantMsg {
				t.Errorf("RemoteError = %d %q, want %d %q", re.Status, re.Message, tt.wantStatus, tt.wantMsg)
			}
			if re.HTTPStatus() != tt.wantStatus {
				t.Errorf("HTTPStatus = %d", re.HTTPStatus())
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	holder := session.NewHolder(validRaw, nil, testLogger())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewClient(holder, testLogger(), WithBaseURL(base))
	_, err := client.UserPosts(context.Background(), "42", 0, "")

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if re.Status != 0 || re.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("status = %d / %d", re.Status, re.HTTPStatus())
	}
}

func TestClient_MalformedPostsResponse(t *testing.T) {
	client, _ := newTestClient(t, validRaw, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{}}`)
	})
	_, err := client.UserPosts(context.Background(), "42", 0, "")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
}
