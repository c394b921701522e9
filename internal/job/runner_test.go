package job

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/instacomment/internal/instagram"
)

type fakeLister struct {
	pages   []*instagram.PostsPage
	err     error
	cursors []string
}

func (f *fakeLister) UserPosts(_ context.Context, _ string, _ int, cursor string) (*instagram.PostsPage, error) {
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.cursors) - 1
	if idx >= len(f.pages) {
		return nil, errors.New("no more pages")
	}
	return f.pages[idx], nil
}

type fakeCommenter struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

func (f *fakeCommenter) AddComment(_ context.Context, mediaID, _ string) (*instagram.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mediaID)
	if err := f.fail[mediaID]; err != nil {
		return nil, err
	}
	return &instagram.Comment{ID: "c-" + mediaID, Status: "ok"}, nil
}

func page(hasNext bool, cursor string, ids ...string) *instagram.PostsPage {
	p := &instagram.PostsPage{PageInfo: instagram.PageInfo{HasNextPage: hasNext, EndCursor: cursor}}
	for _, id := range ids {
		p.Data = append(p.Data, instagram.Post{ID: id})
	}
	return p
}

func newTestRunner(l PostLister, c Commenter, cfg RunnerConfig) (*Runner, *[]time.Duration) {
	if cfg.TargetUserID == "" {
		cfg.TargetUserID = "42"
	}
	if cfg.CommentText == "" {
		cfg.CommentText = "nice"
	}
	r := NewRunner(l, c, cfg, testLogger())
	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return r, &slept
}

func TestRunner_MiddleItemFails(t *testing.T) {
	lister := &fakeLister{pages: []*instagram.PostsPage{page(false, "", "p1", "p2", "p3")}}
	commenter := &fakeCommenter{fail: map[string]error{"p2": errors.New("feedback_required")}}
	r, slept := newTestRunner(lister, commenter, RunnerConfig{DelayMin: 5 * time.Minute, DelayMax: 10 * time.Minute})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(report.Items))
	}
	wantOK := []bool{true, false, true}
	for i, it := range report.Items {
		if it.OK() != wantOK[i] {
			t.Errorf("item %d (%s) OK = %v, want %v", i, it.MediaID, it.OK(), wantOK[i])
		}
	}
	if report.Failed() != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed())
	}
	if report.Items[2].CommentID != "c-p3" {
		t.Errorf("CommentID = %q", report.Items[2].CommentID)
	}

	if got := commenter.calls; len(got) != 3 || got[0] != "p1" || got[1] != "p2" || got[2] != "p3" {
		t.Errorf("comment order = %v", got)
	}
	if len(*slept) != 3 {
		t.Fatalf("slept %d times, want one wait per item", len(*slept))
	}
	for _, d := range *slept {
		if d < 5*time.Minute || d > 10*time.Minute {
			t.Errorf("delay %v outside window", d)
		}
	}
}

func TestRunner_FetchFailureProcessesNothing(t *testing.T) {
	lister := &fakeLister{err: instagram.ErrInvalidSession}
	commenter := &fakeCommenter{}
	r, slept := newTestRunner(lister, commenter, RunnerConfig{})

	report, err := r.Run(context.Background())
	if !errors.Is(err, instagram.ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
	if len(commenter.calls) != 0 || len(*slept) != 0 {
		t.Error("items processed after fetch failure")
	}
}

func TestRunner_MissingConfig(t *testing.T) {
	r := NewRunner(&fakeLister{}, &fakeCommenter{}, RunnerConfig{TargetUserID: "42"}, testLogger())
	if _, err := r.Run(context.Background()); !errors.Is(err, ErrMissingConfig) {
		t.Errorf("err = %v, want ErrMissingConfig", err)
	}
}

func TestRunner_EmptyPage(t *testing.T) {
	r, slept := newTestRunner(&fakeLister{pages: []*instagram.PostsPage{page(false, "")}}, &fakeCommenter{}, RunnerConfig{})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Items) != 0 || len(*slept) != 0 {
		t.Errorf("report = %+v, slept = %v", report, *slept)
	}
}

func TestRunner_Pagination(t *testing.T) {
	tests := []struct {
		name        string
		maxPages    int
		wantItems   int
		wantCursors []string
	}{
		{"first page only by default", 0, 2, []string{""}},
		{"follows cursor", 2, 3, []string{"", "c1"}},
		{"stops when no next page", 5, 3, []string{"", "c1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{pages: []*instagram.PostsPage{
				page(true, "c1", "p1", "p2"),
				page(false, "", "p3"),
			}}
			r, _ := newTestRunner(lister, &fakeCommenter{}, RunnerConfig{MaxPages: tt.maxPages})

			report, err := r.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(report.Items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(report.Items), tt.wantItems)
			}
			if len(lister.cursors) != len(tt.wantCursors) {
				t.Fatalf("cursors = %v, want %v", lister.cursors, tt.wantCursors)
			}
			for i := range tt.wantCursors {
				if lister.cursors[i] != tt.wantCursors[i] {
					t.Errorf("cursor[%d] = %q, want %q", i, lister.cursors[i], tt.wantCursors[i])
				}
			}
		})
	}
}

func TestRunner_CancelDuringWait(t *testing.T) {
	lister := &fakeLister{pages: []*instagram.PostsPage{page(false, "", "p1", "p2")}}
	commenter := &fakeCommenter{}
	r := NewRunner(lister, commenter, RunnerConfig{TargetUserID: "42", CommentText: "x", DelayMin: time.Hour, DelayMax: time.Hour}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if report == nil || len(report.Items) != 1 {
		t.Fatalf("report = %+v, want the interrupted item", report)
	}
	if len(commenter.calls) != 0 {
		t.Error("commented after cancellation")
	}
}

type panickyCommenter struct {
	fakeCommenter
	panicOn string
	nilOn   string
}

func (p *panickyCommenter) AddComment(ctx context.Context, mediaID, text string) (*instagram.Comment, error) {
	if mediaID == p.panicOn {
		var m map[string]int
		m[mediaID] = 1
	}
	if mediaID == p.nilOn {
		return nil, nil
	}
	return p.fakeCommenter.AddComment(ctx, mediaID, text)
}

func TestRunner_ItemPanicIsIsolated(t *testing.T) {
	lister := &fakeLister{pages: []*instagram.PostsPage{page(false, "", "p1", "p2", "p3", "p4")}}
	commenter := &panickyCommenter{panicOn: "p2", nilOn: "p3"}
	r, _ := newTestRunner(lister, commenter, RunnerConfig{})

	out := NewGuard("test", testLogger()).TryRun(context.Background(), func(ctx context.Context) error {
		report, err := r.Run(ctx)
		if err != nil {
			return err
		}
		if len(report.Items) != 4 {
			t.Fatalf("items = %d, want 4", len(report.Items))
		}
		want := []bool{true, false, false, true}
		for i, it := range report.Items {
			if it.OK() != want[i] {
				t.Errorf("item %s OK = %v, want %v (err %v)", it.MediaID, it.OK(), want[i], it.Err)
			}
		}
		if report.Items[1].Err == nil || !strings.Contains(report.Items[1].Err.Error(), "panic") {
			t.Errorf("p2 err = %v, want panic", report.Items[1].Err)
		}
		if !errors.Is(report.Items[2].Err, errNoComment) {
			t.Errorf("p3 err = %v, want errNoComment", report.Items[2].Err)
		}
		return nil
	})

	if out.Status != StatusCompleted {
		t.Errorf("status = %s (%v), want completed", out.Status, out.Err)
	}
	if got := commenter.calls; len(got) != 2 || got[0] != "p1" || got[1] != "p4" {
		t.Errorf("successful calls = %v, want [p1 p4]", got)
	}
}
