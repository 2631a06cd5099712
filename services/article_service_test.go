package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
)

type articleFixture struct {
	svc    *ArticleService
	store  repository.ArticleStore
	clock  *ManualClock
	author *models.User
}

func newArticleFixture(t *testing.T) *articleFixture {
	t.Helper()
	db := newTestDB(t)
	store := repository.NewArticleStore(db)
	users := repository.NewUserStore(db)
	clock := NewManualClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	return &articleFixture{
		svc:    NewArticleService(store, users, clock, nil),
		store:  store,
		clock:  clock,
		author: mustCreateUser(t, users, "owner"),
	}
}

func (f *articleFixture) create(t *testing.T, title string, status models.ArticleStatus) *models.Article {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.author.ID, ArticleInput{Title: title, Content: "content of " + title, Status: status})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return a
}

func TestCreateDraftGeneratesSummary(t *testing.T) {
	f := newArticleFixture(t)
	content := strings.Repeat("## Part\nSome **markdown** body text.\n", 20)
	if utf8.RuneCountInString(content) < 500 {
		t.Fatalf("fixture content too short: %d", utf8.RuneCountInString(content))
	}

	a, err := f.svc.Create(context.Background(), f.author.ID, ArticleInput{Title: "Hello", Content: content, Status: models.StatusDraft})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != models.StatusDraft || a.PublishedAt != nil {
		t.Fatalf("expected unpublished draft, got status=%s publishedAt=%v", a.Status, a.PublishedAt)
	}
	if a.Summary == "" || utf8.RuneCountInString(a.Summary) > 200 {
		t.Fatalf("unexpected summary %q", a.Summary)
	}
	if strings.Contains(a.Summary, "**") || strings.Contains(a.Summary, "#") {
		t.Fatalf("summary still has markup: %q", a.Summary)
	}
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.author.ID, ArticleInput{Title: "  Spaced  ", Content: "body", Summary: "mine"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != models.StatusDraft || a.Title != "Spaced" || a.Summary != "mine" {
		t.Fatalf("unexpected article %+v", a)
	}

	published := f.create(t, "Live", models.StatusPublished)
	if published.PublishedAt == nil || !published.PublishedAt.Equal(f.clock.Now()) {
		t.Fatalf("published on create must stamp PublishedAt, got %v", published.PublishedAt)
	}

	bad := []ArticleInput{
		{Title: " ", Content: "x"},
		{Title: strings.Repeat("t", 201), Content: "x"},
		{Title: "t", Content: "  \n"},
		{Title: "t", Content: "x", Status: "archived"},
		{Title: "t", Content: "x", Summary: strings.Repeat("s", 501)},
	}
	for i, in := range bad {
		_, err := f.svc.Create(ctx, f.author.ID, in)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestPublishAndReadCountsView(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	draft := f.create(t, "Draft", models.StatusDraft)

	if _, err := f.svc.GetPublic(ctx, draft.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("draft must be hidden from the public, got %v", err)
	}

	f.clock.Advance(time.Hour)
	published, err := f.svc.Publish(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Status != models.StatusPublished || published.PublishedAt == nil || !published.PublishedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected published article %+v", published)
	}

	detail, err := f.svc.GetPublic(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetPublic: %v", err)
	}
	if detail.ViewCount != 1 || detail.AuthorName != "owner" {
		t.Fatalf("expected viewCount 1 by owner, got %d by %q", detail.ViewCount, detail.AuthorName)
	}

	admin, err := f.svc.GetForAdmin(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetForAdmin: %v", err)
	}
	if admin.ViewCount != 1 {
		t.Fatalf("admin read must not count a view, got %d", admin.ViewCount)
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	a := f.create(t, "Once", models.StatusDraft)

	first, err := f.svc.Publish(ctx, a.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f.clock.Advance(24 * time.Hour)
	second, err := f.svc.Publish(ctx, a.ID)
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	if !second.PublishedAt.Equal(*first.PublishedAt) || !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("republishing changed timestamps: %+v vs %+v", second, first)
	}
}

func TestUnpublishKeepsPublishedAt(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	a := f.create(t, "Round trip", models.StatusDraft)

	published, err := f.svc.Publish(ctx, a.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	if _, err := f.svc.Unpublish(ctx, a.ID); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}

	got, err := f.svc.GetForAdmin(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetForAdmin: %v", err)
	}
	if got.Status != models.StatusDraft {
		t.Fatalf("expected draft, got %s", got.Status)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(*published.PublishedAt) {
		t.Fatalf("PublishedAt changed: %v, want %v", got.PublishedAt, published.PublishedAt)
	}
	if !got.UpdatedAt.Equal(f.clock.Now()) {
		t.Fatalf("UpdatedAt = %v, want %v", got.UpdatedAt, f.clock.Now())
	}

	// republishing moves PublishedAt to the new transition time
	f.clock.Advance(time.Hour)
	again, err := f.svc.Publish(ctx, a.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !again.PublishedAt.Equal(f.clock.Now()) {
		t.Fatalf("PublishedAt = %v, want %v", again.PublishedAt, f.clock.Now())
	}
}

func TestUpdateTransitions(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	a := f.create(t, "Before", models.StatusDraft)

	f.clock.Advance(time.Minute)
	updated, err := f.svc.Update(ctx, a.ID, ArticleInput{Title: "After", Content: "new body", Status: models.StatusPublished})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "After" || updated.Summary != "new body" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.PublishedAt == nil || !updated.PublishedAt.Equal(f.clock.Now()) {
		t.Fatalf("draft to published must stamp PublishedAt, got %v", updated.PublishedAt)
	}
	if !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("CreatedAt changed on update")
	}

	stamp := *updated.PublishedAt
	f.clock.Advance(time.Minute)
	again, err := f.svc.Update(ctx, a.ID, ArticleInput{Title: "After 2", Content: "new body", Status: models.StatusPublished})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !again.PublishedAt.Equal(stamp) {
		t.Fatalf("editing a published article moved PublishedAt")
	}

	if _, err := f.svc.Update(ctx, 9999, ArticleInput{Title: "x", Content: "y"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	a := f.create(t, "Doomed", models.StatusPublished)

	if err := f.svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.GetForAdmin(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := f.svc.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Publish(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("publish deleted: expected ErrNotFound, got %v", err)
	}
}

func TestRecordViewIgnoresDrafts(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()
	draft := f.create(t, "Hidden", models.StatusDraft)

	if f.svc.RecordView(ctx, draft.ID) {
		t.Fatalf("a draft must not receive views")
	}
	if f.svc.RecordView(ctx, 12345) {
		t.Fatalf("a missing article must not receive views")
	}
}

func TestListPublic(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	first := f.create(t, "Go Concurrency", models.StatusPublished)
	f.clock.Advance(time.Hour)
	f.create(t, "Draft about Go", models.StatusDraft)
	f.clock.Advance(time.Hour)
	second := f.create(t, "Rust notes", models.StatusPublished)
	f.clock.Advance(time.Hour)
	third := f.create(t, "100% GO", models.StatusPublished)

	page, err := f.svc.ListPublic(ctx, "", Pagination{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].ID != third.ID || page.Items[1].ID != second.ID {
		t.Fatalf("expected newest publication first, got %d,%d", page.Items[0].ID, page.Items[1].ID)
	}
	if page.Items[0].AuthorName != "owner" {
		t.Fatalf("unexpected author %q", page.Items[0].AuthorName)
	}

	last, err := f.svc.ListPublic(ctx, "", Pagination{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("ListPublic page 2: %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].ID != first.ID {
		t.Fatalf("unexpected second page %+v", last.Items)
	}

	beyond, err := f.svc.ListPublic(ctx, "", Pagination{Page: 5, PageSize: 2})
	if err != nil {
		t.Fatalf("ListPublic page 5: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.Total != 3 {
		t.Fatalf("expected empty page past the end, got %+v", beyond)
	}

	matches, err := f.svc.ListPublic(ctx, "go", Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListPublic keyword: %v", err)
	}
	if matches.Total != 2 {
		t.Fatalf("expected 2 published matches for go, got %d", matches.Total)
	}

	literal, err := f.svc.ListPublic(ctx, "100%", Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListPublic literal: %v", err)
	}
	if literal.Total != 1 || literal.Items[0].ID != third.ID {
		t.Fatalf("percent must match literally, got %+v", literal.Items)
	}
}

func TestListAdmin(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	f.create(t, "One", models.StatusPublished)
	f.clock.Advance(time.Minute)
	draft := f.create(t, "Two", models.StatusDraft)

	all, err := f.svc.ListAdmin(ctx, "", "", Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListAdmin: %v", err)
	}
	if all.Total != 2 || all.Items[0].ID != draft.ID {
		t.Fatalf("expected newest created first, got %+v", all.Items)
	}

	drafts, err := f.svc.ListAdmin(ctx, models.StatusDraft, "", Pagination{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListAdmin drafts: %v", err)
	}
	if drafts.Total != 1 || drafts.Items[0].Status != models.StatusDraft {
		t.Fatalf("unexpected drafts %+v", drafts.Items)
	}

	var verr *ValidationError
	if _, err := f.svc.ListAdmin(ctx, "archived", "", Pagination{Page: 1, PageSize: 10}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
}

func TestLatestAndPopular(t *testing.T) {
	f := newArticleFixture(t)
	ctx := context.Background()

	var ids []uint
	for i, title := range []string{"a", "b", "c", "d", "e", "f"} {
		a := f.create(t, title, models.StatusPublished)
		ids = append(ids, a.ID)
		for v := 0; v < i%3; v++ {
			f.svc.RecordView(ctx, a.ID)
		}
		f.clock.Advance(time.Minute)
	}
	f.create(t, "draft", models.StatusDraft)

	latest, err := f.svc.Latest(ctx, 0)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 5 || latest[0].ID != ids[5] {
		t.Fatalf("expected 5 newest published, got %+v", latest)
	}

	popular, err := f.svc.Popular(ctx, 3)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	// views: a0 b1 c2 d0 e1 f2, ties broken by id
	want := []uint{ids[2], ids[5], ids[1]}
	if len(popular) != 3 {
		t.Fatalf("expected 3 popular, got %d", len(popular))
	}
	for i, p := range popular {
		if p.ID != want[i] {
			t.Fatalf("popular[%d] = %d, want %d", i, p.ID, want[i])
		}
	}
}
