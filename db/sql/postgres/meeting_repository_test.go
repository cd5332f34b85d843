package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adeilh/minutes/meeting"
)

func seededMeetingRepo(t *testing.T) (*MeetingRepository, context.Context) {
	t.Helper()
	repo := NewMeetingRepository(openTestDB(t))
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)

	cat, err := meeting.DefaultCatalogue()
	if err != nil {
		t.Fatalf("DefaultCatalogue() error = %v", err)
	}
	if err := meeting.Seed(ctx, repo, cat); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return repo, ctx
}

func TestMeetingRepositorySeededReads(t *testing.T) {
	repo, ctx := seededMeetingRepo(t)

	meetings, err := repo.ListMeetings(ctx)
	if err != nil {
		t.Fatalf("ListMeetings() error = %v", err)
	}
	if len(meetings) != 1 || meetings[0].ID != "m1" {
		t.Fatalf("unexpected meetings: %+v", meetings)
	}

	sections, err := repo.ListSections(ctx, "m1")
	if err != nil {
		t.Fatalf("ListSections() error = %v", err)
	}
	if len(sections) != 2 || sections[0].ID != "s1" || sections[1].ID != "s2" {
		t.Fatalf("unexpected sections: %+v", sections)
	}

	items, err := repo.ListItems(ctx, "s1")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 2 || items[0].Content != "Cache layer merged" {
		t.Fatalf("unexpected items: %+v", items)
	}

	tasks, err := repo.ListTasks(ctx, "m1")
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Assignee != "alice" || tasks[0].Due != nil {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}

	tmpl, err := repo.GetTemplate(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if len(tmpl.Sections) != 3 || tmpl.Sections[1] != "Blockers" {
		t.Fatalf("template sections not round-tripped: %+v", tmpl.Sections)
	}
	templates, err := repo.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates() error = %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(templates))
	}
}

func TestMeetingRepositoryUpdateRecording(t *testing.T) {
	repo, ctx := seededMeetingRepo(t)

	m, err := repo.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeeting() error = %v", err)
	}
	if m.Recording.StartedAt != nil {
		t.Fatalf("fresh meeting should not have a recording start")
	}
	started := time.Now().UTC().Truncate(time.Microsecond)
	m.Status = meeting.StatusInProgress
	m.Recording = meeting.Recording{Active: true, StartedAt: &started}
	m.UpdatedAt = started
	if err := repo.UpdateMeeting(ctx, m); err != nil {
		t.Fatalf("UpdateMeeting() error = %v", err)
	}

	got, err := repo.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMeeting() error = %v", err)
	}
	if !got.Recording.Active || got.Recording.StartedAt == nil || !got.Recording.StartedAt.Equal(started) {
		t.Fatalf("recording not persisted: %+v", got.Recording)
	}
	if got.Status != meeting.StatusInProgress {
		t.Fatalf("status = %s", got.Status)
	}

	if err := repo.UpdateMeeting(ctx, meeting.Meeting{ID: "missing"}); !errors.Is(err, meeting.ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestMeetingRepositoryUpsertsAndErrors(t *testing.T) {
	repo, ctx := seededMeetingRepo(t)
	now := time.Now().UTC()

	if err := repo.UpsertSection(ctx, meeting.Section{ID: "s1", MeetingID: "m1", Title: "Renamed", Order: 1, Status: meeting.SectionCompleted, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertSection() error = %v", err)
	}
	s, err := repo.GetSection(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSection() error = %v", err)
	}
	if s.Title != "Renamed" || s.Status != meeting.SectionCompleted {
		t.Fatalf("section not updated: %+v", s)
	}

	if err := repo.UpsertItem(ctx, meeting.Item{ID: "i3", SectionID: "s2", Content: "new", UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertItem() error = %v", err)
	}
	it, err := repo.GetItem(ctx, "i3")
	if err != nil || it.SectionID != "s2" {
		t.Fatalf("GetItem() = %+v, %v", it, err)
	}

	if err := repo.UpsertSection(ctx, meeting.Section{ID: "sx", MeetingID: "nope", Status: meeting.SectionPending, UpdatedAt: now}); !errors.Is(err, meeting.ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
	if err := repo.UpsertItem(ctx, meeting.Item{ID: "ix", SectionID: "nope", UpdatedAt: now}); !errors.Is(err, meeting.ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
	if err := repo.CreateMeeting(ctx, meeting.Meeting{ID: "m1", Title: "dup", Status: meeting.StatusScheduled, CreatedAt: now, UpdatedAt: now}); !errors.Is(err, meeting.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate, got %v", err)
	}
	if _, err := repo.ListSections(ctx, "nope"); !errors.Is(err, meeting.ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
	if _, err := repo.ListItems(ctx, "nope"); !errors.Is(err, meeting.ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
	if _, err := repo.GetItem(ctx, "nope"); !errors.Is(err, meeting.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := repo.GetTemplate(ctx, "nope"); !errors.Is(err, meeting.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}
