package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/adeilh/minutes/meeting"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// MeetingRepository implements meeting.Repository on PostgreSQL.
type MeetingRepository struct {
	db *sql.DB
}

var _ meeting.Repository = (*MeetingRepository)(nil)

func NewMeetingRepository(db *sql.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

const meetingColumns = `id, title, template_id, status, recording_active, recording_started_at, recording_stopped_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(s scanner) (meeting.Meeting, error) {
	var m meeting.Meeting
	err := s.Scan(&m.ID, &m.Title, &m.TemplateID, &m.Status,
		&m.Recording.Active, &m.Recording.StartedAt, &m.Recording.StoppedAt,
		&m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *MeetingRepository) ListMeetings(ctx context.Context) ([]meeting.Meeting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+meetingColumns+` FROM meetings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list meetings: %w", err)
	}
	defer rows.Close()
	out := []meeting.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (meeting.Meeting, error) {
	m, err := scanMeeting(r.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return meeting.Meeting{}, meeting.ErrMeetingNotFound
	}
	return m, err
}

func (r *MeetingRepository) CreateMeeting(ctx context.Context, m meeting.Meeting) error {
	const query = `INSERT INTO meetings (` + meetingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.Title, m.TemplateID, m.Status,
		m.Recording.Active, m.Recording.StartedAt, m.Recording.StoppedAt, m.CreatedAt, m.UpdatedAt)
	return translate(err, meeting.ErrMeetingNotFound)
}

func (r *MeetingRepository) UpdateMeeting(ctx context.Context, m meeting.Meeting) error {
	const query = `UPDATE meetings SET title = $2, template_id = $3, status = $4, recording_active = $5,
                   recording_started_at = $6, recording_stopped_at = $7, updated_at = $8 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, m.ID, m.Title, m.TemplateID, m.Status,
		m.Recording.Active, m.Recording.StartedAt, m.Recording.StoppedAt, m.UpdatedAt)
	if err != nil {
		return translate(err, meeting.ErrMeetingNotFound)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return meeting.ErrMeetingNotFound
	}
	return nil
}

func (r *MeetingRepository) GetSection(ctx context.Context, id string) (meeting.Section, error) {
	var s meeting.Section
	err := r.db.QueryRowContext(ctx,
		`SELECT id, meeting_id, title, ord, status, updated_at FROM sections WHERE id = $1`, id,
	).Scan(&s.ID, &s.MeetingID, &s.Title, &s.Order, &s.Status, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return meeting.Section{}, meeting.ErrSectionNotFound
	}
	return s, err
}

func (r *MeetingRepository) ListSections(ctx context.Context, meetingID string) ([]meeting.Section, error) {
	if err := r.exists(ctx, "meetings", meetingID, meeting.ErrMeetingNotFound); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, meeting_id, title, ord, status, updated_at FROM sections WHERE meeting_id = $1 ORDER BY ord, id`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sections: %w", err)
	}
	defer rows.Close()
	var out []meeting.Section
	for rows.Next() {
		var s meeting.Section
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.Title, &s.Order, &s.Status, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *MeetingRepository) UpsertSection(ctx context.Context, s meeting.Section) error {
	const query = `INSERT INTO sections (id, meeting_id, title, ord, status, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   ON CONFLICT (id) DO UPDATE SET meeting_id = EXCLUDED.meeting_id, title = EXCLUDED.title,
                   ord = EXCLUDED.ord, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.MeetingID, s.Title, s.Order, s.Status, s.UpdatedAt)
	return translate(err, meeting.ErrMeetingNotFound)
}

func (r *MeetingRepository) GetItem(ctx context.Context, id string) (meeting.Item, error) {
	var it meeting.Item
	err := r.db.QueryRowContext(ctx,
		`SELECT id, section_id, content, ord, updated_at FROM items WHERE id = $1`, id,
	).Scan(&it.ID, &it.SectionID, &it.Content, &it.Order, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return meeting.Item{}, meeting.ErrItemNotFound
	}
	return it, err
}

func (r *MeetingRepository) ListItems(ctx context.Context, sectionID string) ([]meeting.Item, error) {
	if err := r.exists(ctx, "sections", sectionID, meeting.ErrSectionNotFound); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, section_id, content, ord, updated_at FROM items WHERE section_id = $1 ORDER BY ord, id`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	defer rows.Close()
	var out []meeting.Item
	for rows.Next() {
		var it meeting.Item
		if err := rows.Scan(&it.ID, &it.SectionID, &it.Content, &it.Order, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *MeetingRepository) UpsertItem(ctx context.Context, it meeting.Item) error {
	const query = `INSERT INTO items (id, section_id, content, ord, updated_at)
                   VALUES ($1, $2, $3, $4, $5)
                   ON CONFLICT (id) DO UPDATE SET section_id = EXCLUDED.section_id, content = EXCLUDED.content,
                   ord = EXCLUDED.ord, updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query, it.ID, it.SectionID, it.Content, it.Order, it.UpdatedAt)
	return translate(err, meeting.ErrSectionNotFound)
}

func (r *MeetingRepository) ListTasks(ctx context.Context, meetingID string) ([]meeting.Task, error) {
	if err := r.exists(ctx, "meetings", meetingID, meeting.ErrMeetingNotFound); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, meeting_id, title, assignee, due, done FROM tasks WHERE meeting_id = $1 ORDER BY id`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tasks: %w", err)
	}
	defer rows.Close()
	var out []meeting.Task
	for rows.Next() {
		var t meeting.Task
		if err := rows.Scan(&t.ID, &t.MeetingID, &t.Title, &t.Assignee, &t.Due, &t.Done); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *MeetingRepository) UpsertTask(ctx context.Context, t meeting.Task) error {
	const query = `INSERT INTO tasks (id, meeting_id, title, assignee, due, done)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   ON CONFLICT (id) DO UPDATE SET meeting_id = EXCLUDED.meeting_id, title = EXCLUDED.title,
                   assignee = EXCLUDED.assignee, due = EXCLUDED.due, done = EXCLUDED.done`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.MeetingID, t.Title, t.Assignee, t.Due, t.Done)
	return translate(err, meeting.ErrMeetingNotFound)
}

func (r *MeetingRepository) ListTemplates(ctx context.Context) ([]meeting.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, sections FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list templates: %w", err)
	}
	defer rows.Close()
	out := []meeting.Template{}
	for rows.Next() {
		var t meeting.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, pq.Array(&t.Sections)); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *MeetingRepository) GetTemplate(ctx context.Context, id string) (meeting.Template, error) {
	var t meeting.Template
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, sections FROM templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, pq.Array(&t.Sections))
	if errors.Is(err, sql.ErrNoRows) {
		return meeting.Template{}, meeting.ErrTemplateNotFound
	}
	return t, err
}

func (r *MeetingRepository) UpsertTemplate(ctx context.Context, t meeting.Template) error {
	const query = `INSERT INTO templates (id, name, description, sections) VALUES ($1, $2, $3, $4)
                   ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
                   sections = EXCLUDED.sections`
	sections := t.Sections
	if sections == nil {
		sections = []string{}
	}
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.Description, pq.Array(sections))
	return translate(err, meeting.ErrInvalidInput)
}

func (r *MeetingRepository) exists(ctx context.Context, table, id string, notFound error) error {
	var ok bool
	// table is one of a fixed set of identifiers chosen by this file.
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

// translate maps constraint violations onto domain errors; a foreign key
// violation means the parent named by the row does not exist.
func translate(err error, missingParent error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", meeting.ErrInvalidInput, pqErr.Detail)
		case codeForeignKeyViolation:
			return missingParent
		case codeInvalidText:
			return fmt.Errorf("%w: %s", meeting.ErrInvalidInput, pqErr.Message)
		}
	}
	return err
}
