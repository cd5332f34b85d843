package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/adeilh/minutes/cache"
)

// Service serves meeting reads cache-first and pushes writes to the
// repository before invalidating the affected cache entries.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
	log   log.Interface

	getMeeting    cache.Func[string, Meeting]
	listSections  cache.Func[string, []Section]
	listItems     cache.Func[string, []Item]
	listTasks     cache.Func[string, []Task]
	getTemplate   cache.Func[string, Template]
	listTemplates cache.Func[struct{}, []Template]
}

// ServiceConfig wires dependencies for Service.
type ServiceConfig struct {
	Repository Repository
	Cache      *cache.Manager
	Now        func() time.Time
	Logger     log.Interface
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("%w: repository is required", ErrInvalidInput)
	}
	s := &Service{
		repo:  cfg.Repository,
		cache: NewCache(cfg.Cache),
		now:   cfg.Now,
		log:   cfg.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = log.Log
	}
	m := s.cache.Manager()
	s.getMeeting = cache.Memoize(m, cache.KindMeeting, "meeting", nil, cfg.Repository.GetMeeting)
	s.listSections = cache.Memoize(m, cache.KindSection, "sections", nil, cfg.Repository.ListSections)
	s.listItems = cache.Memoize(m, cache.KindItem, "items", nil, cfg.Repository.ListItems)
	s.listTasks = cache.Memoize(m, cache.KindTask, "tasks", nil, cfg.Repository.ListTasks)
	s.getTemplate = cache.Memoize(m, cache.KindTemplate, "template", nil, cfg.Repository.GetTemplate)
	s.listTemplates = cache.Memoize(m, cache.KindTemplate, TemplatesKey,
		func(struct{}) string { return "" },
		func(ctx context.Context, _ struct{}) ([]Template, error) { return cfg.Repository.ListTemplates(ctx) })
	return s, nil
}

// Cache exposes the entity cache facade.
func (s *Service) Cache() *Cache { return s.cache }

func (s *Service) ListMeetings(ctx context.Context) ([]Meeting, error) {
	return s.repo.ListMeetings(ctx)
}

func (s *Service) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	return s.getMeeting(ctx, id)
}

func (s *Service) ListSections(ctx context.Context, meetingID string) ([]Section, error) {
	sections, err := s.listSections(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	s.cache.Manager().AddDependency(ctx, MeetingKey(meetingID), SectionsKey(meetingID))
	return sections, nil
}

// ListItems returns the items of a section that belongs to meetingID.
func (s *Service) ListItems(ctx context.Context, meetingID, sectionID string) ([]Item, error) {
	if _, err := s.sectionOf(ctx, meetingID, sectionID); err != nil {
		return nil, err
	}
	items, err := s.listItems(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	m := s.cache.Manager()
	m.AddDependency(ctx, SectionKey(sectionID), ItemsKey(sectionID))
	m.AddDependency(ctx, MeetingKey(meetingID), SectionKey(sectionID))
	return items, nil
}

func (s *Service) ListTasks(ctx context.Context, meetingID string) ([]Task, error) {
	tasks, err := s.listTasks(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	s.cache.Manager().AddDependency(ctx, MeetingKey(meetingID), TasksKey(meetingID))
	return tasks, nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]Template, error) {
	return s.listTemplates(ctx, struct{}{})
}

func (s *Service) GetTemplate(ctx context.Context, id string) (Template, error) {
	return s.getTemplate(ctx, id)
}

// GetFull returns the meeting with sections and items. A cached composite is
// served when meeting and sections are cached; item lists missing from the
// cache are read from the repository and cached. Anything less is loaded
// from the repository.
func (s *Service) GetFull(ctx context.Context, id string) (Detail, error) {
	d, missing, ok := s.cache.related(ctx, id)
	if !ok || d.Sections == nil {
		return s.loadFull(ctx, id)
	}
	for _, i := range missing {
		sec := d.Sections[i].Section
		items, err := s.repo.ListItems(ctx, sec.ID)
		if err != nil {
			return Detail{}, err
		}
		s.cache.PutItems(ctx, id, sec.ID, items)
		d.Sections[i].Items = items
	}
	return d, nil
}

func (s *Service) loadFull(ctx context.Context, id string) (Detail, error) {
	m, err := s.repo.GetMeeting(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	sections, err := s.repo.ListSections(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	s.cache.PutMeeting(ctx, m)
	s.cache.PutSections(ctx, id, sections)

	detail := Detail{Meeting: m, Sections: make([]SectionDetail, 0, len(sections))}
	for _, sec := range sections {
		items, err := s.repo.ListItems(ctx, sec.ID)
		if err != nil {
			return Detail{}, err
		}
		s.cache.PutItems(ctx, id, sec.ID, items)
		detail.Sections = append(detail.Sections, SectionDetail{Section: sec, Items: items})
	}
	return detail, nil
}

// CreateMeeting creates a meeting and, when it references a template, one
// pending section per template section title.
func (s *Service) CreateMeeting(ctx context.Context, title, templateID string) (Detail, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Detail{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	var tmpl Template
	if templateID != "" {
		t, err := s.GetTemplate(ctx, templateID)
		if err != nil {
			return Detail{}, err
		}
		tmpl = t
	}
	now := s.now().UTC()
	m := Meeting{
		ID:         uuid.NewString(),
		Title:      title,
		TemplateID: templateID,
		Status:     StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateMeeting(ctx, m); err != nil {
		return Detail{}, err
	}
	detail := Detail{Meeting: m}
	for i, name := range tmpl.Sections {
		sec := Section{
			ID:        uuid.NewString(),
			MeetingID: m.ID,
			Title:     name,
			Order:     i + 1,
			Status:    SectionPending,
			UpdatedAt: now,
		}
		if err := s.repo.UpsertSection(ctx, sec); err != nil {
			return Detail{}, err
		}
		detail.Sections = append(detail.Sections, SectionDetail{Section: sec})
	}
	s.log.WithField("meeting", m.ID).WithField("template", templateID).Info("meeting created")
	return detail, nil
}

// UpdateMeeting applies patch and cascades invalidation from the meeting.
func (s *Service) UpdateMeeting(ctx context.Context, id string, patch MeetingPatch) (Meeting, error) {
	m, err := s.repo.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Meeting{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		m.Title = title
	}
	if patch.Status != nil {
		if !patch.Status.valid() {
			return Meeting{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
		}
		m.Status = *patch.Status
	}
	return s.saveMeeting(ctx, m)
}

func (s *Service) saveMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	m.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateMeeting(ctx, m); err != nil {
		return Meeting{}, err
	}
	s.cache.UpdateMeeting(ctx, m.ID, m)
	return m, nil
}

// UpdateSection applies patch to a section of meetingID.
func (s *Service) UpdateSection(ctx context.Context, meetingID, sectionID string, patch SectionPatch) (Section, error) {
	sec, err := s.sectionOf(ctx, meetingID, sectionID)
	if err != nil {
		return Section{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Section{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		sec.Title = title
	}
	if patch.Order != nil {
		sec.Order = *patch.Order
	}
	if patch.Status != nil {
		if !patch.Status.valid() {
			return Section{}, fmt.Errorf("%w: unknown section status %q", ErrInvalidInput, *patch.Status)
		}
		sec.Status = *patch.Status
	}
	sec.UpdatedAt = s.now().UTC()
	if err := s.repo.UpsertSection(ctx, sec); err != nil {
		return Section{}, err
	}
	s.cache.UpdateSection(ctx, meetingID, sectionID, sec)
	return sec, nil
}

// UpdateItem applies patch to an item, creating it when itemID is unknown.
func (s *Service) UpdateItem(ctx context.Context, meetingID, sectionID, itemID string, patch ItemPatch) (Item, error) {
	if _, err := s.sectionOf(ctx, meetingID, sectionID); err != nil {
		return Item{}, err
	}
	it, err := s.repo.GetItem(ctx, itemID)
	switch {
	case err == nil:
		if it.SectionID != sectionID {
			return Item{}, ErrItemNotFound
		}
	case errors.Is(err, ErrItemNotFound):
		if patch.Content == nil {
			return Item{}, fmt.Errorf("%w: content is required for a new item", ErrInvalidInput)
		}
		it = Item{ID: itemID, SectionID: sectionID}
	default:
		return Item{}, err
	}
	if patch.Content != nil {
		it.Content = *patch.Content
	}
	if patch.Order != nil {
		it.Order = *patch.Order
	}
	it.UpdatedAt = s.now().UTC()
	if err := s.repo.UpsertItem(ctx, it); err != nil {
		return Item{}, err
	}
	s.cache.UpdateItem(ctx, meetingID, sectionID, itemID, it)
	return it, nil
}

// SectionsStatus summarises each section of a meeting.
func (s *Service) SectionsStatus(ctx context.Context, meetingID string) ([]SectionSummary, error) {
	sections, err := s.ListSections(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	out := make([]SectionSummary, 0, len(sections))
	for _, sec := range sections {
		items, err := s.ListItems(ctx, meetingID, sec.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, SectionSummary{SectionID: sec.ID, Title: sec.Title, Status: sec.Status, ItemCount: len(items)})
	}
	return out, nil
}

func (s *Service) RecordingStatus(ctx context.Context, meetingID string) (Recording, error) {
	m, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return Recording{}, err
	}
	return m.Recording, nil
}

// StartRecording marks the meeting as recording and in progress.
func (s *Service) StartRecording(ctx context.Context, meetingID string) (Recording, error) {
	m, err := s.repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return Recording{}, err
	}
	if m.Recording.Active {
		return Recording{}, ErrAlreadyRecording
	}
	now := s.now().UTC()
	m.Recording = Recording{Active: true, StartedAt: &now}
	if m.Status == StatusScheduled {
		m.Status = StatusInProgress
	}
	m, err = s.saveMeeting(ctx, m)
	if err != nil {
		return Recording{}, err
	}
	return m.Recording, nil
}

func (s *Service) StopRecording(ctx context.Context, meetingID string) (Recording, error) {
	m, err := s.repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return Recording{}, err
	}
	if !m.Recording.Active {
		return Recording{}, ErrNotRecording
	}
	now := s.now().UTC()
	m.Recording.Active = false
	m.Recording.StoppedAt = &now
	m, err = s.saveMeeting(ctx, m)
	if err != nil {
		return Recording{}, err
	}
	return m.Recording, nil
}

func (s *Service) sectionOf(ctx context.Context, meetingID, sectionID string) (Section, error) {
	sec, err := s.repo.GetSection(ctx, sectionID)
	if err != nil {
		return Section{}, err
	}
	if sec.MeetingID != meetingID {
		return Section{}, ErrSectionNotFound
	}
	return sec, nil
}
