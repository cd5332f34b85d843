package meeting

import (
	"context"
	"sort"
	"sync"
)

// Repository is the source of truth behind the cache. Implementations return
// the package's Err*NotFound sentinels for unknown ids.
type Repository interface {
	ListMeetings(ctx context.Context) ([]Meeting, error)
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	CreateMeeting(ctx context.Context, m Meeting) error
	UpdateMeeting(ctx context.Context, m Meeting) error

	GetSection(ctx context.Context, id string) (Section, error)
	ListSections(ctx context.Context, meetingID string) ([]Section, error)
	UpsertSection(ctx context.Context, s Section) error

	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context, sectionID string) ([]Item, error)
	UpsertItem(ctx context.Context, it Item) error

	ListTasks(ctx context.Context, meetingID string) ([]Task, error)
	UpsertTask(ctx context.Context, t Task) error

	ListTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
	UpsertTemplate(ctx context.Context, t Template) error
}

// MemoryRepository keeps everything in maps guarded by a single mutex.
type MemoryRepository struct {
	mu        sync.RWMutex
	meetings  map[string]Meeting
	sections  map[string]Section
	items     map[string]Item
	tasks     map[string]Task
	templates map[string]Template
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		meetings:  make(map[string]Meeting),
		sections:  make(map[string]Section),
		items:     make(map[string]Item),
		tasks:     make(map[string]Task),
		templates: make(map[string]Template),
	}
}

func (r *MemoryRepository) ListMeetings(ctx context.Context) ([]Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Meeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meetings[id]
	if !ok {
		return Meeting{}, ErrMeetingNotFound
	}
	return m, nil
}

func (r *MemoryRepository) CreateMeeting(ctx context.Context, m Meeting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.meetings[m.ID]; exists {
		return ErrInvalidInput
	}
	r.meetings[m.ID] = m
	return nil
}

func (r *MemoryRepository) UpdateMeeting(ctx context.Context, m Meeting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[m.ID]; !ok {
		return ErrMeetingNotFound
	}
	r.meetings[m.ID] = m
	return nil
}

func (r *MemoryRepository) GetSection(ctx context.Context, id string) (Section, error) {
	if err := ctx.Err(); err != nil {
		return Section{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sections[id]
	if !ok {
		return Section{}, ErrSectionNotFound
	}
	return s, nil
}

func (r *MemoryRepository) ListSections(ctx context.Context, meetingID string) ([]Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.meetings[meetingID]; !ok {
		return nil, ErrMeetingNotFound
	}
	var out []Section
	for _, s := range r.sections {
		if s.MeetingID == meetingID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *MemoryRepository) UpsertSection(ctx context.Context, s Section) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[s.MeetingID]; !ok {
		return ErrMeetingNotFound
	}
	r.sections[s.ID] = s
	return nil
}

func (r *MemoryRepository) GetItem(ctx context.Context, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (r *MemoryRepository) ListItems(ctx context.Context, sectionID string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.sections[sectionID]; !ok {
		return nil, ErrSectionNotFound
	}
	var out []Item
	for _, it := range r.items {
		if it.SectionID == sectionID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *MemoryRepository) UpsertItem(ctx context.Context, it Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sections[it.SectionID]; !ok {
		return ErrSectionNotFound
	}
	r.items[it.ID] = it
	return nil
}

func (r *MemoryRepository) ListTasks(ctx context.Context, meetingID string) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.meetings[meetingID]; !ok {
		return nil, ErrMeetingNotFound
	}
	var out []Task
	for _, t := range r.tasks {
		if t.MeetingID == meetingID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) UpsertTask(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[t.MeetingID]; !ok {
		return ErrMeetingNotFound
	}
	r.tasks[t.ID] = t
	return nil
}

func (r *MemoryRepository) ListTemplates(ctx context.Context) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetTemplate(ctx context.Context, id string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

func (r *MemoryRepository) UpsertTemplate(ctx context.Context, t Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
	return nil
}
