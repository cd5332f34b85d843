package meeting

import (
	"context"

	"github.com/adeilh/minutes/cache"
)

// Cache composes the cache manager into meeting-shaped reads and writes. It
// talks to the cache only; falling back to the repository is the Service's job.
type Cache struct {
	m *cache.Manager
}

func NewCache(m *cache.Manager) *Cache {
	if m == nil {
		m = cache.Disabled()
	}
	return &Cache{m: m}
}

// Manager exposes the underlying cache manager.
func (c *Cache) Manager() *cache.Manager { return c.m }

// GetWithRelated assembles a meeting with its sections and their items from
// whatever is cached. Missing nested lists are omitted rather than reported.
// It reports false only when the meeting itself is not cached.
func (c *Cache) GetWithRelated(ctx context.Context, meetingID string) (Detail, bool) {
	d, _, ok := c.related(ctx, meetingID)
	return d, ok
}

// related is GetWithRelated plus the indexes of sections whose item list
// was not cached.
func (c *Cache) related(ctx context.Context, meetingID string) (Detail, []int, bool) {
	m, ok := cache.Get[Meeting](ctx, c.m, MeetingKey(meetingID))
	if !ok {
		return Detail{}, nil, false
	}
	detail := Detail{Meeting: m}

	sections, ok := cache.Get[[]Section](ctx, c.m, SectionsKey(meetingID))
	if !ok {
		return detail, nil, true
	}
	var missing []int
	detail.Sections = make([]SectionDetail, 0, len(sections))
	for i, s := range sections {
		sd := SectionDetail{Section: s}
		if items, ok := cache.Get[[]Item](ctx, c.m, ItemsKey(s.ID)); ok {
			sd.Items = items
		} else {
			missing = append(missing, i)
		}
		detail.Sections = append(detail.Sections, sd)
	}
	return detail, missing, true
}

// UpdateMeeting clears every cached derivative of the meeting, then caches
// the new value. Unlike a write-then-invalidate update, meeting:<id> holds m
// afterwards instead of being absent.
func (c *Cache) UpdateMeeting(ctx context.Context, id string, m Meeting) {
	key := MeetingKey(id)
	c.m.InvalidateWithDependencies(ctx, key)
	c.m.SetKind(ctx, cache.KindMeeting, key, m)
}

// UpdateSection caches the section, drops the meeting's cached section list
// and records meeting -> section.
func (c *Cache) UpdateSection(ctx context.Context, meetingID, sectionID string, s Section) {
	key := SectionKey(sectionID)
	c.m.SetKind(ctx, cache.KindSection, key, s)
	c.m.Delete(ctx, SectionsKey(meetingID))
	c.m.AddDependency(ctx, MeetingKey(meetingID), key)
}

// UpdateItem caches the item, drops the section's cached item list and
// records section -> item and meeting -> section.
func (c *Cache) UpdateItem(ctx context.Context, meetingID, sectionID, itemID string, it Item) {
	key := ItemKey(itemID)
	c.m.SetKind(ctx, cache.KindItem, key, it)
	c.m.Delete(ctx, ItemsKey(sectionID))
	sectionKey := SectionKey(sectionID)
	c.m.AddDependency(ctx, sectionKey, key)
	c.m.AddDependency(ctx, MeetingKey(meetingID), sectionKey)
}

// PutMeeting caches a meeting read from the repository.
func (c *Cache) PutMeeting(ctx context.Context, m Meeting) {
	c.m.SetKind(ctx, cache.KindMeeting, MeetingKey(m.ID), m)
}

// PutSections caches a meeting's section list and ties it to the meeting.
func (c *Cache) PutSections(ctx context.Context, meetingID string, sections []Section) {
	key := SectionsKey(meetingID)
	c.m.SetKind(ctx, cache.KindSection, key, sections)
	c.m.AddDependency(ctx, MeetingKey(meetingID), key)
}

// PutItems caches a section's item list and ties it to the section.
func (c *Cache) PutItems(ctx context.Context, meetingID, sectionID string, items []Item) {
	key := ItemsKey(sectionID)
	sectionKey := SectionKey(sectionID)
	c.m.SetKind(ctx, cache.KindItem, key, items)
	c.m.AddDependency(ctx, sectionKey, key)
	c.m.AddDependency(ctx, MeetingKey(meetingID), sectionKey)
}
