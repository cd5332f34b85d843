package meeting_test

import (
	"context"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeilh/minutes/cache"
	"github.com/adeilh/minutes/cache/memory"
	"github.com/adeilh/minutes/meeting"
)

var quiet = &log.Logger{Handler: discard.Default, Level: log.DebugLevel}

func newManager(t *testing.T) *cache.Manager {
	t.Helper()
	m := cache.NewManager(context.Background(), memory.NewStore(), cache.WithLogger(quiet))
	t.Cleanup(func() { _ = m.Close() })
	require.True(t, m.Enabled())
	return m
}

func TestCacheGetWithRelatedMeetingMissing(t *testing.T) {
	c := meeting.NewCache(newManager(t))
	_, ok := c.GetWithRelated(context.Background(), "m1")
	assert.False(t, ok)
}

func TestCacheGetWithRelatedMeetingOnly(t *testing.T) {
	ctx := context.Background()
	c := meeting.NewCache(newManager(t))
	c.PutMeeting(ctx, meeting.Meeting{ID: "m1", Title: "Sync"})

	d, ok := c.GetWithRelated(ctx, "m1")
	require.True(t, ok)
	assert.Equal(t, "Sync", d.Title)
	assert.Nil(t, d.Sections)
}

func TestCacheGetWithRelatedPartialItems(t *testing.T) {
	ctx := context.Background()
	c := meeting.NewCache(newManager(t))
	c.PutMeeting(ctx, meeting.Meeting{ID: "m1", Title: "Sync"})
	c.PutSections(ctx, "m1", []meeting.Section{
		{ID: "s1", MeetingID: "m1", Title: "Status", Order: 1},
		{ID: "s2", MeetingID: "m1", Title: "Blockers", Order: 2},
	})
	c.PutItems(ctx, "m1", "s1", []meeting.Item{{ID: "i1", SectionID: "s1", Content: "done"}})

	d, ok := c.GetWithRelated(ctx, "m1")
	require.True(t, ok)
	require.Len(t, d.Sections, 2)
	assert.Len(t, d.Sections[0].Items, 1)
	assert.Empty(t, d.Sections[1].Items)
}

func TestCacheUpdateMeetingCascades(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	c := meeting.NewCache(m)
	c.PutMeeting(ctx, meeting.Meeting{ID: "m1", Title: "Old"})
	c.PutSections(ctx, "m1", []meeting.Section{{ID: "s1", MeetingID: "m1"}})
	c.PutItems(ctx, "m1", "s1", []meeting.Item{{ID: "i1", SectionID: "s1"}})
	m.SetKind(ctx, cache.KindSection, meeting.SectionKey("s1"), meeting.Section{ID: "s1"})

	c.UpdateMeeting(ctx, "m1", meeting.Meeting{ID: "m1", Title: "New"})

	got, ok := cache.Get[meeting.Meeting](ctx, m, meeting.MeetingKey("m1"))
	require.True(t, ok)
	assert.Equal(t, "New", got.Title)
	for _, key := range []string{meeting.SectionsKey("m1"), meeting.SectionKey("s1"), meeting.ItemsKey("s1")} {
		var v any
		assert.False(t, m.Get(ctx, key, &v), key)
	}
	assert.Empty(t, m.Dependencies(ctx, meeting.MeetingKey("m1")))
}

func TestCacheUpdateSection(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	c := meeting.NewCache(m)
	c.PutSections(ctx, "m1", []meeting.Section{{ID: "s1", MeetingID: "m1"}})

	c.UpdateSection(ctx, "m1", "s1", meeting.Section{ID: "s1", MeetingID: "m1", Title: "Renamed"})

	got, ok := cache.Get[meeting.Section](ctx, m, meeting.SectionKey("s1"))
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Title)
	_, ok = cache.Get[[]meeting.Section](ctx, m, meeting.SectionsKey("m1"))
	assert.False(t, ok)
	assert.Contains(t, m.Dependencies(ctx, meeting.MeetingKey("m1")), meeting.SectionKey("s1"))
}

func TestCacheUpdateItem(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	c := meeting.NewCache(m)
	c.PutItems(ctx, "m1", "s1", []meeting.Item{{ID: "i1", SectionID: "s1"}})

	c.UpdateItem(ctx, "m1", "s1", "i1", meeting.Item{ID: "i1", SectionID: "s1", Content: "edited"})

	got, ok := cache.Get[meeting.Item](ctx, m, meeting.ItemKey("i1"))
	require.True(t, ok)
	assert.Equal(t, "edited", got.Content)
	_, ok = cache.Get[[]meeting.Item](ctx, m, meeting.ItemsKey("s1"))
	assert.False(t, ok)
	assert.Contains(t, m.Dependencies(ctx, meeting.SectionKey("s1")), meeting.ItemKey("i1"))
	assert.Contains(t, m.Dependencies(ctx, meeting.MeetingKey("m1")), meeting.SectionKey("s1"))

	// A later meeting update reaches the item through the section.
	c.UpdateMeeting(ctx, "m1", meeting.Meeting{ID: "m1"})
	_, ok = cache.Get[meeting.Item](ctx, m, meeting.ItemKey("i1"))
	assert.False(t, ok)
}

func TestCacheDisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	c := meeting.NewCache(nil)
	c.PutMeeting(ctx, meeting.Meeting{ID: "m1"})
	c.UpdateMeeting(ctx, "m1", meeting.Meeting{ID: "m1"})
	_, ok := c.GetWithRelated(ctx, "m1")
	assert.False(t, ok)
}
