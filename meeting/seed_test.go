package meeting_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeilh/minutes/meeting"
)

func TestDefaultCatalogue(t *testing.T) {
	cat, err := meeting.DefaultCatalogue()
	require.NoError(t, err)
	require.Len(t, cat.Meetings, 1)
	assert.Equal(t, "m1", cat.Meetings[0].ID)
	assert.Len(t, cat.Meetings[0].Sections, 2)
	assert.Len(t, cat.Templates, 2)
}

func TestDecodeCatalogueRejectsUnknownFields(t *testing.T) {
	_, err := meeting.DecodeCatalogue(strings.NewReader("meetings:\n  - id: m1\n    colour: red\n"))
	assert.Error(t, err)
}

func TestDecodeCatalogueEmpty(t *testing.T) {
	cat, err := meeting.DecodeCatalogue(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cat.Meetings)
}

func TestSeedFillsParentsAndDefaults(t *testing.T) {
	src := `
meetings:
  - id: a
    title: A
    sections:
      - id: sa
        title: Only
        items:
          - id: ia
            content: note
`
	cat, err := meeting.DecodeCatalogue(strings.NewReader(src))
	require.NoError(t, err)

	repo := meeting.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, meeting.Seed(ctx, repo, cat))

	m, err := repo.GetMeeting(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusScheduled, m.Status)
	assert.False(t, m.CreatedAt.IsZero())

	s, err := repo.GetSection(ctx, "sa")
	require.NoError(t, err)
	assert.Equal(t, "a", s.MeetingID)
	assert.Equal(t, meeting.SectionPending, s.Status)

	items, err := repo.ListItems(ctx, "sa")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sa", items[0].SectionID)
}

func TestSeedRejectsMissingIDs(t *testing.T) {
	err := meeting.Seed(context.Background(), meeting.NewMemoryRepository(), meeting.Catalogue{
		Meetings: []meeting.SeedMeeting{{Meeting: meeting.Meeting{Title: "no id"}}},
	})
	assert.ErrorIs(t, err, meeting.ErrInvalidInput)
}
