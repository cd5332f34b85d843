package meeting

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Catalogue is the YAML shape accepted by Seed.
type Catalogue struct {
	Templates []Template    `yaml:"templates"`
	Meetings  []SeedMeeting `yaml:"meetings"`
}

type SeedMeeting struct {
	Meeting  `yaml:",inline"`
	Sections []SeedSection `yaml:"sections"`
	Tasks    []Task        `yaml:"tasks"`
}

type SeedSection struct {
	Section `yaml:",inline"`
	Items   []Item `yaml:"items"`
}

// DecodeCatalogue parses a YAML catalogue, rejecting unknown fields.
func DecodeCatalogue(r io.Reader) (Catalogue, error) {
	var c Catalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Catalogue{}, fmt.Errorf("meeting: decode catalogue: %w", err)
	}
	return c, nil
}

// DefaultCatalogue returns the built-in demo data.
func DefaultCatalogue() (Catalogue, error) {
	return DecodeCatalogue(bytes.NewReader(defaultSeed))
}

// Seed writes every record of c into repo. Parent ids are filled in from the
// nesting and missing statuses get their defaults.
func Seed(ctx context.Context, repo Repository, c Catalogue) error {
	now := time.Now().UTC()
	for _, t := range c.Templates {
		if t.ID == "" {
			return fmt.Errorf("%w: template without id", ErrInvalidInput)
		}
		if err := repo.UpsertTemplate(ctx, t); err != nil {
			return fmt.Errorf("meeting: seed template %s: %w", t.ID, err)
		}
	}
	for _, sm := range c.Meetings {
		m := sm.Meeting
		if m.ID == "" {
			return fmt.Errorf("%w: meeting without id", ErrInvalidInput)
		}
		if m.Status == "" {
			m.Status = StatusScheduled
		}
		m.CreatedAt, m.UpdatedAt = now, now
		if err := repo.CreateMeeting(ctx, m); err != nil {
			return fmt.Errorf("meeting: seed meeting %s: %w", m.ID, err)
		}
		for _, ss := range sm.Sections {
			s := ss.Section
			s.MeetingID = m.ID
			if s.Status == "" {
				s.Status = SectionPending
			}
			s.UpdatedAt = now
			if err := repo.UpsertSection(ctx, s); err != nil {
				return fmt.Errorf("meeting: seed section %s: %w", s.ID, err)
			}
			for _, it := range ss.Items {
				it.SectionID = s.ID
				it.UpdatedAt = now
				if err := repo.UpsertItem(ctx, it); err != nil {
					return fmt.Errorf("meeting: seed item %s: %w", it.ID, err)
				}
			}
		}
		for _, t := range sm.Tasks {
			t.MeetingID = m.ID
			if err := repo.UpsertTask(ctx, t); err != nil {
				return fmt.Errorf("meeting: seed task %s: %w", t.ID, err)
			}
		}
	}
	return nil
}
