package cache

import "time"

// Kind tags a cached value with the entity it represents; it selects the
// default TTL when callers do not pass one.
type Kind string

const (
	KindMeeting  Kind = "meeting"
	KindSection  Kind = "section"
	KindItem     Kind = "item"
	KindTask     Kind = "task"
	KindTemplate Kind = "template"
	KindUser     Kind = "user"
)

// FallbackTTL applies to unknown kinds and to Set calls without a TTL.
const FallbackTTL = 60 * time.Second

// DefaultDependencyTTL bounds how long a dependency set outlives its last SAdd.
const DefaultDependencyTTL = time.Hour

// DefaultTTLs returns a fresh copy of the per-kind defaults.
func DefaultTTLs() map[Kind]time.Duration {
	return map[Kind]time.Duration{
		KindMeeting:  60 * time.Second,
		KindSection:  30 * time.Second,
		KindItem:     15 * time.Second,
		KindTask:     60 * time.Second,
		KindTemplate: time.Hour,
		KindUser:     5 * time.Minute,
	}
}
