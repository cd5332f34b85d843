package meeting

// Cache keys. One key per (kind, id) pair.
func MeetingKey(id string) string { return "meeting:" + id }
func SectionKey(id string) string { return "section:" + id }
func ItemKey(id string) string { return "item:" + id }
func SectionsKey(meetingID string) string { return "sections:" + meetingID }
func ItemsKey(sectionID string) string { return "items:" + sectionID }
func TasksKey(meetingID string) string { return "tasks:" + meetingID }
func TemplateKey(id string) string { return "template:" + id }

const TemplatesKey = "templates"
