package pipeline

import "github.com/charlymoron/trapflow/internal/model"

// eventKey is the identity of an event for dedup purposes. Trap files
// repeat state changes (one line per poller), so the same
// (object, kind, timestamp) triple routinely shows up several times.
type eventKey struct {
	objectID int64
	kind     model.EventKind
	unix     int64
}

// Dedupe returns the events with unique (object, kind, timestamp)
// keys, preserving first-seen order. Pure function; the first
// occurrence of a duplicate wins.
func Dedupe(events []model.Event) []model.Event {
	if len(events) == 0 {
		return events
	}

	seen := make(map[eventKey]struct{}, len(events))
	unique := events[:0:0]

	for _, ev := range events {
		key := eventKey{
			objectID: ev.ObjectID,
			kind:     ev.Kind,
			unix:     ev.Timestamp.Unix(),
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, ev)
	}

	return unique
}
