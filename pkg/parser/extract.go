package parser

import (
	"context"
	"strings"

	"github.com/charlymoron/trapflow/internal/model"
)

// Shape markers for the two identifier-bearing line forms.
const (
	tunnelMarker     = "Tunnel"
	objectNameMarker = "Object_Name="
)

// FailReason classifies why a useful line produced no event.
type FailReason uint8

const (
	FailNone FailReason = iota
	FailMalformed
	FailUnresolvedObject
	FailUnrecognizedShape
	FailAmbiguousKind
)

// String returns the reason label used in error reports.
func (r FailReason) String() string {
	switch r {
	case FailNone:
		return "ok"
	case FailMalformed:
		return "malformed line"
	case FailUnresolvedObject:
		return "unresolved object"
	case FailUnrecognizedShape:
		return "unrecognized shape"
	case FailAmbiguousKind:
		return "ambiguous kind"
	default:
		return "unknown"
	}
}

// Resolver maps identifier fragments found in log lines to managed
// object ids. Implemented by catalog.Index.
type Resolver interface {
	// Resolve returns the object id whose catalogue identifier
	// contains fragment, if any.
	Resolve(ctx context.Context, fragment string) (int64, bool)

	// ResolveByKnownIP scans line for any known IP identifier and
	// resolves through it. Fallback path for tunnel lines.
	ResolveByKnownIP(ctx context.Context, line string) (int64, bool)
}

// Extractor converts one useful line into an Event or a FailReason.
type Extractor struct {
	classifier *Classifier
	resolver   Resolver
	operatorID int64
}

// NewExtractor builds an extractor. operatorID is stamped on every
// event as OperadorRegistroId.
func NewExtractor(classifier *Classifier, resolver Resolver, operatorID int64) *Extractor {
	return &Extractor{
		classifier: classifier,
		resolver:   resolver,
		operatorID: operatorID,
	}
}

// Extract runs the per-line decision tree. The line must already have
// passed Classifier.IsUseful; reasons other than FailNone mean the line
// goes to the error report, never that processing stops.
func (e *Extractor) Extract(ctx context.Context, line string) (model.Event, FailReason) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		// a useful line with no tab-separated date prefix cannot be dated
		return model.Event{}, FailMalformed
	}

	var (
		objectID int64
		ok       bool
	)

	switch {
	case strings.Contains(line, tunnelMarker):
		marca, found := tunnelIdentifier(line)
		if !found {
			return model.Event{}, FailUnrecognizedShape
		}
		objectID, ok = e.resolver.Resolve(ctx, marca)
		if !ok {
			objectID, ok = e.resolver.ResolveByKnownIP(ctx, line)
		}
		if !ok {
			return model.Event{}, FailUnresolvedObject
		}

	case strings.Contains(line, objectNameMarker):
		marca := objectNameIdentifier(line)
		if marca == "" {
			return model.Event{}, FailUnrecognizedShape
		}
		// no IP fallback for this shape
		objectID, ok = e.resolver.Resolve(ctx, marca)
		if !ok {
			return model.Event{}, FailUnresolvedObject
		}

	default:
		return model.Event{}, FailUnrecognizedShape
	}

	ts, err := ParseTrapTime(fields[0])
	if err != nil {
		return model.Event{}, FailMalformed
	}

	kind := e.classifier.Classify(line)
	if kind == model.KindUnknown {
		// contradicts IsUseful; skip defensively rather than crash
		return model.Event{}, FailAmbiguousKind
	}

	return model.Event{
		ObjectID:   objectID,
		Kind:       kind,
		OperatorID: e.operatorID,
		Timestamp:  ts,
	}, FailNone
}

// tunnelIdentifier cuts the tunnel marker ("marca") out of the line.
// OSPF-style phrasings bound it with "from", interface phrasings with
// "changed"; the two characters before "changed" are the separating
// space and the colon left by the vendor format.
func tunnelIdentifier(line string) (string, bool) {
	start := strings.Index(line, tunnelMarker)
	if start < 0 {
		return "", false
	}

	switch {
	case strings.Contains(line, "FULL to DOWN") || strings.Contains(line, "LOADING to FULL"):
		end := strings.Index(line, "from")
		if end <= start {
			// degenerate bound ("from" before the marker): empty
			// marca, the caller still gets the known-IP fallback
			return "", true
		}
		return strings.TrimSpace(line[start:end]), true

	case strings.Contains(line, "changed state to down") || strings.Contains(line, "changed state to up"):
		end := strings.Index(line, "changed") - 2
		if end <= start {
			return "", true
		}
		return strings.TrimSpace(line[start:end]), true
	}

	return "", false
}

// objectNameIdentifier extracts the identifier after Object_Name= up to
// the first dot (hostnames carry the domain suffix, the catalogue does
// not).
func objectNameIdentifier(line string) string {
	idx := strings.Index(line, objectNameMarker)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(objectNameMarker):]
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		rest = rest[:dot]
	}
	return rest
}
