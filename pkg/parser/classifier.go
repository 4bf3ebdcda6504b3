// Package parser turns raw trap log lines into candidate events.
//
// The grammar is deliberately literal: the marker phrases below are
// byte-exact substrings of vendor log output, and resolution downstream
// depends on matching them the way the legacy importer did.
package parser

import (
	"strings"

	"github.com/charlymoron/trapflow/internal/model"
)

// Marker vocabularies, in match order. Up and down sets are disjoint;
// the first matching phrase of a set wins.
var (
	upMarkers = []string{
		"LOADING to FULL",
		"is up:",
		"changed state to up",
		"state has changed from BAD to GOOD",
	}

	downMarkers = []string{
		"FULL to DOWN",
		"is down:",
		"changed state to down",
		"state has changed from BAD to DEAD",
	}
)

// Classifier filters raw lines down to the minority worth extracting
// and assigns a coarse event kind.
type Classifier struct {
	up   []string
	down []string
}

// NewClassifier returns a classifier with the standard vocabularies.
func NewClassifier() *Classifier {
	return &Classifier{up: upMarkers, down: downMarkers}
}

// IsUseful reports whether the line contains any up or down marker.
func (c *Classifier) IsUseful(line string) bool {
	for _, m := range c.up {
		if strings.Contains(line, m) {
			return true
		}
	}
	for _, m := range c.down {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// Classify returns the event kind for a line, or KindUnknown when no
// marker matches. Up markers are checked first, matching the legacy
// importer's precedence.
func (c *Classifier) Classify(line string) model.EventKind {
	for _, m := range c.up {
		if strings.Contains(line, m) {
			return model.KindUp
		}
	}
	for _, m := range c.down {
		if strings.Contains(line, m) {
			return model.KindDown
		}
	}
	return model.KindUnknown
}
