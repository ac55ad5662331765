package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

// Sentinels returned when a lookup misses. They are never empty so the
// child view always has something to show.
const (
	FallbackScript = "Breathe in slowly with the circle... and let the breath go."
	FallbackAnchor = "something you love"
)

// ErrInvalidLibrary wraps every Validate failure.
var ErrInvalidLibrary = errors.New("invalid script library")

// #region library

// Anchor is one entry of the comfort-object vocabulary offered on the
// selection screen.
type Anchor struct {
	Key    string `json:"key" yaml:"key"`
	Label  string `json:"label" yaml:"label"`
	Emoji  string `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Phrase string `json:"phrase" yaml:"phrase"`
}

// Library is the immutable script data for one language.
type Library struct {
	Language   string                     `json:"language" yaml:"language"`
	Anchors    map[Step]string            `json:"anchors" yaml:"anchors"`
	Scripts    map[triage.StateTag]string `json:"script" yaml:"script"`
	Vocabulary []Anchor                   `json:"vocabulary" yaml:"vocabulary"`
}

// Validate fails if any phase or state tag has no entry, or the vocabulary
// has empty or duplicate keys.
func (l *Library) Validate() error {
	var problems []string
	for _, s := range Steps {
		if strings.TrimSpace(l.Anchors[s]) == "" {
			problems = append(problems, fmt.Sprintf("missing default anchor for %s", s))
		}
	}
	for _, tag := range triage.StateTags {
		if _, ok := l.Scripts[tag]; !ok {
			problems = append(problems, fmt.Sprintf("missing script for %s", tag))
		}
	}
	seen := make(map[string]bool, len(l.Vocabulary))
	for i, a := range l.Vocabulary {
		switch {
		case a.Key == "":
			problems = append(problems, fmt.Sprintf("vocabulary[%d] has empty key", i))
		case seen[a.Key]:
			problems = append(problems, fmt.Sprintf("duplicate vocabulary key %q", a.Key))
		case a.Phrase == "":
			problems = append(problems, fmt.Sprintf("vocabulary %q has empty phrase", a.Key))
		}
		seen[a.Key] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w (%s): %s", ErrInvalidLibrary, l.Language, strings.Join(problems, "; "))
	}
	return nil
}

// #endregion library

// #region lookups

// Template returns the script for tag. ok is false when the entry is
// missing and FallbackScript was substituted.
func (l *Library) Template(tag triage.StateTag) (tpl string, ok bool) {
	if l == nil {
		return FallbackScript, false
	}
	tpl, ok = l.Scripts[tag]
	if !ok {
		return FallbackScript, false
	}
	return tpl, true
}

// DefaultAnchor returns the default anchor phrase for step. ok is false when
// the entry is missing and FallbackAnchor was substituted.
func (l *Library) DefaultAnchor(step Step) (phrase string, ok bool) {
	if l == nil {
		return FallbackAnchor, false
	}
	phrase = l.Anchors[step]
	if phrase == "" {
		return FallbackAnchor, false
	}
	return phrase, true
}

// Phrase looks up a vocabulary key. Unknown keys report false.
func (l *Library) Phrase(key string) (string, bool) {
	if l == nil || key == "" {
		return "", false
	}
	for _, a := range l.Vocabulary {
		if a.Key == key {
			return a.Phrase, a.Phrase != ""
		}
	}
	return "", false
}

// HasAnchor reports whether key is in the vocabulary.
func (l *Library) HasAnchor(key string) bool {
	_, ok := l.Phrase(key)
	return ok
}

// #endregion lookups

// #region source

// Source hands out the library for a requested language.
type Source interface {
	Library(lang string) *Library
}

type staticSource struct{ lib *Library }

func (s staticSource) Library(string) *Library { return s.lib }

// Static serves lib for every language.
func Static(lib *Library) Source {
	return staticSource{lib: lib}
}

// #endregion source
