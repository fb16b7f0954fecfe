package ui

import (
	"regexp"
	"strings"
)

// Mechanical replays of structured submissions. The widget is the visible
// representation of these actions; the replayed sentence is dispatched to the
// agent but excluded from the rendered transcript.
var suppressedPatterns = []*regexp.Regexp{
	// Phone + name form submission.
	regexp.MustCompile(`(?i)^my name is .+ and my (phone )?number is \+?[\d\s-]{7,}\.?$`),
	// Code entry.
	regexp.MustCompile(`(?i)^(my verification code is|the code is) \d{4,8}\.?$`),
	// Date/time pick.
	regexp.MustCompile(`(?i)^i('d like| would like|want) to (visit|book|schedule).* on \d{4}-\d{2}-\d{2} at \d{1,2}:\d{2}`),
	regexp.MustCompile(`(?i)^selected (date|time|slot):`),
	// Scheduling-request trigger sentence.
	regexp.MustCompile(`(?i)^(yes, )?schedule a visit for me\.?$`),
}

// SuppressFromTranscript reports whether a user utterance is a mechanical
// replay of a structured submission and should be hidden at render time.
func SuppressFromTranscript(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, p := range suppressedPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
