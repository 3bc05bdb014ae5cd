package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// SupportedLanguages lists the languages labels are available in. The first one is the fallback.
var SupportedLanguages = []language.Tag{language.English, language.French}

var languageMatcher = language.NewMatcher(SupportedLanguages)

var severityLabels = map[language.Tag]map[Severity]string{
	language.English: {
		SeverityMinor:    "Minor",
		SeverityModerate: "Moderate",
		SeverityMajor:    "Major",
		SeverityCritical: "Critical",
	},
	language.French: {
		SeverityMinor:    "Mineur",
		SeverityModerate: "Modéré",
		SeverityMajor:    "Majeur",
		SeverityCritical: "Critique",
	},
}

var statusLabels = map[language.Tag]map[Status]string{
	language.English: {
		StatusOpen:       "Open",
		StatusInProgress: "In progress",
		StatusResolved:   "Resolved",
		StatusClosed:     "Closed",
	},
	language.French: {
		StatusOpen:       "Ouvert",
		StatusInProgress: "En cours",
		StatusResolved:   "Résolu",
		StatusClosed:     "Fermé",
	},
}

var (
	severityByKey = make(map[string]Severity)
	statusByKey   = make(map[string]Status)
)

func init() {
	for _, s := range Severities {
		severityByKey[labelKey(s.String())] = s
		for _, labels := range severityLabels {
			severityByKey[labelKey(labels[s])] = s
		}
	}
	for _, s := range Statuses {
		statusByKey[labelKey(s.String())] = s
		for _, labels := range statusLabels {
			statusByKey[labelKey(labels[s])] = s
		}
	}
	// Legacy codes written without accents.
	statusByKey[labelKey("EnCours")] = StatusInProgress
	statusByKey[labelKey("Resolu")] = StatusResolved
	statusByKey[labelKey("Ferme")] = StatusClosed
	severityByKey[labelKey("Modere")] = SeverityModerate
}

// labelKey folds case, normalizes to NFC and drops separators so that
// "in_progress", "In progress" and "IN-PROGRESS" compare equal.
func labelKey(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, s)
}

// ParseSeverity accepts a canonical code or a label in any supported language.
func ParseSeverity(s string) (Severity, error) {
	if v, ok := severityByKey[labelKey(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("invalid severity: %q", s)
}

// ParseStatus accepts a canonical code or a label in any supported language.
func ParseStatus(s string) (Status, error) {
	if v, ok := statusByKey[labelKey(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("invalid status: %q", s)
}

// MatchLanguage picks the best supported language for an Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return SupportedLanguages[0]
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return SupportedLanguages[idx]
}

// Label returns the human readable severity in the given language.
func (s Severity) Label(lang language.Tag) string {
	labels, ok := severityLabels[lang]
	if !ok {
		labels = severityLabels[SupportedLanguages[0]]
	}
	if l, ok := labels[s]; ok {
		return l
	}
	return s.String()
}

// Label returns the human readable status in the given language.
func (s Status) Label(lang language.Tag) string {
	labels, ok := statusLabels[lang]
	if !ok {
		labels = statusLabels[SupportedLanguages[0]]
	}
	if l, ok := labels[s]; ok {
		return l
	}
	return s.String()
}
