package prefs

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/victorbash400/canary/internal/model"
)

// ValidateTopicName normalizes a topic name: trims whitespace, Title-Cases
// each word, rejects names shorter than 2 characters, and truncates names
// longer than 50. Lengths count runes, not bytes. Returns "" for unusable
// names.
func ValidateTopicName(topic string) string {
	trimmed := strings.TrimSpace(topic)
	if utf8.RuneCountInString(trimmed) < 2 {
		return ""
	}
	words := strings.Fields(trimmed)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	name := strings.Join(words, " ")
	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}
	return name
}

// ApplyTopicChanges mutates prefs in place and returns one human-readable
// line per applied change, suitable for echoing back into the chat.
func ApplyTopicChanges(prefs *model.Preferences, changes TopicChanges) []string {
	var applied []string

	for _, raw := range changes.Add {
		topic := ValidateTopicName(raw)
		if topic == "" || containsFold(prefs.MonitoringTopics, topic) {
			continue
		}
		prefs.MonitoringTopics = append(prefs.MonitoringTopics, topic)
		applied = append(applied, "✅ Now tracking: "+topic)
	}

	for _, raw := range changes.Remove {
		topic := ValidateTopicName(raw)
		if topic == "" {
			continue
		}
		kept := prefs.MonitoringTopics[:0]
		removed := false
		for _, existing := range prefs.MonitoringTopics {
			if strings.EqualFold(existing, topic) {
				removed = true
				continue
			}
			kept = append(kept, existing)
		}
		prefs.MonitoringTopics = kept
		if removed {
			applied = append(applied, "❌ Stopped tracking: "+topic)
		}
	}

	return applied
}

// ApplyEmailChange mutates prefs in place and returns human-readable lines
// for the applied change. Frequency changes imply enabling notifications;
// the frequency is clamped to [1, 24] hours.
func ApplyEmailChange(prefs *model.Preferences, change *EmailChange) []string {
	if change == nil {
		return nil
	}

	var applied []string
	switch change.Action {
	case EmailActionEnable:
		prefs.EmailNotifications = true
		if change.FrequencyHours > 0 {
			prefs.EmailFrequencyHours = clampHours(change.FrequencyHours)
		}
		prefs.UrgentOnly = change.UrgentOnly
		applied = append(applied, "✅ Email notifications enabled")

	case EmailActionDisable:
		prefs.EmailNotifications = false
		applied = append(applied, "❌ Email notifications disabled")

	case EmailActionChangeFrequency:
		hours := clampHours(change.FrequencyHours)
		prefs.EmailFrequencyHours = hours
		prefs.UrgentOnly = change.UrgentOnly
		if !prefs.EmailNotifications {
			prefs.EmailNotifications = true
			applied = append(applied, "✅ Email notifications enabled")
		}
		applied = append(applied, "⏰ Email frequency set to "+DescribeFrequency(hours))
	}
	return applied
}

func clampHours(h int) int {
	if h < 1 {
		return 1
	}
	if h > 24 {
		return 24
	}
	return h
}

// DescribeFrequency renders an hour interval for chat and email copy.
func DescribeFrequency(hours int) string {
	switch {
	case hours <= 1:
		return "every hour"
	case hours >= 24:
		return "daily"
	default:
		return fmt.Sprintf("every %d hours", hours)
	}
}

func containsFold(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}

// Union merges additions into base, skipping case-insensitive duplicates
// and preserving order.
func Union(base, additions []string) []string {
	out := append([]string{}, base...)
	for _, raw := range additions {
		topic := strings.TrimSpace(raw)
		if topic == "" || containsFold(out, topic) {
			continue
		}
		out = append(out, topic)
	}
	return out
}
