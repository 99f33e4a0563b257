// Package prefs extracts preference changes from conversation text and
// applies them to a user's stored preferences.
package prefs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/ai"
)

// Email change actions the extractor may emit.
const (
	EmailActionEnable          = "enable"
	EmailActionDisable         = "disable"
	EmailActionChangeFrequency = "change_frequency"
)

// TopicChanges is what a message asked to start or stop tracking.
type TopicChanges struct {
	Add       []string `json:"add"`
	Remove    []string `json:"remove"`
	Reasoning string   `json:"reasoning"`
}

// Empty reports whether no topic change was requested.
func (t TopicChanges) Empty() bool { return len(t.Add) == 0 && len(t.Remove) == 0 }

// EmailChange is an email-notification change requested in a message.
// A nil *EmailChange means the message asked for nothing.
type EmailChange struct {
	Action         string `json:"action"`
	FrequencyHours int    `json:"frequency_hours"`
	UrgentOnly     bool   `json:"urgent_only"`
	Reasoning      string `json:"reasoning"`
}

// ConversationInsights is the periodic deep read of a conversation: durable
// interests, concrete topics worth monitoring, a threshold guess, and a
// prose memory summary.
type ConversationInsights struct {
	Interests          []string `json:"interests"`
	MonitoringTopics   []string `json:"monitoring_topics"`
	RelevanceThreshold int      `json:"relevance_threshold"`
	MemorySummary      string   `json:"memory_summary"`
}

// Extractor runs extraction prompts against the model. Extraction failures
// are logged and swallowed; a chat turn must never fail because preference
// parsing did.
type Extractor struct {
	gen ai.Generator
	log zerolog.Logger
}

func NewExtractor(gen ai.Generator, log zerolog.Logger) *Extractor {
	return &Extractor{gen: gen, log: log}
}

const topicPrompt = `Analyze this message for news topic tracking requests.

Message: %s

The user may ask to track, follow, monitor, or watch topics, or to stop tracking them. Extract concrete topic names only (e.g. "Tesla Stock", "AI Regulation"), not vague sentiment.

Return ONLY a JSON object, no markdown fences:
{
  "add": ["topics the user wants to start tracking"],
  "remove": ["topics the user wants to stop tracking"],
  "reasoning": "one short sentence"
}

If the message asks for no tracking changes, return {"add": [], "remove": [], "reasoning": "no change requested"}.`

// TopicChanges extracts requested topic additions and removals from a
// message. On any failure it returns an empty change set.
func (e *Extractor) TopicChanges(ctx context.Context, message string) TopicChanges {
	raw, err := e.gen.Generate(ctx, fmt.Sprintf(topicPrompt, message))
	if err != nil {
		e.log.Debug().Err(err).Msg("topic extraction failed")
		return TopicChanges{}
	}
	var out TopicChanges
	if err := ai.Decode(raw, &out); err != nil {
		e.log.Debug().Err(err).Msg("topic extraction output unparsable")
		return TopicChanges{}
	}
	return out
}

const emailPrompt = `Analyze this message for email notification requests.

Message: %s

The user may ask to enable or disable email updates, or to change how often they arrive (e.g. "email me daily", "every 2 hours", "only urgent news", "stop emailing me").

Return ONLY a JSON object, no markdown fences:
{
  "action": "enable" | "disable" | "change_frequency" | "none",
  "frequency_hours": integer hours between emails (24 for daily, 1 for hourly),
  "urgent_only": true if the user only wants urgent news,
  "reasoning": "one short sentence"
}`

// EmailChange extracts a requested email-notification change from a
// message, or nil when none was asked for or extraction failed.
func (e *Extractor) EmailChange(ctx context.Context, message string) *EmailChange {
	raw, err := e.gen.Generate(ctx, fmt.Sprintf(emailPrompt, message))
	if err != nil {
		e.log.Debug().Err(err).Msg("email extraction failed")
		return nil
	}
	var out EmailChange
	if err := ai.Decode(raw, &out); err != nil {
		e.log.Debug().Err(err).Msg("email extraction output unparsable")
		return nil
	}
	switch out.Action {
	case EmailActionEnable, EmailActionDisable, EmailActionChangeFrequency:
		return &out
	default:
		return nil
	}
}

const insightsPrompt = `Analyze this conversation between a user and their news assistant.

Conversation:
%s

Extract what the user durably cares about. Return ONLY a JSON object, no markdown fences:
{
  "interests": ["broad interest areas"],
  "monitoring_topics": ["concrete news topics worth tracking"],
  "relevance_threshold": 0-100 integer, how selective the user seems (higher = only very relevant news),
  "memory_summary": "2-3 sentences about who this user is and what they want from news"
}`

// Insights runs the deep conversation analysis. Returns nil on any failure.
func (e *Extractor) Insights(ctx context.Context, conversation string) *ConversationInsights {
	raw, err := e.gen.Generate(ctx, fmt.Sprintf(insightsPrompt, conversation))
	if err != nil {
		e.log.Debug().Err(err).Msg("conversation analysis failed")
		return nil
	}
	var out ConversationInsights
	if err := ai.Decode(raw, &out); err != nil {
		e.log.Debug().Err(err).Msg("conversation analysis output unparsable")
		return nil
	}
	return &out
}
