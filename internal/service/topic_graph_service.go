package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brightpath/studyplan-core/internal/models"
	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

const (
	topicRunCap        = 50
	topicTitleMaxLen   = 200
	topicNotesMaxLen   = 200
	sourceQuoteMaxLen  = 100
	defaultEstHours    = 1.0
	defaultScoreWeight = 3
)

// TopicGraphService sanitizes raw extractor output into a validated,
// acyclic set of topics and assigns stable persistence identifiers.
type TopicGraphService struct {
	idFactory func() string
}

// NewTopicGraphService builds a topic graph service. idFactory generates
// system identifiers at persistence time; tests may supply a deterministic one.
func NewTopicGraphService(idFactory func() string) *TopicGraphService {
	return &TopicGraphService{idFactory: idFactory}
}

// SanitizeResult is the outcome of Sanitize, carrying diagnostics alongside
// the cleaned topics (per-item issues never fail the call).
type SanitizeResult struct {
	Topics              []models.RawTopic
	Notes               []string
	TruncatedDueToQuota bool
}

// Sanitize validates and clamps a list of loosely-typed extractor records,
// deduplicating by case-insensitive trimmed title and capping the result to
// the per-run cap and the caller's remaining quota.
func (s *TopicGraphService) Sanitize(rawTopics []models.RawTopic, quota int) (SanitizeResult, error) {
	if rawTopics == nil {
		return SanitizeResult{}, appErrors.Clone(appErrors.ErrInvalidInput, "raw topic list must be a sequence")
	}

	result := SanitizeResult{Topics: make([]models.RawTopic, 0, len(rawTopics))}
	seenTitles := make(map[string]struct{}, len(rawTopics))

	for i, raw := range rawTopics {
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			result.Notes = append(result.Notes, fmt.Sprintf("topic at index %d dropped: missing title", i))
			continue
		}
		if len(title) > topicTitleMaxLen {
			title = title[:topicTitleMaxLen]
		}

		key := strings.ToLower(title)
		if _, dup := seenTitles[key]; dup {
			result.Notes = append(result.Notes, fmt.Sprintf("duplicate title %q discarded", title))
			continue
		}
		seenTitles[key] = struct{}{}

		clean := raw
		clean.Title = title
		clean.DifficultyWeight = clampScore(raw.DifficultyWeight)
		clean.ExamImportance = clampScore(raw.ExamImportance)
		clean.EstimatedHours = clampHours(raw.EstimatedHours)
		clean.ConfidenceLevel = string(normalizeConfidence(raw.ConfidenceLevel))

		notes := strings.TrimSpace(raw.Notes)
		if len(notes) > topicNotesMaxLen {
			notes = notes[:topicNotesMaxLen]
		}
		clean.Notes = notes

		quote := strings.TrimSpace(raw.SourceQuote)
		if len(quote) > sourceQuoteMaxLen {
			quote = quote[:sourceQuoteMaxLen]
		}
		clean.SourceQuote = quote

		clean.TopicKey = s.resolveTopicKey(raw.TopicKey, i, result.Topics)

		result.Topics = append(result.Topics, clean)
	}

	if len(result.Topics) > topicRunCap {
		result.Notes = append(result.Notes, fmt.Sprintf("run exceeded cap of %d topics; tail discarded", topicRunCap))
		result.Topics = result.Topics[:topicRunCap]
	}

	if quota >= 0 && len(result.Topics) > quota {
		result.TruncatedDueToQuota = true
		result.Notes = append(result.Notes, "topic list truncated to remaining quota")
		result.Topics = result.Topics[:quota]
	}

	if len(result.Topics) == 0 {
		return result, appErrors.ErrNoValidTopics
	}

	return result, nil
}

func (s *TopicGraphService) resolveTopicKey(key string, index int, existing []models.RawTopic) string {
	key = strings.TrimSpace(key)
	if key == "" || keyUsed(key, existing) {
		key = fmt.Sprintf("t%02d", index)
	}
	if keyUsed(key, existing) {
		key = key + "-" + strconv.FormatInt(time.Now().UTC().UnixNano()%1_000_000, 36)
	}
	return key
}

func keyUsed(key string, existing []models.RawTopic) bool {
	for _, t := range existing {
		if t.TopicKey == key {
			return true
		}
	}
	return false
}

func clampScore(raw any) int {
	v, ok := toFloat(raw)
	if !ok {
		return defaultScoreWeight
	}
	n := int(v)
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func clampHours(raw any) float64 {
	v, ok := toFloat(raw)
	if !ok {
		return defaultEstHours
	}
	if v < 0.5 {
		return 0.5
	}
	if v > 5.0 {
		return 5.0
	}
	return v
}

func normalizeConfidence(raw string) models.ConfidenceLevel {
	switch models.ConfidenceLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case models.ConfidenceHigh:
		return models.ConfidenceHigh
	case models.ConfidenceLow:
		return models.ConfidenceLow
	default:
		return models.ConfidenceMedium
	}
}

func toSourcePage(raw any) int {
	v, ok := toFloat(raw)
	if !ok || v < 0 {
		return 0
	}
	return int(v)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// CycleResult is the outcome of DetectAndBreakCycles.
type CycleResult struct {
	Topics    []models.RawTopic
	Cycles    [][]string
	HasCycles bool
}

// DetectAndBreakCycles performs a stack-based DFS over the prerequisite
// graph. Each time the traversal re-enters a node already on the current
// path, the single edge that closed the cycle (previous node -> re-entered
// node) is recorded for removal. Repair is edge-level, never node-level.
func (s *TopicGraphService) DetectAndBreakCycles(topics []models.RawTopic) CycleResult {
	byKey := make(map[string]int, len(topics))
	for i, t := range topics {
		byKey[t.TopicKey] = i
	}

	removedEdges := make(map[[2]string]struct{})
	var cycles [][]string

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(topics))

	type frame struct {
		key      string
		prereqIx int
		path     []string
	}

	for _, t := range topics {
		if color[t.TopicKey] != white {
			continue
		}

		stack := []frame{{key: t.TopicKey, prereqIx: 0, path: []string{t.TopicKey}}}
		color[t.TopicKey] = gray
		onStack := map[string]struct{}{t.TopicKey: {}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			idx, ok := byKey[top.key]
			if !ok {
				color[top.key] = black
				delete(onStack, top.key)
				stack = stack[:len(stack)-1]
				continue
			}
			prereqs := topics[idx].Prerequisites

			advanced := false
			for top.prereqIx < len(prereqs) {
				next := prereqs[top.prereqIx]
				top.prereqIx++

				if next == top.key {
					continue
				}
				if _, known := byKey[next]; !known {
					continue
				}
				if _, isRemoved := removedEdges[[2]string{top.key, next}]; isRemoved {
					continue
				}

				if _, onPath := onStack[next]; onPath {
					removedEdges[[2]string{top.key, next}] = struct{}{}
					cyclePath := append(append([]string{}, top.path...), next)
					cycles = append(cycles, cyclePath)
					continue
				}
				if color[next] == black {
					continue
				}

				color[next] = gray
				onStack[next] = struct{}{}
				newPath := append(append([]string{}, top.path...), next)
				stack = append(stack, frame{key: next, prereqIx: 0, path: newPath})
				advanced = true
				break
			}

			if advanced {
				continue
			}
			if top.prereqIx >= len(prereqs) {
				color[top.key] = black
				delete(onStack, top.key)
				stack = stack[:len(stack)-1]
			}
		}
	}

	cleaned := make([]models.RawTopic, len(topics))
	for i, t := range topics {
		filtered := t.Prerequisites[:0:0]
		for _, p := range t.Prerequisites {
			if _, removed := removedEdges[[2]string{t.TopicKey, p}]; removed {
				continue
			}
			filtered = append(filtered, p)
		}
		t.Prerequisites = filtered
		cleaned[i] = t
	}

	return CycleResult{Topics: cleaned, Cycles: cycles, HasCycles: len(cycles) > 0}
}

// AssignStableIdentifiers assigns a fresh system identifier to each topic
// and resolves AI-level topic_key prerequisite references to those system
// identifiers, dropping unknown keys and self-references.
func (s *TopicGraphService) AssignStableIdentifiers(raw []models.RawTopic, courseID, userID, extractionRunID string) []models.Topic {
	keyToID := make(map[string]string, len(raw))
	for _, t := range raw {
		keyToID[t.TopicKey] = s.idFactory()
	}

	now := time.Now().UTC()
	topics := make([]models.Topic, 0, len(raw))
	for _, t := range raw {
		id := keyToID[t.TopicKey]

		prereqIDs := make([]string, 0, len(t.Prerequisites))
		for _, key := range t.Prerequisites {
			if key == t.TopicKey {
				continue
			}
			if resolved, ok := keyToID[key]; ok {
				prereqIDs = append(prereqIDs, resolved)
			}
		}

		topics = append(topics, models.Topic{
			ID:               id,
			CourseID:         courseID,
			UserID:           userID,
			TopicKey:         t.TopicKey,
			Title:            t.Title,
			DifficultyWeight: clampScore(t.DifficultyWeight),
			ExamImportance:   clampScore(t.ExamImportance),
			EstimatedHours:   clampHours(t.EstimatedHours),
			ConfidenceLevel:  normalizeConfidence(t.ConfidenceLevel),
			Notes:            t.Notes,
			SourcePage:       toSourcePage(t.SourcePage),
			SourceQuote:      t.SourceQuote,
			Prerequisites:    prereqIDs,
			Status:           models.TopicNotStarted,
			ExtractionRunID:  extractionRunID,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	return topics
}
