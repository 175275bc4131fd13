package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/internal/validation"
	"github.com/sonderhq/sonder/pkg/models"
)

// ChatCompletionService abstracts the OpenAI chat completion client so tests
// can inject canned responses.
type ChatCompletionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

const curatorSystemPrompt = `You are a local discovery curator for a city guide app. You receive a ` +
	`user's taste summary and a numbered list of candidate items in JSON. Pick the best weekly ` +
	`and monthly highlights for this user. Respond with ONLY a JSON object, no markdown, no ` +
	`commentary, matching exactly this shape:
{"weekly_pick_ids": ["..."], "monthly_pick_ids": ["..."], "reasons_by_id": {"id": "short reason"}, "summary_text": "..."}
You must only use "id" values that appear in the candidate list. Never invent IDs.`

// rawCurationOutput mirrors the JSON shape the model is instructed to emit.
type rawCurationOutput struct {
	WeeklyPickIDs  []string          `json:"weekly_pick_ids"`
	MonthlyPickIDs []string          `json:"monthly_pick_ids"`
	ReasonsByID    map[string]string `json:"reasons_by_id"`
	SummaryText    string            `json:"summary_text"`
}

// CurationVerdict is the sanitizer's outcome for one AI response: either an
// accepted, fully-filtered output or a rejection with the reason recorded.
type CurationVerdict struct {
	Accepted bool
	Output   *models.SuggestionOutput
	Reason   string
}

// AICurator generates weekly and monthly picks through a language model. The
// model is treated as untrusted input: its output is schema-validated and
// every referenced ID is checked against the candidate set before use.
// Any failure yields nil, which callers interpret as "use the deterministic
// path"; curation never hard-fails because of the model.
type AICurator struct {
	completions ChatCompletionService
	validator   *validation.SchemaValidator
	config      *config.CuratorConfig
	metrics     *MetricsCollector
	logger      *logrus.Logger
}

func NewAICurator(
	cfg *config.CuratorConfig,
	validator *validation.SchemaValidator,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *AICurator {
	c := &AICurator{
		validator: validator,
		config:    cfg,
		metrics:   metrics,
		logger:    logger,
	}
	if cfg.Enabled && cfg.APIKey != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
		c.completions = client.Chat.Completions
	}
	return c
}

// NewAICuratorWithService is the test seam.
func NewAICuratorWithService(
	cfg *config.CuratorConfig,
	completions ChatCompletionService,
	validator *validation.SchemaValidator,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *AICurator {
	return &AICurator{
		completions: completions,
		validator:   validator,
		config:      cfg,
		metrics:     metrics,
		logger:      logger,
	}
}

// GenerateAISuggestions returns curated picks, or nil when disabled,
// unconfigured, given no candidates, or when the model output fails
// validation.
func (c *AICurator) GenerateAISuggestions(
	ctx context.Context,
	tasteSummary string,
	candidates []models.Candidate,
) *models.SuggestionOutput {
	if !c.config.Enabled || c.completions == nil {
		return nil
	}
	if len(candidates) == 0 {
		c.logger.Debug("No candidates for AI curation")
		return nil
	}

	if c.config.MaxCandidates > 0 && len(candidates) > c.config.MaxCandidates {
		candidates = candidates[:c.config.MaxCandidates]
	}

	prompt, err := c.buildPrompt(tasteSummary, candidates)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to build curation prompt")
		return nil
	}

	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(curatorSystemPrompt),
			openai.UserMessage(prompt),
		}),
		Model: openai.F(openai.ChatModel(c.config.Model)),
	})
	if err != nil {
		c.logger.WithError(err).Warn("AI curation request failed")
		c.recordOutcome("request_error")
		return nil
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("AI curation returned no choices")
		c.recordOutcome("empty_response")
		return nil
	}

	verdict := c.sanitize(resp.Choices[0].Message.Content, candidates)
	if !verdict.Accepted {
		c.logger.WithField("reason", verdict.Reason).Warn("AI curation output rejected")
		c.recordOutcome("rejected_" + verdict.Reason)
		return nil
	}

	c.recordOutcome("accepted")
	return verdict.Output
}

func (c *AICurator) buildPrompt(tasteSummary string, candidates []models.Candidate) (string, error) {
	candidateJSON, err := json.Marshal(candidates)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("User taste summary:\n")
	b.WriteString(tasteSummary)
	b.WriteString("\n\nCandidates:\n")
	b.Write(candidateJSON)
	b.WriteString("\n\nPick up to ")
	b.WriteString(strconv.Itoa(c.config.WeeklyPickCount))
	b.WriteString(" weekly picks (happening soon) and up to ")
	b.WriteString(strconv.Itoa(c.config.MonthlyPickCount))
	b.WriteString(" monthly picks (worth planning for). Provide a one-sentence reason per pick keyed by id.")
	return b.String(), nil
}

// sanitize applies the trust boundary: schema validation, ID whitelisting
// against the candidate set, and minimum-viability thresholds. A response
// that survives with too few valid picks is rejected whole rather than
// padded, so a half-hallucinated answer never ships.
func (c *AICurator) sanitize(raw string, candidates []models.Candidate) CurationVerdict {
	raw = stripCodeFences(raw)

	if result := c.validator.ValidateCurationOutput(raw); !result.Valid {
		c.logger.WithField("errors", result.ErrorSummary()).Debug("Curation schema validation failed")
		return CurationVerdict{Reason: "schema"}
	}

	var parsed rawCurationOutput
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return CurationVerdict{Reason: "unmarshal"}
	}

	known := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		known[cand.ID] = true
	}

	weekly := filterKnownIDs(parsed.WeeklyPickIDs, known)
	monthly := filterKnownIDs(parsed.MonthlyPickIDs, known)
	if len(weekly) < c.config.MinViableWeekly || len(monthly) < c.config.MinViableMonthly {
		return CurationVerdict{Reason: "below_minimum"}
	}
	if c.config.WeeklyPickCount > 0 && len(weekly) > c.config.WeeklyPickCount {
		weekly = weekly[:c.config.WeeklyPickCount]
	}
	if c.config.MonthlyPickCount > 0 && len(monthly) > c.config.MonthlyPickCount {
		monthly = monthly[:c.config.MonthlyPickCount]
	}

	reasons := make(map[string]string)
	for id, reason := range parsed.ReasonsByID {
		if known[id] {
			reasons[id] = reason
		}
	}

	return CurationVerdict{
		Accepted: true,
		Output: &models.SuggestionOutput{
			WeeklyPickIDs:  weekly,
			MonthlyPickIDs: monthly,
			ReasonsByID:    reasons,
			SummaryText:    parsed.SummaryText,
			Source:         "ai",
			GeneratedAt:    time.Now(),
		},
	}
}

func (c *AICurator) recordOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordCurationOutcome("ai", outcome)
	}
}

func filterKnownIDs(ids []string, known map[string]bool) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if known[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// stripCodeFences removes a surrounding markdown code block, which some
// models emit despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
