package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/veselov/interview-coach/internal/interview"
	"github.com/veselov/interview-coach/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Interviewer drives one interview turn against Gemini: it formats the
// prompt from the role context and transcript, executes a single generation
// call and decodes the reply into a TurnResult. Malformed replies degrade to
// a raw-text result instead of failing.
type Interviewer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewInterviewer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Interviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Interviewer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// NextTurn implements interview.Interviewer. The last transcript turn is the
// candidate answer being responded to. An error is returned only when the
// backend call itself fails; unparseable output becomes a degraded result.
func (i *Interviewer) NextTurn(ctx context.Context, role *interview.RoleContext, transcript []interview.Turn) (*interview.TurnResult, error) {
	if role == nil {
		return nil, fmt.Errorf("role context is required")
	}
	if len(transcript) == 0 || transcript[len(transcript)-1].Speaker != interview.SpeakerCandidate {
		return nil, fmt.Errorf("transcript must end with a candidate turn")
	}

	prompt := BuildPrompt(role, transcript)

	i.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, i.maxLogLen)),
	)

	raw, err := i.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	i.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, i.maxLogLen)),
	)

	result := parseTurn(raw)
	if result.Degraded {
		i.logger.Warn("unparseable interviewer reply, degrading to raw text",
			zap.String("response_preview", utils.TruncateForLog(raw, i.maxLogLen)),
		)
	}

	return result, nil
}

// BuildPrompt renders the full prompt for one turn. It is a pure function of
// its inputs: equal role context and transcript produce byte-identical
// prompts.
func BuildPrompt(role *interview.RoleContext, transcript []interview.Turn) string {
	history, input := splitTranscript(transcript)

	prompt := strings.ReplaceAll(promptTemplate, "{{JOB_DESCRIPTION}}", renderJobDescription(role))
	prompt = strings.ReplaceAll(prompt, "{{RESUME}}", strings.TrimSpace(role.Resume))
	prompt = strings.ReplaceAll(prompt, "{{HISTORY}}", history)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_INPUT}}", input)

	if scoredTurns(transcript) >= interview.TotalQuestions {
		prompt += "\nAll 5 answers have been received. Do not ask another question: reply with status \"finished\", the final_score and the verdict.\n"
	}

	return prompt
}

func renderJobDescription(role *interview.RoleContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\n", role.JobTitle)
	fmt.Fprintf(&b, "Company: %s\n", role.Company)
	fmt.Fprintf(&b, "Seniority: %s", role.Level)
	if len(role.Skills) > 0 {
		fmt.Fprintf(&b, "\nKey skills: %s", strings.Join(role.Skills, ", "))
	}
	return b.String()
}

// splitTranscript separates the newest candidate utterance from the history
// rendered as alternating speaker-prefixed lines.
func splitTranscript(transcript []interview.Turn) (history, input string) {
	if len(transcript) == 0 {
		return "", ""
	}

	last := transcript[len(transcript)-1]
	input = last.Text

	var b strings.Builder
	for _, turn := range transcript[:len(transcript)-1] {
		label := "Interviewer"
		if turn.Speaker == interview.SpeakerCandidate {
			label = "Candidate"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, turn.Text)
	}

	return b.String(), input
}

func scoredTurns(transcript []interview.Turn) int {
	count := 0
	for _, turn := range transcript {
		if turn.Speaker == interview.SpeakerInterviewer && turn.Score != nil {
			count++
		}
	}
	return count
}

// turnPayload is the wire shape the model is instructed to emit. Decoded
// weakly because the model occasionally quotes numbers or drops fields.
type turnPayload struct {
	Message    string   `mapstructure:"message"`
	Status     string   `mapstructure:"status"`
	Score      *float64 `mapstructure:"score"`
	FinalScore *float64 `mapstructure:"final_score"`
	Verdict    string   `mapstructure:"verdict"`
}

// parseTurn decodes the raw model output. Anything that cannot be decoded
// into a coherent turn becomes a degraded result carrying the fence-stripped
// raw text, so a malformed reply never crashes the session.
func parseTurn(raw string) *interview.TurnResult {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return degradedTurn(cleaned, raw)
	}

	var payload turnPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return degradedTurn(cleaned, raw)
	}
	if err := decoder.Decode(data); err != nil {
		return degradedTurn(cleaned, raw)
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		return degradedTurn(cleaned, raw)
	}

	var status interview.Status
	switch strings.ToLower(strings.TrimSpace(payload.Status)) {
	case "ongoing":
		status = interview.StatusOngoing
	case "finished":
		status = interview.StatusFinished
	default:
		return degradedTurn(cleaned, raw)
	}

	verdict := strings.ToUpper(strings.TrimSpace(payload.Verdict))
	if verdict != "" && verdict != interview.VerdictSelected && verdict != interview.VerdictNotSelected {
		return degradedTurn(cleaned, raw)
	}

	// A finished turn must carry the full verdict; otherwise the session
	// cannot terminate coherently and the reply is treated as unparseable.
	if status == interview.StatusFinished && (payload.FinalScore == nil || verdict == "") {
		return degradedTurn(cleaned, raw)
	}

	return &interview.TurnResult{
		Message:    message,
		Status:     status,
		Score:      payload.Score,
		FinalScore: payload.FinalScore,
		Verdict:    verdict,
		Raw:        raw,
	}
}

func degradedTurn(cleaned, raw string) *interview.TurnResult {
	return &interview.TurnResult{
		Message:  cleaned,
		Status:   interview.StatusOngoing,
		Degraded: true,
		Raw:      raw,
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
