package interview

// Summary is the displayable outcome of a finished interview.
type Summary struct {
	OverallScore float64         `json:"overall_score"`
	Verdict      string          `json:"verdict"`
	Answered     int             `json:"answered"`
	Scores       map[int]float64 `json:"scores"`
}

// Summarize combines the per-question scores with the backend-declared final
// result. The backend final score is authoritative; the arithmetic mean of
// per-question scores is used only when the backend did not declare one.
func Summarize(scores map[int]float64, finalScore *float64, verdict string, answered int) *Summary {
	overall := 0.0
	switch {
	case finalScore != nil:
		overall = *finalScore
	case len(scores) > 0:
		sum := 0.0
		for _, score := range scores {
			sum += score
		}
		overall = sum / float64(len(scores))
	}

	copied := make(map[int]float64, len(scores))
	for q, score := range scores {
		copied[q] = score
	}

	return &Summary{
		OverallScore: overall,
		Verdict:      verdict,
		Answered:     answered,
		Scores:       copied,
	}
}

// Summary returns the aggregated result of a finished session.
func (s *Session) Summary() (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusFinished {
		return nil, ErrNotFinished
	}
	return Summarize(s.scores, s.finalScore, s.verdict, s.answered), nil
}
