package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/veselov/interview-coach/internal/interview"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// InterviewRecord is a finished interview as handed over by the session. The
// transcript is stored as an ordered JSON array of {speaker, text} pairs.
type InterviewRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SessionID  string         `gorm:"size:36;uniqueIndex;not null" json:"session_id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	JobTitle   string         `gorm:"not null" json:"job_title"`
	Company    string         `json:"company"`
	Level      string         `json:"level"`
	Transcript datatypes.JSON `gorm:"not null" json:"transcript"`
	FinalScore *float64       `json:"final_score"`
	Verdict    string         `json:"verdict"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewInterviewRecord converts the session's record into its storable form.
func NewInterviewRecord(rec *interview.Record) (*InterviewRecord, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is required")
	}

	transcript, err := json.Marshal(rec.Transcript)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}

	return &InterviewRecord{
		SessionID:  rec.SessionID,
		UserID:     rec.UserID,
		JobTitle:   rec.JobTitle,
		Company:    rec.Company,
		Level:      rec.Level,
		Transcript: datatypes.JSON(transcript),
		FinalScore: rec.FinalScore,
		Verdict:    rec.Verdict,
	}, nil
}

// Turns decodes the stored transcript back into ordered turns.
func (r *InterviewRecord) Turns() ([]interview.Turn, error) {
	var turns []interview.Turn
	if err := json.Unmarshal(r.Transcript, &turns); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return turns, nil
}
