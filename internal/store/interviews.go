package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/veselov/interview-coach/internal/interview"
)

type Interviews struct {
	db *gorm.DB
}

func NewInterviews(db *gorm.DB) *Interviews {
	return &Interviews{db: db}
}

// Save persists a finished interview handed over by the session.
func (s *Interviews) Save(ctx context.Context, rec *interview.Record) error {
	model, err := NewInterviewRecord(rec)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("save interview: %w", err)
	}

	return nil
}

// ListByUser returns the user's finished interviews, newest first.
func (s *Interviews) ListByUser(ctx context.Context, userID uint) ([]InterviewRecord, error) {
	var records []InterviewRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}

	return records, nil
}
