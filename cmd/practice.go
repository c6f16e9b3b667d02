package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/veselov/interview-coach/internal/interview"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a mock interview in the terminal",
	Run: func(_ *cobra.Command, _ []string) {
		practice()
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)
}

// practice drives a full interview on stdin/stdout. Nothing is persisted;
// the summary is printed once the interviewer delivers the verdict.
func practice() {
	ctx := context.Background()

	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		log.Fatal("config is required")
	}

	iv, err := newInterviewer(ctx, config.AI, log)
	if err != nil {
		log.Fatal("building the interviewer", zap.Error(err))
	}

	role, err := promptRoleContext()
	if err != nil {
		log.Fatal("collecting role setup", zap.Error(err))
	}

	session, err := interview.New(0, role, iv, log)
	if err != nil {
		log.Fatal("creating the session", zap.Error(err))
	}

	fmt.Printf("\nMock interview for %s at %s (%d questions). Introduce yourself to begin.\n\n",
		role.JobTitle, role.Company, interview.TotalQuestions)

	answerPrompt := promptui.Prompt{Label: "You"}

	for session.Status() != interview.StatusFinished {
		text, promptErr := answerPrompt.Run()
		if promptErr != nil {
			fmt.Println("\nInterview abandoned.")
			return
		}

		message, submitErr := session.SubmitAnswer(ctx, text)
		if submitErr != nil {
			if errors.Is(submitErr, interview.ErrEmptyAnswer) {
				continue
			}
			log.Fatal("submitting answer", zap.Error(submitErr))
		}

		fmt.Printf("\nInterviewer: %s\n\n", message)
	}

	summary, err := session.Summary()
	if err != nil {
		log.Fatal("building the summary", zap.Error(err))
	}

	printSummary(summary)
}

func promptRoleContext() (*interview.RoleContext, error) {
	required := func(input string) error {
		if strings.TrimSpace(input) == "" {
			return errors.New("value is required")
		}
		return nil
	}

	jobTitle, err := (&promptui.Prompt{Label: "Job title", Validate: required}).Run()
	if err != nil {
		return nil, err
	}

	company, err := (&promptui.Prompt{Label: "Company", Validate: required}).Run()
	if err != nil {
		return nil, err
	}

	levelPrompt := promptui.Select{
		Label: "Seniority level",
		Items: []string{"Junior", "Mid-Level", "Senior", "Lead/Principal"},
	}
	_, level, err := levelPrompt.Run()
	if err != nil {
		return nil, err
	}

	skillsInput, err := (&promptui.Prompt{Label: "Key skills (comma separated, optional)"}).Run()
	if err != nil {
		return nil, err
	}

	resume, err := (&promptui.Prompt{Label: "Background summary (optional)"}).Run()
	if err != nil {
		return nil, err
	}

	var skills []string
	for _, skill := range strings.Split(skillsInput, ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}

	return &interview.RoleContext{
		JobTitle: jobTitle,
		Company:  company,
		Level:    level,
		Skills:   skills,
		Resume:   resume,
	}, nil
}

func printSummary(summary *interview.Summary) {
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Verdict: %s\n", summary.Verdict)
	fmt.Printf("Overall score: %.1f/10\n", summary.OverallScore)
	fmt.Printf("Questions answered: %d\n", summary.Answered)

	questions := make([]int, 0, len(summary.Scores))
	for q := range summary.Scores {
		questions = append(questions, q)
	}
	sort.Ints(questions)

	for _, q := range questions {
		fmt.Printf("  Question %d: %.1f/10\n", q, summary.Scores[q])
	}
	fmt.Println("--------------------------------------------------")
}
