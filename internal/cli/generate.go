package cli

import (
	"encoding/json"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/domain"
)

// NewGenerateCmd generates one quiz against the configured provider and prints it as JSON.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var (
		params app.GenerateParams
		types  []string
		userID string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			params.QuestionTypes = lo.Map(types, func(t string, _ int) domain.QuestionType { return domain.QuestionType(t) })
			quiz, err := svc.quizzes.Generate(cmd.Context(), userID, params)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(quiz)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.Topic, "topic", "", "quiz topic (required)")
	f.StringVar(&params.Title, "title", "", "quiz title (default: \"<topic> quiz\")")
	difficulty := string(domain.DifficultyMedium)
	f.StringVar(&difficulty, "difficulty", difficulty, "easy, medium or hard")
	f.StringSliceVar(&types, "types", []string{string(domain.QuestionSingleChoice)}, "question types: mcq, true-false, multiple-correct")
	f.IntVar(&params.QuestionCount, "count", 5, "number of questions")
	f.IntVar(&params.TimeLimitSeconds, "time-limit", 0, "time limit in seconds (0 for none)")
	f.BoolVar(&params.IsPublic, "public", false, "make the quiz public")
	f.StringVar(&userID, "user", "cli", "owner id recorded on the quiz")
	_ = cmd.MarkFlagRequired("topic")

	cmd.PreRun = func(*cobra.Command, []string) {
		params.Difficulty = domain.Difficulty(difficulty)
	}
	return cmd
}
