package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"quiz-result-service/internal/config"
	"quiz-result-service/internal/domain"
	"quiz-result-service/internal/infra/memory"

	"github.com/spf13/cobra"
)

// NewValidateCmd reports malformed tests, most importantly result conditions
// that can never match.
func NewValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [test-id...]",
		Short: "Check tests for malformed result conditions",
		Long:  "Loads each test and reports problems. Without arguments the built-in sample tests are checked when no Postgres is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			b, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if len(args) == 0 {
				if b.pool != nil {
					return fmt.Errorf("test ids required when postgres is configured")
				}
				for id := range sampleTests() {
					args = append(args, id)
				}
				sort.Strings(args)
			}
			return validateTests(cmd.Context(), cmd.OutOrStdout(), b.testLoader(), args)
		},
	}
}

func validateTests(ctx context.Context, out io.Writer, loader memory.TestLoader, testIDs []string) error {
	failed := 0
	for _, id := range testIDs {
		test, err := loader.LoadTest(ctx, id)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", id, err)
			failed++
			continue
		}
		problems := test.Validate()
		if len(problems) == 0 {
			fmt.Fprintf(out, "%s: ok (%d questions, %d results)\n", id, len(test.Questions), len(test.Results))
			continue
		}
		failed++
		for _, p := range problems {
			fmt.Fprintf(out, "%s: %v\n", id, p)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tests invalid: %w", failed, len(testIDs), domain.ErrMalformedMatchCondition)
	}
	return nil
}
