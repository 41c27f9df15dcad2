package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/spf13/cobra"
)

// parseGrade accepts a numeric grade, clamped to 0..5, or an answer button.
func parseGrade(s string) (domain.Grade, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return domain.Grade(n).Clamp(), nil
	}
	answer, err := domain.ParseAnswer(s)
	if err != nil {
		return 0, err
	}
	return answer.Grade()
}

// readCards collects card references from arguments and an optional JSON
// file holding an array of cards.
func readCards(args []string, file string) ([]domain.CardRef, error) {
	cards := make([]domain.CardRef, 0, len(args))
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
	}
	for _, id := range args {
		cards = append(cards, domain.CardRef{ID: id})
	}
	return cards, nil
}

func newReviewCmd(s *session) *cobra.Command {
	var seconds float64
	cmd := &cobra.Command{
		Use:   "review CARD GRADE",
		Short: "Record an answer for a card",
		Long: "Record an answer for a card. GRADE is a number from 0 to 5 " +
			"or one of again, hard, good and easy.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grade, err := parseGrade(args[1])
			if err != nil {
				return err
			}
			var responseTime *time.Duration
			if cmd.Flags().Changed("time") {
				if seconds < 0 {
					return fmt.Errorf("response time cannot be negative")
				}
				d := time.Duration(seconds * float64(time.Second))
				responseTime = &d
			}
			state, err := s.study.RecordAnswer(cmd.Context(), s.userID, args[0], grade, responseTime)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state)
		},
	}
	cmd.Flags().Float64Var(&seconds, "time", 0, "response time in seconds")
	return cmd
}

func newDueCmd(s *session) *cobra.Command {
	var (
		file  string
		batch bool
	)
	cmd := &cobra.Command{
		Use:   "due [CARD...]",
		Short: "List the cards that are due",
		Long: "List the cards that are due, most overdue first. With --batch " +
			"the result is the next study batch under the daily limits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := readCards(args, file)
			if err != nil {
				return err
			}
			if batch {
				cards, err = s.study.StudyBatch(cmd.Context(), s.userID, cards)
			} else {
				cards, err = s.study.DueCards(cmd.Context(), s.userID, cards)
			}
			if err != nil {
				return err
			}
			for _, c := range cards {
				fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with an array of cards")
	cmd.Flags().BoolVar(&batch, "batch", false, "apply the daily new card and review limits")
	return cmd
}

func newPostponeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "postpone CARD DAYS",
		Short: "Push a card's next review into the future",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid days %q", args[1])
			}
			state, err := s.study.Postpone(cmd.Context(), s.userID, args[0], days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state)
		},
	}
}

func newStatsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show study statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := s.study.Stats(cmd.Context(), s.userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newHistoryCmd(s *session) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show reviews per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, err := s.study.History(cmd.Context(), s.userID, days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), history)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "number of days to show")
	return cmd
}

func newDifficultyCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "difficulty",
		Short: "Show how cards spread over ease bands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dist, err := s.study.DifficultyDistribution(cmd.Context(), s.userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dist)
		},
	}
}

func newResetCmd(s *session) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reset [CARD]",
		Short: "Forget a card, or with --all every card and statistic",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("--all takes no card")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("a card or --all is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if all {
				if err := s.study.ResetAll(cmd.Context(), s.userID); err != nil {
					return err
				}
				fmt.Fprintln(out, "all study progress reset")
				return nil
			}
			removed, err := s.study.ResetCard(cmd.Context(), s.userID, args[0])
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(out, "card %s reset\n", args[0])
			} else {
				fmt.Fprintf(out, "card %s had no state\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reset every card and the statistics")
	return cmd
}

func newAdaptCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "adapt",
		Short: "Tune the policy from recent performance",
		Long: "Compute adjustments from recent performance. They are applied " +
			"only when the adaptive mode is automatic.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := s.study.Adapt(cmd.Context(), s.userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}
