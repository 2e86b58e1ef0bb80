package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/racearchive/internal/domain/model"
	"github.com/okian/racearchive/internal/domain/resolver"
)

var errYearRequired = errors.New("--year is required")

func addYearFlag(cmd *cobra.Command, year *int) {
	cmd.Flags().IntVarP(year, "year", "y", 0, "Target year")
}

func checkYear(year int) error {
	if year <= 0 {
		return errYearRequired
	}
	return nil
}

func newMatchCommand(cc *commandContext) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve runner identities for one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkYear(year); err != nil {
				return err
			}
			out, err := cc.svc.Match(cmd.Context(), year)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}
	addYearFlag(cmd, &year)
	return cmd
}

func newReviewCommand(cc *commandContext) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Rule on pending warnings for one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkYear(year); err != nil {
				return err
			}
			p := newPrompter(cc.in, cmd.OutOrStdout(), stdinIsTerminal(cc.in))
			p.lookup = func(id string) (*model.Runner, error) {
				return cc.svc.Runner(cmd.Context(), id)
			}
			out, err := cc.svc.Review(cmd.Context(), year, p.drive(cmd.Context()))
			if out != nil {
				printOutcome(cmd.OutOrStdout(), out)
			}
			return err
		},
	}
	addYearFlag(cmd, &year)
	return cmd
}

func newPendingCommand(cc *commandContext) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List the saved warnings for one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkYear(year); err != nil {
				return err
			}
			report, err := cc.svc.Pending(cmd.Context(), year)
			if err != nil {
				return err
			}
			printWarnings(cmd.OutOrStdout(), report)
			return nil
		},
	}
	addYearFlag(cmd, &year)
	return cmd
}

func newRecomputeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild the runner database from every year file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := cc.svc.Recompute(cmd.Context())
			if err != nil {
				return err
			}
			m := db.Metadata
			fmt.Fprintln(cmd.OutOrStdout(), summaryTable([]summaryRow{
				{"Runners", m.TotalRunners},
				{"Participations", m.TotalParticipations},
				{"Years", len(m.YearsIncluded)},
				{"Unassigned results", m.UnassignedResults},
				{"Canonical conflicts", m.CanonicalConflicts},
			}))
			return nil
		},
	}
}

func newRunnerCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runner ID",
		Short: "Show one runner and their race history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := cc.svc.Runner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRunner(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func printOutcome(w io.Writer, out *resolver.Outcome) {
	s := out.Report.Summary
	fmt.Fprintf(w, "Year %d\n", out.Report.TargetYear)
	fmt.Fprintln(w, summaryTable([]summaryRow{
		{"Results", s.TotalNewResults},
		{"Already resolved", s.AlreadyResolved},
		{"Ledger applied", s.LedgerApplied},
		{"Stale decisions", s.StaleDecisions},
		{"Alias matches", s.AliasMatches},
		{"Auto-assigned", s.AutoAssigned},
		{"New runners", s.NewRunners},
		{"Uncertain matches", s.UncertainMatches},
		{"Duplicate pairs", s.DuplicatePairs},
		{"Pending", s.Pending},
	}))
}

func printWarnings(w io.Writer, report *model.WarningReport) {
	if len(report.UncertainMatches) == 0 && len(report.DuplicatesInNewYear) == 0 {
		fmt.Fprintf(w, "No pending warnings for %d\n", report.TargetYear)
		return
	}
	if len(report.UncertainMatches) > 0 {
		rows := make([][]string, 0, len(report.UncertainMatches))
		for _, m := range report.UncertainMatches {
			rows = append(rows, []string{
				strconv.Itoa(m.Result.Position), m.Result.Name, m.SuggestedID,
				strconv.FormatFloat(m.Confidence, 'f', 4, 64), m.Reason,
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Pos", "Name", "Suggested", "Confidence", "Reason"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft}))
	}
	if len(report.DuplicatesInNewYear) > 0 {
		rows := make([][]string, 0, len(report.DuplicatesInNewYear))
		for _, p := range report.DuplicatesInNewYear {
			rows = append(rows, []string{
				strconv.Itoa(p.Positions[0]) + ", " + strconv.Itoa(p.Positions[1]),
				p.Names[0] + " / " + p.Names[1],
				strconv.FormatFloat(p.Similarity, 'f', 4, 64),
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Positions", "Names", "Similarity"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
	}
}

func printRunner(w io.Writer, r *model.Runner) {
	years := make([]string, len(r.Years))
	for i, y := range r.Years {
		years[i] = strconv.Itoa(y)
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, [][]string{
		{"ID", r.RunnerID},
		{"Name", r.CanonicalName + " (" + string(r.CanonicalNameSource) + ")"},
		{"Gender", string(r.Gender)},
		{"Club", r.MostCommonClub},
		{"Years", strings.Join(years, ", ")},
		{"Races", strconv.Itoa(r.TotalRaces)},
	}, nil))
	fmt.Fprintln(w, historyTable(r.History))
}

func historyTable(history []model.Race) string {
	rows := make([][]string, 0, len(history))
	for _, h := range history {
		rows = append(rows, []string{
			strconv.Itoa(h.Year), strconv.Itoa(h.Position), h.Name, h.Category, h.Club, h.Time,
		})
	}
	return renderTable(
		[]string{"Year", "Pos", "Name", "Category", "Club", "Time"}, rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight})
}
