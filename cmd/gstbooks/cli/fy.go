package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gstbooks/gstbooks/internal/fiscal"
)

// FYSummary describes the financial year containing a date.
type FYSummary struct {
	Date          string `json:"date"`
	FinancialYear string `json:"financial_year"`
	Quarter       int    `json:"quarter"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

// DescribeFY labels the financial year and quarter that contain date.
func DescribeFY(date time.Time, startMonth int) (FYSummary, error) {
	label := fiscal.FinancialYear(date, startMonth)
	start, end, err := fiscal.Bounds(label, startMonth)
	if err != nil {
		return FYSummary{}, err
	}
	return FYSummary{
		Date:          date.Format(time.DateOnly),
		FinancialYear: label,
		Quarter:       fiscal.Quarter(date, startMonth),
		Start:         start.Format(time.DateOnly),
		End:           end.Format(time.DateOnly),
	}, nil
}

func newFYCommand() *cobra.Command {
	var (
		startMonth int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:     "fy [date]",
		Short:   "Print the financial year for a date (default today)",
		Example: "  gstbooks fy 2025-03-31\n  gstbooks fy --start-month 1 --json",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().UTC()
			if len(args) == 1 {
				parsed, err := time.Parse(time.DateOnly, args[0])
				if err != nil {
					return fmt.Errorf("invalid date %q, use YYYY-MM-DD", args[0])
				}
				date = parsed
			}
			if startMonth < 1 || startMonth > 12 {
				return fmt.Errorf("start month must be between 1 and 12")
			}
			summary, err := DescribeFY(date, startMonth)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprintf(out, "%s  FY %s  Q%d  (%s to %s)\n",
				summary.Date, summary.FinancialYear, summary.Quarter, summary.Start, summary.End)
			return nil
		},
	}
	cmd.Flags().IntVar(&startMonth, "start-month", int(fiscal.DefaultStartMonth), "first month of the financial year")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
