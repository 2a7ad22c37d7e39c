package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yogaportal/attendance-kiosk/internal/config"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
	"github.com/yogaportal/attendance-kiosk/internal/report"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance [date]",
	Short: "Review the attendance of a day",
	Long: `Shows the attendance records of a day (YYYY-MM-DD, default today).

Example:
  kiosk attendance 2025-09-14
  kiosk attendance 2025-09-14 --export september-14.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("export", "", "Write the records to an XLSX file")
	attendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	export := mustGetString(cmd, "export")
	jsonOutput := mustGetBool(cmd, "json")

	date := time.Now().Format(portal.DateLayout)
	if len(args) == 1 {
		date = args[0]
	}

	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}

	entries, err := client.AttendanceByDate(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("failed to fetch attendance for %s: %w", date, err)
	}

	if export != "" {
		if err := report.WriteXLSX(export, date, entries); err != nil {
			return err
		}
		fmt.Printf("Exported %d records to %s\n", len(entries), export)
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	fmt.Printf("Attendance for %s\n\n", date)
	return report.WriteText(os.Stdout, entries)
}
