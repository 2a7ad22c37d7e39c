package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/config"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	Long: `Lists the students enrolled in the portal with the number of face samples
each one has. --search filters by name, ignoring case and diacritics.`,
	RunE: runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)

	studentsCmd.Flags().String("search", "", "Only show students whose name contains these words")
	studentsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStudents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	search := mustGetString(cmd, "search")
	jsonOutput := mustGetBool(cmd, "json")

	client, err := newPortalClient(cfg)
	if err != nil {
		return err
	}

	list, err := client.ListStudents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	roster := attendance.NewRoster(list)
	students := roster.Students()
	if search != "" {
		students = roster.SearchByName(search)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(students)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tGENDER\tSAMPLES")
	fmt.Fprintln(w, "--\t----\t------\t-------")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.IDNumber, s.Name, s.Gender, len(s.Descriptors))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d students\n", len(students))
	return nil
}
