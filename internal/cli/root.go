package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dataFile string

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "organiser",
		Short: "Day organiser: dated tasks, recurring chores and task groups",
		Long: `organiser keeps tasks in day buckets, expands recurring schedules onto
calendar days and filters everything through a tree of task groups.

Data lives in a JSON file (ORGANISER_DATA_FILE); run "organiser serve" to
start the Telegram bot with its daily digest.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataFile, "data", "", "Data file (overrides ORGANISER_DATA_FILE)")

	root.AddCommand(newTodayCmd())
	root.AddCommand(newRangeCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newDoneCmd())
	root.AddCommand(newUndoCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newNotesCmd())
	root.AddCommand(newGroupsCmd())
	root.AddCommand(newGroupCmd())
	root.AddCommand(newServeCmd())
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
