package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hray3182/tincan/internal/scheduler"
)

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and run scheduled jobs",
	}
	cmd.AddCommand(newJobsListCommand())
	cmd.AddCommand(newJobsRunCommand())
	return cmd
}

func newJobsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered jobs and their next fire times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printJobs(cmd.OutOrStdout(), a.sched.Status())
		},
	}
}

func newJobsRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run one job once, synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sched.Run(cmd.Context(), args[0]); err != nil {
				return err
			}
			st, err := a.sched.Lookup(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s finished in %dms\n", st.Name, st.LastDurationMs)
			return nil
		},
	}
}

func printJobs(out io.Writer, statuses []scheduler.JobStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tTRIGGER\tNEXT FIRE")
	for _, st := range statuses {
		next := "-"
		if st.Enabled && st.NextFireTime != nil {
			next = st.NextFireTime.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", st.Name, st.Enabled, st.Trigger, next)
	}
	return w.Flush()
}
