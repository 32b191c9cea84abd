package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	auditmodels "quantumtrust/internal/audit/models"
	id "quantumtrust/pkg/domain"
)

var (
	auditUser         int64
	auditResourceType string
	auditAfter        int64
	auditLimit        int
)

func init() {
	auditQueryCmd.Flags().Int64Var(&auditUser, "user", 0, "Only entries acted by this user id")
	auditQueryCmd.Flags().StringVar(&auditResourceType, "resource-type", "", "Only entries for this resource type (user, did)")
	auditQueryCmd.Flags().Int64Var(&auditAfter, "after", 0, "Resume after this entry id")
	auditQueryCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of entries")
	auditCmd.AddCommand(auditQueryCmd)
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit ledger",
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit entries in id order",
	Long: `List audit entries in id order, optionally filtered.

Examples:
  qtctl audit query --resource-type did --limit 20
  qtctl audit query --user 7 --after 120 -o yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := auditFilterFromFlags()
		if err := filter.Validate(); err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Ledger.Collect(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if handled, err := formatOutput(cmd.OutOrStdout(), entries); handled {
			return err
		}
		return printEntries(cmd.OutOrStdout(), entries)
	},
}

func auditFilterFromFlags() auditmodels.Filter {
	return auditmodels.Filter{
		UserID:       id.UserID(auditUser),
		ResourceType: strings.TrimSpace(auditResourceType),
		AfterID:      id.AuditEntryID(auditAfter),
		Limit:        auditLimit,
	}
}

func printEntries(out io.Writer, entries []auditmodels.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audit entries.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tACTOR\tACTION\tRESOURCE\tDETAILS")
	for _, e := range entries {
		actor := "system"
		if !e.UserID.IsNil() {
			actor = e.UserID.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s:%s\t%s\n",
			e.ID, e.CreatedAt.UTC().Format(time.RFC3339), actor, e.Action,
			e.ResourceType, e.ResourceID, formatDetails(e.Details))
	}
	return w.Flush()
}

func formatDetails(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+details[k])
	}
	return strings.Join(parts, " ")
}
