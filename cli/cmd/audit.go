package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"southwinds.dev/rooster/audit"
)

var (
	auditJsonOutput    bool
	auditSince         string
	auditUntil         string
	auditAction        string
	auditSuccessFilter string
	auditEntry         string
	auditLimit         int
	auditOffset        int
	auditFailuresOnly  bool
	auditDetails       bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long: `Query the audit log written when audit.enabled is set.

Events record what happened to the password file and when. They never contain
passwords or the master password.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit events with filters",
	Long: `List audit events, newest first.

Examples:
  # Everything that happened to the github entry
  rooster audit query --entry github

  # Failures in the last day
  rooster audit query --failures-only --since 24h

  # A fixed time range
  rooster audit query --since 2024-01-01T00:00:00Z --until 2024-01-31T23:59:59Z`,
	RunE: runAuditQuery,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the audit log",
	RunE:  runAuditStats,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditStatsCmd)

	auditCmd.PersistentFlags().BoolVar(&auditJsonOutput, "json", false, "output in JSON format")
	auditCmd.PersistentFlags().StringVar(&auditSince, "since", "", "show events since this time (RFC3339 or a duration such as 24h)")
	auditCmd.PersistentFlags().StringVar(&auditUntil, "until", "", "show events until this time (RFC3339 or a duration such as 1h)")

	auditQueryCmd.Flags().StringVar(&auditAction, "action", "", "filter by action, e.g. entry_added")
	auditQueryCmd.Flags().StringVar(&auditSuccessFilter, "success", "", "filter by success status (true/false)")
	auditQueryCmd.Flags().BoolVar(&auditFailuresOnly, "failures-only", false, "show only failed events")
	auditQueryCmd.Flags().StringVar(&auditEntry, "entry", "", "filter by entry name")
	auditQueryCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum number of events to return")
	auditQueryCmd.Flags().IntVar(&auditOffset, "offset", 0, "number of events to skip")
	auditQueryCmd.Flags().BoolVar(&auditDetails, "details", false, "show every field of each event")
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	options, err := buildQueryOptions(time.Now())
	if err != nil {
		return err
	}
	result, err := queryAudit(cmd.OutOrStdout(), options)
	if err != nil || result == nil {
		return err
	}

	if auditJsonOutput {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	if err := displayAuditEvents(cmd.OutOrStdout(), result.Events, auditDetails); err != nil {
		return err
	}
	if result.HasMore {
		fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d of %d matching events, use --offset for more.\n", len(result.Events), result.Filtered)
	}
	return nil
}

func runAuditStats(cmd *cobra.Command, args []string) error {
	options, err := buildQueryOptions(time.Now())
	if err != nil {
		return err
	}
	options.Limit = 0
	options.Offset = 0

	result, err := queryAudit(cmd.OutOrStdout(), options)
	if err != nil || result == nil {
		return err
	}

	stats := calculateAuditStats(result.Events, time.Now())
	if auditJsonOutput {
		return writeJSON(cmd.OutOrStdout(), stats)
	}
	return displayAuditStats(cmd.OutOrStdout(), stats)
}

// queryAudit returns nil without error when auditing is disabled.
func queryAudit(out io.Writer, options audit.QueryOptions) (*audit.QueryResult, error) {
	if !viper.GetBool("audit.enabled") {
		fmt.Fprintln(out, "Audit logging is disabled. Enable it with 'rooster config set audit.enabled true'.")
		return nil, nil
	}
	result, err := auditLogger.Query(options)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return &result, nil
}

func buildQueryOptions(now time.Time) (audit.QueryOptions, error) {
	options := audit.QueryOptions{
		Limit:  auditLimit,
		Offset: auditOffset,
		Action: auditAction,
		Entry:  auditEntry,
	}

	if auditSince != "" {
		since, err := parseTimeFilter(auditSince, now)
		if err != nil {
			return options, fmt.Errorf("invalid since time format: %w", err)
		}
		options.Since = &since
	}
	if auditUntil != "" {
		until, err := parseTimeFilter(auditUntil, now)
		if err != nil {
			return options, fmt.Errorf("invalid until time format: %w", err)
		}
		options.Until = &until
	}

	if auditSuccessFilter != "" {
		success, err := strconv.ParseBool(auditSuccessFilter)
		if err != nil {
			return options, fmt.Errorf("invalid success filter format: %w", err)
		}
		options.Success = &success
	}
	if auditFailuresOnly {
		failed := false
		options.Success = &failed
	}
	return options, nil
}

// parseTimeFilter accepts an RFC3339 timestamp or a duration counted back
// from now.
func parseTimeFilter(value string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor a duration", value)
	}
	if d < 0 {
		d = -d
	}
	return now.Add(-d), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayAuditEvents(w io.Writer, events []audit.Event, details bool) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No audit events found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if details {
		for _, event := range events {
			fmt.Fprintf(tw, "Event ID:\t%s\n", event.ID)
			fmt.Fprintf(tw, "Session:\t%s\n", event.SessionID)
			fmt.Fprintf(tw, "Timestamp:\t%s\n", event.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(tw, "Action:\t%s\n", event.Action)
			fmt.Fprintf(tw, "Status:\t%s\n", eventStatus(event))
			if event.Entry != "" {
				fmt.Fprintf(tw, "Entry:\t%s\n", event.Entry)
			}
			if event.Error != "" {
				fmt.Fprintf(tw, "Error:\t%s\n", event.Error)
			}
			if len(event.Metadata) > 0 {
				keys := make([]string, 0, len(event.Metadata))
				for k := range event.Metadata {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				parts := make([]string, 0, len(keys))
				for _, k := range keys {
					parts = append(parts, fmt.Sprintf("%s=%v", k, event.Metadata[k]))
				}
				fmt.Fprintf(tw, "Metadata:\t%s\n", strings.Join(parts, " "))
			}
			fmt.Fprintf(tw, "────────────────────────────────────────\n")
		}
		return tw.Flush()
	}

	fmt.Fprintf(tw, "TIMESTAMP\tACTION\tSTATUS\tENTRY\tERROR\n")
	for _, event := range events {
		errorMsg := event.Error
		if len(errorMsg) > 30 {
			errorMsg = errorMsg[:30] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"), event.Action, eventStatus(event), event.Entry, errorMsg)
	}
	return tw.Flush()
}

func eventStatus(event audit.Event) string {
	if event.Success {
		return "SUCCESS"
	}
	return "FAILED"
}

// AuditStats summarises a set of audit events
type AuditStats struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	TotalEvents      int            `json:"total_events"`
	SuccessfulEvents int            `json:"successful_events"`
	FailedEvents     int            `json:"failed_events"`
	SuccessRate      float64        `json:"success_rate"`
	ActionBreakdown  map[string]int `json:"action_breakdown"`
	TopEntries       []EntryCount   `json:"top_entries"`
	FirstEvent       *time.Time     `json:"first_event,omitempty"`
	LastEvent        *time.Time     `json:"last_event,omitempty"`
}

type EntryCount struct {
	Entry string `json:"entry"`
	Count int    `json:"count"`
}

func calculateAuditStats(events []audit.Event, now time.Time) AuditStats {
	stats := AuditStats{
		GeneratedAt:     now.UTC(),
		ActionBreakdown: make(map[string]int),
	}

	entryCounts := make(map[string]int)
	for _, event := range events {
		stats.TotalEvents++
		if event.Success {
			stats.SuccessfulEvents++
		} else {
			stats.FailedEvents++
		}
		stats.ActionBreakdown[event.Action]++
		if event.Entry != "" {
			entryCounts[event.Entry]++
		}

		ts := event.Timestamp
		if stats.FirstEvent == nil || ts.Before(*stats.FirstEvent) {
			stats.FirstEvent = &ts
		}
		if stats.LastEvent == nil || ts.After(*stats.LastEvent) {
			stats.LastEvent = &ts
		}
	}

	if stats.TotalEvents > 0 {
		stats.SuccessRate = float64(stats.SuccessfulEvents) / float64(stats.TotalEvents) * 100
	}
	stats.TopEntries = getTopEntries(entryCounts, 10)
	return stats
}

func getTopEntries(counts map[string]int, limit int) []EntryCount {
	out := make([]EntryCount, 0, len(counts))
	for entry, count := range counts {
		out = append(out, EntryCount{Entry: entry, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Entry < out[j].Entry
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func displayAuditStats(w io.Writer, stats AuditStats) error {
	fmt.Fprintf(w, "Audit statistics generated at %s\n", stats.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "═══════════════════════════════════════\n\n")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total events:\t%d\n", stats.TotalEvents)
	fmt.Fprintf(tw, "Successful:\t%d\n", stats.SuccessfulEvents)
	fmt.Fprintf(tw, "Failed:\t%d\n", stats.FailedEvents)
	fmt.Fprintf(tw, "Success rate:\t%.1f%%\n", stats.SuccessRate)
	if stats.FirstEvent != nil && stats.LastEvent != nil {
		fmt.Fprintf(tw, "First event:\t%s\n", stats.FirstEvent.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(tw, "Last event:\t%s\n", stats.LastEvent.Format("2006-01-02 15:04:05"))
	}

	if len(stats.ActionBreakdown) > 0 {
		fmt.Fprintf(tw, "\nACTION\tCOUNT\n")
		actions := make([]string, 0, len(stats.ActionBreakdown))
		for action := range stats.ActionBreakdown {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		for _, action := range actions {
			fmt.Fprintf(tw, "%s\t%d\n", action, stats.ActionBreakdown[action])
		}
	}

	if len(stats.TopEntries) > 0 {
		fmt.Fprintf(tw, "\nENTRY\tEVENTS\n")
		for _, e := range stats.TopEntries {
			fmt.Fprintf(tw, "%s\t%d\n", e.Entry, e.Count)
		}
	}
	return tw.Flush()
}
