package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/verdict/pkg/cli"
	"mercator-hq/verdict/pkg/knowledge/retention"
	"mercator-hq/verdict/pkg/knowledge/storage"
)

var kbFlags struct {
	format    string
	limit     int
	olderThan time.Duration
}

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect and maintain the knowledge base",
	Long: `Inspect and maintain the knowledge base of resolved (action, reason) pairs.

The backend is taken from the knowledge_base section of the configuration.

Examples:
  # Entry counts by framework, category and severity
  verdict kb stats

  # Most recently updated entries
  verdict kb list --limit 20

  # Entries mentioning a term
  verdict kb search "access control" --format csv

  # Delete entries not updated for 30 days
  verdict kb prune --older-than 720h`,
}

var kbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize knowledge base entries",
	Args:  cobra.NoArgs,
	RunE:  kbStats,
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base entries, most recent first",
	Args:  cobra.NoArgs,
	RunE:  kbList,
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search entries by action, reason, description, framework or obligation",
	Args:  cobra.ExactArgs(1),
	RunE:  kbSearch,
}

var kbPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries not updated within the given age",
	Args:  cobra.NoArgs,
	RunE:  kbPrune,
}

func init() {
	rootCmd.AddCommand(kbCmd)
	kbCmd.AddCommand(kbStatsCmd, kbListCmd, kbSearchCmd, kbPruneCmd)

	kbCmd.PersistentFlags().StringVar(&kbFlags.format, "format", "text", "output format: text, json, csv")
	kbListCmd.Flags().IntVarP(&kbFlags.limit, "limit", "n", 50, "maximum entries to list (0 for all)")
	kbPruneCmd.Flags().DurationVar(&kbFlags.olderThan, "older-than", 0, "age cutoff (default knowledge_base.retention.max_age)")
}

// entryTable prints stored entries.
type entryTable []storage.StoredEntry

func (t entryTable) Header() []string {
	return []string{"ACTION", "REASON", "FRAMEWORK", "OBLIGATION", "CATEGORY", "SEVERITY", "UPDATED"}
}

func (t entryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			e.Key.Action,
			e.Key.Reason,
			e.Entry.ComplianceFramework,
			e.Entry.ObligationID,
			e.Entry.Category,
			e.Entry.Severity,
			e.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// statsTable prints Stats as one row per count.
type statsTable struct {
	*storage.Stats
}

func (t statsTable) Header() []string {
	return []string{"GROUP", "VALUE", "ENTRIES"}
}

func (t statsTable) Rows() [][]string {
	rows := [][]string{{"total", "", strconv.Itoa(t.Entries)}}
	groups := []struct {
		name   string
		counts map[string]int
	}{
		{"framework", t.Frameworks},
		{"category", t.Categories},
		{"severity", t.Severities},
	}
	for _, g := range groups {
		keys := make([]string, 0, len(g.counts))
		for k := range g.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, []string{g.name, k, strconv.Itoa(g.counts[k])})
		}
	}
	return rows
}

// withStore opens the configured backend for the duration of fn.
func withStore(fn func(env *environment, store storage.Backend) error) error {
	format, err := cli.ParseOutputFormat(kbFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	kbFlags.format = string(format)

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.openStore()
	if err != nil {
		return cli.NewCommandError("kb", err)
	}
	defer store.Close()

	return fn(env, store)
}

func printKB(data any) error {
	return cli.NewFormatter(cli.OutputFormat(kbFlags.format)).FormatTo(os.Stdout, data)
}

func kbStats(cmd *cobra.Command, args []string) error {
	return withStore(func(_ *environment, store storage.Backend) error {
		stats, err := store.Stats(commandContext(cmd))
		if err != nil {
			return cli.NewCommandError("kb stats", err)
		}
		if cli.OutputFormat(kbFlags.format) == cli.FormatJSON {
			return printKB(stats)
		}
		return printKB(statsTable{stats})
	})
}

func kbList(cmd *cobra.Command, args []string) error {
	return withStore(func(_ *environment, store storage.Backend) error {
		entries, err := store.List(commandContext(cmd), kbFlags.limit)
		if err != nil {
			return cli.NewCommandError("kb list", err)
		}
		return printKB(entryTable(entries))
	})
}

func kbSearch(cmd *cobra.Command, args []string) error {
	return withStore(func(_ *environment, store storage.Backend) error {
		entries, err := store.Search(commandContext(cmd), args[0])
		if err != nil {
			return cli.NewCommandError("kb search", err)
		}
		return printKB(entryTable(entries))
	})
}

func kbPrune(cmd *cobra.Command, args []string) error {
	return withStore(func(env *environment, store storage.Backend) error {
		age := kbFlags.olderThan
		if age == 0 {
			age = env.cfg.KnowledgeBase.Retention.MaxAge
		}
		if age <= 0 {
			return cli.NewConfigError("older-than", "a positive age is required")
		}

		pruner := retention.NewPruner(store, &retention.Config{MaxAge: age}, env.logger)
		removed, err := pruner.Prune(commandContext(cmd))
		if err != nil {
			return cli.NewCommandError("kb prune", err)
		}

		fmt.Printf("✓ Pruned %d entries older than %s\n", removed, age)
		return nil
	})
}
