package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clerkmesh/clerkmesh"
	"github.com/clerkmesh/clerkmesh/core"
	"github.com/clerkmesh/clerkmesh/engine"
	"github.com/clerkmesh/clerkmesh/logging"
)

// loadConfig merges flags, environment (CLERKMESH_*) and an optional config
// file into viper, then builds an engine from the result.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("clerkmesh")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, err
	}

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.SetConfigName(".clerkmesh")
			v.SetConfigType("yaml")
			v.AddConfigPath(home)
			_ = v.ReadInConfig() // optional file
		}
	}
	return v, nil
}

func buildEngine(v *viper.Viper) (*engine.Engine, error) {
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(v.GetString("log-level")),
		Format: v.GetString("log-format"),
		Output: os.Stderr,
	})
	return clerkmesh.New(func(o *clerkmesh.Options) {
		o.Logger = logger
		if n := v.GetInt("snapshot-memories"); n > 0 {
			o.SnapshotMemories = n
		}
		if n := v.GetInt("monitor-cycles"); n > 0 {
			o.MonitorCycles = n
		}
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clerkmesh version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "clerkmesh", clerkmesh.Version)
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [category ...]",
		Short: "Run a batch of work categories and print the session outcome",
		Long:  "Run executes one work item per category (default: email_scan payment_monitor aggregate) sequentially, or concurrently with --concurrent, and prints per-item outcomes plus the trace diagram.",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			eng, err := buildEngine(v)
			if err != nil {
				return err
			}

			categories := []core.Category{core.CategoryEmailScan, core.CategoryPaymentMonitor, core.CategoryAggregate}
			if len(args) > 0 {
				categories = categories[:0]
				for _, a := range args {
					categories = append(categories, core.Category(a))
				}
			}

			sessionID := eng.CreateSession()
			out := cmd.OutOrStdout()
			if v.GetBool("concurrent") {
				outcomes := eng.RunConcurrentBatch(cmd.Context(), categories, sessionID)
				keys := make([]string, 0, len(outcomes))
				for c := range outcomes {
					keys = append(keys, string(c))
				}
				sort.Strings(keys)
				for _, c := range keys {
					printOutcome(out, c, outcomes[core.Category(c)].Result, outcomes[core.Category(c)].Err)
				}
			} else {
				outcomes := eng.RunSequentialBatch(cmd.Context(), categories, sessionID)
				for i, o := range outcomes {
					printOutcome(out, string(categories[i]), o.Result, o.Err)
				}
			}

			if err := eng.EndSession(sessionID); err != nil {
				return err
			}
			summary, err := eng.GetSessionSummary(sessionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nsession %s: %d messages, %d checkpoints\n", summary.ID, summary.MessageCount, summary.CheckpointCount)

			for _, traceID := range sessionTraceIDs(eng, sessionID) {
				fmt.Fprintln(out)
				fmt.Fprintln(out, eng.GetTraceDiagram(traceID))
			}
			return nil
		},
	}
	cmd.Flags().Bool("concurrent", false, "run the batch concurrently instead of sequentially")
	cmd.Flags().Int("monitor-cycles", 0, "payment monitor sweep count")
	cmd.Flags().Int("snapshot-memories", 0, "audit memory snapshot cap per handler run")
	return cmd
}

func printOutcome(out io.Writer, category string, result *core.Result, err error) {
	if err != nil {
		fmt.Fprintf(out, "%-16s error: %v\n", category, err)
		return
	}
	fmt.Fprintf(out, "%-16s %s: %s\n", category, result.Outcome, result.Summary)
}

// sessionTraceIDs collects the distinct trace ids recorded in the session's
// handler states, in handler-name order.
func sessionTraceIDs(eng *engine.Engine, sessionID string) []string {
	sess, err := eng.GetSession(sessionID)
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	names := make([]string, 0, len(sess.HandlerStates))
	for name := range sess.HandlerStates {
		names = append(names, name)
	}
	sort.Strings(names)
	var ids []string
	for _, name := range names {
		if id, _ := sess.HandlerStates[name].Metadata["trace_id"].(string); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace [category ...]",
		Short: "Run a batch and print the trace diagram of every handler run",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			eng, err := buildEngine(v)
			if err != nil {
				return err
			}

			categories := []core.Category{core.CategoryEmailScan, core.CategoryPaymentMonitor, core.CategoryAggregate}
			if len(args) > 0 {
				categories = categories[:0]
				for _, a := range args {
					categories = append(categories, core.Category(a))
				}
			}

			sessionID := eng.CreateSession()
			for _, o := range eng.RunSequentialBatch(cmd.Context(), categories, sessionID) {
				if o.Err != nil {
					return o.Err
				}
			}

			out := cmd.OutOrStdout()
			for i, traceID := range sessionTraceIDs(eng, sessionID) {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, eng.GetTraceDiagram(traceID))
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print registered handlers and store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			eng, err := buildEngine(v)
			if err != nil {
				return err
			}
			status, err := eng.GetSystemStatus("")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "handlers:")
			for _, h := range status.RegisteredHandlers {
				fmt.Fprintf(out, "  %-20s %s\n", h.Name, h.Category)
			}
			fmt.Fprintf(out, "memory: %d records\n", status.MemoryStats.Total)
			return nil
		},
	}
}

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory <query>",
		Short: "Run a batch, then query memory by relevance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			eng, err := buildEngine(v)
			if err != nil {
				return err
			}
			sessionID := eng.CreateSession()
			eng.RunSequentialBatch(cmd.Context(), []core.Category{core.CategoryEmailScan, core.CategoryPaymentMonitor}, sessionID)

			out := cmd.OutOrStdout()
			for _, rec := range eng.QueryMemory(args[0], v.GetInt("limit")) {
				fmt.Fprintf(out, "%-10s %s\n", rec.Type, rec.Content)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 5, "maximum records to return")
	return cmd
}
