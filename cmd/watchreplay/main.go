package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/msomdec/coursewatch/internal/replay"
	"github.com/msomdec/coursewatch/internal/watch"
)

var rootCmd = &cobra.Command{
	Use:           "watchreplay",
	Short:         "Replay playback traces through the watch validation engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(runCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("WATCHREPLAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	d := watch.DefaultThresholds()
	flags := rootCmd.PersistentFlags()
	flags.Float64("skip-threshold", d.SkipThreshold, "largest position jump in seconds treated as normal playback")
	flags.Float64("ratio", d.TimeRequirementRatio, "fraction of the video that must be validly watched")
	flags.Float64("completion-threshold", d.CompletionThreshold, "playback percentage that fires completion")
	flags.Int("min-score", d.MinCheatScore, "minimum cheat score required to complete")
	flags.Bool("json", false, "output JSON")
	flags.Bool("steps", false, "print every sample, not just the summary")
	for _, name := range []string{"skip-threshold", "ratio", "completion-threshold", "min-score", "json", "steps"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func thresholdsFromViper() (watch.Thresholds, error) {
	th := watch.DefaultThresholds()
	th.SkipThreshold = viper.GetFloat64("skip-threshold")
	th.TimeRequirementRatio = viper.GetFloat64("ratio")
	th.CompletionThreshold = viper.GetFloat64("completion-threshold")
	th.MinCheatScore = viper.GetInt("min-score")
	if err := th.Validate(); err != nil {
		return watch.Thresholds{}, err
	}
	return th, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run TRACE...",
		Short: "Replay one or more YAML or JSON trace files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := thresholdsFromViper()
			if err != nil {
				return err
			}
			results := make([]replay.Result, 0, len(args))
			for _, path := range args {
				tr, err := replay.LoadFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				res := replay.Run(tr, th)
				if res.Name == "" {
					res.Name = path
				}
				results = append(results, res)
			}

			if viper.GetBool("json") {
				return printJSON(results)
			}
			if viper.GetBool("steps") {
				for _, res := range results {
					printSteps(res)
				}
			}
			printSummary(results)
			return nil
		},
	}
}

func printSteps(res replay.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(res.Name)
	tw.AppendHeader(table.Row{"#", "Event", "Position", "Skip", "Valid", "Actual", "Score", "Status"})
	for _, s := range res.Steps {
		skip := ""
		if s.Skipped {
			skip = "yes"
		}
		tw.AppendRow(table.Row{
			s.Index, s.Type, fmt.Sprintf("%.1f", s.Position), skip,
			fmt.Sprintf("%.1f", s.ValidWatchTime), fmt.Sprintf("%.1f", s.ActualTime),
			s.CheatScore, s.Status,
		})
	}
	tw.Render()
}

func printSummary(results []replay.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Trace", "Valid", "Required", "Skips", "Score", "Segments", "Status", "Completed"})
	for _, res := range results {
		completed := "no"
		if res.Completed {
			completed = fmt.Sprintf("at #%d", res.CompletedAt)
		}
		tw.AppendRow(table.Row{
			res.Name,
			fmt.Sprintf("%.1f", res.State.ValidWatchTime),
			fmt.Sprintf("%.1f", res.State.MinimumWatchTime),
			res.State.LargeSkipsDetected,
			res.State.CheatScore,
			len(res.State.WatchSegments),
			res.Message,
			completed,
		})
	}
	tw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
