// Copyright © 2024 Mutker Telag <witty.text5011@fastmail.com>
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"codeberg.org/mutker/formctl/internal/capture"
	"codeberg.org/mutker/formctl/internal/config"
	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/exercise"
	"codeberg.org/mutker/formctl/internal/history"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/pid"
	"codeberg.org/mutker/formctl/internal/session"
	"codeberg.org/mutker/formctl/internal/telemetry"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
)

const defaultHistoryLimit = 10

type command func(ctx context.Context, cfg *config.Config) error

var commands = map[string]command{
	"run":       runSession,
	"history":   showHistory,
	"progress":  showProgress,
	"export":    exportHistory,
	"clear":     clearHistory,
	"exercises": listExercises,
}

func main() {
	name, args := splitCommand(os.Args[1:])

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(os.Stdout)
			return
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel.String())
	logger.Init(logger.Options{
		Level:     level,
		File:      cfg.LogFile,
		IsService: logger.IsService(),
	})
	logger.Debug().Str("command", name).Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := cmd(ctx, cfg); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("Command failed")
		} else {
			logger.Error().Err(err).Msg("Command failed")
		}
		cancel()
		os.Exit(1)
	}
}

// splitCommand returns the subcommand and the remaining arguments. The
// first argument names the command unless it is a flag; run is the default.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "run", args
	}

	return args[0], args[1:]
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: formctl [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run          Track a session from a pose frame stream (default)")
	fmt.Fprintln(w, "  history [n]  Show the n most recent sessions")
	fmt.Fprintln(w, "  progress     Summarize stored sessions per exercise")
	fmt.Fprintln(w, "  export       Write stored sessions as JSON to stdout")
	fmt.Fprintln(w, "  clear        Delete all stored sessions")
	fmt.Fprintln(w, "  exercises    List supported exercises")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, config.NewFlagSet("formctl").FlagUsages())
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func runSession(ctx context.Context, cfg *config.Config) (err error) {
	lock := pid.New(pid.DefaultName)
	if err := lock.Write(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, lock.Remove())
	}()

	store, err := history.NewService(cfg.History, logger.Default().With("history"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	publisher, err := telemetry.NewService(cfg.MQTT, logger.Default().With("telemetry"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, publisher.Close())
	}()

	src, err := capture.Open(cfg.Input)
	if err != nil {
		return err
	}

	profile := cfg.Exercise.Profile()
	pipeline := session.NewPipeline(profile, session.Options{
		Interval: cfg.Interval,
		Window:   cfg.Buffer,
		Outbox:   cfg.Outbox,
	})

	logger.Info().
		Str("exercise", profile.Name).
		Str("input", cfg.Input).
		Msg("Session started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeSnapshots(ctx, pipeline.Outputs(), publisher)
	}()

	rec, runErr := pipeline.Run(ctx, src)
	wg.Wait()
	if runErr != nil {
		return runErr
	}

	printSummary(os.Stdout, profile, rec)

	if rec.Empty() {
		logger.Warn().Msg("Session recorded no samples, not saving")
		return nil
	}

	if err := store.Save(context.Background(), rec); err != nil {
		return err
	}

	return nil
}

func consumeSnapshots(ctx context.Context, snapshots <-chan session.Snapshot, publisher telemetry.Publisher) {
	failures := 0
	for snap := range snapshots {
		logger.Debug().
			Int("frame", snap.Frame).
			Float64("angle", snap.Angle).
			Str("direction", snap.Direction.String()).
			Int("reps", snap.Reps).
			Str("feedback", string(snap.Feedback)).
			Bool("signal", snap.Signal).
			Msg("")

		if err := publisher.Record(ctx, &snap); err != nil && ctx.Err() == nil {
			failures++
			if failures == 1 {
				logger.Warn().Err(err).Msg("Failed to publish snapshot")
			}
		}
	}

	if failures > 1 {
		logger.Warn().Int("failures", failures).Msg("Snapshots failed to publish")
	}
}

func printSummary(w io.Writer, profile exercise.Profile, rec *session.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Exercise\t%s\n", rec.ExerciseName)
	fmt.Fprintf(tw, "Duration\t%d min\n", rec.DurationMinutes)
	fmt.Fprintf(tw, "Reps\t%d\n", rec.Reps)
	fmt.Fprintf(tw, "Performance\t%s\n", formatPerformance(rec.Performance))
	if rec.MostCommonFeedback != "" {
		fmt.Fprintf(tw, "Feedback\t%s\n", profile.Cue(rec.MostCommonFeedback))
	}
}

func formatPerformance(p *int) string {
	if p == nil {
		return "-"
	}

	return strconv.Itoa(*p) + "%"
}

func withStore(cfg *config.Config, fn func(history.Store) error) (err error) {
	store, err := history.NewService(cfg.History, logger.Default().With("history"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	return fn(store)
}

func showHistory(ctx context.Context, cfg *config.Config) error {
	limit := defaultHistoryLimit
	if len(cfg.Args) > 0 {
		n, err := strconv.Atoi(cfg.Args[0])
		if err != nil || n < 0 {
			return errors.New().WithData(errors.ErrInvalidArgument, cfg.Args[0])
		}
		limit = n
	}

	return withStore(cfg, func(store history.Store) error {
		records, err := store.Recent(ctx, limit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer tw.Flush()

		fmt.Fprintln(tw, "DATE\tEXERCISE\tMIN\tREPS\tPERFORMANCE")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
				rec.Date, rec.ExerciseName, rec.DurationMinutes, rec.Reps, formatPerformance(rec.Performance))
		}

		return nil
	})
}

func showProgress(ctx context.Context, cfg *config.Config) error {
	return withStore(cfg, func(store history.Store) error {
		progress, err := store.Progress(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer tw.Flush()

		fmt.Fprintln(tw, "EXERCISE\tSESSIONS\tREPS\tMIN\tAVG\tBEST\tLAST")
		for _, p := range progress {
			avg := "-"
			if p.AveragePerformance != nil {
				avg = fmt.Sprintf("%.0f%%", *p.AveragePerformance)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
				p.ExerciseName, p.Sessions, p.TotalReps, p.TotalMinutes, avg, formatPerformance(p.BestPerformance), p.LastDate)
		}

		return nil
	})
}

func exportHistory(ctx context.Context, cfg *config.Config) error {
	return withStore(cfg, func(store history.Store) error {
		return store.Export(ctx, os.Stdout)
	})
}

func clearHistory(ctx context.Context, cfg *config.Config) error {
	return withStore(cfg, func(store history.Store) error {
		return store.Clear(ctx)
	})
}

func listExercises(_ context.Context, _ *config.Config) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tLEVEL\tRANGE\tIDEAL\tMUSCLES")
	for _, k := range exercise.Kinds {
		p := k.Profile()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f-%.0f\t%.0f\t%s\n",
			k, p.Name, p.Level, p.Bounds.Min, p.Bounds.Max, p.Bounds.Ideal, strings.Join(p.Muscles, ", "))
	}

	return nil
}
