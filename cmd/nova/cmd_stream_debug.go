package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/jdwp"
	"github.com/nova-ide/nova/nova/streamdebug"
)

func newStreamDebugCmd() *cobra.Command {
	var (
		attempts, frameIdx  int
		delay, timeBudget   time.Duration
		sampleLimit         int
		allowTerminal       bool
		allowSideEffects    bool
		threadIdx           int
	)

	cmd := &cobra.Command{
		Use:   "stream-debug <host:port> <expr>",
		Short: "Sample each stage of a Java stream pipeline expression, one re-evaluation at a time, in a suspended JVM",
		Long: "stream-debug connects to a JVM suspended at a breakpoint, takes the thread at\n" +
			"--thread-index in VirtualMachine.AllThreads (whether or not it is suspended) and\n" +
			"the frame at --frame-index of its stack (both default to 0, the innermost frame of\n" +
			"the first thread listed), and re-evaluates expr stage by stage by compiling and injecting a throwaway probe class (spec section on\n" +
			"stream debugging). The source of the pipeline, when it isn't a self-contained\n" +
			"static factory call, is resolved the same restricted way evaluate() is: a single\n" +
			"local variable name in scope at the frame.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := jdwp.Connect(context.Background(), args[0], attempts, delay)
			if err != nil {
				return err
			}
			defer client.Close()

			threads, err := client.AllThreads()
			if err != nil {
				return err
			}
			if threadIdx < 0 || threadIdx >= len(threads) {
				return fmt.Errorf("thread index %d out of range (%d threads)", threadIdx, len(threads))
			}
			thread := threads[threadIdx]

			frames, err := client.Frames(thread)
			if err != nil {
				return err
			}
			if frameIdx < 0 || frameIdx >= len(frames) {
				return fmt.Errorf("frame index %d out of range (%d frames)", frameIdx, len(frames))
			}
			frame := frames[frameIdx]

			analysis, err := streamdebug.AnalyzeStream(args[1])
			if err != nil {
				return err
			}

			var sourceValue jdwp.Value
			if analysis.Source.Kind == streamdebug.SourceCollectionStream || analysis.Source.Kind == streamdebug.SourceExisting {
				res, err := client.Evaluate(analysis.Source.Expr, thread, frame)
				if err != nil {
					return err
				}
				sourceValue = res.Value
			}

			cfg := streamdebug.DefaultConfig()
			cfg.SampleLimit = sampleLimit
			cfg.TimeBudget = timeBudget
			cfg.AllowTerminalOps = allowTerminal
			cfg.AllowSideEffects = allowSideEffects

			result, err := streamdebug.DebugStream(cmd.Context(), client, thread, frame.Type, sourceValue, args[1], cfg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().IntVar(&attempts, "attempts", 10, "connection retry attempts")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "delay between retry attempts")
	cmd.Flags().IntVar(&threadIdx, "thread-index", 0, "index into VirtualMachine.AllThreads to debug")
	cmd.Flags().IntVar(&frameIdx, "frame-index", 0, "index into the thread's call stack, 0 = innermost")
	cmd.Flags().IntVar(&sampleLimit, "sample-limit", 20, "elements sampled per stage")
	cmd.Flags().DurationVar(&timeBudget, "time-budget", 10*time.Second, "overall time budget for the whole pipeline")
	cmd.Flags().BoolVar(&allowTerminal, "allow-terminal-ops", false, "also execute the pipeline's terminal operation")
	cmd.Flags().BoolVar(&allowSideEffects, "allow-side-effects", false, "allow a side-effecting terminal (forEach/forEachOrdered/peek) to run")
	return cmd
}
