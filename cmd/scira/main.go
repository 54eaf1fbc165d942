package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zaidmukaddam/scira/pkg/app"
	"github.com/zaidmukaddam/scira/pkg/config"
	"github.com/zaidmukaddam/scira/pkg/research"
)

var (
	prompt     string
	jsonOutput bool
	year       int
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	rootCmd := &cobra.Command{
		Use:   "scira",
		Short: "Research agent and X-Wrapped from the terminal",
	}

	researchCmd := &cobra.Command{
		Use:   "research",
		Short: "Plan and run a research task",
		Long:  `Plans the prompt into topics and todos, runs the search and code agent over the plan and prints the aggregated result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("prompt") {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter research prompt: ")
				input, _ := reader.ReadString('\n')
				prompt = strings.TrimSpace(input)
			}
			if prompt == "" {
				return errors.New("prompt cannot be empty")
			}
			return runResearch(cmd.Context(), prompt)
		},
	}
	researchCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "The research prompt")
	researchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")

	wrappedCmd := &cobra.Command{
		Use:   "wrapped <username>",
		Short: "Build the X-Wrapped summary of a user's year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrapped(cmd.Context(), args[0], year)
		},
	}
	wrappedCmd.Flags().IntVarP(&year, "year", "y", 0, "Year to summarise (default: current year)")

	rootCmd.AddCommand(researchCmd, wrappedCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func runResearch(ctx context.Context, prompt string) error {
	cfg := config.Load()
	logger := slog.Default()

	engine, err := app.NewResearchEngine(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("error initializing engine: %w", err)
	}

	slog.Info("Starting research", "prompt", prompt)
	final, err := engine.Run(ctx, prompt, research.LogSink(logger))
	if err != nil {
		return fmt.Errorf("error running research: %w", err)
	}

	if jsonOutput {
		return printJSON(final)
	}
	fmt.Println()
	fmt.Println(final.Text)
	if len(final.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, s := range final.Sources {
			fmt.Printf("  [%d] %s - %s\n", i+1, s.Title, s.URL)
		}
	}
	if len(final.Charts) > 0 {
		fmt.Printf("\n%d chart(s) generated; rerun with --json to see them.\n", len(final.Charts))
	}
	return nil
}

func runWrapped(ctx context.Context, username string, year int) error {
	if year != 0 && (year < 2006 || year > 2100) {
		return fmt.Errorf("year must be between 2006 and 2100")
	}
	cfg := config.Load()
	logger := slog.Default()

	c, err := app.NewCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	builder, err := app.NewWrappedBuilder(cfg, c, logger)
	if err != nil {
		return err
	}

	summary, err := builder.Build(ctx, username, year)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
