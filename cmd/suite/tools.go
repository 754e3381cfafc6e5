package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/billlzzz10/unicornxos/internal/agent"
	"github.com/billlzzz10/unicornxos/internal/board"
	"github.com/billlzzz10/unicornxos/internal/cards"
	"github.com/billlzzz10/unicornxos/internal/dashboard"
	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/pomodoro"
	"github.com/billlzzz10/unicornxos/internal/prefs"
)

func themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme [light|dark]",
		Short: "Show or set the UI theme",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			p := prefs.New(s, logger)
			if len(args) == 1 {
				if err := p.SetTheme(ctx, prefs.Theme(args[0])); err != nil {
					return err
				}
			}
			fmt.Println(p.Theme(ctx))
			return nil
		},
	}
}

func pomodoroCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pomodoro",
		Short: "Pomodoro settings and sessions",
	}

	var work, short, long, cycle int
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Show or change timer settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			t := pomodoro.NewTracker(prefs.New(s, logger))
			st := t.Settings(ctx)

			f := cmd.Flags()
			if f.Changed("work") || f.Changed("short") || f.Changed("long") || f.Changed("cycle") {
				if f.Changed("work") {
					st.WorkMinutes = work
				}
				if f.Changed("short") {
					st.ShortBreakMinutes = short
				}
				if f.Changed("long") {
					st.LongBreakMinutes = long
				}
				if f.Changed("cycle") {
					st.PomodorosPerCycle = cycle
				}
				if err := t.SetSettings(ctx, st); err != nil {
					return err
				}
			}

			fmt.Printf("Work:        %d min\n", st.WorkMinutes)
			fmt.Printf("Short break: %d min\n", st.ShortBreakMinutes)
			fmt.Printf("Long break:  %d min\n", st.LongBreakMinutes)
			fmt.Printf("Cycle:       %d pomodoros\n", st.PomodorosPerCycle)
			return nil
		},
	}
	settings.Flags().IntVar(&work, "work", 0, "work minutes")
	settings.Flags().IntVar(&short, "short", 0, "short break minutes")
	settings.Flags().IntVar(&long, "long", 0, "long break minutes")
	settings.Flags().IntVar(&cycle, "cycle", 0, "pomodoros before a long break")

	done := &cobra.Command{
		Use:   "done",
		Short: "Record a finished work session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			t := pomodoro.NewTracker(prefs.New(s, logger))
			today, next := t.Complete(ctx)
			fmt.Printf("%d today. Next: %s (%s)\n", today, next, t.Settings(ctx).Duration(next))
			return nil
		},
	}

	today := &cobra.Command{
		Use:   "today",
		Short: "Show today's finished sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Println(pomodoro.NewTracker(prefs.New(s, logger)).Today(context.Background()))
			return nil
		},
	}

	cmd.AddCommand(settings, done, today)
	return cmd
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show progress rings and today's quests",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			sum, err := dashboard.Build(ctx, s, pomodoro.NewTracker(prefs.New(s, logger)), time.Now())
			if err != nil {
				return err
			}

			for _, st := range sum.Stats {
				fmt.Printf("%-12s %d / %d\n", st.Label, st.Value, st.Goal)
			}
			fmt.Println()
			for _, q := range sum.Quests {
				box := "[ ]"
				if q.Done {
					box = "[x]"
				}
				fmt.Printf("%s %s (%d/%d)\n", box, q.Title, q.Value, q.Target)
			}
			if len(sum.RecentNotes) > 0 {
				fmt.Println("\nRecent notes:")
				printNotes(sum.RecentNotes)
			}
			return nil
		},
	}
}

func promptCmd() *cobra.Command {
	var (
		seed   int64
		gender string
	)

	cmd := &cobra.Command{
		Use:   "prompt [custom text]",
		Short: "Generate a writing prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := agent.NewPromptGenerator(agent.PromptConfig{
				Token:   cfg.Agents.HFToken,
				BaseURL: cfg.Agents.PromptBaseURL,
				Model:   cfg.Agents.PromptModel,
			})
			if err != nil {
				return err
			}

			p := agent.PromptParams{Gender: gender, Custom: strings.Join(args, " ")}
			if cmd.Flags().Changed("seed") {
				p.Seed = &seed
			}

			ctx, cancel := signalContext()
			defer cancel()
			text, err := gen.Generate(ctx, p)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "sampling seed")
	cmd.Flags().StringVar(&gender, "gender", "", "character gender hint")
	return cmd
}

func forecastCmd() *cobra.Command {
	var (
		kind       string
		start, end string
		source     string
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Ask the forecasting agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := agent.NewForecastClient(cfg.Agents.ForecastURL, nil, logger)
			if err != nil {
				return err
			}

			p := agent.ForecastPayload{
				UserID:       cfg.UserID,
				ForecastType: agent.ForecastType(kind),
				TimeRange:    agent.TimeRange{Start: start, End: end},
				DataSource:   source,
			}
			if err := p.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			res, err := client.Forecast(ctx, p)
			if err != nil {
				return err
			}

			fmt.Println(res.Summary)
			for _, pt := range res.Timeline {
				fmt.Printf("  %s  %-30s %.0f%%\n", pt.Date, pt.Label, pt.Confidence*100)
			}
			for _, r := range res.Risks {
				fmt.Printf("  risk: %s (%s)\n", r.Description, r.Probability)
			}
			for _, a := range res.RecommendedActions {
				fmt.Printf("  - %s\n", a)
			}
			return nil
		},
	}

	now := time.Now()
	cmd.Flags().StringVarP(&kind, "type", "t", string(agent.ForecastProjectTimeline), "project_timeline, resource_allocation or task_completion")
	cmd.Flags().StringVar(&start, "start", now.Format("2006-01-02"), "range start")
	cmd.Flags().StringVar(&end, "end", now.AddDate(0, 1, 0).Format("2006-01-02"), "range end")
	cmd.Flags().StringVar(&source, "source", "notes", "data source")
	return cmd
}

func chatCmd() *cobra.Command {
	var (
		personality string
		contextIDs  []string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message to the writing assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := agent.NewWriter(agent.WriterConfig{
				APIKey: cfg.Agents.AnthropicAPIKey,
				Model:  cfg.Agents.AnthropicModel,
			})
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			var notes []domain.Note
			if len(contextIDs) > 0 {
				s, err := getStore()
				if err != nil {
					return err
				}
				defer s.Close()
				for _, id := range contextIDs {
					n, err := s.GetNote(ctx, id)
					if err != nil {
						return fmt.Errorf("note %s: %w", id, err)
					}
					notes = append(notes, *n)
				}
			}

			history := []agent.ChatMessage{{Role: "user", Content: strings.Join(args, " ")}}
			reply, err := w.Chat(ctx, personality, agent.WithNoteContext(history, notes))
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&personality, "personality", "p", agent.DefaultPersonality, "assistant personality")
	cmd.Flags().StringSliceVar(&contextIDs, "context", nil, "note ids to include as context")
	return cmd
}

// feedCmd prints card feed events as JSON lines until interrupted, then
// the session's audit log
func feedCmd() *cobra.Command {
	var (
		seed bool
		run  bool
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Watch the card feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := board.New(board.Config{
				Outcome: board.RandomOutcome(cfg.CLISuccessRate),
				UserID:  cfg.UserID,
				Logger:  logger,
			})
			stop := b.Start()
			defer stop()

			ctx, cancel := signalContext()
			defer cancel()

			enc := json.NewEncoder(os.Stdout)
			unsubscribe := b.Subscribe(
				func(c cards.Card) { enc.Encode(map[string]any{"type": "upsert", "card": c}) },
				func(id string) { enc.Encode(map[string]any{"type": "delete", "id": id}) },
			)
			defer unsubscribe()

			if seed {
				if _, err := b.Publish(ctx, cards.PatchOf(board.SeedCard())); err != nil {
					return err
				}
				if run {
					if err := b.RunCLI(ctx, board.SeedID, "", false); err != nil {
						fmt.Fprintln(os.Stderr, "run:", err)
					} else if err := b.Apply(ctx, board.SeedID); err != nil {
						return err
					}
				}
			}
			<-ctx.Done()

			for _, e := range b.Audit() {
				fmt.Fprintf(os.Stderr, "%s  %-8s %-8s %s\n", e.Time, e.Action, e.CardID, e.Details)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", true, "publish the demo card")
	cmd.Flags().BoolVar(&run, "run", false, "run and apply the demo card's CLI snippet")
	return cmd
}
