package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/markdown"
)

func noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes",
	}
	cmd.AddCommand(noteAddCmd())
	cmd.AddCommand(noteListCmd())
	cmd.AddCommand(noteShowCmd())
	cmd.AddCommand(noteRmCmd())
	cmd.AddCommand(noteSearchCmd())
	cmd.AddCommand(noteTOCCmd())
	cmd.AddCommand(noteFixCmd())
	return cmd
}

func noteAddCmd() *cobra.Command {
	var title, category, status string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a note; reads stdin when no content is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = string(data)
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.CreateNote(context.Background(), domain.Note{
				Title:    title,
				Content:  content,
				Category: category,
				Status:   domain.NoteStatus(status),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Added note: %s\n", shortID(n.ID))
			fmt.Printf("Title:      %s\n", n.Title)
			fmt.Printf("Characters: %d\n", n.CharacterCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&category, "category", "c", "", "one of "+strings.Join(domain.Categories, ", "))
	cmd.Flags().StringVarP(&status, "status", "s", "", "draft, review, published or archived")
	return cmd
}

func noteListCmd() *cobra.Command {
	var (
		limit    int
		category string
		status   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			notes, err := s.ListNotes(context.Background(), domain.NoteFilter{
				Category: category,
				Status:   domain.NoteStatus(status),
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			if len(notes) == 0 {
				fmt.Println("No notes yet. Use 'suite note add' to create one.")
				return nil
			}
			printNotes(notes)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of notes to show")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only this category")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only this status")
	return cmd
}

func printNotes(notes []domain.Note) {
	for _, n := range notes {
		fmt.Printf("%s  %-9s  %-24s  %s\n", shortID(n.ID), n.Status, truncate(n.Title, 24), truncate(n.Content, 40))
	}
}

func noteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.GetNote(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("note %s: %w", args[0], err)
			}

			fmt.Printf("ID:         %s\n", n.ID)
			fmt.Printf("Title:      %s\n", n.Title)
			fmt.Printf("Status:     %s\n", n.Status)
			if n.Category != "" {
				fmt.Printf("Category:   %s\n", n.Category)
			}
			fmt.Printf("Characters: %d\n", n.CharacterCount)
			fmt.Printf("Updated:    %s\n", n.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("\n%s\n", n.Content)
			return nil
		},
	}
}

func noteRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteNote(context.Background(), args[0]); err != nil {
				return fmt.Errorf("note %s: %w", args[0], err)
			}
			fmt.Println("Deleted.")
			return nil
		},
	}
}

func noteSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search note titles and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			notes, err := s.SearchNotes(context.Background(), args[0])
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				fmt.Println("No matching notes found.")
				return nil
			}
			printNotes(notes)
			return nil
		},
	}
}

// noteTOCCmd prints a note with a generated table of contents
func noteTOCCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "toc [id]",
		Short: "Print a note with a table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rewriteNote(args[0], markdown.WithTOC, save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the result in the note")
	return cmd
}

func noteFixCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "fix [id]",
		Short: "Normalize list markers and trailing whitespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rewriteNote(args[0], markdown.Correct, save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the result in the note")
	return cmd
}

func rewriteNote(id string, fn func(string) string, save bool) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	n, err := s.GetNote(ctx, id)
	if err != nil {
		return fmt.Errorf("note %s: %w", id, err)
	}

	n.Content = fn(n.Content)
	if !save {
		fmt.Println(n.Content)
		return nil
	}
	if _, err := s.UpdateNote(ctx, *n); err != nil {
		return err
	}
	fmt.Printf("Updated note %s\n", shortID(n.ID))
	return nil
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskDoneCmd())
	cmd.AddCommand(taskRmCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var priority, description string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.CreateTask(context.Background(), domain.Task{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    domain.Priority(priority),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added task: %s (%s)\n", shortID(t.ID), t.Priority)
			return nil
		},
	}

	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	return cmd
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks, open ones first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tasks, err := s.ListTasks(context.Background())
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks yet. Use 'suite task add' to create one.")
				return nil
			}

			for _, t := range tasks {
				box := "[ ]"
				if t.Completed {
					box = "[x]"
				}
				fmt.Printf("%s %s  %-6s  %s\n", box, shortID(t.ID), t.Priority, truncate(t.Title, 60))
			}
			return nil
		},
	}
}

func taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.ToggleTask(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("task %s: %w", args[0], err)
			}
			state := "open"
			if t.Completed {
				state = "done"
			}
			fmt.Printf("%s is %s\n", truncate(t.Title, 60), state)
			return nil
		},
	}
}

func taskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteTask(context.Background(), args[0]); err != nil {
				return fmt.Errorf("task %s: %w", args[0], err)
			}
			fmt.Println("Deleted.")
			return nil
		},
	}
}
