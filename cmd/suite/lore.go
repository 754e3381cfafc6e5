package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/store"
)

// withStore opens the store for the duration of fn
func withStore(fn func(ctx context.Context, s *store.Store) error) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage writing projects",
	}

	var description string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				p, err := s.CreateProject(ctx, domain.Project{Name: strings.Join(args, " "), Description: description})
				if err != nil {
					return err
				}
				fmt.Printf("Added project: %s (%s)\n", shortID(p.ID), p.Name)
				return nil
			})
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "project description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				projects, err := s.ListProjects(ctx)
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Println("No projects yet. Use 'suite project add' to create one.")
					return nil
				}
				for _, p := range projects {
					fmt.Printf("%s  %-24s  %s\n", shortID(p.ID), truncate(p.Name, 24), truncate(p.Description, 40))
				}
				return nil
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a project; its notes and lore are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteProject(ctx, args[0]); err != nil {
					return fmt.Errorf("project %s: %w", args[0], err)
				}
				fmt.Println("Deleted.")
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

func dictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Manage the project dictionary",
	}

	var category, project string
	add := &cobra.Command{
		Use:   "add [term] [definition]",
		Short: "Define a term",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				e, err := s.CreateDictionaryEntry(ctx, domain.DictionaryEntry{
					Term:       args[0],
					Definition: strings.Join(args[1:], " "),
					Category:   category,
					ProjectID:  optional(project),
				})
				if err != nil {
					return err
				}
				fmt.Printf("Added term: %s (%s)\n", e.Term, shortID(e.ID))
				return nil
			})
		},
	}
	add.Flags().StringVarP(&category, "category", "c", "", "entry category")
	add.Flags().StringVar(&project, "project", "", "project id")

	var listProject string
	list := &cobra.Command{
		Use:   "list [search]",
		Short: "List terms alphabetically",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				entries, err := s.ListDictionary(ctx, domain.LoreFilter{ProjectID: listProject, Query: strings.Join(args, " ")})
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Println("No terms found.")
					return nil
				}
				for _, e := range entries {
					fmt.Printf("%s  %-20s  %s\n", shortID(e.ID), truncate(e.Term, 20), truncate(e.Definition, 50))
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&listProject, "project", "", "only this project")

	rm := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteDictionaryEntry(ctx, args[0]); err != nil {
					return fmt.Errorf("term %s: %w", args[0], err)
				}
				fmt.Println("Deleted.")
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

func plotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Manage the story outline",
	}

	var description, project string
	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Append a plot point",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				p, err := s.CreatePlotPoint(ctx, domain.PlotPoint{
					Title:       strings.Join(args, " "),
					Description: description,
					ProjectID:   optional(project),
				})
				if err != nil {
					return err
				}
				fmt.Printf("Added plot point %d: %s (%s)\n", p.Order+1, p.Title, shortID(p.ID))
				return nil
			})
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "what happens")
	add.Flags().StringVar(&project, "project", "", "project id")

	var listProject string
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the outline in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				points, err := s.ListPlotPoints(ctx, domain.LoreFilter{ProjectID: listProject})
				if err != nil {
					return err
				}
				if len(points) == 0 {
					fmt.Println("No plot points yet. Use 'suite plot add' to create one.")
					return nil
				}
				for _, p := range points {
					fmt.Printf("%3d. %s  %-11s  %s\n", p.Order+1, shortID(p.ID), p.Status, truncate(p.Title, 50))
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&listProject, "project", "", "only this project")

	status := &cobra.Command{
		Use:   "status [id] [planned|in-progress|completed]",
		Short: "Set a plot point's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				p, err := s.GetPlotPoint(ctx, args[0])
				if err != nil {
					return fmt.Errorf("plot point %s: %w", args[0], err)
				}
				p.Status = domain.PlotPointStatus(args[1])
				if p, err = s.UpdatePlotPoint(ctx, *p); err != nil {
					return err
				}
				fmt.Printf("%s is %s\n", truncate(p.Title, 60), p.Status)
				return nil
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a plot point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.DeletePlotPoint(ctx, args[0]); err != nil {
					return fmt.Errorf("plot point %s: %w", args[0], err)
				}
				fmt.Println("Deleted.")
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, status, rm)
	return cmd
}

func worldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "world",
		Short: "Manage world-building elements",
	}

	var kind, description, project string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a world element",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				e, err := s.CreateWorldElement(ctx, domain.WorldElement{
					Name:        strings.Join(args, " "),
					Type:        kind,
					Description: description,
					ProjectID:   optional(project),
				})
				if err != nil {
					return err
				}
				fmt.Printf("Added %s: %s (%s)\n", e.Type, e.Name, shortID(e.ID))
				return nil
			})
		},
	}
	add.Flags().StringVarP(&kind, "type", "t", "", "one of "+strings.Join(domain.WorldElementTypes, ", "))
	add.Flags().StringVarP(&description, "description", "d", "", "element description")
	add.Flags().StringVar(&project, "project", "", "project id")

	var listProject string
	list := &cobra.Command{
		Use:   "list [search]",
		Short: "List world elements by type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				elems, err := s.ListWorldElements(ctx, domain.LoreFilter{ProjectID: listProject, Query: strings.Join(args, " ")})
				if err != nil {
					return err
				}
				if len(elems) == 0 {
					fmt.Println("No world elements found.")
					return nil
				}
				for _, e := range elems {
					fmt.Printf("%s  %-10s  %-24s  %s\n", shortID(e.ID), e.Type, truncate(e.Name, 24), truncate(e.Description, 40))
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&listProject, "project", "", "only this project")

	rm := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a world element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.DeleteWorldElement(ctx, args[0]); err != nil {
					return fmt.Errorf("world element %s: %w", args[0], err)
				}
				fmt.Println("Deleted.")
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}
