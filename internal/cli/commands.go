package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ashureev/learnpath/internal/content"
	"github.com/ashureev/learnpath/internal/janitor"
	"github.com/ashureev/learnpath/internal/navigation"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a course content file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := content.Load(args[0])
			if err != nil {
				return err
			}
			lessons := 0
			for _, s := range catalog.Sections() {
				lessons += len(s.Lessons)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d sections, %d lessons\n", catalog.Len(), lessons)
			return nil
		},
	}
}

func sectionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List course sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.catalog()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tTITLE\tLESSONS")
			for _, s := range catalog.Sections() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Slug, s.Title, len(s.Lessons))
			}
			return tw.Flush()
		},
	}
}

func nextCmd(opts *options) *cobra.Command {
	var userID, section string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next action of a learner in each section",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, repo, err := opts.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			slugs := []string{section}
			if section == "" {
				slugs = slugs[:0]
				for _, s := range tracker.Catalog().Sections() {
					slugs = append(slugs, s.Slug)
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SECTION\tSTATE\tLABEL\tHREF")
			for _, slug := range slugs {
				next, err := tracker.Next(cmd.Context(), userID, slug)
				if errors.Is(err, navigation.ErrNoLessons) {
					fmt.Fprintf(tw, "%s\t-\t-\t-\n", slug)
					continue
				}
				if err != nil {
					return fmt.Errorf("%s: %w", slug, err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", slug, next.State, next.Label, next.Href)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Learner id (the learn_anon_id cookie value)")
	cmd.Flags().StringVar(&section, "section", "", "Only this section")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func resetCmd(opts *options) *cobra.Command {
	var userID, section string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear a learner's progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, repo, err := opts.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			removed, err := tracker.Reset(cmd.Context(), userID, section)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d completions\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Learner id (the learn_anon_id cookie value)")
	cmd.Flags().StringVar(&section, "section", "", "Only this section")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func staleCmd(opts *options) *cobra.Command {
	var ttl time.Duration
	var purge bool
	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List learners unseen for longer than --ttl",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := opts.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			if purge {
				removed, err := janitor.Sweep(cmd.Context(), repo, ttl, nil, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d learners\n", removed)
				return nil
			}

			stale, err := repo.GetStaleLearners(cmd.Context(), ttl)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tLAST SEEN")
			for _, l := range stale {
				fmt.Fprintf(tw, "%s\t%s\n", l.UserID, l.LastSeenAt.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 90*24*time.Hour, "Inactivity threshold")
	cmd.Flags().BoolVar(&purge, "delete", false, "Delete the stale learners and their progress")
	return cmd
}
