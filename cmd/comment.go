package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/comment"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage version comments",
}

var (
	commentBody          string
	commentAnchorText    string
	commentAnchorStart   int
	commentAnchorEnd     int
	commentAnchorContext string
)

var commentCreateCmd = &cobra.Command{
	Use:   "create <version-id>",
	Short: "Anchor a comment to a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		ver, err := s.GetVersion(ctx, args[0])
		if err != nil {
			return PrintJSONError(err)
		}
		doc, err := s.GetDocument(ctx, ver.DocumentID)
		if err != nil {
			return PrintJSONError(err)
		}
		anchor := comment.Anchor{Text: commentAnchorText}
		if cmd.Flags().Changed("anchor-start") {
			anchor.Start = &commentAnchorStart
		}
		if cmd.Flags().Changed("anchor-end") {
			anchor.End = &commentAnchorEnd
		}
		if commentAnchorContext != "" {
			anchor.Context = &commentAnchorContext
		}
		c, err := s.CreateComment(ctx, doc, ver, p, commentBody, anchor, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("create comment: %w", err))
		}
		if JSON() {
			return PrintJSON(c)
		}
		fmt.Fprintf(Out(), "%s  %s\n", c.ID, c.Body)
		return nil
	},
}

var commentEditCmd = &cobra.Command{
	Use:   "edit <comment-id>",
	Short: "Change a comment's body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		c, err := s.EditComment(ctx, args[0], p, commentBody, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("edit comment: %w", err))
		}
		if JSON() {
			return PrintJSON(c)
		}
		fmt.Fprintf(Out(), "%s  %s\n", c.ID, c.Body)
		return nil
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <comment-id>",
	Short: "Remove a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		if err := s.DeleteComment(ctx, args[0], p, now()); err != nil {
			return PrintJSONError(fmt.Errorf("delete comment: %w", err))
		}
		fmt.Fprintln(Out(), "deleted")
		return nil
	},
}

var commentResolveCmd = &cobra.Command{
	Use:   "resolve <comment-id>",
	Short: "Mark a comment resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		c, err := s.ResolveComment(ctx, args[0], p, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("resolve comment: %w", err))
		}
		if JSON() {
			return PrintJSON(c)
		}
		fmt.Fprintln(Out(), "resolved")
		return nil
	},
}

var commentUnresolveCmd = &cobra.Command{
	Use:   "unresolve <comment-id>",
	Short: "Reopen a resolved comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		c, err := s.UnresolveComment(ctx, args[0], p, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("unresolve comment: %w", err))
		}
		if JSON() {
			return PrintJSON(c)
		}
		fmt.Fprintln(Out(), "reopened")
		return nil
	},
}

var commentListIncludeResolved bool

var commentListCmd = &cobra.Command{
	Use:   "list <version-id>",
	Short: "List a version's comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		comments, err := s.ListComments(cmd.Context(), args[0], commentListIncludeResolved)
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(comments)
		}
		for _, c := range comments {
			status := "open"
			if c.IsResolved {
				status = "resolved"
			}
			fmt.Fprintf(Out(), "%s  [%s]  %s\n", c.ID, status, c.Body)
		}
		return nil
	},
}

func init() {
	commentCreateCmd.Flags().StringVar(&commentBody, "body", "", "Comment text (required)")
	commentCreateCmd.Flags().StringVar(&commentAnchorText, "anchor-text", "", "Canonical anchored text (required)")
	commentCreateCmd.Flags().IntVar(&commentAnchorStart, "anchor-start", 0, "Anchor start offset (hint only)")
	commentCreateCmd.Flags().IntVar(&commentAnchorEnd, "anchor-end", 0, "Anchor end offset (hint only)")
	commentCreateCmd.Flags().StringVar(&commentAnchorContext, "anchor-context", "", "Surrounding text hint")
	_ = commentCreateCmd.MarkFlagRequired("body")
	_ = commentCreateCmd.MarkFlagRequired("anchor-text")

	commentEditCmd.Flags().StringVar(&commentBody, "body", "", "New comment text (required)")
	_ = commentEditCmd.MarkFlagRequired("body")

	commentListCmd.Flags().BoolVar(&commentListIncludeResolved, "include-resolved", false, "Also list resolved comments")

	commentCmd.AddCommand(commentCreateCmd, commentEditCmd, commentDeleteCmd, commentResolveCmd, commentUnresolveCmd, commentListCmd)
	rootCmd.AddCommand(commentCmd)
}
