package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/store"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Manage document versions through their lifecycle",
}

var versionGetCmd = &cobra.Command{
	Use:   "get <version-id>",
	Short: "Show a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		v, err := s.GetVersion(cmd.Context(), args[0])
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(v)
		}
		fmt.Fprintf(Out(), "%s  %s  %s\n", v.ID, v.VersionString, v.Status)
		return nil
	},
}

var versionListCmd = &cobra.Command{
	Use:   "list <document-id>",
	Short: "List a document's versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		versions, err := s.ListVersions(cmd.Context(), args[0])
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(versions)
		}
		for _, v := range versions {
			fmt.Fprintf(Out(), "%s  %s  %s\n", v.ID, v.VersionString, v.Status)
		}
		return nil
	},
}

var versionDiffCmd = &cobra.Command{
	Use:   "diff <old-version-id> <new-version-id>",
	Short: "Show a textual diff between two versions' content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		res, err := s.DiffVersions(cmd.Context(), args[0], args[1])
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(res)
		}
		fmt.Fprint(Out(), res.Format(Pretty()))
		return nil
	},
}

var (
	createNextParent string
	createNextType   string
	createNextReason string
)

var versionCreateNextCmd = &cobra.Command{
	Use:   "create-next <document-id>",
	Short: "Create a new Draft cloned from the document's Effective version",
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
		doc, err := s.GetDocument(ctx, args[0])
		if err != nil {
			return PrintJSONError(err)
		}
		v, err := s.CreateNextVersion(ctx, doc, createNextParent, p, store.ChangeType(createNextType), createNextReason, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("create next version: %w", err))
		}
		if JSON() {
			return PrintJSON(v)
		}
		fmt.Fprintf(Out(), "%s  %s  %s\n", v.ID, v.VersionString, v.Status)
		return nil
	},
}

var (
	saveLockToken    string
	saveExpectedHash string
	saveAutosave     bool
)

var versionSaveCmd = &cobra.Command{
	Use:   "save <version-id> <content-file>",
	Short: "Write new content to a locked Draft version",
	Args:  cobra.ExactArgs(2),
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
		content, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}
		var expectedHash *string
		if saveExpectedHash != "" {
			expectedHash = &saveExpectedHash
		}
		res, err := s.SaveContent(ctx, args[0], p, saveLockToken, string(content), expectedHash, saveAutosave, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("save content: %w", err))
		}
		if JSON() {
			return PrintJSON(res)
		}
		if res.NoOp {
			fmt.Fprintln(Out(), "no-op: content unchanged")
		} else {
			fmt.Fprintf(Out(), "saved, hash %s\n", res.ContentHash)
		}
		return nil
	},
}

// printVersionResult prints a transitioned version, honoring --output json.
func printVersionResult(v *store.DocumentVersion, err error, action string) error {
	if err != nil {
		return PrintJSONError(fmt.Errorf("%s: %w", action, err))
	}
	if JSON() {
		return PrintJSON(v)
	}
	fmt.Fprintf(Out(), "%s  %s  %s\n", v.ID, v.VersionString, v.Status)
	return nil
}

var submitComment string

var versionSubmitCmd = &cobra.Command{
	Use:   "submit <version-id>",
	Short: "Move a Draft to Under Review",
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
		doc, err := s.GetVersion(ctx, args[0])
		if err != nil {
			return err
		}
		parent, err := s.GetDocument(ctx, doc.DocumentID)
		if err != nil {
			return err
		}
		credential, err := promptCredential("E-signature credential: ")
		if err != nil {
			return err
		}
		var c *string
		if submitComment != "" {
			c = &submitComment
		}
		v, err := s.Submit(ctx, parent, args[0], p, credential, c, now())
		return printVersionResult(v, err, "submit")
	},
}

var approveReviewComment string

var versionApproveReviewCmd = &cobra.Command{
	Use:   "approve-review <version-id>",
	Short: "Advance Under Review to Pending Approval",
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
		credential, err := promptCredential("E-signature credential: ")
		if err != nil {
			return err
		}
		var c *string
		if approveReviewComment != "" {
			c = &approveReviewComment
		}
		v, err := s.ApproveReview(ctx, args[0], p, credential, c, now())
		return printVersionResult(v, err, "approve-review")
	},
}

var requestChangesReason string

var versionRequestChangesCmd = &cobra.Command{
	Use:   "request-changes <version-id>",
	Short: "Send Under Review back to Draft with a required reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if requestChangesReason == "" {
			return fmt.Errorf("--reason is required")
		}
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		credential, err := promptCredential("E-signature credential: ")
		if err != nil {
			return err
		}
		v, err := s.RequestChanges(ctx, args[0], p, credential, requestChangesReason, now())
		return printVersionResult(v, err, "request-changes")
	},
}

var approveComment string

var versionApproveCmd = &cobra.Command{
	Use:   "approve <version-id>",
	Short: "Advance Pending Approval to Approved",
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
		credential, err := promptCredential("E-signature credential: ")
		if err != nil {
			return err
		}
		var c *string
		if approveComment != "" {
			c = &approveComment
		}
		v, err := s.Approve(ctx, args[0], p, credential, c, now())
		return printVersionResult(v, err, "approve")
	},
}

var rejectReason string

var versionRejectCmd = &cobra.Command{
	Use:   "reject <version-id>",
	Short: "Send Pending Approval back to Draft with a required reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rejectReason == "" {
			return fmt.Errorf("--reason is required")
		}
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		credential, err := promptCredential("E-signature credential: ")
		if err != nil {
			return err
		}
		v, err := s.Reject(ctx, args[0], p, credential, rejectReason, now())
		return printVersionResult(v, err, "reject")
	},
}

var versionPublishCmd = &cobra.Command{
	Use:   "publish <version-id>",
	Short: "Move Approved to Effective, obsoleting the prior Effective version",
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
			return err
		}
		doc, err := s.GetDocument(ctx, ver.DocumentID)
		if err != nil {
			return err
		}
		credential, err := promptCredential("E-signature credential: ")
		if err != nil {
			return err
		}
		v, err := s.Publish(ctx, doc, args[0], p, credential, nil, now())
		return printVersionResult(v, err, "publish")
	},
}

var versionArchiveCmd = &cobra.Command{
	Use:   "archive <version-id>",
	Short: "Move Effective or Obsolete to Archived",
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
		credential, err := promptCredential("E-signature credential: ")
		if err != nil {
			return err
		}
		v, err := s.Archive(ctx, args[0], p, credential, now())
		return printVersionResult(v, err, "archive")
	},
}

var versionExportCmd = &cobra.Command{
	Use:   "export <version-id>",
	Short: "Render a version to DOCX",
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
			return err
		}
		doc, err := s.GetDocument(ctx, ver.DocumentID)
		if err != nil {
			return err
		}
		bytes, err := s.ExportVersion(ctx, doc, args[0], p, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("export: %w", err))
		}
		_, err = Out().Write(bytes)
		return err
	},
}

func init() {
	versionCreateNextCmd.Flags().StringVar(&createNextParent, "parent", "", "Parent version id to clone content from (required)")
	versionCreateNextCmd.Flags().StringVar(&createNextType, "change-type", string(store.ChangeMinor), "Minor or Major")
	versionCreateNextCmd.Flags().StringVar(&createNextReason, "reason", "", "Change reason, 10-1000 characters (required)")
	_ = versionCreateNextCmd.MarkFlagRequired("parent")
	_ = versionCreateNextCmd.MarkFlagRequired("reason")

	versionSaveCmd.Flags().StringVar(&saveLockToken, "lock-token", "", "Edit lock token (required)")
	versionSaveCmd.Flags().StringVar(&saveExpectedHash, "expected-hash", "", "Expected content hash for optimistic concurrency")
	versionSaveCmd.Flags().BoolVar(&saveAutosave, "autosave", false, "Mark this save as an autosave (coalesced in the audit trail)")
	_ = versionSaveCmd.MarkFlagRequired("lock-token")

	versionSubmitCmd.Flags().StringVar(&submitComment, "comment", "", "Optional reviewer comment")
	versionApproveReviewCmd.Flags().StringVar(&approveReviewComment, "comment", "", "Optional reviewer comment")
	versionRequestChangesCmd.Flags().StringVar(&requestChangesReason, "reason", "", "Required reason")
	versionApproveCmd.Flags().StringVar(&approveComment, "comment", "", "Optional reviewer comment")
	versionRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Required reason")

	versionCmd.AddCommand(
		versionGetCmd, versionListCmd, versionDiffCmd, versionCreateNextCmd, versionSaveCmd,
		versionSubmitCmd, versionApproveReviewCmd, versionRequestChangesCmd,
		versionApproveCmd, versionRejectCmd, versionPublishCmd, versionArchiveCmd, versionExportCmd,
	)
	rootCmd.AddCommand(versionCmd)
}
