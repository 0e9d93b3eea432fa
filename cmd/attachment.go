package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/attachment"
)

var attachmentCmd = &cobra.Command{
	Use:   "attachment",
	Short: "Manage document and version attachments",
}

var (
	attachParentKind string
	attachMimeType   string
)

func parseParentKind(s string) (attachment.ParentKind, error) {
	switch s {
	case "document":
		return attachment.ParentDocument, nil
	case "version":
		return attachment.ParentVersion, nil
	default:
		return "", fmt.Errorf("--parent-kind must be document or version, got %q", s)
	}
}

var attachmentUploadCmd = &cobra.Command{
	Use:   "upload <parent-id> <file>",
	Short: "Upload a file as an attachment",
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
		kind, err := parseParentKind(attachParentKind)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		filename := filepath.Base(args[1])
		ext := filepath.Ext(filename)
		a, err := s.UploadAttachment(ctx, kind, args[0], content, filename, attachMimeType, p, ext, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("upload attachment: %w", err))
		}
		if JSON() {
			return PrintJSON(a)
		}
		fmt.Fprintf(Out(), "%s  %s  %d bytes\n", a.ID, a.Filename, a.ByteSize)
		return nil
	},
}

var attachmentDownloadCmd = &cobra.Command{
	Use:   "download <attachment-id> <output-file>",
	Short: "Download an attachment's bytes to a local file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		content, filename, err := s.DownloadAttachment(cmd.Context(), args[0], filepath.Ext(args[1]))
		if err != nil {
			return PrintJSONError(fmt.Errorf("download attachment: %w", err))
		}
		if err := os.WriteFile(args[1], content, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		fmt.Fprintf(Out(), "saved %s (%s)\n", args[1], filename)
		return nil
	},
}

var attachmentDeleteCmd = &cobra.Command{
	Use:   "delete <attachment-id>",
	Short: "Soft-delete an attachment",
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
		if err := s.DeleteAttachment(ctx, args[0], p, now()); err != nil {
			return PrintJSONError(fmt.Errorf("delete attachment: %w", err))
		}
		fmt.Fprintln(Out(), "deleted")
		return nil
	},
}

var attachmentListCmd = &cobra.Command{
	Use:   "list <parent-id>",
	Short: "List a document or version's attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		kind, err := parseParentKind(attachParentKind)
		if err != nil {
			return err
		}
		attachments, err := s.ListAttachments(cmd.Context(), kind, args[0])
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(attachments)
		}
		for _, a := range attachments {
			fmt.Fprintf(Out(), "%s  %s  %d bytes\n", a.ID, a.Filename, a.ByteSize)
		}
		return nil
	},
}

func init() {
	attachmentUploadCmd.Flags().StringVar(&attachParentKind, "parent-kind", "", "document or version (required)")
	attachmentUploadCmd.Flags().StringVar(&attachMimeType, "mime-type", "application/octet-stream", "MIME type to record")
	_ = attachmentUploadCmd.MarkFlagRequired("parent-kind")

	attachmentListCmd.Flags().StringVar(&attachParentKind, "parent-kind", "", "document or version (required)")
	_ = attachmentListCmd.MarkFlagRequired("parent-kind")

	attachmentCmd.AddCommand(attachmentUploadCmd, attachmentDownloadCmd, attachmentDeleteCmd, attachmentListCmd)
	rootCmd.AddCommand(attachmentCmd)
}
