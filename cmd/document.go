package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/dms"
	"github.com/pharmadocs/dmsd/internal/store"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents",
}

var (
	docTitle       string
	docDescription string
	docDepartment  string
	docTags        string
	docDraft       bool
)

var docCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new document, optionally with its v0.1 draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		owner, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}

		var tags []string
		if docTags != "" {
			tags = strings.Split(docTags, ",")
		}

		doc, version, err := s.CreateDocument(ctx, dms.CreateDocumentRequest{
			Title:              docTitle,
			Description:        docDescription,
			Department:         docDepartment,
			Tags:               tags,
			CreateInitialDraft: docDraft,
		}, owner, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("create document: %w", err))
		}
		if JSON() {
			return PrintJSON(map[string]any{"document": doc, "version": version})
		}
		fmt.Fprintf(Out(), "%s  %s\n", doc.DocumentNumber, doc.Title)
		if version != nil {
			fmt.Fprintf(Out(), "  %s  %s\n", version.VersionString, version.Status)
		}
		return nil
	},
}

var docGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Show a document's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		doc, err := s.GetDocument(cmd.Context(), args[0])
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(doc)
		}
		printDocument(doc)
		return nil
	},
}

var (
	docListDepartment string
	docListTag        string
	docListOwner      string
	docListOffset     int
	docListLimit      int
)

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		docs, total, err := s.ListDocuments(cmd.Context(), store.DocumentFilter{
			Department: docListDepartment,
			Tag:        docListTag,
			OwnerID:    docListOwner,
			Offset:     docListOffset,
			Limit:      docListLimit,
		})
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(map[string]any{"documents": docs, "total": total})
		}
		for _, doc := range docs {
			fmt.Fprintf(Out(), "%s  %s  %s\n", doc.DocumentNumber, doc.Department, doc.Title)
		}
		fmt.Fprintf(Out(), "%d of %d\n", len(docs), total)
		return nil
	},
}

var (
	docUpdateTitle       string
	docUpdateDescription string
	docUpdateDepartment  string
	docUpdateTags        string
)

var docUpdateCmd = &cobra.Command{
	Use:   "update <document-id>",
	Short: "Patch a document's non-version metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		patch := dms.UpdateDocumentMetadataRequest{}
		if cmd.Flags().Changed("title") {
			patch.Title = &docUpdateTitle
		}
		if cmd.Flags().Changed("description") {
			patch.Description = &docUpdateDescription
		}
		if cmd.Flags().Changed("department") {
			patch.Department = &docUpdateDepartment
		}
		if cmd.Flags().Changed("tags") {
			patch.Tags = strings.Split(docUpdateTags, ",")
		}
		if err := s.UpdateDocumentMetadata(cmd.Context(), args[0], patch); err != nil {
			return PrintJSONError(fmt.Errorf("update document: %w", err))
		}
		fmt.Fprintln(Out(), "updated")
		return nil
	},
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Soft-delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		if err := s.SoftDeleteDocument(cmd.Context(), args[0]); err != nil {
			return PrintJSONError(err)
		}
		fmt.Fprintln(Out(), "deleted")
		return nil
	},
}

func printDocument(doc *store.Document) {
	fmt.Fprintf(Out(), "%s  %s\n", doc.DocumentNumber, doc.Title)
	fmt.Fprintf(Out(), "  department: %s\n", doc.Department)
	if doc.Description != "" {
		printRendered(doc.Description)
	}
	if len(doc.Tags) > 0 {
		fmt.Fprintf(Out(), "  tags: %s\n", strings.Join(doc.Tags, ", "))
	}
	if doc.CurrentVersionID != nil {
		fmt.Fprintf(Out(), "  current version: %s\n", *doc.CurrentVersionID)
	}
}

func init() {
	docCreateCmd.Flags().StringVar(&docTitle, "title", "", "Document title (required)")
	docCreateCmd.Flags().StringVar(&docDescription, "description", "", "Document description")
	docCreateCmd.Flags().StringVar(&docDepartment, "department", "", "4-character department code (required)")
	docCreateCmd.Flags().StringVar(&docTags, "tags", "", "Comma-separated tags")
	docCreateCmd.Flags().BoolVar(&docDraft, "draft", false, "Also create the v0.1 initial draft")
	_ = docCreateCmd.MarkFlagRequired("title")
	_ = docCreateCmd.MarkFlagRequired("department")

	docListCmd.Flags().StringVar(&docListDepartment, "department", "", "Filter by department")
	docListCmd.Flags().StringVar(&docListTag, "tag", "", "Filter by tag")
	docListCmd.Flags().StringVar(&docListOwner, "owner", "", "Filter by owner principal id")
	docListCmd.Flags().IntVar(&docListOffset, "offset", 0, "Pagination offset")
	docListCmd.Flags().IntVar(&docListLimit, "limit", 50, "Pagination limit")

	docUpdateCmd.Flags().StringVar(&docUpdateTitle, "title", "", "New title")
	docUpdateCmd.Flags().StringVar(&docUpdateDescription, "description", "", "New description")
	docUpdateCmd.Flags().StringVar(&docUpdateDepartment, "department", "", "New department code")
	docUpdateCmd.Flags().StringVar(&docUpdateTags, "tags", "", "New comma-separated tags")

	docCmd.AddCommand(docCreateCmd, docGetCmd, docListCmd, docUpdateCmd, docDeleteCmd)
	rootCmd.AddCommand(docCmd)
}
