package commands

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"rtblob/pkg/service"

	"github.com/spf13/cobra"
)

var attachmentCmd = &cobra.Command{
	Use:   "attachment",
	Short: "Create, read and externalize ticket attachments",
}

var attachContentType string

var attachmentAddCmd = &cobra.Command{
	Use:   "add [ticket-id] [file]",
	Short: "Attach a file to a ticket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticketID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ticket id %q: %w", args[0], err)
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		ct := attachContentType
		if ct == "" {
			ct = detectContentType(args[1], data)
		}

		a, err := service.NewAttachmentService(RT).Create(cmd.Context(), service.NewAttachment{
			TicketID:    ticketID,
			Filename:    filepath.Base(args[1]),
			ContentType: ct,
			Content:     data,
		})
		if err != nil {
			return err
		}
		fmt.Printf("✅ Attachment #%d (%s, %d bytes, encoding %s)\n", a.ID, a.ContentType, a.Length, a.ContentEncoding)
		return nil
	},
}

var showOutput string

var attachmentShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Write the decoded attachment content to stdout (or --output)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid attachment id %q: %w", args[0], err)
		}
		data, _, err := service.NewAttachmentService(RT).Content(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeOutput(showOutput, data)
	},
}

var attachmentExternalizeCmd = &cobra.Command{
	Use:   "externalize [id...]",
	Short: "Move existing inline attachments to external storage",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.NewAttachmentService(RT)
		failures := 0
		for _, arg := range args {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid attachment id %q: %w", arg, err)
			}
			key, err := svc.Externalize(cmd.Context(), id)
			if err != nil {
				fmt.Printf("❌ #%d: %v\n", id, err)
				failures++
				continue
			}
			fmt.Printf("✅ #%d -> %s\n", id, key)
		}
		if failures > 0 {
			return fmt.Errorf("%d attachments were not externalized", failures)
		}
		return nil
	},
}

// detectContentType 先看扩展名，再嗅探内容
func detectContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func init() {
	attachmentAddCmd.Flags().StringVar(&attachContentType, "content-type", "", "MIME type (detected from the file when empty)")
	attachmentShowCmd.Flags().StringVarP(&showOutput, "output", "o", "", "write to file instead of stdout")

	attachmentCmd.AddCommand(attachmentAddCmd, attachmentShowCmd, attachmentExternalizeCmd)
	rootCmd.AddCommand(attachmentCmd)
}
