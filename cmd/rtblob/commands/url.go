package commands

import (
	"fmt"

	"rtblob/pkg/types"

	"github.com/spf13/cobra"
)

var urlCmd = &cobra.Command{
	Use:   "url [key]",
	Short: "Print a direct download link for an object (AmazonS3 only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := types.ParseKey(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st := RT.Storage(ctx)
		if err := RT.StorageErr(); err != nil {
			return err
		}

		u, err := st.URLFor(ctx, key)
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(urlCmd)
}
