package commands

import (
	"fmt"
	"os"

	"rtblob/pkg/core"

	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key [file...]",
	Short: "Print content keys without storing, and whether each object already exists",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st := RT.Storage(ctx)

		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			key, size, err := core.ContentKeyFromReader(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			state := "-"
			if st.Enabled() {
				ok, err := st.Has(ctx, key)
				switch {
				case err != nil:
					state = "error: " + err.Error()
				case ok:
					state = "stored"
				default:
					state = "absent"
				}
			}
			fmt.Printf("%s  %10d  %-7s  %s\n", key, size, state, path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
}
