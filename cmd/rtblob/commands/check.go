package commands

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var checkVerify bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Initialize the configured backend and report its state",
	Long: `Initialize external storage exactly as the application would and print the result.
With --verify, every content key referenced by an external attachment is looked up in the backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st := RT.Storage(ctx)

		if err := RT.StorageErr(); err != nil {
			fmt.Printf("❌ External storage failed to initialize: %v\n", err)
			return err
		}
		if !st.Enabled() {
			fmt.Println("External storage: disabled (content stays in the database)")
			return nil
		}
		fmt.Printf("External storage: %s (backend %s, write=%t, cutoff=%d bytes)\n",
			st.Mode(), st.BackendName(), st.Writable(), RT.Policy.Cutoff)

		if !checkVerify {
			return nil
		}

		keys, err := RT.Repository.ExternalAttachmentKeys(ctx)
		if err != nil {
			return err
		}

		var missing int32
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for _, key := range keys {
			g.Go(func() error {
				ok, err := st.Has(gctx, key)
				if err != nil {
					return err
				}
				if !ok {
					atomic.AddInt32(&missing, 1)
					fmt.Printf("⚠️  missing object %s\n", key)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Verified %d keys, %d missing.\n", len(keys), missing)
		if missing > 0 {
			return fmt.Errorf("%d external objects are missing", missing)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkVerify, "verify", false, "verify that every external attachment is present in the backend")
	rootCmd.AddCommand(checkCmd)
}
