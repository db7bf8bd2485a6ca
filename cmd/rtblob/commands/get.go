package commands

import (
	"fmt"
	"io"
	"os"

	"rtblob/pkg/types"

	"github.com/spf13/cobra"
)

var getOutput string

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Fetch an object by content key",
	Long:  `Fetch the raw bytes stored under a content key and write them to stdout (or --output).`,
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

		data, err := st.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("get failed: %w", err)
		}
		return writeOutput(getOutput, data)
	},
}

// writeOutput 写到文件，path 为空或 "-" 时写到 stdout
// 二进制内容可以通过 > file.bin 重定向
func writeOutput(path string, data []byte) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := w.Write(data)
	return err
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(getCmd)
}
