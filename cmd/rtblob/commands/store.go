package commands

import (
	"fmt"
	"os"
	"sync"

	"rtblob/pkg/ignore"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	storeJobs      int
	storeRecursive bool
)

var storeCmd = &cobra.Command{
	Use:   "store [file|dir...]",
	Short: "Store files in external storage and print their content keys",
	Long: `Store files in external storage and print "<key>  <path>" for each one.
With --recursive, directories are walked; .rtblobignore in a directory excludes matching files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st := RT.Storage(ctx)
		if err := RT.StorageErr(); err != nil {
			return err
		}

		files, err := expandPaths(args, storeRecursive)
		if err != nil {
			return err
		}

		var mu sync.Mutex // 保护 stdout，避免多行交错

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(storeJobs)
		for _, path := range files {
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				key, err := st.Store(gctx, data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				mu.Lock()
				fmt.Printf("%s  %s\n", key, path)
				mu.Unlock()
				return nil
			})
		}
		return g.Wait()
	},
}

// expandPaths 展开目录参数；不带 --recursive 时目录视为错误
func expandPaths(args []string, recursive bool) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		if !recursive {
			return nil, fmt.Errorf("%s is a directory (use --recursive)", arg)
		}
		matcher, err := ignore.NewMatcher(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ignore.FileName, err)
		}
		found, err := matcher.Files(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func init() {
	storeCmd.Flags().IntVarP(&storeJobs, "jobs", "j", 4, "number of concurrent uploads")
	storeCmd.Flags().BoolVarP(&storeRecursive, "recursive", "r", false, "store every file under the given directories")
	rootCmd.AddCommand(storeCmd)
}
