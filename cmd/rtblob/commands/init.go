package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const configTemplate = `# rtblob configuration
log:
  level: info
  format: json

database:
  driver: sqlite
  path: %s

# 外部存储：不写 Type 表示关闭，附件内容全部留在数据库里
external_storage:
  # Type: Disk          # Disk | AmazonS3 | Dropbox | Badger
  # Path: %s
  # Bucket: rt-attachments
  # AccessKeyId: ...
  # SecretAccessKey: ...
  # Region: us-east-1
  # Endpoint: http://localhost:9000
  Write: true
  cutoff_size: 10485760
  # cache:
  #   redis_url: redis://localhost:6379/0
  #   ttl: 24h
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .rtblob directory with a starter config",
	Long:  `Create ./.rtblob/config.yaml with external storage disabled and a local SQLite database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		dir := filepath.Join(wd, ".rtblob")
		cfgPath := filepath.Join(dir, "config.yaml")

		// 已存在就不覆盖
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Printf("⚠️  rtblob is already initialized in %s\n", dir)
			return nil
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		body := fmt.Sprintf(configTemplate, filepath.Join(dir, "rt.db"), filepath.Join(dir, "blobs"))
		if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Printf("✅ Initialized rtblob in %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
