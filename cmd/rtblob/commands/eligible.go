package commands

import (
	"fmt"
	"strconv"

	"rtblob/pkg/config"

	"github.com/spf13/cobra"
)

var eligibleField bool

var eligibleCmd = &cobra.Command{
	Use:   "eligible [content-type|field-type] [size]",
	Short: "Show whether content of a given type and size would be stored externally",
	Example: `  rtblob eligible text/plain 11534336
  rtblob eligible --field Image 5242880`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", args[1], err)
		}

		p := config.Policy()
		var ok bool
		if eligibleField {
			ok = p.CustomFieldValue(args[0], size)
		} else {
			ok = p.Attachment(args[0], size)
		}
		fmt.Println(ok)
		return nil
	},
}

func init() {
	eligibleCmd.Flags().BoolVar(&eligibleField, "field", false, "treat the first argument as a custom field type (Binary, Image, ...)")
	rootCmd.AddCommand(eligibleCmd)
}
