package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var miningCmd = &cobra.Command{
	Use:       "mining on|off|once",
	Short:     "Control mining on the node",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "once"},
	RunE:      miningRun,
}

func init() {
	rootCmd.AddCommand(miningCmd)
}

func miningRun(cmd *cobra.Command, args []string) error {
	var resp map[string]any
	if err := call("POST", fmt.Sprintf("/v1/mining/%s", args[0]), nil, &resp); err != nil {
		return err
	}

	return printJSON(resp)
}
