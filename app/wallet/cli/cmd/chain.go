package cmd

import (
	"github.com/spf13/cobra"
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Create the genesis block on the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks []map[string]any
		if err := call("POST", "/v1/genesis/create", nil, &blocks); err != nil {
			return err
		}

		return printJSON(blocks)
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the node's chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks []map[string]any
		if err := call("GET", "/v1/chain", nil, &blocks); err != nil {
			return err
		}

		return printJSON(blocks)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the node's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status map[string]any
		if err := call("GET", "/v1/node/status", nil, &status); err != nil {
			return err
		}

		return printJSON(status)
	},
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(statusCmd)
}
