package cmd

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type balance struct {
	Account string          `json:"account"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

var balanceAll bool

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVar(&balanceAll, "all", false, "Print the balance of every account.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	path := "/v1/balances/list"

	if !balanceAll {
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}

		accountID := database.PublicKeyToAccountID(privateKey.PublicKey)
		fmt.Println("For Account:", accountID.Short())
		path += "/" + string(accountID)
	}

	var bals balances
	if err := call("GET", path, nil, &bals); err != nil {
		return err
	}

	for _, bal := range bals.Balances {
		fmt.Printf("%-20s %s\n", bal.Name, bal.Balance)
	}

	return nil
}
