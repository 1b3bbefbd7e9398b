package cmd

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
)

// sendCmd asks the node to transfer money from its own account.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send money from the node's account",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account to send to. Defaults to the wallet account.")
	sendCmd.Flags().StringVarP(&amount, "amount", "m", "", "Amount to send.")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	if _, err := decimal.NewFromString(amount); err != nil {
		return fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	account := to
	if account == "" {
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}
		account = string(database.PublicKeyToAccountID(privateKey.PublicKey))
	}

	req := struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}{
		To:     account,
		Amount: amount,
	}

	var tx map[string]any
	if err := call("POST", "/v1/tx/submit", req, &tx); err != nil {
		return err
	}

	return printJSON(tx)
}
