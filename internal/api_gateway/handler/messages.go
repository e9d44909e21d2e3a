package handler

import (
	"fmt"

	"github.com/tenx-bank-ledger/internal/domain/shared"
)

// GreetingMessage is served on the root path
const GreetingMessage = "Would you like to make some money? Read the README for more info!"

func AccountCreatedMessage(id int64) string {
	return fmt.Sprintf("Account %d created successfully", id)
}

func TransferSucceededMessage(transactionID int64) string {
	return fmt.Sprintf("Transaction successful. Transaction ID [%d]", transactionID)
}

func TableClearedMessage(table shared.Table) string {
	switch table {
	case shared.TableAccounts:
		return "Accounts table cleared"
	case shared.TableTransactions:
		return "Transactions table cleared"
	default:
		return fmt.Sprintf("%s table cleared", table)
	}
}
