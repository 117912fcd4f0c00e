// Package ledger rolls line items up into transactions and transactions up
// into tickets. Totals are always recomputed from scratch.
package ledger

import (
	"fmt"

	"github.com/nimasrn/pos-ledger/internal/allocation"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/tax"
)

var ErrTransactionNotOnTicket = fmt.Errorf("transaction does not belong to ticket")

// ComputeTransactionTotals sums line items with the sign of the transaction
// type. Line item totals themselves stay positive.
func ComputeTransactionTotals(tx *model.Transaction) {
	sign := tx.TransactionType.Sign()
	var subtotal, taxTotal, total int64
	for _, li := range tx.LineItems {
		subtotal += sign * li.Pretax()
		taxTotal += sign * li.TaxAmount
		total += sign * li.Total
	}
	tx.Subtotal = subtotal
	tx.TaxTotal = taxTotal
	tx.Total = total
}

// ComputeTicketTotals is the plain sum of the already signed transactions.
func ComputeTicketTotals(ticket *model.Ticket) {
	var subtotal, taxTotal, total int64
	for _, tx := range ticket.Transactions {
		subtotal += tx.Subtotal
		taxTotal += tx.TaxTotal
		total += tx.Total
	}
	ticket.Subtotal = subtotal
	ticket.TaxTotal = taxTotal
	ticket.Total = total
}

// FinalizeTransaction recomputes line items, allocates every tender and
// rolls the transaction up, in that order.
func FinalizeTransaction(tx *model.Transaction) error {
	for _, li := range tx.LineItems {
		if err := tax.Compute(li); err != nil {
			return fmt.Errorf("line item %d: %w", li.Position, err)
		}
	}
	if err := allocation.AllocateTransaction(tx); err != nil {
		return err
	}
	ComputeTransactionTotals(tx)
	return nil
}

// Finalize recomputes the whole aggregate: line items, transactions, ticket.
func Finalize(ticket *model.Ticket) error {
	for _, tx := range ticket.Transactions {
		if err := FinalizeTransaction(tx); err != nil {
			return err
		}
	}
	ComputeTicketTotals(ticket)
	return nil
}

// AddTransaction attaches tx to the ticket and recomputes the ticket.
func AddTransaction(ticket *model.Ticket, tx *model.Transaction) error {
	tx.TicketID = ticket.ID
	if err := FinalizeTransaction(tx); err != nil {
		return err
	}
	ticket.Transactions = append(ticket.Transactions, tx)
	ComputeTicketTotals(ticket)
	return nil
}

// RemoveTransaction detaches the transaction with the given id and returns
// it so the caller can delete its owned rows.
func RemoveTransaction(ticket *model.Ticket, transactionID int64) (*model.Transaction, error) {
	for i, tx := range ticket.Transactions {
		if tx.ID == transactionID {
			ticket.Transactions = append(ticket.Transactions[:i:i], ticket.Transactions[i+1:]...)
			ComputeTicketTotals(ticket)
			return tx, nil
		}
	}
	return nil, fmt.Errorf("%w: ticket %d, transaction %d", ErrTransactionNotOnTicket, ticket.ID, transactionID)
}
