package reporting

import (
	"sort"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/salesday"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
)

// Aggregate folds tickets and deductions into one report body. Line items
// count with the sign of their transaction; tenders are summed as recorded.
// The result never aliases the input.
func Aggregate(tickets []*model.Ticket, deductions []*model.Deduction, includeTickets bool) *model.ReportBody {
	body := &model.ReportBody{
		Receipts:   model.ReceiptsSummary{ByPaymentType: []model.PaymentTypeAmount{}},
		Breakdowns: model.BreakdownsSummary{BySalesCategory: []model.CategoryTotals{}},
	}

	categories := make(map[string]*model.CategoryTotals)
	payments := make(map[string]*model.PaymentTypeAmount)

	for _, ticket := range tickets {
		for _, tx := range ticket.Transactions {
			sign := tx.TransactionType.Sign()
			for _, li := range tx.LineItems {
				subtotal := sign * li.Pretax()
				taxAmount := sign * li.TaxAmount
				total := sign * li.Total

				body.Sales.Subtotal += subtotal
				body.Sales.TaxTotal += taxAmount
				body.Sales.TotalSold += total

				ct, ok := categories[li.SalesCategory]
				if !ok {
					ct = &model.CategoryTotals{SalesCategory: li.SalesCategory}
					categories[li.SalesCategory] = ct
				}
				ct.Subtotal += subtotal
				ct.TaxTotal += taxAmount
				ct.Total += total
			}

			for _, tender := range tx.Tenders {
				body.Receipts.TotalReceived += tender.Amount
				pa, ok := payments[tender.PaymentType]
				if !ok {
					pa = &model.PaymentTypeAmount{PaymentType: tender.PaymentType}
					payments[tender.PaymentType] = pa
				}
				pa.Amount += tender.Amount

				if salesday.IsCash(tender.PaymentType) {
					body.Cash.CashReceivedGross += tender.Amount
				}
			}
		}

		if includeTickets {
			body.Tickets = append(body.Tickets, ticketRow(ticket))
		}
	}

	for _, ct := range categories {
		body.Breakdowns.BySalesCategory = append(body.Breakdowns.BySalesCategory, *ct)
	}
	sort.Slice(body.Breakdowns.BySalesCategory, func(i, j int) bool {
		a, b := body.Breakdowns.BySalesCategory[i], body.Breakdowns.BySalesCategory[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.SalesCategory < b.SalesCategory
	})

	for _, pa := range payments {
		body.Receipts.ByPaymentType = append(body.Receipts.ByPaymentType, *pa)
	}
	sort.Slice(body.Receipts.ByPaymentType, func(i, j int) bool {
		a, b := body.Receipts.ByPaymentType[i], body.Receipts.ByPaymentType[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.PaymentType < b.PaymentType
	})

	body.Balances.BalanceOwed = body.Sales.TotalSold - body.Receipts.TotalReceived

	for _, d := range deductions {
		body.Deductions.Count++
		body.Deductions.TotalDeductions += d.Amount
	}
	body.Cash.CashAfterDeductions = body.Cash.CashReceivedGross - body.Deductions.TotalDeductions

	return body
}

func ticketRow(t *model.Ticket) model.TicketRow {
	return model.TicketRow{
		ID:           t.ID,
		TicketNumber: t.TicketNumber,
		Date:         t.TicketDate.Format(bizdate.DateLayout),
		Subtotal:     t.Subtotal,
		TaxTotal:     t.TaxTotal,
		Total:        t.Total,
		TotalPaid:    t.TotalPaid(),
		BalanceOwed:  t.BalanceOwed(),
		IsOpen:       t.IsOpen(),
	}
}

func ticketsByUser(tickets []*model.Ticket) map[int64][]*model.Ticket {
	out := make(map[int64][]*model.Ticket)
	for _, t := range tickets {
		out[t.UserID] = append(out[t.UserID], t)
	}
	return out
}

func ticketsByLocation(tickets []*model.Ticket) map[int64][]*model.Ticket {
	out := make(map[int64][]*model.Ticket)
	for _, t := range tickets {
		out[t.LocationID] = append(out[t.LocationID], t)
	}
	return out
}

func deductionsByUser(deductions []*model.Deduction) map[int64][]*model.Deduction {
	out := make(map[int64][]*model.Deduction)
	for _, d := range deductions {
		out[d.UserID] = append(out[d.UserID], d)
	}
	return out
}
