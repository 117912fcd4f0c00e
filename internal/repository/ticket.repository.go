package repository

import (
	"context"
	"fmt"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketRepository persists the ticket aggregate. Owned rows are written
// and deleted explicitly; nothing relies on foreign key cascades.
type TicketRepository struct {
	*pg.DB
}

func NewTicketRepository(db *pg.DB) *TicketRepository {
	return &TicketRepository{
		db,
	}
}

func (r *TicketRepository) ExistsByNumber(ctx context.Context, number int64) (bool, error) {
	var count int64
	err := r.Read(ctx).Model(&TicketEntity{}).
		Where("ticket_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

// Create inserts the ticket and every owned row, filling in the generated
// ids on the passed model.
func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	entity := toTicketEntity(ticket)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateTicketNumber
		}
		return err
	}
	ticket.ID = entity.ID
	ticket.CreatedAt = entity.CreatedAt

	for _, tx := range ticket.Transactions {
		tx.TicketID = ticket.ID
		if err := r.InsertTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// InsertTransaction writes a transaction with its line items, tenders and
// allocations. Allocations are matched to line items by position.
func (r *TicketRepository) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	db := r.Write(ctx)

	entity := toTransactionEntity(tx)
	if err := db.Create(entity).Error; err != nil {
		return err
	}
	tx.ID = entity.ID

	byPosition := make(map[int]*model.LineItem, len(tx.LineItems))
	for _, li := range tx.LineItems {
		li.TransactionID = tx.ID
		le := toLineItemEntity(li)
		if err := db.Create(le).Error; err != nil {
			return err
		}
		li.ID = le.ID
		byPosition[li.Position] = li
	}

	for _, tender := range tx.Tenders {
		tender.TransactionID = tx.ID
		te := toTenderEntity(tender)
		if err := db.Create(te).Error; err != nil {
			return err
		}
		tender.ID = te.ID

		for _, alloc := range tender.Allocations {
			li, ok := byPosition[alloc.LineItemPosition]
			if !ok {
				return fmt.Errorf("allocation references unknown line item position %d", alloc.LineItemPosition)
			}
			alloc.LineItemID = li.ID
			alloc.TenderID = tender.ID
			ae := &LineItemTenderEntity{
				LineItemID:    alloc.LineItemID,
				TenderID:      alloc.TenderID,
				AppliedPretax: alloc.AppliedPretax,
				AppliedTax:    alloc.AppliedTax,
				AppliedTotal:  alloc.AppliedTotal,
			}
			if err := db.Create(ae).Error; err != nil {
				return err
			}
			alloc.ID = ae.ID
		}
	}
	return nil
}

// DeleteTransaction removes a transaction of the ticket and all rows it owns.
func (r *TicketRepository) DeleteTransaction(ctx context.Context, ticketID, transactionID int64) error {
	db := r.Write(ctx)

	var tx TransactionEntity
	err := db.Where("id = ? AND ticket_id = ?", transactionID, ticketID).First(&tx).Error
	if err != nil {
		return notFound(err, ErrTransactionNotFound)
	}

	var lineIDs, tenderIDs []int64
	if err := db.Model(&LineItemEntity{}).Where("transaction_id = ?", tx.ID).Pluck("id", &lineIDs).Error; err != nil {
		return err
	}
	if err := db.Model(&TenderEntity{}).Where("transaction_id = ?", tx.ID).Pluck("id", &tenderIDs).Error; err != nil {
		return err
	}

	if len(tenderIDs) > 0 {
		if err := db.Where("tender_id IN ?", tenderIDs).Delete(&LineItemTenderEntity{}).Error; err != nil {
			return err
		}
	}
	if len(lineIDs) > 0 {
		if err := db.Where("line_item_id IN ?", lineIDs).Delete(&LineItemTenderEntity{}).Error; err != nil {
			return err
		}
	}
	if err := db.Where("transaction_id = ?", tx.ID).Delete(&LineItemEntity{}).Error; err != nil {
		return err
	}
	if err := db.Where("transaction_id = ?", tx.ID).Delete(&TenderEntity{}).Error; err != nil {
		return err
	}
	return db.Delete(&TransactionEntity{}, tx.ID).Error
}

// UpdateTotals stores the cached rollups of the ticket and its transactions.
func (r *TicketRepository) UpdateTotals(ctx context.Context, ticket *model.Ticket) error {
	db := r.Write(ctx)
	err := db.Model(&TicketEntity{}).Where("id = ?", ticket.ID).Updates(map[string]interface{}{
		"subtotal":  ticket.Subtotal,
		"tax_total": ticket.TaxTotal,
		"total":     ticket.Total,
	}).Error
	if err != nil {
		return err
	}
	for _, tx := range ticket.Transactions {
		err := db.Model(&TransactionEntity{}).Where("id = ?", tx.ID).Updates(map[string]interface{}{
			"subtotal":  tx.Subtotal,
			"tax_total": tx.TaxTotal,
			"total":     tx.Total,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *TicketRepository) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	return r.getOne(ctx, r.Read(ctx).Where("id = ?", id))
}

// GetForUpdate row-locks the ticket before loading it, serialising writers
// that add or remove transactions.
func (r *TicketRepository) GetForUpdate(ctx context.Context, id int64) (*model.Ticket, error) {
	return r.getOne(ctx, r.Write(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *TicketRepository) GetByNumber(ctx context.Context, number int64) (*model.Ticket, error) {
	return r.getOne(ctx, r.Read(ctx).Where("ticket_number = ?", number))
}

// List loads fully populated tickets whose date falls in [From, To].
func (r *TicketRepository) List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, error) {
	q := r.Read(ctx).Model(&TicketEntity{})
	if !f.From.IsZero() {
		q = q.Where("ticket_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("ticket_date <= ?", f.To)
	}
	if len(f.UserIDs) > 0 {
		q = q.Where("user_id IN ?", f.UserIDs)
	}
	if len(f.LocationIDs) > 0 {
		q = q.Where("location_id IN ?", f.LocationIDs)
	}

	var entities []*TicketEntity
	if err := q.Order("ticket_date, id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return r.load(ctx, entities)
}

func (r *TicketRepository) ListBySalesDay(ctx context.Context, salesDayID int64) ([]*model.Ticket, error) {
	var entities []*TicketEntity
	err := r.Read(ctx).
		Where("sales_day_id = ?", salesDayID).
		Order("id").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return r.load(ctx, entities)
}

func (r *TicketRepository) getOne(ctx context.Context, q *gorm.DB) (*model.Ticket, error) {
	var entity TicketEntity
	if err := q.First(&entity).Error; err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	tickets, err := r.load(ctx, []*TicketEntity{&entity})
	if err != nil {
		return nil, err
	}
	return tickets[0], nil
}

// load batch-fetches the children of the given tickets, one query per
// table, and stitches the aggregate back together in creation order.
func (r *TicketRepository) load(ctx context.Context, entities []*TicketEntity) ([]*model.Ticket, error) {
	tickets := make([]*model.Ticket, len(entities))
	if len(entities) == 0 {
		return tickets, nil
	}
	db := r.Read(ctx)

	byID := make(map[int64]*model.Ticket, len(entities))
	ticketIDs := make([]int64, len(entities))
	for i, e := range entities {
		tickets[i] = toTicketModel(e)
		tickets[i].Transactions = []*model.Transaction{}
		byID[e.ID] = tickets[i]
		ticketIDs[i] = e.ID
	}

	var txEntities []*TransactionEntity
	if err := db.Where("ticket_id IN ?", ticketIDs).Order("id").Find(&txEntities).Error; err != nil {
		return nil, err
	}
	if len(txEntities) == 0 {
		return tickets, nil
	}
	txByID := make(map[int64]*model.Transaction, len(txEntities))
	txIDs := make([]int64, len(txEntities))
	for i, e := range txEntities {
		tx := toTransactionModel(e)
		tx.LineItems = []*model.LineItem{}
		tx.Tenders = []*model.Tender{}
		txByID[e.ID] = tx
		txIDs[i] = e.ID
		byID[e.TicketID].Transactions = append(byID[e.TicketID].Transactions, tx)
	}

	var lineEntities []*LineItemEntity
	if err := db.Where("transaction_id IN ?", txIDs).Order("transaction_id, position, id").Find(&lineEntities).Error; err != nil {
		return nil, err
	}
	var tenderEntities []*TenderEntity
	if err := db.Where("transaction_id IN ?", txIDs).Order("transaction_id, position, id").Find(&tenderEntities).Error; err != nil {
		return nil, err
	}

	categoryIDs := make([]int64, 0, len(lineEntities))
	linePosition := make(map[int64]int, len(lineEntities))
	for _, e := range lineEntities {
		categoryIDs = append(categoryIDs, e.SalesCategoryID)
		linePosition[e.ID] = e.Position
	}
	categoryNames, err := r.names(ctx, &SalesCategoryEntity{}, categoryIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range lineEntities {
		li := toLineItemModel(e)
		li.SalesCategory = categoryNames[e.SalesCategoryID]
		tx := txByID[e.TransactionID]
		tx.LineItems = append(tx.LineItems, li)
	}

	if len(tenderEntities) == 0 {
		return tickets, nil
	}
	paymentTypeIDs := make([]int64, 0, len(tenderEntities))
	tenderIDs := make([]int64, len(tenderEntities))
	for i, e := range tenderEntities {
		paymentTypeIDs = append(paymentTypeIDs, e.PaymentTypeID)
		tenderIDs[i] = e.ID
	}
	paymentNames, err := r.names(ctx, &PaymentTypeEntity{}, paymentTypeIDs)
	if err != nil {
		return nil, err
	}

	var allocEntities []*LineItemTenderEntity
	if err := db.Where("tender_id IN ?", tenderIDs).Order("id").Find(&allocEntities).Error; err != nil {
		return nil, err
	}
	allocsByTender := make(map[int64][]*model.LineItemTender, len(tenderEntities))
	for _, e := range allocEntities {
		alloc := toLineItemTenderModel(e)
		alloc.LineItemPosition = linePosition[e.LineItemID]
		allocsByTender[e.TenderID] = append(allocsByTender[e.TenderID], alloc)
	}

	for _, e := range tenderEntities {
		tender := toTenderModel(e)
		tender.PaymentType = paymentNames[e.PaymentTypeID]
		tender.Allocations = allocsByTender[e.ID]
		if tender.Allocations == nil {
			tender.Allocations = []*model.LineItemTender{}
		}
		tx := txByID[e.TransactionID]
		tx.Tenders = append(tx.Tenders, tender)
	}
	return tickets, nil
}

type namedRow struct {
	ID   int64
	Name string
}

func (r *TicketRepository) names(ctx context.Context, table interface{}, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []namedRow
	if err := r.Read(ctx).Model(table).Select("id, name").Where("id IN ?", uniqueIDs(ids)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}
