package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRepository_CreateAndGet(t *testing.T) {
	tdb := setupTestDB(t)
	seedReference(t, tdb.rawDB)
	repo := NewTicketRepository(tdb.DB)
	ctx := context.Background()

	ticket := sampleTicket(1001, 1, date(2024, time.March, 1))
	require.NoError(t, repo.Create(ctx, ticket))
	require.NotZero(t, ticket.ID)

	tx := ticket.Transactions[0]
	assert.NotZero(t, tx.ID)
	assert.Equal(t, ticket.ID, tx.TicketID)
	for _, li := range tx.LineItems {
		assert.NotZero(t, li.ID)
	}
	alloc := tx.Tenders[0].Allocations[1]
	assert.Equal(t, tx.LineItems[1].ID, alloc.LineItemID)
	assert.Equal(t, tx.Tenders[0].ID, alloc.TenderID)

	t.Run("get loads the full aggregate", func(t *testing.T) {
		got, err := repo.Get(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1001), got.TicketNumber)
		assert.True(t, date(2024, time.March, 1).Equal(got.TicketDate))
		require.Len(t, got.Transactions, 1)

		gtx := got.Transactions[0]
		require.Len(t, gtx.LineItems, 2)
		assert.Equal(t, "new_appliance", gtx.LineItems[0].SalesCategory)
		assert.Equal(t, model.Rate(1075), gtx.LineItems[0].TaxRate)
		assert.Equal(t, int64(11075), gtx.LineItems[0].Total)
		assert.Equal(t, "extended_warranty", gtx.LineItems[1].SalesCategory)

		require.Len(t, gtx.Tenders, 1)
		assert.Equal(t, "cash", gtx.Tenders[0].PaymentType)
		require.Len(t, gtx.Tenders[0].Allocations, 2)
		assert.Equal(t, 1, gtx.Tenders[0].Allocations[1].LineItemPosition)

		assert.Equal(t, int64(10000), got.TotalPaid())
		assert.Equal(t, int64(6075), got.BalanceOwed())
		assert.True(t, got.IsOpen())
	})

	t.Run("get by number", func(t *testing.T) {
		got, err := repo.GetByNumber(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
	})

	t.Run("exists by number", func(t *testing.T) {
		ok, err := repo.ExistsByNumber(ctx, 1001)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsByNumber(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate number", func(t *testing.T) {
		err := repo.Create(ctx, sampleTicket(1001, 1, date(2024, time.March, 1)))
		assert.ErrorIs(t, err, ErrDuplicateTicketNumber)
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := repo.Get(ctx, 424242)
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})
}

func TestTicketRepository_DeleteTransaction(t *testing.T) {
	tdb := setupTestDB(t)
	seedReference(t, tdb.rawDB)
	repo := NewTicketRepository(tdb.DB)
	ctx := context.Background()

	ticket := sampleTicket(2001, 1, date(2024, time.March, 2))
	require.NoError(t, repo.Create(ctx, ticket))
	txID := ticket.Transactions[0].ID

	require.ErrorIs(t, repo.DeleteTransaction(ctx, ticket.ID+1, txID), ErrTransactionNotFound)
	require.NoError(t, repo.DeleteTransaction(ctx, ticket.ID, txID))

	var count int64
	for _, table := range []interface{}{&TransactionEntity{}, &LineItemEntity{}, &TenderEntity{}, &LineItemTenderEntity{}} {
		require.NoError(t, tdb.rawDB.Model(table).Count(&count).Error)
		assert.Zero(t, count)
	}

	got, err := repo.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Transactions)
}

func TestTicketRepository_UpdateTotals(t *testing.T) {
	tdb := setupTestDB(t)
	seedReference(t, tdb.rawDB)
	repo := NewTicketRepository(tdb.DB)
	ctx := context.Background()

	ticket := sampleTicket(3001, 1, date(2024, time.March, 3))
	require.NoError(t, repo.Create(ctx, ticket))

	ticket.Subtotal, ticket.TaxTotal, ticket.Total = 1, 2, 3
	ticket.Transactions[0].Total = 3
	require.NoError(t, repo.UpdateTotals(ctx, ticket))

	got, err := repo.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Total)
	assert.Equal(t, int64(2), got.TaxTotal)
	assert.Equal(t, int64(3), got.Transactions[0].Total)
}

func TestTicketRepository_List(t *testing.T) {
	tdb := setupTestDB(t)
	seedReference(t, tdb.rawDB)
	repo := NewTicketRepository(tdb.DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleTicket(1, 1, date(2024, time.March, 1))))
	require.NoError(t, repo.Create(ctx, sampleTicket(2, 1, date(2024, time.March, 2))))
	other := sampleTicket(3, 2, date(2024, time.March, 2))
	other.UserID, other.LocationID = 2, 2
	require.NoError(t, repo.Create(ctx, other))

	t.Run("date window is inclusive", func(t *testing.T) {
		got, err := repo.List(ctx, model.TicketFilter{From: date(2024, time.March, 2), To: date(2024, time.March, 2)})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[0].TicketNumber)
		assert.Equal(t, int64(3), got[1].TicketNumber)
	})

	t.Run("by user", func(t *testing.T) {
		got, err := repo.List(ctx, model.TicketFilter{
			UserIDs: []int64{1},
			From:    date(2024, time.March, 1),
			To:      date(2024, time.March, 31),
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by location", func(t *testing.T) {
		got, err := repo.List(ctx, model.TicketFilter{LocationIDs: []int64{2}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(3), got[0].TicketNumber)
		require.Len(t, got[0].Transactions, 1)
		assert.Len(t, got[0].Transactions[0].LineItems, 2)
	})

	t.Run("by sales day", func(t *testing.T) {
		got, err := repo.ListBySalesDay(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
