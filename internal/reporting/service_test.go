package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/repository"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	tickets     []*model.Ticket
	deductions  []*model.Deduction
	users       []*model.User
	locations   []*model.Location
	ticketLoads int
	// afterList runs once, after the next ticket snapshot is taken.
	afterList func()
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (m *memoryStore) List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, error) {
	m.ticketLoads++
	var out []*model.Ticket
	for _, t := range m.tickets {
		if t.TicketDate.Before(f.From) || t.TicketDate.After(f.To) {
			continue
		}
		if len(f.UserIDs) > 0 && !containsID(f.UserIDs, t.UserID) {
			continue
		}
		if len(f.LocationIDs) > 0 && !containsID(f.LocationIDs, t.LocationID) {
			continue
		}
		out = append(out, t)
	}
	if hook := m.afterList; hook != nil {
		m.afterList = nil
		hook()
	}
	return out, nil
}

type deductionStore struct{ *memoryStore }

func (d deductionStore) List(ctx context.Context, f model.DeductionFilter) ([]*model.Deduction, error) {
	var out []*model.Deduction
	for _, x := range d.deductions {
		if f.From != nil && x.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && x.Date.After(*f.To) {
			continue
		}
		if len(f.UserIDs) > 0 && !containsID(f.UserIDs, x.UserID) {
			continue
		}
		out = append(out, x)
	}
	return out, nil
}

func (m *memoryStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryStore) ListUsers(ctx context.Context, ids []int64, locationIDs []int64) ([]*model.User, error) {
	var out []*model.User
	for _, u := range m.users {
		if len(ids) > 0 && !containsID(ids, u.ID) {
			continue
		}
		if len(locationIDs) > 0 && !containsID(locationIDs, u.LocationID) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type locationStore struct{ *memoryStore }

func (l locationStore) Get(ctx context.Context, id int64) (*model.Location, error) {
	for _, loc := range l.locations {
		if loc.ID == id {
			return loc, nil
		}
	}
	return nil, repository.ErrLocationNotFound
}

func (l locationStore) List(ctx context.Context, ids ...int64) ([]*model.Location, error) {
	return l.locations, nil
}

func fixture() *memoryStore {
	return &memoryStore{
		locations: []*model.Location{
			{ID: 1, Name: "Lake Charles", Code: "lake_charles", CurrentTaxRate: 1075},
			{ID: 2, Name: "Jennings", Code: "jennings", CurrentTaxRate: 1075},
		},
		users: []*model.User{
			{ID: 1, FirstName: "Ada", LastName: "Boudreaux", LocationID: 1},
			{ID: 2, FirstName: "Remy", LastName: "Thibodeaux", LocationID: 1},
			{ID: 3, FirstName: "Celeste", LastName: "Guidry", LocationID: 2},
		},
		tickets: []*model.Ticket{
			ticket(1, 1, 1, 1, sale([]*model.LineItem{line("new_appliance", 10000, 1, 1075)}, tender("cash", 11075))),
			ticket(2, 3, 2, 1, sale([]*model.LineItem{line("labor", 5000, 1, 538)}, tender("card", 3000))),
			ticket(3, 1, 1, 5, sale([]*model.LineItem{line("parts", 1000, 1, 108)}, tender("cash", 1108))),
		},
		deductions: []*model.Deduction{
			{ID: 1, UserID: 1, Amount: 2000, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 2, UserID: 3, Amount: 700, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func newTestService(store *memoryStore, cache *Cache) *Service {
	return NewService(store, deductionStore{store}, store, locationStore{store}, cache)
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestBuild_Validation(t *testing.T) {
	svc := newTestService(fixture(), nil)
	ctx := context.Background()

	cases := map[string]model.ReportRequest{
		"unknown type":           {Type: "weekly", Start: day(1)},
		"end before start":       {Type: model.ReportMaster, Start: day(2), End: ptr(day(1))},
		"user_eod without id":    {Type: model.ReportUserEOD, Start: day(1)},
		"location without id":    {Type: model.ReportLocation, Start: day(1)},
		"multi_user without ids": {Type: model.ReportMultiUser, Start: day(1), UserIDs: []int64{0, -4}},
		"missing start":          {Type: model.ReportMaster},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Build(ctx, req)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestBuild_NotFound(t *testing.T) {
	svc := newTestService(fixture(), nil)
	ctx := context.Background()

	_, err := svc.Build(ctx, model.ReportRequest{Type: model.ReportUserEOD, Start: day(1), UserID: ptr(int64(99))})
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	_, err = svc.Build(ctx, model.ReportRequest{Type: model.ReportLocation, Start: day(1), LocationID: ptr(int64(99))})
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	_, err = svc.Build(ctx, model.ReportRequest{Type: model.ReportMultiUser, Start: day(1), UserIDs: []int64{1, 99}})
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestBuild_UserEOD(t *testing.T) {
	svc := newTestService(fixture(), nil)

	report, err := svc.Build(context.Background(), model.ReportRequest{
		Type:           model.ReportUserEOD,
		Start:          day(1),
		UserID:         ptr(int64(1)),
		IncludeTickets: true,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReportUserEOD, report.ReportType)
	assert.Equal(t, "2024-03-01", report.Meta.ReportDateStart)
	assert.Equal(t, "2024-03-01", report.Meta.ReportDateEnd)
	require.NotNil(t, report.Meta.UserID)
	assert.Equal(t, int64(1), *report.Meta.UserID)

	body := report.Report
	require.NotNil(t, body.User)
	assert.Equal(t, "Lake Charles", body.User.LocationName)
	assert.Equal(t, int64(11075), body.Sales.TotalSold)
	assert.Equal(t, int64(11075), body.Cash.CashReceivedGross)
	assert.Equal(t, int64(9075), body.Cash.CashAfterDeductions)
	assert.Len(t, body.Tickets, 1)
}

func TestBuild_LocationListsIdleUsers(t *testing.T) {
	svc := newTestService(fixture(), nil)

	report, err := svc.Build(context.Background(), model.ReportRequest{
		Type:       model.ReportLocation,
		Start:      day(1),
		End:        ptr(day(31)),
		LocationID: ptr(int64(1)),
	})
	require.NoError(t, err)

	body := report.Report
	require.NotNil(t, body.Location)
	assert.Equal(t, "lake_charles", body.Location.Code)
	assert.Equal(t, int64(11075+1108), body.Sales.TotalSold)
	assert.Equal(t, 1, body.Deductions.Count)

	require.Len(t, body.Users, 2)
	assert.Equal(t, int64(1), body.Users[0].User.ID)
	assert.Equal(t, int64(2), body.Users[1].User.ID)
	assert.Zero(t, body.Users[1].Sales.TotalSold)
	assert.Empty(t, body.Tickets)
}

func TestBuild_MultiUser(t *testing.T) {
	svc := newTestService(fixture(), nil)

	report, err := svc.Build(context.Background(), model.ReportRequest{
		Type:    model.ReportMultiUser,
		Start:   day(1),
		UserIDs: []int64{3, 1, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, report.Meta.UserIDs)
	assert.Equal(t, int64(11075+5538), report.Report.Sales.TotalSold)
	assert.Equal(t, int64(16613-14075), report.Report.Balances.BalanceOwed)
	require.Len(t, report.Report.Users, 2)
	assert.Equal(t, int64(5538-3000), report.Report.Users[1].Balances.BalanceOwed)
}

func TestBuild_Master(t *testing.T) {
	svc := newTestService(fixture(), nil)

	report, err := svc.Build(context.Background(), model.ReportRequest{
		Type:  model.ReportMaster,
		Start: day(1),
		End:   ptr(day(5)),
	})
	require.NoError(t, err)

	body := report.Report
	assert.Equal(t, []int64{}, report.Meta.LocationIDs)
	assert.Equal(t, int64(11075+5538+1108), body.Sales.TotalSold)
	assert.Equal(t, 2, body.Deductions.Count)
	assert.Len(t, body.Users, 3)

	require.Len(t, body.Locations, 2)
	assert.Equal(t, "Lake Charles", body.Locations[0].Location.Name)
	assert.Equal(t, int64(2000), body.Locations[0].Deductions.TotalDeductions)
	assert.Equal(t, int64(700), body.Locations[1].Deductions.TotalDeductions)
	assert.Equal(t, int64(5538), body.Locations[1].Sales.TotalSold)

	t.Run("narrowed to a location", func(t *testing.T) {
		report, err := svc.Build(context.Background(), model.ReportRequest{
			Type:        model.ReportMaster,
			Start:       day(1),
			LocationIDs: []int64{2},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5538), report.Report.Sales.TotalSold)
		assert.Len(t, report.Report.Users, 1)
		assert.Len(t, report.Report.Locations, 1)
		assert.Equal(t, 1, report.Report.Deductions.Count)
	})
}

func TestBuild_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	store := fixture()
	cache := NewCache(adapter, time.Minute)
	svc := newTestService(store, cache)
	ctx := context.Background()
	req := model.ReportRequest{Type: model.ReportUserEOD, Start: day(1), UserID: ptr(int64(1))}

	first, err := svc.Build(ctx, req)
	require.NoError(t, err)
	second, err := svc.Build(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, store.ticketLoads)
	assert.Equal(t, first.Report.Sales, second.Report.Sales)
	assert.Equal(t, "Ada", second.Report.User.FirstName)

	require.NoError(t, cache.Invalidate(ctx))
	_, err = svc.Build(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, store.ticketLoads)
}

func TestBuild_WriteDuringBuildIsNotCachedAsFresh(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	store := fixture()
	cache := NewCache(adapter, time.Minute)
	svc := newTestService(store, cache)
	ctx := context.Background()
	req := model.ReportRequest{Type: model.ReportUserEOD, Start: day(1), UserID: ptr(int64(1))}

	store.afterList = func() {
		store.tickets = append(store.tickets,
			ticket(4, 1, 1, 1, sale([]*model.LineItem{line("labor", 5000, 1, 538)}, tender("card", 5538))))
		require.NoError(t, cache.Invalidate(ctx))
	}

	first, err := svc.Build(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(11075), first.Report.Sales.TotalSold)

	second, err := svc.Build(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(11075+5538), second.Report.Sales.TotalSold)
	assert.Equal(t, 2, store.ticketLoads)
}

func TestCache_NilIsDisabled(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	assert.NoError(t, cache.Invalidate(ctx))
	key, err := cache.Key(ctx, model.ReportRequest{})
	assert.NoError(t, err)
	assert.Empty(t, key)
	_, ok, err := cache.Get(ctx, "report:v0:abc")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Put(ctx, "report:v0:abc", &model.Report{}))
	assert.Nil(t, NewCache(nil, time.Minute))
}
