package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/repository"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/prom"
)

type TicketLoader interface {
	List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, error)
}

type DeductionLoader interface {
	List(ctx context.Context, f model.DeductionFilter) ([]*model.Deduction, error)
}

type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context, ids []int64, locationIDs []int64) ([]*model.User, error)
}

type LocationLoader interface {
	Get(ctx context.Context, id int64) (*model.Location, error)
	List(ctx context.Context, ids ...int64) ([]*model.Location, error)
}

// Service builds the read-only financial reports.
type Service struct {
	tickets    TicketLoader
	deductions DeductionLoader
	users      UserLoader
	locations  LocationLoader
	cache      *Cache
}

func NewService(tickets TicketLoader, deductions DeductionLoader, users UserLoader, locations LocationLoader, cache *Cache) *Service {
	return &Service{
		tickets:    tickets,
		deductions: deductions,
		users:      users,
		locations:  locations,
		cache:      cache,
	}
}

// window is the normalised, inclusive date range of a request.
type window struct {
	start time.Time
	end   time.Time
}

func (w window) ticketFilter() model.TicketFilter {
	return model.TicketFilter{From: w.start, To: w.end}
}

func (w window) deductionFilter(userIDs []int64) model.DeductionFilter {
	start, end := w.start, w.end
	return model.DeductionFilter{UserIDs: userIDs, From: &start, To: &end}
}

// Build validates the request and returns the report envelope, serving it
// from cache when an up to date copy exists.
func (s *Service) Build(ctx context.Context, req model.ReportRequest) (*model.Report, error) {
	w, err := normalize(&req)
	if err != nil {
		return nil, err
	}

	// The key pins the version seen before loading, so a write that lands
	// mid-build leaves this report under the old version.
	key, err := s.cache.Key(ctx, req)
	if err != nil {
		logger.Warn("report cache key failed", "type", req.Type, "error", err)
		key = ""
	}
	if key != "" {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			logger.Warn("report cache read failed", "type", req.Type, "error", err)
		} else if ok {
			prom.IncReportCache("hit")
			return cached, nil
		}
		prom.IncReportCache("miss")
	}

	started := time.Now()
	var report *model.Report
	switch req.Type {
	case model.ReportUserEOD:
		report, err = s.userEOD(ctx, req, w)
	case model.ReportLocation:
		report, err = s.location(ctx, req, w)
	case model.ReportMultiUser:
		report, err = s.multiUser(ctx, req, w)
	default:
		report, err = s.master(ctx, req, w)
	}
	if err != nil {
		return nil, err
	}
	prom.AddReportBuildDuration(time.Since(started).Seconds(), string(req.Type))

	report.ReportType = req.Type
	report.Meta.ReportDateStart = w.start.Format(bizdate.DateLayout)
	report.Meta.ReportDateEnd = w.end.Format(bizdate.DateLayout)

	if key != "" {
		if err := s.cache.Put(ctx, key, report); err != nil {
			logger.Warn("report cache write failed", "type", req.Type, "error", err)
		}
	}
	return report, nil
}

// normalize checks the request and canonicalises it in place so equal
// requests share a cache key.
func normalize(req *model.ReportRequest) (window, error) {
	if !req.Type.Valid() {
		return window{}, apperror.Newf(apperror.CodeValidation, "unsupported report type %q", req.Type).
			WithDetails("report_type", req.Type)
	}
	if req.Start.IsZero() {
		return window{}, apperror.Validation("start date is required")
	}
	w := window{start: bizdate.Truncate(req.Start)}
	w.end = w.start
	if req.End != nil && !req.End.IsZero() {
		w.end = bizdate.Truncate(*req.End)
	}
	if w.end.Before(w.start) {
		return window{}, apperror.Validation("end date cannot be before start date")
	}
	req.Start = w.start
	req.End = &w.end

	req.UserIDs = positiveIDs(req.UserIDs)
	req.LocationIDs = positiveIDs(req.LocationIDs)

	switch req.Type {
	case model.ReportUserEOD:
		if req.UserID == nil && len(req.UserIDs) > 0 {
			id := req.UserIDs[0]
			req.UserID = &id
		}
		if req.UserID == nil || *req.UserID <= 0 {
			return window{}, apperror.Validation("user_eod report requires user_id")
		}
	case model.ReportLocation:
		if req.LocationID == nil && len(req.LocationIDs) > 0 {
			id := req.LocationIDs[0]
			req.LocationID = &id
		}
		if req.LocationID == nil || *req.LocationID <= 0 {
			return window{}, apperror.Validation("location report requires location_id")
		}
	case model.ReportMultiUser:
		if len(req.UserIDs) == 0 {
			return window{}, apperror.Validation("multi_user report requires user_ids")
		}
	}
	return w, nil
}

func positiveIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) userEOD(ctx context.Context, req model.ReportRequest, w window) (*model.Report, error) {
	user, err := s.users.GetUser(ctx, *req.UserID)
	if err != nil {
		return nil, lookupError(err, "user", *req.UserID)
	}
	locations, err := s.locationIndex(ctx)
	if err != nil {
		return nil, err
	}

	f := w.ticketFilter()
	f.UserIDs = []int64{user.ID}
	tickets, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, apperror.Internal(err, "load tickets")
	}
	deductions, err := s.deductions.List(ctx, w.deductionFilter([]int64{user.ID}))
	if err != nil {
		return nil, apperror.Internal(err, "load deductions")
	}

	body := Aggregate(tickets, deductions, req.IncludeTickets)
	body.User = reportUser(user, locations)
	return &model.Report{
		Meta:   model.ReportMeta{UserID: &user.ID},
		Report: body,
	}, nil
}

func (s *Service) location(ctx context.Context, req model.ReportRequest, w window) (*model.Report, error) {
	loc, err := s.locations.Get(ctx, *req.LocationID)
	if err != nil {
		return nil, lookupError(err, "location", *req.LocationID)
	}
	users, err := s.users.ListUsers(ctx, nil, []int64{loc.ID})
	if err != nil {
		return nil, apperror.Internal(err, "load users")
	}

	f := w.ticketFilter()
	f.LocationIDs = []int64{loc.ID}
	tickets, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, apperror.Internal(err, "load tickets")
	}
	var deductions []*model.Deduction
	if len(users) > 0 {
		deductions, err = s.deductions.List(ctx, w.deductionFilter(userIDs(users)))
		if err != nil {
			return nil, apperror.Internal(err, "load deductions")
		}
	}

	body := Aggregate(tickets, deductions, req.IncludeTickets)
	body.Location = reportLocation(loc)
	body.Users = perUser(users, tickets, deductions, map[int64]*model.Location{loc.ID: loc})
	return &model.Report{
		Meta:   model.ReportMeta{LocationID: &loc.ID},
		Report: body,
	}, nil
}

func (s *Service) multiUser(ctx context.Context, req model.ReportRequest, w window) (*model.Report, error) {
	users, err := s.users.ListUsers(ctx, req.UserIDs, nil)
	if err != nil {
		return nil, apperror.Internal(err, "load users")
	}
	found := make(map[int64]bool, len(users))
	for _, u := range users {
		found[u.ID] = true
	}
	for _, id := range req.UserIDs {
		if !found[id] {
			return nil, apperror.NotFound("user", id)
		}
	}
	locations, err := s.locationIndex(ctx)
	if err != nil {
		return nil, err
	}

	ids := userIDs(users)
	f := w.ticketFilter()
	f.UserIDs = ids
	tickets, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, apperror.Internal(err, "load tickets")
	}
	deductions, err := s.deductions.List(ctx, w.deductionFilter(ids))
	if err != nil {
		return nil, apperror.Internal(err, "load deductions")
	}

	body := Aggregate(tickets, deductions, req.IncludeTickets)
	body.Users = perUser(users, tickets, deductions, locations)
	return &model.Report{
		Meta:   model.ReportMeta{UserIDs: ids},
		Report: body,
	}, nil
}

// master covers every user, optionally narrowed to some locations. Each
// location's deductions are those of the users based there.
func (s *Service) master(ctx context.Context, req model.ReportRequest, w window) (*model.Report, error) {
	users, err := s.users.ListUsers(ctx, nil, req.LocationIDs)
	if err != nil {
		return nil, apperror.Internal(err, "load users")
	}
	locations, err := s.locationIndex(ctx)
	if err != nil {
		return nil, err
	}

	f := w.ticketFilter()
	f.LocationIDs = req.LocationIDs
	tickets, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, apperror.Internal(err, "load tickets")
	}

	var deductions []*model.Deduction
	if len(req.LocationIDs) == 0 || len(users) > 0 {
		var scope []int64
		if len(req.LocationIDs) > 0 {
			scope = userIDs(users)
		}
		deductions, err = s.deductions.List(ctx, w.deductionFilter(scope))
		if err != nil {
			return nil, apperror.Internal(err, "load deductions")
		}
	}

	body := Aggregate(tickets, deductions, req.IncludeTickets)
	body.Users = perUser(users, tickets, deductions, locations)
	body.Locations = perLocation(users, tickets, deductions, locations)

	locationIDs := req.LocationIDs
	if locationIDs == nil {
		locationIDs = []int64{}
	}
	return &model.Report{
		Meta:   model.ReportMeta{LocationIDs: locationIDs},
		Report: body,
	}, nil
}

func (s *Service) locationIndex(ctx context.Context) (map[int64]*model.Location, error) {
	all, err := s.locations.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err, "load locations")
	}
	out := make(map[int64]*model.Location, len(all))
	for _, l := range all {
		out[l.ID] = l
	}
	return out, nil
}

// perUser returns one nested body per user, ordered by id, including users
// without activity in the window.
func perUser(users []*model.User, tickets []*model.Ticket, deductions []*model.Deduction, locations map[int64]*model.Location) []*model.ReportBody {
	byUser := ticketsByUser(tickets)
	dedByUser := deductionsByUser(deductions)

	sorted := append([]*model.User(nil), users...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make([]*model.ReportBody, 0, len(sorted))
	for _, u := range sorted {
		body := Aggregate(byUser[u.ID], dedByUser[u.ID], false)
		body.User = reportUser(u, locations)
		out = append(out, body)
	}
	return out
}

// perLocation returns one nested body per location that has tickets or
// deductions, ordered by id.
func perLocation(users []*model.User, tickets []*model.Ticket, deductions []*model.Deduction, locations map[int64]*model.Location) []*model.ReportBody {
	byLocation := ticketsByLocation(tickets)

	userLocation := make(map[int64]int64, len(users))
	for _, u := range users {
		userLocation[u.ID] = u.LocationID
	}
	dedByLocation := make(map[int64][]*model.Deduction)
	for _, d := range deductions {
		if locID, ok := userLocation[d.UserID]; ok {
			dedByLocation[locID] = append(dedByLocation[locID], d)
		}
	}

	ids := make([]int64, 0, len(byLocation)+len(dedByLocation))
	seen := make(map[int64]bool)
	for id := range byLocation {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range dedByLocation {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*model.ReportBody, 0, len(ids))
	for _, id := range ids {
		body := Aggregate(byLocation[id], dedByLocation[id], false)
		if loc, ok := locations[id]; ok {
			body.Location = reportLocation(loc)
		} else {
			body.Location = &model.LocationHeader{ID: id}
		}
		out = append(out, body)
	}
	return out
}

func reportUser(u *model.User, locations map[int64]*model.Location) *model.ReportUser {
	ru := &model.ReportUser{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		LocationID: u.LocationID,
	}
	if loc, ok := locations[u.LocationID]; ok {
		ru.LocationName = loc.Name
	}
	return ru
}

func reportLocation(l *model.Location) *model.LocationHeader {
	return &model.LocationHeader{
		ID:             l.ID,
		Name:           l.Name,
		Code:           l.Code,
		CurrentTaxRate: l.CurrentTaxRate,
	}
}

func userIDs(users []*model.User) []int64 {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func lookupError(err error, resource string, id int64) error {
	if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrLocationNotFound) {
		return apperror.NotFound(resource, id)
	}
	return apperror.Internal(err, "load "+resource)
}
