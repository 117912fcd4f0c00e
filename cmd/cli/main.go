package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nimasrn/pos-ledger/internal/config"
	"github.com/nimasrn/pos-ledger/internal/events"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/reporting"
	"github.com/nimasrn/pos-ledger/internal/repository"
	"github.com/nimasrn/pos-ledger/internal/services"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"github.com/nimasrn/pos-ledger/pkg/redis"
	"github.com/pkg/errors"
)

const usage = `usage: cli <command> [--env=path] [flags]

commands:
  migrate    [--dir=./migrations] [--cmd=up]    run goose migrations
  seed                                          load locations, categories and payment types
  report     --type= --start= [--end=] [--user=] [--location=] [--users=1,2] [--locations=1,2] [--tickets]
  open-days                                     list open sales days
  submit-day --id= --actual=CENTS               close a sales day with the counted drawer
  lock-day   --id=                              lock a submitted sales day
  create-ticket --file=ticket.json              record a ticket from a JSON request
  add-deduction --user= --amount=CENTS --reason= --date=YYYY-MM-DD
  set-rate   --location= --rate=0.1075 --from=YYYY-MM-DD
`

func main() {
	defer logger.Sync()

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "--") {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := config.Load(getEnvPath()); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "migrate":
		err = pg.Migrate(ctx, config.Get().PostgresWrite(), getMigrationPath(), argValue("--cmd"))
	case "seed":
		err = withDB(func(db *pg.DB) error {
			_, err := repository.Seed(ctx, db)
			return err
		})
	case "report":
		err = withDB(func(db *pg.DB) error { return runReport(ctx, db) })
	case "open-days":
		err = withDB(func(db *pg.DB) error { return runOpenDays(ctx, db) })
	case "submit-day":
		err = withDB(func(db *pg.DB) error { return runSubmitDay(ctx, db) })
	case "lock-day":
		err = withDB(func(db *pg.DB) error { return runLockDay(ctx, db) })
	case "create-ticket":
		err = withDB(func(db *pg.DB) error { return runCreateTicket(ctx, db) })
	case "add-deduction":
		err = withDB(func(db *pg.DB) error { return runAddDeduction(ctx, db) })
	case "set-rate":
		err = withDB(func(db *pg.DB) error { return runSetRate(ctx, db) })
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func withDB(fn func(db *pg.DB) error) error {
	db, err := pg.CreateReadWrite(config.Get().PostgresRead(), config.Get().PostgresWrite(), config.Get().AppDebug)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	return fn(db)
}

// redisAdapter is optional for the CLI. Without Redis reports are built
// directly, the submit guard is off and no events are published.
func redisAdapter() redis.RedisAdapter {
	if config.Get().RedisAddr == "" {
		return nil
	}
	adapter, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, config.Get().RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, running without it", "error", err)
		return nil
	}
	return adapter
}

func reportCache() *reporting.Cache {
	return reporting.NewCache(redisAdapter(), config.Get().ReportCacheTTL)
}

func publisher() services.EventPublisher {
	adapter := redisAdapter()
	if adapter == nil {
		return nil
	}
	stream, err := events.NewStream(adapter, events.StreamConfig{
		Name:   config.Get().EventsStream,
		MaxLen: config.Get().EventsMaxLen,
	})
	if err != nil {
		logger.Warn("event stream unavailable", "error", err)
		return nil
	}
	return stream
}

func dates() (*bizdate.Resolver, error) {
	return bizdate.New(config.Get().BusinessTimezone)
}

func salesDayService(db *pg.DB, resolver *bizdate.Resolver) *services.SalesDayService {
	return services.NewSalesDayService(db,
		repository.NewSalesDayRepository(db),
		repository.NewTicketRepository(db),
		repository.NewLocationRepository(db),
		repository.NewReferenceRepository(db),
		resolver,
		config.Get().DefaultStartingCash,
		publisher(),
		reportCache(),
	)
}

func runReport(ctx context.Context, db *pg.DB) error {
	req := model.ReportRequest{
		Type:           model.ReportType(argValue("--type")),
		IncludeTickets: argPresent("--tickets"),
	}
	var err error
	if req.Start, err = bizdate.ParseDate(argValue("--start")); err != nil {
		return err
	}
	if v := argValue("--end"); v != "" {
		end, err := bizdate.ParseDate(v)
		if err != nil {
			return err
		}
		req.End = &end
	}
	if req.UserID, err = optionalID("--user"); err != nil {
		return err
	}
	if req.LocationID, err = optionalID("--location"); err != nil {
		return err
	}
	if req.UserIDs, err = idList("--users"); err != nil {
		return err
	}
	if req.LocationIDs, err = idList("--locations"); err != nil {
		return err
	}

	refs := repository.NewReferenceRepository(db)
	svc := reporting.NewService(
		repository.NewTicketRepository(db),
		repository.NewDeductionRepository(db),
		refs,
		repository.NewLocationRepository(db),
		reportCache(),
	)
	report, err := svc.Build(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runOpenDays(ctx context.Context, db *pg.DB) error {
	days, err := repository.NewSalesDayRepository(db).ListOpen(ctx)
	if err != nil {
		return err
	}
	return printJSON(days)
}

func runLockDay(ctx context.Context, db *pg.DB) error {
	id, err := strconv.ParseInt(argValue("--id"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "--id")
	}
	resolver, err := dates()
	if err != nil {
		return err
	}
	day, err := salesDayService(db, resolver).Lock(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(day)
}

func runSubmitDay(ctx context.Context, db *pg.DB) error {
	id, err := strconv.ParseInt(argValue("--id"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "--id")
	}
	actual, err := strconv.ParseInt(argValue("--actual"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "--actual")
	}
	resolver, err := dates()
	if err != nil {
		return err
	}
	day, err := salesDayService(db, resolver).Submit(ctx, id, actual)
	if err != nil {
		return err
	}
	return printJSON(day)
}

func runCreateTicket(ctx context.Context, db *pg.DB) error {
	raw, err := os.ReadFile(argValue("--file"))
	if err != nil {
		return errors.Wrap(err, "--file")
	}
	var req model.TicketCreateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errors.Wrap(err, "decode ticket request")
	}
	resolver, err := dates()
	if err != nil {
		return err
	}

	svc := services.NewTicketService(db,
		repository.NewTicketRepository(db),
		repository.NewLocationRepository(db),
		repository.NewReferenceRepository(db),
		salesDayService(db, resolver),
		nil,
		resolver,
		services.NewSubmitGuard(redisAdapter(), config.Get().TicketLockTTL),
		reportCache(),
	)
	ticket, err := svc.CreateTicket(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(ticket)
}

func runAddDeduction(ctx context.Context, db *pg.DB) error {
	userID, err := strconv.ParseInt(argValue("--user"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "--user")
	}
	amount, err := strconv.ParseInt(argValue("--amount"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "--amount")
	}
	on, err := bizdate.ParseDate(argValue("--date"))
	if err != nil {
		return err
	}
	svc := services.NewDeductionService(db,
		repository.NewDeductionRepository(db),
		repository.NewReferenceRepository(db),
		reportCache(),
	)
	d, err := svc.Create(ctx, model.DeductionRequest{
		UserID: userID,
		Amount: amount,
		Reason: argValue("--reason"),
		Date:   on,
	})
	if err != nil {
		return err
	}
	return printJSON(d)
}

func runSetRate(ctx context.Context, db *pg.DB) error {
	locationID, err := strconv.ParseInt(argValue("--location"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "--location")
	}
	rate, err := model.ParseRate(argValue("--rate"))
	if err != nil {
		return errors.Wrap(err, "--rate")
	}
	from, err := bizdate.ParseDate(argValue("--from"))
	if err != nil {
		return err
	}
	resolver, err := dates()
	if err != nil {
		return err
	}
	svc := services.NewTaxRateService(db, repository.NewLocationRepository(db), resolver, reportCache())
	period, err := svc.SetRate(ctx, locationID, rate, from)
	if err != nil {
		return err
	}
	return printJSON(period)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// argValue returns the value of --name=value, or "".
func argValue(name string) string {
	prefix := name + "="
	for _, v := range os.Args[2:] {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

func argPresent(name string) bool {
	for _, v := range os.Args[2:] {
		if v == name {
			return true
		}
	}
	return false
}

func optionalID(name string) (*int64, error) {
	v := argValue(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &id, nil
}

func idList(name string) ([]int64, error) {
	v := argValue(name)
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnvPath() string {
	if v := argValue("--env"); v != "" {
		if _, err := os.Stat(v); err != nil {
			logger.Error("failed to open the passed env file, got error" + err.Error())
			return ""
		}
		return v
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	if v := argValue("--dir"); v != "" {
		return v
	}
	return "./migrations"
}
