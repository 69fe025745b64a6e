// Package exportsvc renders domain listings as CSV files.
package exportsvc

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/owner"
	"github.com/trezcool/kodi/core/property"
)

// Export names
const (
	RentRoll     = "rent-roll"
	Owners       = "owners"
	Properties   = "properties"
	Transactions = "transactions"
)

var ErrUnknownExport = errors.New("unknown export")

type (
	Options struct {
		Period string // YYYY-MM; the current month when empty (rent roll), everything otherwise
	}

	Service interface {
		Names() []string
		// Export writes the CSV named `name` (with or without a .csv extension) to w.
		Export(ctx context.Context, name string, opts Options, w io.Writer) error
	}

	service struct {
		propSvc    property.Service
		ownerSvc   owner.Service
		financeSvc finance.Service
		unit       currency.Unit
		exporters  map[string]exporter
	}

	exporter func(ctx context.Context, opts Options, f *formatter) ([][]string, error)

	// formatter is not safe for concurrent use: one is built per export.
	formatter struct {
		unit    currency.Unit
		printer *message.Printer
		title   cases.Caser
	}
)

var (
	_       Service = (*service)(nil)
	nowFunc         = time.Now // mockable
)

func NewService(propSvc property.Service, ownerSvc owner.Service, financeSvc finance.Service, conf *core.Config) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(propSvc, "propSvc"),
		vala.IsNotNil(ownerSvc, "ownerSvc"),
		vala.IsNotNil(financeSvc, "financeSvc"),
	).CheckAndPanic()

	unit, err := currency.ParseISO(conf.Finance.Currency)
	if err != nil {
		unit = currency.USD
	}
	svc := &service{
		propSvc:    propSvc,
		ownerSvc:   ownerSvc,
		financeSvc: financeSvc,
		unit:       unit,
	}
	svc.exporters = map[string]exporter{
		RentRoll:     svc.rentRoll,
		Owners:       svc.owners,
		Properties:   svc.properties,
		Transactions: svc.transactions,
	}
	return svc
}

func (svc *service) Names() []string {
	names := make([]string, 0, len(svc.exporters))
	for name := range svc.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (svc *service) Export(ctx context.Context, name string, opts Options, w io.Writer) error {
	exp, ok := svc.exporters[strings.TrimSuffix(core.CleanString(name, true /* lower */), ".csv")]
	if !ok {
		return ErrUnknownExport
	}
	if opts.Period != "" {
		if _, err := core.ParseMonth(opts.Period, nowFunc()); err != nil {
			return core.NewFieldError("period", err.Error())
		}
	}

	f := &formatter{
		unit:    svc.unit,
		printer: message.NewPrinter(language.English),
		title:   cases.Title(language.English),
	}
	rows, err := exp(ctx, opts, f)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err = cw.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "writing %s csv", name)
	}
	return nil
}

// money formats an amount with grouping, eg: "1,450.00".
func (f *formatter) money(m core.Money) string {
	return f.printer.Sprintf("%.2f", m.Float())
}

func (f *formatter) moneyHeader(name string) string {
	return name + " (" + f.unit.String() + ")"
}

func (f *formatter) percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func (svc *service) rentRoll(ctx context.Context, opts Options, f *formatter) ([][]string, error) {
	roll, err := svc.financeSvc.RentRoll(ctx, finance.RentRollFilter{Period: opts.Period})
	if err != nil {
		return nil, err
	}
	rows := [][]string{{
		"Period", "Tenant", "Property", "Unit", f.moneyHeader("Rent due"),
		f.moneyHeader("Collected"), f.moneyHeader("Balance"), "Due date", "Status",
	}}
	for _, it := range roll.Items {
		rows = append(rows, []string{
			roll.Period, it.TenantName, it.PropertyName, it.UnitNumber, f.money(it.RentDue),
			f.money(it.Collected), f.money(it.Balance), date(it.DueDate), f.title.String(it.Status),
		})
	}
	t := roll.Totals
	rows = append(rows, []string{
		roll.Period, "Total", "", "", f.money(t.Due), f.money(t.Collected), f.money(t.Outstanding),
		"", f.percent(t.CollectionRate),
	})
	return rows, nil
}

func (svc *service) owners(ctx context.Context, _ Options, _ *formatter) ([][]string, error) {
	owners, err := svc.ownerSvc.Query(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return nil, err
	}
	props, err := svc.propSvc.Query(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range props {
		counts[p.OwnerID]++
	}

	rows := [][]string{{"Name", "Email", "Phone", "Company", "Address", "Properties"}}
	for _, o := range owners {
		rows = append(rows, []string{o.Name, o.Email, o.Phone, o.Company, o.Address, strconv.Itoa(counts[o.ID])})
	}
	return rows, nil
}

func (svc *service) properties(ctx context.Context, _ Options, f *formatter) ([][]string, error) {
	sums, err := svc.propSvc.QuerySummaries(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return nil, err
	}
	rows := [][]string{{
		"Name", "Type", "Address", "City", "State", "Zip code", "Buildings", "Units", "Occupied",
		"Vacant", "Occupancy rate",
	}}
	for _, s := range sums {
		rows = append(rows, []string{
			s.Name, f.title.String(s.Type), s.Address, s.City, s.State, s.ZipCode,
			strconv.Itoa(s.Buildings), strconv.Itoa(s.Units), strconv.Itoa(s.Occupied), strconv.Itoa(s.Vacant),
			f.percent(s.Rate),
		})
	}
	return rows, nil
}

func (svc *service) transactions(ctx context.Context, opts Options, f *formatter) ([][]string, error) {
	filter := new(finance.QueryFilter)
	if opts.Period != "" {
		p, err := core.ParseMonth(opts.Period, nowFunc())
		if err != nil {
			return nil, err
		}
		filter.From, filter.To = p.From, p.To
	}
	txs, err := svc.financeSvc.Query(ctx, filter, []core.DBOrdering{{Field: "date", Ascending: true}})
	if err != nil {
		return nil, err
	}
	props, err := svc.propSvc.Query(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(props))
	for _, p := range props {
		names[p.ID] = p.Name
	}

	rows := [][]string{{
		"Date", "Property", "Type", "Category", f.moneyHeader("Amount"), "Description", "Reference",
	}}
	for _, tx := range txs {
		rows = append(rows, []string{
			date(tx.Date), names[tx.PropertyID], f.title.String(tx.Type), tx.Category,
			f.money(tx.Signed()), tx.Description, tx.Reference,
		})
	}
	return rows, nil
}
