// Package report builds the weekly operations report and renders it to
// PDF.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"koabot/internal/models"
	"koabot/internal/ops"
	"koabot/internal/units"
)

// Source is the read side of storage.Store a report needs.
type Source interface {
	ReceptionsBetween(ctx context.Context, from, to time.Time) ([]models.Reception, error)
	WastagesBetween(ctx context.Context, from, to time.Time) ([]models.Wastage, error)
	ProductionsBetween(ctx context.Context, from, to time.Time) ([]models.Production, error)
	Users(ctx context.Context) ([]models.User, error)
}

// ReceptionRow is one received item.
type ReceptionRow struct {
	OccurredAt time.Time
	Supplier   string
	Ref        string
	Product    string
	Quantity   float64
	Unit       units.Unit
}

// WastageRow is one wasted product. Reason is "-" when none was given.
type WastageRow struct {
	OccurredAt time.Time
	Ref        string
	Product    string
	Quantity   float64
	Unit       units.Unit
	Reason     string
}

// ProductionRow is one output of a batch.
type ProductionRow struct {
	OccurredAt time.Time
	BatchName  string
	Ref        string
	Product    string
	Quantity   float64
	Unit       units.Unit
	ProducedBy string
}

// UnitTotal sums the quantities of a section in one unit.
type UnitTotal struct {
	Unit     units.Unit
	Quantity decimal.Decimal
}

// Weekly is the data of a report over the inclusive days From..To.
type Weekly struct {
	From, To    string
	GeneratedAt time.Time

	Receptions  []ReceptionRow
	Wastages    []WastageRow
	Productions []ProductionRow

	ReceptionTotals  []UnitTotal
	WastageTotals    []UnitTotal
	ProductionTotals []UnitTotal
}

// Build gathers the report for the inclusive days from..to.
func Build(ctx context.Context, src Source, from, to string, now time.Time) (*Weekly, error) {
	f, t, err := ops.DayRange(from, to)
	if err != nil {
		return nil, err
	}

	receptions, err := src.ReceptionsBetween(ctx, f, t)
	if err != nil {
		return nil, err
	}
	wastages, err := src.WastagesBetween(ctx, f, t)
	if err != nil {
		return nil, err
	}
	productions, err := src.ProductionsBetween(ctx, f, t)
	if err != nil {
		return nil, err
	}
	users, err := src.Users(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	w := &Weekly{From: from, To: to, GeneratedAt: now}

	var rt, wt, pt totals
	for _, r := range receptions {
		for _, it := range r.Items {
			w.Receptions = append(w.Receptions, ReceptionRow{
				OccurredAt: r.OccurredAt,
				Supplier:   r.Supplier,
				Ref:        it.Ref,
				Product:    it.Product,
				Quantity:   it.Quantity,
				Unit:       it.Unit,
			})
			rt.add(it.Unit, it.Quantity)
		}
	}
	for _, ws := range wastages {
		reason := ws.Reason
		if reason == "" {
			reason = "-"
		}
		w.Wastages = append(w.Wastages, WastageRow{
			OccurredAt: ws.OccurredAt,
			Ref:        ws.Ref,
			Product:    ws.Product,
			Quantity:   ws.Quantity,
			Unit:       ws.Unit,
			Reason:     reason,
		})
		wt.add(ws.Unit, ws.Quantity)
	}
	for _, p := range productions {
		by, ok := names[p.ProducedByUserID]
		if !ok {
			by = p.ProducedByUserID
		}
		for _, out := range p.Outputs {
			w.Productions = append(w.Productions, ProductionRow{
				OccurredAt: p.OccurredAt,
				BatchName:  p.BatchName,
				Ref:        out.Ref,
				Product:    out.Product,
				Quantity:   out.Quantity,
				Unit:       out.Unit,
				ProducedBy: by,
			})
			pt.add(out.Unit, out.Quantity)
		}
	}

	w.ReceptionTotals = rt.list()
	w.WastageTotals = wt.list()
	w.ProductionTotals = pt.list()
	return w, nil
}

// WeeklyReport gathers the report for from..to stamped with the current time.
func WeeklyReport(ctx context.Context, src Source, from, to string) (*Weekly, error) {
	return Build(ctx, src, from, to, time.Now())
}

type totals map[units.Unit]decimal.Decimal

func (t *totals) add(u units.Unit, q float64) {
	if *t == nil {
		*t = totals{}
	}
	(*t)[u] = (*t)[u].Add(decimal.NewFromFloat(q))
}

// list returns the totals in the fixed unit order ud, kg, L.
func (t totals) list() []UnitTotal {
	out := make([]UnitTotal, 0, len(t))
	for u, q := range t {
		out = append(out, UnitTotal{Unit: u, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return unitRank(out[i].Unit) < unitRank(out[j].Unit) })
	return out
}

func unitRank(u units.Unit) int {
	for i, v := range units.All {
		if v == u {
			return i
		}
	}
	return len(units.All)
}
