package journal

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
)

// GroupBy selects the aggregation dimension.
type GroupBy string

const (
	GroupByType     GroupBy = "type"
	GroupByCategory GroupBy = "category"
	GroupByMonth    GroupBy = "month"
	GroupByAccount  GroupBy = "account"
)

// Group is one aggregation bucket. Percent is only populated for category
// groups within a single type.
type Group struct {
	Key     string
	Count   int
	Sum     decimal.Decimal
	Average decimal.Decimal
	Percent decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Aggregate groups the owner's transactions matching f. Groups are ordered by
// sum descending, or newest month first for month groups. top limits the
// number of groups returned when positive.
//
// For category groups with f.Type set, Percent is the group's share of every
// transaction of that type in f's date range.
func (j *Journal) Aggregate(ctx context.Context, ownerID string, f Filter, by GroupBy, top int) ([]Group, error) {
	keyOf, err := groupKey(by)
	if err != nil {
		return nil, err
	}
	txs, err := j.all(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*Group)
	var order []string
	for _, tx := range txs {
		key := keyOf(tx)
		if key == "" {
			continue
		}
		g, ok := index[key]
		if !ok {
			g = &Group{Key: key}
			index[key] = g
			order = append(order, key)
		}
		g.Count++
		g.Sum = g.Sum.Add(tx.Amount)
	}

	var typeTotal decimal.Decimal
	if by == GroupByCategory && f.Type != "" {
		scope, err := j.all(ctx, ownerID, Filter{From: f.From, To: f.To, Type: f.Type})
		if err != nil {
			return nil, err
		}
		for _, tx := range scope {
			typeTotal = typeTotal.Add(tx.Amount)
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		g := index[key]
		g.Average = g.Sum.Div(decimal.NewFromInt(int64(g.Count))).Round(2)
		if typeTotal.IsPositive() {
			g.Percent = g.Sum.Mul(hundred).Div(typeTotal).Round(2)
		}
		groups = append(groups, *g)
	}

	if by == GroupByMonth {
		sort.SliceStable(groups, func(a, b int) bool { return groups[a].Key > groups[b].Key })
	} else {
		sort.SliceStable(groups, func(a, b int) bool { return groups[a].Sum.GreaterThan(groups[b].Sum) })
	}
	if top > 0 && len(groups) > top {
		groups = groups[:top]
	}
	return groups, nil
}

func groupKey(by GroupBy) (func(Transaction) string, error) {
	switch by {
	case GroupByType:
		return func(tx Transaction) string { return string(tx.Type) }, nil
	case GroupByCategory:
		return func(tx Transaction) string { return tx.Category }, nil
	case GroupByMonth:
		return func(tx Transaction) string { return MonthOf(tx.Date).Format("2006-01") }, nil
	case GroupByAccount:
		return func(tx Transaction) string { return tx.AccountID }, nil
	default:
		return nil, errs.Invalid("group_by", "unsupported grouping "+string(by))
	}
}
