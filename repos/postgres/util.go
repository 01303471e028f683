package postgres

import (
	"github.com/doug-martin/goqu/v9"

	"github.com/careflow-systems/hospital-core/domain"
)

// applyPage applies domain.Page's offset/limit to a SELECT dataset.
// Limit <= 0 leaves the dataset unbounded (repository default: no cap).
func applyPage(sel *goqu.SelectDataset, page domain.Page) *goqu.SelectDataset {
	if page.Offset > 0 {
		sel = sel.Offset(uint(page.Offset))
	}
	if page.Limit > 0 {
		sel = sel.Limit(uint(page.Limit))
	}
	return sel
}

// applyWindow narrows sel to rows whose timestampCol falls in
// [window.Start, window.End). A zero Start or End leaves that bound open.
func applyWindow(sel *goqu.SelectDataset, timestampCol string, window domain.TimeWindow) *goqu.SelectDataset {
	if !window.Start.IsZero() {
		sel = sel.Where(goqu.I(timestampCol).Gte(window.Start))
	}
	if !window.End.IsZero() {
		sel = sel.Where(goqu.I(timestampCol).Lt(window.End))
	}
	return sel
}
