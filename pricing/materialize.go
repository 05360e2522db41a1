package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const TowerSpecific = "Tower Specific"

func IsTowerSpecific(particulars string) bool {
	return strings.EqualFold(strings.TrimSpace(particulars), TowerSpecific)
}

// MergeTowerMilestones appends the template's tower-specific rows to existing,
// skipping scheme codes already present. New entries have no date.
// It returns the merged list and the number of rows added.
func MergeTowerMilestones(tpl *Template, existing []TowerMilestone) ([]TowerMilestone, int, error) {
	if tpl == nil {
		return nil, 0, NewValidationError(ErrTemplateRequired, "")
	}

	seen := make(map[string]struct{}, len(existing))
	merged := make([]TowerMilestone, 0, len(existing)+len(tpl.Rows))
	for _, m := range existing {
		seen[m.SchemeCode] = struct{}{}
		merged = append(merged, m)
	}

	added := 0
	for _, r := range tpl.Rows {
		if !IsTowerSpecific(r.Particulars) {
			continue
		}
		if _, ok := seen[r.SchemeCode]; ok {
			continue
		}
		seen[r.SchemeCode] = struct{}{}
		merged = append(merged, TowerMilestone{
			SchemeCode: r.SchemeCode,
			Milestone:  r.Milestone,
		})
		added++
	}
	return merged, added, nil
}

// MaterializeSchedule builds a fresh schedule with one row per template row, in template order.
// Dates come from the Block's tower milestones by scheme code. Amounts are left for RecalcSchedule.
// The result replaces whatever schedule the document had.
func MaterializeSchedule(tpl *Template, tower []TowerMilestone) ([]ScheduleRow, error) {
	if tpl == nil {
		return nil, NewValidationError(ErrTemplateRequired, "")
	}

	dates := make(map[string]*time.Time, len(tower))
	for _, m := range tower {
		if m.SchemeCode != "" && m.MilestoneDate != nil {
			d := *m.MilestoneDate
			dates[m.SchemeCode] = &d
		}
	}

	rows := make([]ScheduleRow, 0, len(tpl.Rows))
	for _, r := range tpl.Rows {
		rows = append(rows, ScheduleRow{
			MilestoneCore: r.MilestoneCore,
			Percentage:    r.Percentage,
			MilestoneDate: dates[r.SchemeCode],
		})
	}
	return rows, nil
}

// ValidateTemplate rejects duplicate scheme codes and a total above 100%.
func ValidateTemplate(tpl Template) error {
	seen := make(map[string]struct{}, len(tpl.Rows))
	total := decimal.Zero
	for _, r := range tpl.Rows {
		if _, ok := seen[r.SchemeCode]; ok {
			return NewValidationError(ErrDuplicateSchemeCode, "%s in %s", r.SchemeCode, tpl.Name)
		}
		seen[r.SchemeCode] = struct{}{}
		total = total.Add(r.Percentage)
	}
	if total.GreaterThan(decimalOneHundred) {
		return NewValidationError(ErrPercentageExceeded, "%s has %s%%", tpl.Name, total.String())
	}
	return nil
}

// CheckTemplateAllowed fails when the Block restricts its templates and templateId is not among them.
func CheckTemplateAllowed(templateId int, allowed []int) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, id := range allowed {
		if id == templateId {
			return nil
		}
	}
	return NewValidationError(ErrTemplateNotAllowed, "template %d", templateId)
}
