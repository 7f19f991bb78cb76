package latefee

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

// Policy governs due dates and late fees for one connection type.
// Zero FlatFee and MaxLateFee mean no flat fee and no cap.
type Policy struct {
	types.Entity
	ID               id.LateFeePolicyID     `json:"id"`
	ConnectionType   account.ConnectionType `json:"connection_type"`
	StandardDueDays  int                    `json:"standard_due_days"`
	GracePeriodDays  int                    `json:"grace_period_days"`
	DailyRatePercent decimal.Decimal        `json:"daily_rate_percent"`
	FlatFee          types.Money            `json:"flat_fee"`
	MaxLateFee       types.Money            `json:"max_late_fee"`
	EffectiveFrom    time.Time              `json:"effective_from"`
	EffectiveTo      *time.Time             `json:"effective_to,omitempty"`
	Active           bool                   `json:"active"`
}

// Defaults for a newly authored policy.
const (
	DefaultStandardDueDays = 15
	DefaultGracePeriodDays = 3
)

// AppliesOn reports whether the policy is active and in effect on day.
func (p *Policy) AppliesOn(day time.Time) bool {
	return p.Active && types.Within(day, p.EffectiveFrom, p.EffectiveTo)
}

// Select picks the policy in effect on day: latest EffectiveFrom wins and
// ties go to the greater ID. It returns nil when none applies.
func Select(policies []*Policy, day time.Time) *Policy {
	inEffect := lo.Filter(policies, func(p *Policy, _ int) bool { return p.AppliesOn(day) })
	if len(inEffect) == 0 {
		return nil
	}

	return lo.MaxBy(inEffect, func(a, b *Policy) bool {
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.After(b.EffectiveFrom)
		}
		return a.ID.Compare(b.ID) > 0
	})
}

// DueDate returns billDate plus the policy's standard due days, or plus
// defaultDays when there is no policy or it leaves the field unset.
func DueDate(billDate time.Time, p *Policy, defaultDays int) time.Time {
	days := defaultDays
	if p != nil && p.StandardDueDays > 0 {
		days = p.StandardDueDays
	}
	return types.Day(billDate).AddDate(0, 0, days)
}
