package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the five-field standard syntax plus descriptors such as
// "@every 30s" and "@hourly", the same set cron.New() schedules.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Expression string    `json:"expression"`
	Next       time.Time `json:"next"`
	Last       time.Time `json:"last,omitzero"`

	TimeSinceLast time.Duration `json:"time_since_last,omitempty"`
	TimeUntilNext time.Duration `json:"time_until_next"`
}

func Parse(cronExpr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	nextTime := schedule.Next(refTime)
	info := &TriggerInfo{
		Expression:    cronExpr,
		Next:          nextTime,
		Last:          previous(schedule, refTime),
		TimeUntilNext: nextTime.Sub(refTime),
	}
	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	return info, nil
}

// previous finds the latest activation at or before refTime, looking back at
// most one year.
func previous(schedule cron.Schedule, refTime time.Time) time.Time {
	if every, ok := schedule.(cron.ConstantDelaySchedule); ok {
		return schedule.Next(refTime).Add(-every.Delay)
	}

	searchStart := refTime.Add(-time.Minute)
	for i := range 366 * 24 {
		candidate := schedule.Next(searchStart.Add(-time.Duration(i) * time.Hour))
		if candidate.After(refTime) {
			continue
		}
		// the stepped search can land before later activations
		for {
			next := schedule.Next(candidate)
			if next.After(refTime) {
				return candidate
			}
			candidate = next
		}
	}
	return time.Time{}
}
