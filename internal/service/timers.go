package service

import (
	"fmt"
	"strings"

	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

const timerNameChars = 50

// DeriveTimers creates one timer per step that carries an estimated time.
// Timer names come from the step instruction, cut at the first sentence or
// fifty characters, whichever is shorter.
func DeriveTimers(steps []types.Step) []types.Timer {
	var timers []types.Timer
	for _, step := range steps {
		if step.EstimatedTime == nil || *step.EstimatedTime <= 0 {
			continue
		}

		name := step.Instruction
		if idx := strings.Index(name, "."); idx != -1 {
			name = name[:idx]
		} else if len(name) > timerNameChars {
			name = name[:timerNameChars]
		}
		name = types.Truncate(strings.TrimSpace(name), types.MaxNameChars)
		if name == "" {
			name = fmt.Sprintf("Step %d", step.Order)
		}

		order := step.Order
		timers = append(timers, types.Timer{
			Name:      name,
			Duration:  *step.EstimatedTime * 60,
			StepOrder: &order,
		})
	}
	return timers
}
