package power

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteStopsAtFirstSuccess(t *testing.T) {
	var attempts []string
	e := &Executor{
		delay: 0,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			attempts = append(attempts, name)
			if len(attempts) < 3 {
				return errors.New("not permitted")
			}
			return nil
		},
	}

	e.execute("reboot", rebootCommands)

	if len(attempts) != 3 {
		t.Fatalf("want 3 attempts, got %d", len(attempts))
	}
	if attempts[2] != rebootCommands[2][0] {
		t.Fatalf("unexpected command order: %v", attempts)
	}
}

func TestExecuteExhaustsAllCommands(t *testing.T) {
	calls := 0
	e := &Executor{
		delay: 0,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			calls++
			return errors.New("denied")
		},
	}

	e.execute("poweroff", poweroffCommands)

	if calls != len(poweroffCommands) {
		t.Fatalf("want %d attempts, got %d", len(poweroffCommands), calls)
	}
}
