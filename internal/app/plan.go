package app

import (
	"fmt"
	"io"
	"strings"

	"go.trai.ch/depex/internal/engine/scheduler"
	"go.trai.ch/depex/internal/ui/output"
	"go.trai.ch/depex/internal/ui/style"
)

// WritePlan prints plan in a human-readable form.
func WritePlan(w io.Writer, plan *scheduler.Plan) error {
	out := output.New(w)

	if plan.Empty() {
		symbol := out.String(style.Check).Foreground(out.Color(string(style.Green)))
		_, err := fmt.Fprintf(w, "%s nothing to do, all inputs are up to date\n", symbol)
		return err
	}

	var b strings.Builder
	header := func(s string) string {
		return out.String(s).Foreground(out.Color(string(style.Iris))).Bold().String()
	}

	fmt.Fprintf(&b, "%s %s\n", header("plan"), out.String(plan.ID).Faint())

	if len(plan.Changed) > 0 {
		fmt.Fprintf(&b, "\n%s\n", header("changed inputs"))
		for _, path := range plan.Changed {
			fmt.Fprintf(&b, "  %s %s\n", style.Dot, path)
		}
	}

	if len(plan.Forced) > 0 {
		fmt.Fprintf(&b, "\n%s\n", header("forced inputs"))
		for _, path := range plan.Forced {
			fmt.Fprintf(&b, "  %s %s\n", style.Circle, path)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", header("commands"))
	for i, name := range plan.Commands {
		fmt.Fprintf(&b, "  %d %s %s\n", i+1, style.Arrow, name)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
