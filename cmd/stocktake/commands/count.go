package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyjia/stocktake/internal/application/service"
	"github.com/garyjia/stocktake/internal/domain/counting"
)

const countHelp = `Keys, one entry per line:
  <digits>  type a count (appends to the current count)
  c         clear the current count
  n, Enter  next item (finishes on the last item)
  p         previous item
  j N       jump to item N
  f         finish the area now
  r         restart the area from zero
  q         quit and write the results`

func countCmd(a *app) *cobra.Command {
	var output, area string

	cmd := &cobra.Command{
		Use:   "count FILE",
		Short: "Count one area interactively, reading keys from stdin",
		Long:  "Count one area interactively, reading keys from stdin.\n\n" + countHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.importRun(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			view, err := countLoop(cmd.Context(), a.stocktake, run.ID, area, cmd.InOrStdin(), out)
			if err != nil {
				return err
			}

			if view.Summary != nil {
				fmt.Fprintf(out, "%s: %d items, total quantity %d, %d not counted\n",
					view.Area, view.Summary.TotalItems, view.Summary.TotalQuantity, view.Summary.ZeroCountItems)
			}

			file, err := a.stocktake.ExportArea(cmd.Context(), run.ID, area)
			if err != nil {
				return err
			}
			path, err := a.writeOutput(output, file.FileName, file.Data)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&area, "area", "", "area to count")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: export dir and a generated name)")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}

// countLoop applies one line of input at a time until quit or end of input
// and returns the final session view
func countLoop(
	ctx context.Context,
	svc service.StocktakeService,
	runID, area string,
	in io.Reader,
	out io.Writer,
) (*service.SessionView, error) {
	view, err := svc.OpenArea(ctx, runID, area)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out, describe(view))

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmds, quit, err := parseInput(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "%v\n%s\n", err, countHelp)
			continue
		}
		if quit {
			break
		}

		for _, c := range cmds {
			view, err = svc.ApplyCommand(ctx, runID, area, c)
			if errors.Is(err, counting.ErrMergeConsistency) {
				// The counts stay in the session; only the master list was not updated.
				fmt.Fprintf(out, "warning: %v\n", err)
				view, err = svc.OpenArea(ctx, runID, area)
			}
			if err != nil {
				return nil, err
			}
		}
		fmt.Fprintln(out, describe(view))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return view, nil
}

// parseInput turns one input line into session commands. Jump positions
// are 1-based as shown to the counter.
func parseInput(line string) ([]counting.Command, bool, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return []counting.Command{counting.Simple(counting.CommandNext)}, false, nil
	}

	switch fields[0] {
	case "q":
		return nil, true, nil
	case "n":
		return []counting.Command{counting.Simple(counting.CommandNext)}, false, nil
	case "p":
		return []counting.Command{counting.Simple(counting.CommandPrevious)}, false, nil
	case "c":
		return []counting.Command{counting.Simple(counting.CommandClear)}, false, nil
	case "f":
		return []counting.Command{counting.Simple(counting.CommandFinish)}, false, nil
	case "r":
		return []counting.Command{counting.Simple(counting.CommandRestart)}, false, nil
	case "j":
		if len(fields) != 2 {
			return nil, false, fmt.Errorf("jump needs a position")
		}
		pos, err := strconv.Atoi(fields[1])
		if err != nil || pos < 1 {
			return nil, false, fmt.Errorf("invalid position %q", fields[1])
		}
		return []counting.Command{counting.Jump(pos - 1)}, false, nil
	}

	if len(fields) > 1 {
		return nil, false, fmt.Errorf("unrecognised input %q", line)
	}
	cmds := make([]counting.Command, 0, len(fields[0]))
	for _, r := range fields[0] {
		if r < '0' || r > '9' {
			return nil, false, fmt.Errorf("unrecognised input %q", line)
		}
		cmds = append(cmds, counting.Digit(int(r-'0')))
	}
	return cmds, false, nil
}

func describe(v *service.SessionView) string {
	switch {
	case v.Count == 0:
		return fmt.Sprintf("%s has no items", v.Area)
	case v.Finished:
		return fmt.Sprintf("%s finished", v.Area)
	case v.Current == nil:
		return v.Area
	}
	return fmt.Sprintf("[%d/%d] %s: %d", v.Position, v.Count, v.Current.Description, v.Current.Quantity)
}
