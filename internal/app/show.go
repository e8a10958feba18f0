package app

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"trendwatch/internal/state"
)

// Show prints the tracked indicators from the persisted state.
func (a *App) Show(opts ShowOptions) error {
	store := state.NewStore(a.Config.State.Path)
	st, err := store.Load()
	if err != nil {
		return err
	}

	if len(st.Indicators) == 0 {
		fmt.Fprintln(os.Stdout, "no indicators tracked yet")
		return nil
	}

	ids := make([]string, 0, len(st.Indicators))
	for id := range st.Indicators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tName\tUnit\tFreq\tLast Check\tLast Value\tHistory")

	for _, id := range ids {
		ind := st.Indicators[id]
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%.3f\t%d\n",
			ind.IndicatorID,
			ind.IndicatorName,
			ind.Unit,
			ind.Freq,
			shortDate(ind.LastCheckDate),
			ind.LastCheckValue,
			len(ind.History),
		)
	}

	writer.Flush()

	if st.LastRun != nil {
		fmt.Fprintf(os.Stdout, "\nlast run: %s\n", st.LastRun.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return nil
}

func shortDate(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}
