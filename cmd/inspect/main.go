// inspect queries a cascade snapshot database from the terminal:
// run summary, recent snapshots, and the alert log.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kestrelops/cascade/internal/snapshot"
	"github.com/kestrelops/cascade/internal/trajectory"
)

// #region main

func main() {
	dbPath := flag.String("db", "cascade.db", "path to the snapshot database")
	mode := flag.String("mode", "summary", "summary | recent | alerts")
	limit := flag.Int("limit", 20, "rows for recent/alerts modes")
	fromSeq := flag.Uint64("from", 1, "first sequence number for summary mode")
	flag.Parse()

	store, err := snapshot.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(2)
	}
	defer store.Close()

	switch *mode {
	case "summary":
		err = printSummary(store, *fromSeq)
	case "recent":
		err = printRecent(store, *limit)
	case "alerts":
		err = printAlerts(store, *limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region modes

func printSummary(store *snapshot.Store, fromSeq uint64) error {
	s, err := trajectory.FromStore(store, fromSeq)
	if err != nil {
		return err
	}
	fmt.Print(s.Render())
	return nil
}

func printRecent(store *snapshot.Store, limit int) error {
	latest, err := store.Latest()
	if err != nil {
		return err
	}
	from := uint64(1)
	if latest.Seq > uint64(limit) {
		from = latest.Seq - uint64(limit) + 1
	}
	states, err := store.Range(from, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "seq\ttime\tz\tregime\tcomposite\trisk\tdistance")
	for _, st := range states {
		risk := "-"
		if st.Signal.Risk != nil {
			risk = fmt.Sprintf("%.4f", *st.Signal.Risk)
		}
		fmt.Fprintf(w, "%d\t%s\t%.6f\t%s\t%.4f\t%s\t%.4f\n",
			st.Seq, st.Timestamp.Format("15:04:05"),
			st.Phase.Z, st.Phase.Regime, st.Burden.Composite, risk,
			st.Signal.DistanceToCritical)
	}
	return w.Flush()
}

func printAlerts(store *snapshot.Store, limit int) error {
	alerts, err := store.Alerts(limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Println("no alerts")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "time\tseq\tseverity\tmetric\tvalue\tthreshold")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.4f\t%.4f\n",
			a.CreatedAt.Format("15:04:05"), a.Seq, a.Severity, a.Metric, a.Value, a.Threshold)
	}
	return w.Flush()
}

// #endregion modes
