// export archives a snapshot database as zstd-compressed JSONL, or loads
// such an archive into a fresh database.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kestrelops/cascade/internal/snapshot"
)

// #region main

func main() {
	dbPath := flag.String("db", "cascade.db", "path to the snapshot database")
	out := flag.String("out", "", "archive path to write (export mode)")
	in := flag.String("in", "", "archive path to load (import mode)")
	fromSeq := flag.Uint64("from", 1, "first sequence number to export")
	flag.Parse()

	if (*out == "" && *in == "") || (*out != "" && *in != "") {
		fmt.Fprintln(os.Stderr, "usage: export --db cascade.db --out run.jsonl.zst [--from N]")
		fmt.Fprintln(os.Stderr, "       export --db new.db --in run.jsonl.zst")
		os.Exit(2)
	}

	store, err := snapshot.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(2)
	}
	defer store.Close()

	if *out != "" {
		n, err := store.ExportFile(*out, *fromSeq)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("exported %d snapshots to %s\n", n, *out)
		return
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open archive: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	n, err := store.Import(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("imported %d snapshots from %s\n", n, *in)
}

// #endregion main
