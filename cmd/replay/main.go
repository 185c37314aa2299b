// replay verifies recorded fixtures against a fresh engine run, or
// records a new fixture from its inputs. A divergence exits non-zero.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kestrelops/cascade/internal/config"
	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	configPath := flag.String("config", "", "engine config YAML (defaults when empty)")
	record := flag.Bool("record", false, "fill in expected states from this run and rewrite the fixture")
	verbose := flag.Bool("v", false, "print the replayed trajectory")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--config cascade.yaml] [--record] [-v]")
		os.Exit(2)
	}

	os.Exit(run(*fixturePath, *configPath, *record, *verbose))
}

func run(fixturePath, configPath string, record, verbose bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	fixture, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	if record {
		recorded, err := replay.Record(cfg, fixture)
		if err != nil {
			fmt.Fprintf(os.Stderr, "record: %v\n", err)
			return 2
		}
		if err := replay.WriteFixture(fixturePath, recorded); err != nil {
			fmt.Fprintf(os.Stderr, "write fixture: %v\n", err)
			return 2
		}
		fmt.Printf("recorded %d states into %s\n", len(recorded.Expected), fixturePath)
		return 0
	}

	if err := replay.CheckDeterminism(cfg, fixture); err != nil {
		fmt.Fprintf(os.Stderr, "determinism check: %v\n", err)
		return 1
	}

	if verbose {
		if err := printTrajectory(cfg, fixture); err != nil {
			fmt.Fprintf(os.Stderr, "replay: %v\n", err)
			return 2
		}
	}

	div, err := replay.Verify(cfg, fixture)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	if div != nil {
		fmt.Fprintln(os.Stderr, div)
		return 1
	}
	fmt.Printf("fixture %q reproduced: %d states match\n", fixture.Name, len(fixture.Expected))
	return 0
}

// #endregion main

// #region print

func printTrajectory(cfg engine.Config, fixture replay.Fixture) error {
	states, err := replay.Run(cfg, fixture)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "seq\tz\tregime\tcomposite\trisk")
	for _, st := range states {
		risk := "-"
		if st.Signal.Risk != nil {
			risk = fmt.Sprintf("%.4f", *st.Signal.Risk)
		}
		fmt.Fprintf(w, "%d\t%.6f\t%s\t%.4f\t%s\n",
			st.Seq, st.Phase.Z, st.Phase.Regime, st.Burden.Composite, risk)
	}
	return w.Flush()
}

// #endregion print
