// Command elevator-replay runs a YAML scenario on virtual time and prints the
// final state of the fleet.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"go-elevator-fleet/internal/config"
	"go-elevator-fleet/internal/scenario"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (logging only)")
	asJSON := flag.Bool("json", false, "print the final snapshot as JSON")
	trace := flag.Bool("trace", false, "print every event")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: elevator-replay [-json] [-trace] scenario.yaml")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Log.Logger()

	file, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	sc, err := scenario.Load(file)
	file.Close()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := scenario.Run(ctx, sc, logger)
	if err != nil {
		log.Fatal(err)
	}

	if err := report(os.Stdout, res, *asJSON, *trace); err != nil {
		log.Fatal(err)
	}
}

func report(w io.Writer, res *scenario.Result, asJSON, trace bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Final)
	}

	fmt.Fprintf(w, "scenario %q finished after %s\n", res.Name, res.Elapsed)
	if trace {
		for _, ev := range res.Trace {
			fmt.Fprintf(w, "  %8s  %-12s car=%-2d floor=%d\n",
				ev.Timestamp.Sub(res.Start), ev.Type, ev.CarID, ev.Floor)
		}
	}
	for _, rej := range res.Rejected {
		fmt.Fprintf(w, "rejected %s\n", rej.Error())
	}
	for _, car := range res.Final.Cars {
		fmt.Fprintf(w, "car %d (%s): floor %d, %s, queue %v\n", car.ID, car.Color, car.Position, car.State, car.Queue)
	}
	fmt.Fprintf(w, "lit calls: %v\n", res.Final.LitCalls())
	if res.Dropped > 0 {
		fmt.Fprintf(w, "warning: %d events dropped from the trace\n", res.Dropped)
	}
	return nil
}
