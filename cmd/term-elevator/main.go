// Command term-elevator drives the simulation from the keyboard.
//
//	1-9, 0   select floor 1-9, 10    + / -   select next / previous floor
//	u / d    hall call up / down     tab, c  select next car
//	i        press selected floor inside the selected car
//	r        reset                   s       print state
//	q, Ctrl-C quit
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"go-elevator-fleet/internal/config"
	"go-elevator-fleet/pkg/elevator"

	"github.com/eiannone/keyboard"
)

type console struct {
	sim   *elevator.Simulation
	out   io.Writer
	floor int
	car   int
}

func newConsole(sim *elevator.Simulation, out io.Writer) *console {
	return &console{sim: sim, out: out, floor: 1}
}

// handleKey applies one key press and reports whether the user quit.
func (c *console) handleKey(char rune, key keyboard.Key) bool {
	cfg := c.sim.Config()

	switch key {
	case keyboard.KeyCtrlC, keyboard.KeyEsc:
		return true
	case keyboard.KeyTab:
		c.nextCar(cfg.Cars)
		return false
	}

	switch {
	case char >= '1' && char <= '9':
		c.selectFloor(int(char-'0'), cfg.Floors)
	case char == '0':
		c.selectFloor(10, cfg.Floors)
	case char == '+':
		c.selectFloor(c.floor+1, cfg.Floors)
	case char == '-':
		c.selectFloor(c.floor-1, cfg.Floors)
	case char == 'c':
		c.nextCar(cfg.Cars)
	case char == 'u':
		c.report(c.sim.PlaceExternalCall(c.floor, elevator.DirUp))
	case char == 'd':
		c.report(c.sim.PlaceExternalCall(c.floor, elevator.DirDown))
	case char == 'i':
		c.report(c.sim.RequestFromInside(c.car, c.floor))
	case char == 'r':
		c.report(c.sim.Reset())
		c.floor, c.car = 1, 0
	case char == 's':
		render(c.out, c.sim.Snapshot())
	case char == 'q':
		return true
	}
	return false
}

func (c *console) selectFloor(f, floors int) {
	if f < 1 || f > floors {
		fmt.Fprintf(c.out, "floor %d does not exist (1-%d)\n", f, floors)
		return
	}
	c.floor = f
	fmt.Fprintf(c.out, "floor %d selected\n", f)
}

func (c *console) nextCar(cars int) {
	c.car = (c.car + 1) % cars
	fmt.Fprintf(c.out, "car %d selected\n", c.car)
}

func (c *console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "rejected: %v\n", err)
	}
}

// render prints one line per car and the lit hall calls.
func render(w io.Writer, snap elevator.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CAR\tCOLOR\tFLOOR\tSTATE\tQUEUE")
	for _, car := range snap.Cars {
		queue := make([]string, len(car.Queue))
		for i, f := range car.Queue {
			queue[i] = fmt.Sprint(f)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", car.ID, car.Color, car.Position, car.State, strings.Join(queue, ","))
	}
	_ = tw.Flush()

	calls := snap.LitCalls()
	if len(calls) == 0 {
		fmt.Fprintln(w, "calls: none")
		return
	}
	names := make([]string, len(calls))
	for i, k := range calls {
		names[i] = k.String()
	}
	fmt.Fprintf(w, "calls: %s\n", strings.Join(names, " "))
}

// describe renders an event as a single line.
func describe(ev elevator.Event) string {
	ts := ev.Timestamp.Format("15:04:05.000")
	switch p := ev.Payload.(type) {
	case elevator.DepartedPayload:
		return fmt.Sprintf("%s car %d departing %d -> %d (%s)", ts, ev.CarID, p.From, p.To, p.Duration)
	case elevator.ArrivedPayload:
		return fmt.Sprintf("%s car %d doors open at %d", ts, ev.CarID, p.Floor)
	case elevator.CallKey:
		return fmt.Sprintf("%s %s %s", ts, ev.Type, p)
	}
	if ev.CarID >= 0 {
		return fmt.Sprintf("%s car %d %s at %d", ts, ev.CarID, ev.Type, ev.Floor)
	}
	return fmt.Sprintf("%s %s", ts, ev.Type)
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	sim, err := elevator.New(cfg.Simulation.Elevator(), elevator.WithLogger(cfg.Log.Logger()))
	if err != nil {
		log.Fatal(err)
	}
	defer sim.Close()

	go func() {
		for ev := range sim.Events() {
			fmt.Println(describe(ev))
		}
	}()

	c := newConsole(sim, os.Stdout)
	fmt.Println("elevator console: digits select a floor, u/d call, i inside, tab next car, s state, q quit")
	render(os.Stdout, sim.Snapshot())

	for {
		char, key, err := keyboard.GetSingleKey()
		if err != nil {
			log.Fatal(err)
		}
		if c.handleKey(char, key) {
			fmt.Println("Exit")
			return
		}
	}
}
