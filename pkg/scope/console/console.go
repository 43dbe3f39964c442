// Package console provides an interactive shell to operate the scope.
package console

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/scope.go/pkg/framework"
	"github.com/robotalks/scope.go/pkg/scope/acq"
	"github.com/robotalks/scope.go/pkg/scope/comm"
	"github.com/robotalks/scope.go/pkg/scope/sink"
)

// Controller is what the console operates.
type Controller interface {
	Post(acq.Intent) bool
	State() acq.State
	Params() acq.Params
	DisplayParams() acq.DisplayParams
	Stats() acq.Stats
	Samples() []comm.Sample
}

const (
	consoleKey  = "$console"
	defaultShow = 10
)

var intentHelp = map[string]string{
	"trig":    "trigger an acquisition now",
	"arm":     "arm the trigger",
	"off":     "turn probing off",
	"scale":   "change time/div and V/div",
	"pos":     "move the graph",
	"level":   "change the trigger level in volts",
	"freq":    "change the sampling frequency",
	"samples": "change the number of samples",
}

// Console is an ishell backed shell and also a sink printing
// status messages and samples.
type Console struct {
	Controller Controller
	// Out receives output when no shell is attached.
	Out io.Writer

	Shell *ishell.Shell

	lock sync.Mutex
}

// New creates a Console.
func New(ctl Controller) *Console {
	return &Console{Controller: ctl, Out: os.Stdout}
}

// Name implements Named.
func (c *Console) Name() string {
	return "console"
}

// ConsoleFrom gets Console from ishell context.
func ConsoleFrom(ctx *ishell.Context) *Console {
	return ctx.Get(consoleKey).(*Console)
}

// NewShell creates the ishell shell with all commands.
func (c *Console) NewShell() *ishell.Shell {
	sh := ishell.New()
	sh.Set(consoleKey, c)
	sh.SetPrompt("scope > ")
	names := make([]string, 0, len(acq.IntentUsage))
	for name := range acq.IntentUsage {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sh.AddCmd(intentCmd(name))
	}
	sh.AddCmd(&StatusCmd)
	sh.AddCmd(&ShowCmd)
	return sh
}

func intentCmd(name string) *ishell.Cmd {
	help := intentHelp[name]
	if usage := acq.IntentUsage[name]; usage != "" {
		help = usage + ": " + help
	}
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: func(ctx *ishell.Context) {
			if err := ConsoleFrom(ctx).Do(name, ctx.Args...); err != nil {
				ctx.Err(err)
			}
		},
	}
}

// Do posts the intent to the controller.
func (c *Console) Do(name string, args ...string) error {
	in, err := acq.ParseIntent(name, args...)
	if err != nil {
		return err
	}
	if !c.Controller.Post(in) {
		return fmt.Errorf("%s: controller busy", name)
	}
	return nil
}

// StatusText describes state, parameters and counters.
func (c *Console) StatusText() string {
	var w bytes.Buffer
	state, stats := c.Controller.State(), c.Controller.Stats()
	fmt.Fprintf(&w, "state:    %s", state.Phase)
	if state.ExpectingData {
		fmt.Fprint(&w, " (expecting data)")
	}
	fmt.Fprintln(&w)
	fmt.Fprintf(&w, "params:   %s\n", c.Controller.DisplayParams())
	p := c.Controller.Params()
	fmt.Fprintf(&w, "position: %g %g\n", p.PositionX, p.PositionY)
	fmt.Fprintf(&w, "retries:  ping=%d config=%d\n", stats.PingRetries, stats.ConfigRetries)
	fmt.Fprintf(&w, "downloads: ok=%d failed=%d", stats.Downloads, stats.DownloadFailures)
	return w.String()
}

// SamplesText formats the first n samples of the last acquisition.
func (c *Console) SamplesText(n int) string {
	samples := c.Controller.Samples()
	if len(samples) == 0 {
		return "no samples"
	}
	var w bytes.Buffer
	sum := sink.Summarize(samples)
	fmt.Fprintf(&w, "%d samples, min %.3fV max %.3fV mean %.3fV", sum.Count, sum.Min, sum.Max, sum.Mean)
	if n > len(samples) {
		n = len(samples)
	}
	for _, s := range samples[:n] {
		fmt.Fprintf(&w, "\n%6d %7.3fV", s.Index, s.Value)
	}
	return w.String()
}

func (c *Console) println(s string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.Shell != nil {
		c.Shell.Println(s)
		return
	}
	if c.Out != nil {
		fmt.Fprintln(c.Out, s)
	}
}

// DeliverSamples implements acq.Sink.
func (c *Console) DeliverSamples(samples []comm.Sample) {
	sum := sink.Summarize(samples)
	c.println(fmt.Sprintf("[%s] %d samples, min %.3fV max %.3fV",
		c.Controller.DisplayParams(), sum.Count, sum.Min, sum.Max))
}

// DeliverStatusMessage implements acq.Sink.
func (c *Console) DeliverStatusMessage(msg string) {
	if msg != "" {
		c.println(sink.OneLine(msg))
	}
}

// Run implements Runnable. Exiting the shell stops the runner.
func (c *Console) Run(ctx context.Context) error {
	c.lock.Lock()
	if c.Shell == nil {
		c.Shell = c.NewShell()
	}
	sh := c.Shell
	c.lock.Unlock()
	return fx.RunWithContextCancel(ctx, sh.Close, func() error {
		sh.Run()
		return nil
	})
}

var (
	// StatusCmd prints the controller status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(ctx *ishell.Context) {
			ctx.Println(ConsoleFrom(ctx).StatusText())
		},
	}

	// ShowCmd prints the last samples.
	ShowCmd = ishell.Cmd{
		Name: "show",
		Help: "[COUNT]",
		Func: func(ctx *ishell.Context) {
			n := defaultShow
			if len(ctx.Args) > 0 {
				if _, err := fmt.Sscan(ctx.Args[0], &n); err != nil {
					ctx.Err(fmt.Errorf("invalid count %q", ctx.Args[0]))
					return
				}
			}
			ctx.Println(ConsoleFrom(ctx).SamplesText(n))
		},
	}
)
