package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"bcdice-irc/api"
	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/settings"
)

// errUsage marks command line mistakes.
var errUsage = errors.New("usage error")

// runClient sends one command to a running instance.
func runClient(args []string) int {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	host := fs.String("host", "", "control service address (default $BCDICE_IRC_RPC_BIND)")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage()
		return 2
	}

	if *host == "" {
		*host = constants.DefaultRPCBind
		if s, err := settings.Load(); err == nil {
			*host = s.RPCBind
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := api.NewClient(*host)
	err := runClientCommand(ctx, c, fs.Arg(0), fs.Args()[1:], os.Stdout)
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		usage()
		return 2
	case err != nil:
		log.SetFlags(0)
		log.Printf("client: %v", err)
		return 1
	}
	return 0
}

func runClientCommand(ctx context.Context, c *api.Client, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "version":
		v, err := c.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\nBCDice %s\n", constants.AppName, v.BCDiceIRC, v.BCDice)

	case "stop":
		if err := c.Stop(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "stopping")

	case "dicebots":
		bots, err := c.DiceBots(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, b := range bots {
			fmt.Fprintf(w, "%s\t%s\n", b.ID, b.Name)
		}
		return w.Flush()

	case "state":
		st, err := c.State(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", st.State, st.Status)
		if st.Preset != "" {
			fmt.Fprintf(out, "preset: %s\n", st.Preset)
		}
		fmt.Fprintf(out, "rule set: %s\n", st.RuleSet)
		if st.Error != "" {
			fmt.Fprintf(out, "last error: %s\n", st.Error)
		}

	case "presets":
		list, err := c.Presets(ctx)
		if err != nil {
			return err
		}
		for i, name := range list.Presets {
			mark := " "
			if i == list.LastSelected {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, name)
		}

	case "connect":
		if len(args) != 1 {
			return fmt.Errorf("%w: connect needs exactly one preset name", errUsage)
		}
		if err := c.Connect(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "connecting with %s\n", args[0])

	case "disconnect":
		if err := c.Disconnect(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "disconnecting")

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}
