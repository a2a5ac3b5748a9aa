package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bcdice-irc/core"
	"bcdice-irc/internal/debuglog"
	"bcdice-irc/internal/settings"
)

// runServe runs the application without a window. It is controlled through
// the control service and stops on SIGINT, SIGTERM or a stop request.
func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	bind := fs.String("bind", "", "control service address (default $BCDICE_IRC_RPC_BIND)")
	preset := fs.String("connect", "", "connect with this preset after start")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, err := settings.Load()
	if err != nil {
		log.Printf("serve: %v", err)
		return 1
	}
	debuglog.SetLevel(debuglog.ParseLevel(s.Debug))
	if *bind != "" {
		s.RPCBind = *bind
	}

	loop := core.NewMainLoop()
	ac, err := core.NewAppController(s, loop, core.Options{})
	if err != nil {
		log.Printf("serve: %v", err)
		return 1
	}
	if err := ac.FileService.OpenLogFiles(os.Stderr); err != nil {
		log.Printf("serve: could not open log file: %v", err)
	}
	defer ac.FileService.CloseLogFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ac.QuitFunc = stop

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()

	svc, err := ac.StartAPIService(s.RPCBind)
	if err != nil {
		log.Printf("serve: %v", err)
		loop.DoAndWait(ac.Shutdown)
		stopLoop()
		<-loopDone
		return 1
	}
	log.Printf("serve: control service listening on %s", svc.Addr())

	if *preset != "" {
		name := *preset
		loop.Do(func() {
			if err := ac.ConnectPreset(name); err != nil {
				log.Printf("serve: connect with %q: %v", name, err)
			}
		})
	}

	select {
	case <-ctx.Done():
		log.Println("serve: signal received")
	case <-svc.StopRequested():
		log.Println("serve: stop requested through the control service")
	}

	loop.DoAndWait(ac.Shutdown)
	stopAPIService(ac)
	stopLoop()
	<-loopDone
	log.Println("serve: stopped")
	return 0
}
