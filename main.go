package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"bcdice-irc/core"
	"bcdice-irc/core/services"
	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/debuglog"
	"bcdice-irc/internal/dialogs"
	"bcdice-irc/internal/platform"
	"bcdice-irc/internal/process"
	"bcdice-irc/internal/settings"
	"bcdice-irc/ui"
)

const shutdownTimeout = 5 * time.Second

// main dispatches to a subcommand, or runs the desktop application.
func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			os.Exit(runServe(os.Args[2:]))
		case "client":
			os.Exit(runClient(os.Args[2:]))
		case "version":
			fmt.Println(versionString())
			return
		case "help", "-h", "--help":
			usage()
			return
		}
	}
	runGUI()
}

func versionString() string {
	if constants.CommitID != "" {
		return fmt.Sprintf("%s %s (%s)", constants.AppName, constants.AppVersion, constants.CommitID)
	}
	return fmt.Sprintf("%s %s", constants.AppName, constants.AppVersion)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  %[1]s                 run the desktop application
  %[1]s serve [-bind]   run headless with the control service
  %[1]s client [-host] version|stop|dicebots|state|presets|connect <preset>|disconnect
  %[1]s version
`, constants.ProcessNameUnix)
}

func runGUI() {
	s, err := settings.Load()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	debuglog.SetLevel(debuglog.ParseLevel(s.Debug))

	uiService := services.NewUIService()
	controller, err := core.NewAppController(s, core.FyneScheduler{}, core.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	controller.UIService = uiService
	controller.QuitFunc = uiService.QuitApplication

	if err := controller.FileService.OpenLogFiles(nil); err != nil {
		log.Printf("main: could not open log file: %v", err)
	}

	if desk, ok := uiService.Application.(desktop.App); ok {
		uiService.Application.Lifecycle().SetOnStarted(func() {
			go func() {
				// Give the tray time to initialize before setting the icon.
				time.Sleep(500 * time.Millisecond)
				fyne.Do(func() {
					uiService.UpdateTrayIcon(controller.Machine.Current(), false)
				})
			}()

			updateTrayMenu := func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("updateTrayMenu: Recovered from panic: %v", r)
					}
				}()
				desk.SetSystemTrayMenu(controller.CreateTrayMenu())
			}
			uiService.UpdateTrayMenuFunc = updateTrayMenu
			controller.PresetsChanged.Subscribe(func(core.PresetsChange) { updateTrayMenu() })
			updateTrayMenu()
		})
	}

	uiService.MainWindow = uiService.Application.NewWindow(constants.AppName)
	uiService.MainWindow.SetIcon(uiService.AppIconData)

	app := ui.NewApp(uiService.MainWindow, controller)
	uiService.ShowConnectionFunc = app.ShowConnection
	uiService.MainWindow.SetContent(app.Content())
	uiService.MainWindow.Resize(fyne.NewSize(420, 560))
	uiService.MainWindow.CenterOnScreen()

	if s.RPCBind != "" {
		if svc, err := controller.StartAPIService(s.RPCBind); err != nil {
			debuglog.WarnLog("main: control service disabled: %v", err)
		} else {
			log.Printf("main: control service listening on %s", svc.Addr())
			go func() {
				<-svc.StopRequested()
				log.Println("main: stop requested through the control service")
				fyne.Do(controller.Quit)
			}()
		}
	}

	warnIfAlreadyRunning(uiService)

	// Hide instead of exiting while the tray can bring the window back.
	if _, ok := uiService.Application.(desktop.App); ok {
		uiService.MainWindow.SetCloseIntercept(func() {
			uiService.MainWindow.Hide()
		})
	}

	uiService.MainWindow.ShowAndRun()
	// The code below executes only after ShowAndRun() finishes.
	log.Println("Application shutting down.")
	controller.Shutdown()
	stopAPIService(controller)
	controller.FileService.CloseLogFiles()
}

// warnIfAlreadyRunning shows a warning when another instance of the
// application is running.
func warnIfAlreadyRunning(uiService *services.UIService) {
	others, err := process.OtherInstances(platform.GetProcessNameForCheck())
	if err != nil {
		debuglog.WarnLog("warnIfAlreadyRunning: %v", err)
		return
	}
	if len(others) == 0 {
		return
	}
	log.Printf("warnIfAlreadyRunning: %d other instance(s), first pid %d", len(others), others[0].PID)
	dialogs.ShowInfo(uiService.MainWindow, "Warning",
		fmt.Sprintf("%s is already running (pid %d).\nBoth instances write the same preset file.",
			constants.AppName, others[0].PID))
}

func stopAPIService(ac *core.AppController) {
	if ac.APIService == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ac.APIService.Shutdown(ctx); err != nil {
		log.Printf("main: control service shutdown: %v", err)
	}
}
