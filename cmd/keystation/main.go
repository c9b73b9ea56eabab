package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/keystation/internal/pkg/display"
	"github.com/gethiox/keystation/internal/pkg/flash"
	"github.com/gethiox/keystation/internal/pkg/fs"
	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/gethiox/keystation/internal/pkg/midi/driver"
	"github.com/gethiox/keystation/internal/pkg/midi/driver/alsa"
	"github.com/gethiox/keystation/internal/pkg/midi/driver/rawmidi"
	"github.com/gethiox/keystation/internal/pkg/source"
	"github.com/gethiox/keystation/internal/pkg/supervisor"
	"github.com/gethiox/keystation/internal/pkg/tty"
	"github.com/gethiox/keystation/internal/pkg/utils"
	"github.com/gethiox/keystation/internal/pkg/velocity"
	"github.com/logrusorgru/aurora"
)

var log = logger.GetLogger()

const (
	serialReadTimeout = time.Millisecond * 100
	jingleBPM         = 240
)

func FanOut[T any](input <-chan T) (<-chan T, <-chan T) {
	size := max(cap(input), 1)
	var output1 = make(chan T, size)
	var output2 = make(chan T, size)

	go func() {
		for v := range input {
			output1 <- v
			output2 <- v
		}
		close(output1)
		close(output2)
	}()
	return output1, output2
}

func drain[T any](c <-chan T) {
	for range c {
	}
}

func handleSigs(wg *sync.WaitGroup, sigs <-chan os.Signal, cancel func()) {
	defer wg.Done()
	var counter int
	for sig := range sigs {
		if counter > 0 {
			fmt.Println("Dirty exit")
			os.Exit(1)
		}
		log.Info(fmt.Sprintf("signal received: %v", sig), logger.Debug)
		cancel()
		counter++
	}
}

func runUI(ctx context.Context, cfg KeystationConfig, cancel func()) (*gocui.Gui, error) {
	g, err := GetCli()
	if err != nil {
		return nil, err
	}

	go func() {
		err := g.MainLoop()
		if err != nil && !errors.Is(err, gocui.ErrQuit) {
			log.Info(fmt.Sprintf("ui stopped: %s", err), logger.Error)
		}
		// leaving the ui behaves like a received signal
		cancel()
	}()

	go func() {
		for {
			g.Update(Layout)
			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.Daemon.LogViewRate):
			}
		}
	}()

	time.Sleep(time.Millisecond * 500) // waiting for view init
	return g, nil
}

func runProfileServer(wg *sync.WaitGroup) *http.Server {
	if !*profile {
		return nil
	}
	addr := "0.0.0.0:8080"
	log.Info(fmt.Sprintf("profiling enabled and hosted on %s", addr), logger.Info)
	server := &http.Server{Addr: addr, Handler: nil}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info(fmt.Sprintf("profiling server exited: %v", server.ListenAndServe()), logger.Info)
	}()
	return server
}

// printLogs renders log messages on stdout until the logger is closed.
func printLogs(done chan<- struct{}, colors bool, logLevel int) {
	defer close(done)
	fmt.Printf("for nicer output use -ui flag\n")
	au := aurora.NewAurora(colors)
	for data := range logger.Messages {
		msg, err := unpack(data)
		if err != nil {
			fmt.Printf("%s\n", string(data))
			continue
		}
		m := prepareString(msg, au, -1, logLevel)
		if m != "" {
			fmt.Printf("%s\n", m)
		}
	}
}

func listResources(what string) error {
	var names []string
	switch what {
	case "ports":
		devices, err := rawmidi.DetectDevices()
		if err != nil {
			return err
		}
		names = append(alsa.OutputPorts(), devices...)
	case "inputs":
		var err error
		names, err = source.InputDevices()
		if err != nil {
			return err
		}
	case "profiles":
		dir := fs.NewEntry(filepath.Join(configDir, "velocity"))
		var err error
		names, err = dir.FilesWithSuffix(".toml", ".yaml", ".yml")
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown list \"%s\", expected ports, inputs or profiles", what)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func openOutput(cfg MIDI) (driver.MIDIOut, error) {
	switch {
	case rawmidi.IsDevice(cfg.Target):
		return rawmidi.NewIODevice(cfg.Target), nil
	case cfg.Target != "":
		return alsa.FindPort(cfg.Target)
	}
	return alsa.CreatePort(cfg.Client, cfg.Port)
}

var (
	profile  = flag.Bool("profile", false, "runs web server for performance profiling (go tool pprof)")
	ui       = flag.Bool("ui", false, "engage debug ui")
	force256 = flag.Bool("256", false, "force 256 color mode")
	nocolor  = flag.Bool("nocolor", false, "disable color")
	logLevel = flag.Int("loglevel", logger.FirmwareLvl,
		"logging level, each level enables additional information class (0-5, default: 3)\n"+
			"\navailable options:\n"+
			"0: errors\n"+
			"1: warnings\n"+
			"2: general info (eg. midi output and profile changes)\n"+
			"3: firmware link, version checks and flashing\n"+
			"4: every emitted midi event\n"+
			"5: raw frames received from the keybed",
	)
	debug  = flag.Bool("debug", false, "show everything including debug messages and callers")
	silent = flag.Bool("silent", false, "no output logging, best performance")
	list   = flag.String("list", "", "print available \"ports\", \"inputs\" or \"profiles\" and exit")
)

// run starts every component and blocks until ctx is done and the midi queue is drained.
// readyJingle returns a verification callback that starts the jingle once,
// a controller reset verifies again without replaying it.
func readyJingle(start func(string, func(context.Context) error), push func(midi.Event)) func() {
	return sync.OnceFunc(func() {
		start("ready jingle", func(ctx context.Context) error {
			return midi.ReadyJingle().Play(ctx, push, jingleBPM)
		})
	})
}

func run(ctx context.Context, cancel func(), cfg KeystationConfig, g *gocui.Gui, wg *sync.WaitGroup) error {
	p, err := velocity.Load(cfg.ProfilePath())
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("velocity profile: %s", p), logger.Info)
	tr := velocity.NewTranslator(p)

	err = velocity.Follow(ctx, cfg.ProfilePath(), tr)
	if err != nil {
		log.Info(fmt.Sprintf("velocity profile will not be reloaded: %s", err), logger.Warning)
	}

	var scfg supervisor.Config
	if cfg.Keybed.Device != "" {
		scfg, err = cfg.SupervisorConfig()
		if err != nil {
			return err
		}
	}

	out, err := openOutput(cfg.MIDI)
	if err != nil {
		return err
	}

	queue := utils.NewQueue[midi.Event]("midi", cfg.MIDI.QueueWarning)
	sink := midi.NewSink(out)
	status := &daemonStatus{sink: sink, queue: queue, tr: tr, output: out.Name()}

	var failed atomic.Bool
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		// the queue is closed only after every producer stopped, pending events still get out
		err := sink.Run(context.Background(), queue.Out())
		if err != nil {
			log.Info(err.Error(), logger.Error)
			failed.Store(true)
			cancel()
			drain(queue.Out())
		}
	}()

	var producers sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		producers.Add(1)
		go func() {
			defer producers.Done()
			err := fn(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Info(fmt.Sprintf("%s stopped: %s", name, err), logger.Error)
			failed.Store(true)
			cancel()
		}()
	}

	if cfg.Keybed.Device != "" {
		link := source.SerialLink(tty.Config{
			Device:      cfg.Keybed.Device,
			Baud:        cfg.Keybed.Baud,
			ReadTimeout: serialReadTimeout,
		})
		flasher := flash.NewAvrdude(flash.Config{
			Binary: cfg.Keybed.Flasher,
			Device: cfg.Keybed.Device,
			Baud:   cfg.Keybed.Baud,
			Image:  cfg.Keybed.FirmwareImage,
		})
		sup := supervisor.New(scfg, link, flasher)
		status.sup = sup

		if cfg.Daemon.ReadyJingle {
			// the keybed producer is still running here, adding to producers is safe
			sup.OnVerified(readyJingle(start, func(ev midi.Event) { queue.Push(ev) }))
		}
		start("keybed", source.NewKeybed(sup, tr, queue).Run)
	} else {
		log.Info("no keybed device configured", logger.Warning)
	}

	if cfg.PedalEnabled {
		pedal := source.NewPedal(cfg.Pedal, tr, queue)
		status.pedal = pedal
		start("pedal", pedal.Run)
	}

	if cfg.SimulatorEnabled {
		start("simulator", source.NewSimulator(cfg.Simulator, tr, queue).Run)
	}

	wg.Add(1)
	dd := GenerateDisplayData(ctx, wg, cfg.Screen, status.Snapshot)
	dd1, dd2 := FanOut(dd)

	if cfg.Screen.Enabled {
		wg.Add(1)
		go display.HandleDisplay(wg, cfg.Screen, dd1)
	} else {
		go drain(dd1)
	}

	if g != nil {
		go overviewView(ctx, g, !*nocolor, status.Snapshot)
		go lcdView(g, dd2)
	} else {
		go drain(dd2)
	}

	<-ctx.Done()
	producers.Wait()
	queue.Close()
	<-sinkDone

	log.Info(fmt.Sprintf("midi events sent: %d, dropped: %d", sink.Emitted(), sink.Dropped()), logger.Info)
	if failed.Load() {
		return errors.New("stopped after a failure")
	}
	return nil
}

func main() {
	flag.Parse()
	if *debug {
		*logLevel = logger.DebugLvl
	}
	if *force256 {
		os.Setenv("TERM", "xterm-256color")
	}

	if *list != "" {
		logger.Discard()
		err := listResources(*list)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// config problems are reported before any log consumer exists
	err := createConfigDirectoryIfNeeded(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config directory: %s\n", err)
		os.Exit(1)
	}
	cfg, err := LoadKeystationConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", configFile, err)
		os.Exit(1)
	}

	var g *gocui.Gui
	printed := make(chan struct{})
	switch {
	case *silent:
		close(printed)
		logger.Discard()
	case *ui:
		close(printed)
		g, err = runUI(ctx, cfg, cancel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ui: %s\n", err)
			os.Exit(1)
		}
		go logView(g, !*nocolor, *logLevel, cfg.Daemon.LogBufferSize, logger.Messages)
	default:
		go printLogs(printed, !*nocolor, *logLevel)
	}
	log.Info(fmt.Sprintf("keystation config: %+v", cfg), logger.Debug)

	// this wait-group has to be propagated everywhere where usual logging appear
	wg := sync.WaitGroup{}

	server := runProfileServer(&wg)

	wg.Add(1)
	go handleSigs(&wg, sigs, cancel)

	err = run(ctx, cancel, cfg, g, &wg)
	if err != nil {
		log.Info(err.Error(), logger.Error)
	}
	cancel()

	if server != nil {
		if err := server.Close(); err != nil {
			log.Info(fmt.Sprintf("failed to close server: %v", err), logger.Warning)
		}
	}
	signal.Stop(sigs)
	close(sigs)

	log.Info("waiting...", logger.Debug)
	// closing logger can be safely invoked only when all internally running goroutines (that may emit logs) are done
	wg.Wait()
	if g != nil {
		g.Close()
	}
	close(logger.Messages)
	<-printed

	if err != nil {
		os.Exit(1)
	}
}
