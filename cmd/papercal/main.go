package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papercal/internal/battery"
	"papercal/internal/config"
	"papercal/internal/epd"
	appLog "papercal/internal/log"
	"papercal/internal/prefs"
	"papercal/internal/transport"
	"papercal/internal/wake"
	"papercal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	renderOnly bool
	preview    bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("papercal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"calendars", len(conf.Calendars),
		"holidays", conf.HolidayURL != "",
		"refresh", conf.RefreshCron,
		"driver", conf.Display.Driver,
		"battery", conf.Display.Battery,
		"once", flags.once,
		"render_only", flags.renderOnly,
		"preview", flags.preview,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("papercal failed", err)
		os.Exit(1)
	}
	appLog.Info("papercal exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	rootCA, err := conf.RootCA()
	if err != nil {
		return err
	}
	feeds, err := transport.NewClient(rootCA)
	if err != nil {
		return err
	}
	store, err := prefs.Open(conf.PrefsPath)
	if err != nil {
		return err
	}

	gauge := battery.Open(conf.Display.Battery)
	srv := web.NewServer(conf, gauge)

	runner := &wake.Runner{
		Config:  conf,
		Prefs:   store,
		Feeds:   feeds,
		Battery: gauge,
		Publish: srv.Publish,
	}

	switch {
	case flags.preview:
		runner.Presenter = wake.TerminalPresenter{W: os.Stdout}
	default:
		p := &wake.PanelPresenter{
			CaptureURL:  conf.CaptureURL(),
			PreviewPath: conf.Display.PreviewPath,
		}
		if conf.Display.Driver == config.DriverEPD && !flags.renderOnly {
			drv, err := epd.Open()
			if err != nil {
				return err
			}
			defer drv.Close()
			p.Panel = drv
		}
		runner.Presenter = p
	}

	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- web.Serve(serveCtx, conf.Listen, srv.Handler())
	}()
	waitForListener(conf.Listen, 2*time.Second)

	// A manual start always resets the boot counter.
	if _, err := runner.Run(ctx, false); err != nil {
		appLog.Error("wake cycle failed", err)
		if flags.once {
			stopServe()
			<-serveErr
			return err
		}
	}

	if flags.once {
		stopServe()
		return ignoreClosed(<-serveErr)
	}

	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()
	schedErr := make(chan error, 1)
	go func() { schedErr <- runner.Schedule(schedCtx) }()

	select {
	case err := <-serveErr:
		stopSched()
		<-schedErr
		return ignoreClosed(err)
	case err := <-schedErr:
		stopServe()
		<-serveErr
		return err
	}
}

// waitForListener gives the local server a moment to bind before the first
// capture of /calendar.
func waitForListener(listen string, limit time.Duration) {
	_, port, err := net.SplitHostPort(listen)
	if err != nil {
		return
	}
	addr := net.JoinHostPort("127.0.0.1", port)
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	appLog.Warn("http listener not reachable", "addr", addr)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/papercal/config.yaml", "Path to config file (.yaml or legacy settings.txt)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one wake cycle and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Capture the preview only; do not touch display hardware")
	flag.BoolVar(&cfg.preview, "preview", false, "Print the month to the terminal instead of capturing it")

	flag.Parse()

	return cfg
}
