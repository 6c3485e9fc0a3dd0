package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rook-computer/fontcompare/internal/app"
	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/pointer"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/state"
	"github.com/rook-computer/fontcompare/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	EnvDevicePixelRatio = "FONTCOMPARE_DPR"
	EnvFramebuffer      = "FONTCOMPARE_FB"
	EnvStdioLog         = "FONTCOMPARE_STDIO_LOG"

	debugLogPath = "./fontcompare-debug.log"
)

type deviceOptions struct {
	debug     bool
	stdioLog  string
	listen    string
	dev       bool
	dpr       float64
	fbDevice  string
	headless  bool
	noEvdev   bool
	staticDir string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := deviceOptions{}
	root := &cobra.Command{
		Use:          "fontcompare",
		Short:        "Overlay two fonts on a shared baseline and pan the comparison",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnvDefaults(cmd, &opts); err != nil {
				return err
			}
			return runDevice(cmd.Context(), opts)
		},
	}

	flags := root.Flags()
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging, also appended to "+debugLogPath)
	flags.StringVar(&opts.stdioLog, "stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+EnvStdioLog)
	flags.StringVar(&opts.listen, "listen", ":80", "http listen address; also configurable via "+web.EnvListenAddr)
	flags.BoolVar(&opts.dev, "dev", false, "enable dev mode (permissive CORS); also configurable via "+web.EnvDevMode)
	flags.Float64Var(&opts.dpr, "dpr", 1, "device pixel ratio of the comparison surface; also configurable via "+EnvDevicePixelRatio)
	flags.StringVar(&opts.fbDevice, "fb", "/dev/fb0", "framebuffer device; also configurable via "+EnvFramebuffer)
	flags.BoolVar(&opts.headless, "headless", false, "do not drive the framebuffer; the comparison is only reachable over HTTP")
	flags.BoolVar(&opts.noEvdev, "no-evdev", false, "do not read mouse and keyboard input from /dev/input")
	flags.StringVar(&opts.staticDir, "static-dir", "", "serve static UI from this directory; when empty, the embedded web UI is served")

	root.AddCommand(newRenderCommand())
	return root
}

// loadDotEnv loads ./.env when present. Variables already set win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// applyEnvDefaults fills every flag the user did not set from the environment.
func applyEnvDefaults(cmd *cobra.Command, opts *deviceOptions) error {
	flags := cmd.Flags()
	if !flags.Changed("stdio-log") {
		opts.stdioLog = os.Getenv(EnvStdioLog)
	}
	if !flags.Changed("fb") {
		if v := os.Getenv(EnvFramebuffer); v != "" {
			opts.fbDevice = v
		}
	}
	if !flags.Changed("dpr") {
		if v := os.Getenv(EnvDevicePixelRatio); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed <= 0 {
				return fmt.Errorf("%s must be a positive number (got %q)", EnvDevicePixelRatio, v)
			}
			opts.dpr = parsed
		}
	}
	serverDefaults, err := web.DefaultServerConfigFromEnv(opts.listen)
	if err != nil {
		return err
	}
	if !flags.Changed("listen") {
		opts.listen = serverDefaults.ListenAddr
	}
	if !flags.Changed("dev") {
		opts.dev = serverDefaults.DevMode
	}
	return nil
}

func setupLogging(debug bool) (zerolog.Logger, func()) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var extra []io.Writer
	closeFn := func() {}
	if debug {
		f, err := os.OpenFile(debugLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			extra = append(extra, f)
			closeFn = func() { _ = f.Close() }
		} else {
			fmt.Println("debug log open error:", err)
		}
	}
	logger := app.NewConsoleLogger(os.Stdout, level, extra...)
	log.Logger = logger
	return logger, closeFn
}

func runDevice(parent context.Context, opts deviceOptions) error {
	// Best-effort: keep crash output even when the console is in graphics mode.
	if opts.stdioLog != "" {
		if err := redirectStdIO(opts.stdioLog); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	zl, closeLog := setupLogging(opts.debug)
	defer closeLog()
	logger := app.NewZerologLogger(zl)
	logger.Infof("main", "fontcompare starting")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := state.NewStore()
	registry := fonts.NewRegistry()
	renderer := render.NewComparisonRenderer(registry, fonts.FallbackFamily, opts.dpr)
	source := pointer.NewChannelSource(256)

	var presenter render.Presenter = &render.HeadlessPresenter{}
	if !opts.headless {
		presenter = render.NewFBPresenter(opts.fbDevice)
	}

	a := app.New(store, registry, renderer, presenter, source)
	a.Logger = logger
	a.Metrics = app.NewMetrics(reg)
	a.Debug = opts.debug
	a.QRPayload = controlURL(opts.listen)

	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: opts.listen, DevMode: opts.dev})
	server.Logger = zl
	server.StaticDir = opts.staticDir
	server.Handler = web.NewDefaultMux(opts.staticDir, web.APIV1Config{
		Deps: web.APIV1Deps{
			Config:    store,
			Fonts:     a,
			Pointer:   source,
			View:      a,
			QRPayload: a.QRPayload,
		},
		Metrics: reg,
	})

	if !opts.noEvdev {
		pointer.StartEvdev(ctx, logger, source, func() { a.Exit(nil) })
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return err
		}
		logger.Infof("web", "listening on %s", server.Addr)
		<-gctx.Done()
		return server.Stop()
	})
	g.Go(func() error {
		// The app returning for any reason ends the process.
		defer cancel()
		err := a.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	if err != nil {
		logger.Errorf("main", "exit: %v", err)
	} else {
		logger.Infof("main", "bye")
	}
	return err
}

// controlURL guesses the URL phones should open to reach the web UI.
func controlURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = firstLANAddress()
	}
	if host == "" {
		return ""
	}
	if port == "80" {
		return "http://" + host + "/"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func firstLANAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
