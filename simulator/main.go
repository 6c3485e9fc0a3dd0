package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rook-computer/fontcompare/internal/app"
	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/pointer"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/state"
	"github.com/rook-computer/fontcompare/internal/web"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type simOptions struct {
	listen    string
	dev       bool
	staticDir string
	viewWidth float64
	dpr       float64
	debug     bool
}

func main() {
	if err := newSimCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newSimCommand() *cobra.Command {
	opts := simOptions{}
	cmd := &cobra.Command{
		Use:          "fontcompare-sim",
		Short:        "Run fontcompare headless with simulator controls under /sim/",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := web.DefaultServerConfigFromEnv(":8080")
			if err != nil {
				return fmt.Errorf("server config error: %w", err)
			}
			if !cmd.Flags().Changed("listen") {
				opts.listen = defaults.ListenAddr
			}
			if !cmd.Flags().Changed("dev") {
				opts.dev = defaults.DevMode
			}
			return runSimulator(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.listen, "listen", ":8080", "http listen address; also configurable via "+web.EnvListenAddr)
	flags.BoolVar(&opts.dev, "dev", false, "enable dev mode; also configurable via "+web.EnvDevMode)
	flags.StringVar(&opts.staticDir, "static-dir", "", "serve static UI from this directory (optional); when empty, embedded web UI assets are served")
	flags.Float64Var(&opts.viewWidth, "view-width", 800, "logical width of the simulated viewport")
	flags.Float64Var(&opts.dpr, "dpr", 1, "device pixel ratio of the comparison surface")
	flags.BoolVar(&opts.debug, "debug", false, "log every request")
	return cmd
}

func runSimulator(parent context.Context, opts simOptions) error {
	level := zerolog.InfoLevel
	if opts.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zl := app.NewConsoleLogger(os.Stdout, level)
	logger := app.NewZerologLogger(zl)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	store := state.NewStore()
	registry := fonts.NewRegistry()
	source := pointer.NewChannelSource(256)
	renderer := render.NewComparisonRenderer(registry, fonts.FallbackFamily, opts.dpr)

	a := app.New(store, registry, renderer, &render.HeadlessPresenter{Width: opts.viewWidth}, source)
	a.Logger = logger
	a.Metrics = app.NewMetrics(reg)

	control := NewSimControl(a, store, source)
	renderer.Fonts = control.WrapFonts(registry)

	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: opts.listen, DevMode: opts.dev})
	server.Logger = zl
	server.StaticDir = opts.staticDir
	server.Handler = web.NewDefaultMux(server.StaticDir, web.APIV1Config{
		Deps: web.APIV1Deps{
			Config:  store,
			Fonts:   a,
			Pointer: source,
			View:    a,
		},
		Metrics: reg,
	})
	registerSimEndpoints(server.Handler, control)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return err
		}
		fmt.Println("FontCompare simulator listening on", server.Addr)
		fmt.Println("API: http://" + displayAddr(server.Addr) + "/api/v1/")
		<-gctx.Done()
		return server.Stop()
	})
	g.Go(func() error {
		err := a.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func displayAddr(addr string) string {
	// Best-effort for display; don't attempt full URL parsing here.
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "127.0.0.1:8080"
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
