package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mastercactapus/alevel/autolevel"
	"github.com/mastercactapus/alevel/logger"
	"github.com/mastercactapus/alevel/machine"
	"github.com/mastercactapus/alevel/machine/grbl"
	"github.com/mastercactapus/alevel/spjs"
	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
	"go.uber.org/zap"
)

func listPorts(w io.Writer) error {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

func openAdapter(cfg Config, log *zap.Logger) (machine.Adapter, io.Closer, error) {
	if cfg.Controller != "grbl" {
		return nil, nil, fmt.Errorf("only 'grbl' controller supported, got %q", cfg.Controller)
	}
	if cfg.SPJS != "" {
		sp := spjs.NewSPJS(cfg.SPJS, log.Named("spjs"))
		return grbl.NewSPJSAdapter(sp, cfg.Port, cfg.Baud, log.Named("grbl")), sp, nil
	}

	port, err := tarm.OpenPort(&tarm.Config{Name: cfg.Port, Baud: cfg.Baud})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	adapter := grbl.NewSerialAdapter(port, log.Named("grbl"))
	return adapter, adapter, nil
}

func loadSession(ctrl *autolevel.Controller, path string, log *zap.Logger) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		log.Warn("open probe file", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()
	n, err := ctrl.LoadSession(f)
	if err != nil {
		log.Warn("read probe file", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("previous probe points loaded", zap.String("path", path), zap.Int("points", n))
}

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.ListPorts {
		if err := listPorts(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "list ports:", err)
			os.Exit(1)
		}
		return
	}

	log, err := logger.New(cfg.Log.logger())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	defer zap.RedirectStdLog(log)()

	for _, key := range cfg.Unknown {
		log.Warn("unknown config key", zap.String("key", key))
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		log.Fatal("data directory", zap.Error(err))
	}
	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
			log.Fatal("output directory", zap.Error(err))
		}
	}

	adapter, closer, err := openAdapter(cfg, log)
	if err != nil {
		log.Fatal("open machine", zap.Error(err))
	}
	m := machine.NewMachine(adapter)

	ev := newEvents(log)
	ch := newChannel(m, ev, log.Named("channel"))

	probeFile := ""
	if cfg.ProbeFile != "" {
		probeFile = filepath.Join(cfg.Dir, cfg.ProbeFile)
	}
	ctrl := autolevel.NewController(autolevel.Config{
		Channel:   ch,
		Defaults:  cfg.Autolevel.options(),
		ProbeFile: probeFile,
		OutDir:    cfg.OutDir,
		Logger:    log.Named("autolevel"),
	})
	if probeFile != "" {
		loadSession(ctrl, probeFile, log)
	}

	go func() {
		for st := range adapter.State() {
			ctrl.UpdateState(st.WCO)
			ev.state(st)
		}
	}()
	go func() {
		for data := range adapter.Feedback() {
			ctrl.HandleData(data)
		}
		log.Warn("machine feedback closed")
	}()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: newAPI(m, ch, ctrl, ev, cfg.Dir, log.Named("api")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ev.Close()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", cfg.Addr), zap.String("port", cfg.Port), zap.String("spjs", cfg.SPJS))
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve", zap.Error(err))
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			log.Warn("close machine", zap.Error(err))
		}
	}
}
