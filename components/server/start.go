package server

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/xiaonanln/mapworld/engine/binutil"
	"github.com/xiaonanln/mapworld/engine/config"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/gwutils"
	"github.com/xiaonanln/mapworld/engine/storage"
)

var (
	args struct {
		configFile      string
		logLevel        string
		runInDaemonMode bool
	}
	signalChan = make(chan os.Signal, 1)
)

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.Parse()
}

// Start fires up the map server and blocks until it is terminated by SIGINT or SIGTERM
func Start() {
	parseArgs()

	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize()
		defer daemoncontext.Release()
	}

	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}

	serverConfig := config.GetServer()
	if serverConfig.GoMaxProcs > 0 {
		gwlog.Infof("SET GOMAXPROCS = %d", serverConfig.GoMaxProcs)
		runtime.GOMAXPROCS(serverConfig.GoMaxProcs)
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = serverConfig.LogLevel
	}
	binutil.SetupGWLog("mapworld", logLevel, serverConfig.LogFile, serverConfig.LogStderr)
	gwlog.Infof("Read config file %s:\n%s", config.GetConfigFilePath(), config.DumpPretty(config.Get()))

	store, err := storage.Open(config.GetStorage())
	if err != nil {
		gwlog.Fatalf("open storage failed: %+v", err)
	}

	mapServer, err := NewMapServer(serverConfig, store)
	if err != nil {
		gwlog.Fatalf("start map server failed: %+v", err)
	}

	httpServer, err := binutil.SetupHTTPServer(serverConfig.ListenAddr(), serverConfig.WSPath, mapServer.handleWebSocketConn)
	if err != nil {
		gwlog.Fatalf("start map server failed: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if serverConfig.StatusInterval > 0 {
		go gwutils.RepeatUntilPanicless(ctx, func() {
			mapServer.statusRoutine(ctx, serverConfig.StatusInterval)
		})
	}
	setupSignals(mapServer)
	gwlog.Infof("%s is ready.", mapServer)

	mapServer.terminated.Wait()
	cancel()
	httpServer.Close()
	store.Close()
	gwlog.Infof("%s terminated gracefully.", mapServer)
}

func setupSignals(mapServer *MapServer) {
	gwlog.Infof("Setup signals ...")
	signal.Ignore(syscall.SIGPIPE, syscall.SIGHUP)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			sig := <-signalChan
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				gwlog.Infof("Terminating map server ...")
				mapServer.terminate()
				return
			}
			gwlog.Errorf("unexpected signal: %s", sig)
		}
	}()
}
