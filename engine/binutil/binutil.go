package binutil

import (
	"io"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"golang.org/x/net/websocket"
)

// SetupHTTPServer starts the HTTP server for websockets at wsPath and go tool pprof.
// The listener is opened before returning so address errors are reported to the caller.
func SetupHTTPServer(addr string, wsPath string, wsHandler func(ws *websocket.Conn)) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s failed", addr)
	}

	httpHost := ln.Addr().String()
	gwlog.Infof("http server listening on %s, websocket path %s", httpHost, wsPath)
	gwlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/heap", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/profile", httpHost)

	mux := http.NewServeMux()
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	mux.Handle(wsPath, websocket.Handler(wsHandler))

	server := &http.Server{Addr: httpHost, Handler: mux}
	go func() {
		err := server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			gwlog.Errorf("http server stopped: %s", err)
		}
	}()
	return server, nil
}

// SetupGWLog setup the log system
func SetupGWLog(component string, logLevel string, logFile string, logStderr bool) {
	gwlog.SetSource(component)
	gwlog.Infof("Set log level to %s", logLevel)
	gwlog.SetLevel(gwlog.StringToLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		var logFileWriter io.Writer
		logFileWriter = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 100,
			MaxAge:     30, //days
			Compress:   true,
		}

		logFileWriter.(*lumberjack.Logger).Rotate() // rotate immediately
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr || len(outputWriters) == 0 {
		outputWriters = append(outputWriters, os.Stderr)
	}

	if len(outputWriters) == 1 {
		gwlog.SetOutput(outputWriters[0])
	} else {
		gwlog.SetOutput(io.MultiWriter(outputWriters...))
	}
}
