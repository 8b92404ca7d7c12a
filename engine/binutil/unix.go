// +build !windows

package binutil

import (
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/xiaonanln/mapworld/engine/gwlog"
)

// Daemonize runs the server in background. The parent process exits here.
func Daemonize() *daemon.Context {
	context := new(daemon.Context)
	child, err := context.Reborn()

	if err != nil {
		// daemonize failed
		gwlog.Panicf("daemonize failed: %v", err)
	}

	if child != nil {
		gwlog.Infof("mapworld started in daemon mode: pid=%d", child.Pid)
		os.Exit(0)
		return nil
	}
	return context
}
