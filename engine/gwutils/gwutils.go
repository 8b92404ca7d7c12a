package gwutils

import (
	"context"

	"github.com/xiaonanln/mapworld/engine/gwlog"
)

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			gwlog.TraceError("%p panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// RepeatUntilPanicless runs the function repeatly until there is no panic or ctx is done
func RepeatUntilPanicless(ctx context.Context, f func()) {
	for RunPanicless(f) {
		if ctx.Err() != nil {
			gwlog.Warnf("%p: stop repeating: %s", f, ctx.Err())
			return
		}
	}
}
