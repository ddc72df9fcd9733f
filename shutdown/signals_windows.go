//go:build windows

package shutdown

import (
	"os"
	"syscall"
)

// Windows only delivers interrupt (Ctrl+C) and a console-close SIGTERM.
var signalNames = map[string]os.Signal{
	"INT":  os.Interrupt,
	"TERM": syscall.SIGTERM,
	"QUIT": syscall.SIGQUIT,
	"HUP":  syscall.SIGHUP,
}

func defaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
