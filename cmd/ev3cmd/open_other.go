//go:build !linux

package main

import (
	"fmt"
	"runtime"

	"github.com/moffa90/go-ev3/transport"
)

func openDevice(device string) (transport.Transport, error) {
	return nil, fmt.Errorf("open %s: serial devices are not supported on %s, use --simulate", device, runtime.GOOS)
}
