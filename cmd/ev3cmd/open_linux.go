//go:build linux

package main

import (
	"github.com/moffa90/go-ev3/transport"
	"github.com/moffa90/go-ev3/transport/serial"
)

func openDevice(device string) (transport.Transport, error) {
	port, err := serial.Open(serial.Config{Device: device})
	if err != nil {
		return nil, err
	}
	return port, nil
}
