// Copyright 2026 The OpenGalaxy Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

package uart

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// serialRS485 mirrors struct serial_rs485 from linux/serial.h.
type serialRS485 struct {
	flags              uint32
	delayRTSBeforeSend uint32
	delayRTSAfterSend  uint32
	padding            [5]uint32
}

const (
	rs485Enabled   = 1 << 0 // SER_RS485_ENABLED
	rs485RTSOnSend = 1 << 1 // SER_RS485_RTS_ON_SEND
)

// configureKernelRS485 asks the tty driver to key the transceiver
// itself, raising RTS around each transmit. The setting sticks to the
// device node, so it is applied before the port is opened for traffic.
// Only UARTs with RS485 support in their driver accept the ioctl.
func configureKernelRS485(portName string) error {
	fd, err := unix.Open(portName, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s for RS485 setup: %w", portName, err)
	}
	defer unix.Close(fd)

	cfg := serialRS485{flags: rs485Enabled | rs485RTSOnSend}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.TIOCSRS485, uintptr(unsafe.Pointer(&cfg)))
	if errno != 0 {
		return fmt.Errorf("failed to enable RS485 mode on %s: %w", portName, errno)
	}

	return nil
}
