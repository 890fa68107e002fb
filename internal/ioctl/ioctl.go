//go:build linux

// Package ioctl issues device control system calls.
package ioctl

import (
	"fmt"
	"os"
	"syscall"
)

// Mode is the IOCTL mode.
type Mode uint8

// Modes
const (
	None Mode = iota
	Write
	Read
)

// Command to be sent over ioctl.
type Command uintptr

func (c Command) String() string {
	var (
		mode = Mode(c >> 30 & 0x03)
		size = c >> 16 & 0x3fff
		cmd  = c & 0xffff
		str  string
	)
	if mode&Write > 0 {
		str += " write"
	}
	if mode&Read > 0 {
		str += " read"
	}
	return fmt.Sprintf("ioctl%s (%d bytes) 0x%04x", str, size, uintptr(cmd))
}

// Call does a plain ioctl system call, arg is passed as is.
func Call(fd uintptr, command Command, arg uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, uintptr(command), arg)
	if errno != 0 {
		return &os.SyscallError{Syscall: command.String(), Err: errno}
	}
	return nil
}
