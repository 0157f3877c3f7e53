package wire

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"syscall"
)

// socketControl returns a net.ListenConfig control function that enables
// SO_REUSEADDR, and SO_REUSEPORT when reusePort is set.
func socketControl(log *zap.Logger, reusePort bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if opErr != nil || !reusePort {
				return
			}
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		})
		if err != nil {
			log.Error("Error accessing raw socket", zap.String("address", address), zap.Error(err))
			return err
		}
		if opErr != nil {
			log.Error("Error applying socket options", zap.String("address", address), zap.Error(opErr))
		}
		return opErr
	}
}
