// Package systemd implements the sd_notify protocol for Type=notify units
package systemd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/LeoCommon/locsim/pkg/log"
	"go.uber.org/zap"
)

var ErrNoNotifySocket = errors.New("systemd-notify socket was not available")

// EntertainWatchdog sends a notification to the systemd watchdog
func EntertainWatchdog() error {
	log.Debug("Notifying systemd watchdog")
	return Notify(NotifyWatchdog)
}

// Status publishes a free form status line, shown by systemctl status
func Status(status string) error {
	return Notify(fmt.Sprintf(NotifyStatusFmtPattern, status))
}

// Notify sends the provided msg to the systemd socket
func Notify(msg string) error {
	name := os.Getenv(NotifySocketEnvVar)
	if name == "" {
		return ErrNoNotifySocket
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: name})
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(msg))
	return err
}

// WatchdogInterval returns half of the configured watchdog timeout, ok is
// false if the watchdog is not enabled for this process
func WatchdogInterval() (time.Duration, bool) {
	usec, err := strconv.ParseInt(os.Getenv(WatchdogUsecEnvVar), 10, 64)
	if err != nil || usec <= 0 {
		return 0, false
	}

	if pid := os.Getenv(WatchdogPidEnvVar); pid != "" && pid != strconv.Itoa(os.Getpid()) {
		log.Debug("watchdog belongs to another process", zap.String("pid", pid))
		return 0, false
	}

	return time.Duration(usec) * time.Microsecond / 2, true
}
