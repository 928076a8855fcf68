package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "hwbot/pkg/logx"
)

// sdNotify reports service state to systemd. Outside systemd (no
// NOTIFY_SOCKET) it is a no-op.
var sdNotify = func(state string) (bool, error) { return daemon.SdNotify(false, state) }

func notifySystemd(log logx.Logger, state string) {
	sent, err := sdNotify(state)
	if err != nil {
		log.Debug("systemd notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Trace("systemd notified", logx.String("state", state))
	}
}
