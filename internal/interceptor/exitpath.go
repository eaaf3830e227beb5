package interceptor

import "github.com/firebuild-go/fbcore/internal/fbb"

// HandleExit is the single choke point every exit-family libc entry
// point (exit, _exit, _Exit, quick_exit, exit_group, err/errx, non-zero
// error/error_at_line) routes through: send exit(status, utime, stime)
// with ack before the underlying libc routine actually terminates the
// process.
func (h *Hooks) HandleExit(status int, utimeUs, stimeUs int64) error {
	b := fbb.NewBuilder(fbb.Exit)
	b.SetInt("status", int64(status))
	b.SetInt("utime_us", utimeUs)
	b.SetInt("stime_us", stimeUs)
	_, err := h.sendAcked(b)
	return err
}
