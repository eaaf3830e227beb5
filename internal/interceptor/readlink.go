package interceptor

import "github.com/firebuild-go/fbcore/internal/fbb"

// ReportReadlink forwards a readlink*() call's resolved target, truncated
// to the length the kernel actually wrote into the caller's buffer. The
// message set has no dedicated readlink variant, so this reuses
// fb_debug's single string field the way gen_call reuses its own single
// string field for other by-name-only reports.
func (h *Hooks) ReportReadlink(target string) error {
	b := fbb.NewBuilder(fbb.FbDebug)
	b.SetString("message", "readlink: "+target)
	return h.send(b)
}
