package interceptor

import "github.com/firebuild-go/fbcore/internal/fbb"

// ReportDlopen reports a dlopen() request together with the loaded
// image's resolved absolute path, when available. A dlinfo failure after
// a successful dlopen is silently folded into "no path available" rather
// than surfaced to the application.
func (h *Hooks) ReportDlopen(name string, resolvedPath string, hasResolvedPath bool) error {
	b := fbb.NewBuilder(fbb.LaObjopen)
	b.SetString("name", name)
	if hasResolvedPath {
		b.SetString("resolved_path", resolvedPath)
	}
	return h.send(b)
}

// ReportObjsearch reports one dynamic-linker audit search step (la_objsearch),
// a finer-grained signal than la_objopen that the dlopen wrapper can emit
// for every candidate path the resolver tries before succeeding.
func (h *Hooks) ReportObjsearch(name string) error {
	b := fbb.NewBuilder(fbb.LaObjsearch)
	b.SetString("name", name)
	return h.send(b)
}
