package fbb

// StringArrayCallback returns the string at idx and whether idx is valid.
// It is the Go analogue of the upstream "callback" string input format:
// the builder never requires the caller to have materialized a []string
// ahead of time.
type StringArrayCallback func(idx int) (value string, ok bool)

// stringArraySource is the tagged union of ways a builder can be told about
// a string array. Go's slice type already carries a length and already
// avoids the copy a raw char** or (ptr,len) pair exists to avoid in C, so
// the upstream's ARRAY and CSTRING_VIEW_ARRAY/CXX_STRING_ARRAY input
// formats collapse to a single "slice" source here; only the callback
// source is kept distinct, since it is the one format that defers
// producing each string until asked.
type stringArraySource struct {
	slice    []string
	callback StringArrayCallback
	count    int
}

func sourceFromSlice(values []string) stringArraySource {
	return stringArraySource{slice: values, count: len(values)}
}

func sourceFromCallback(count int, cb StringArrayCallback) stringArraySource {
	return stringArraySource{callback: cb, count: count}
}

func (s stringArraySource) len() int {
	return s.count
}

func (s stringArraySource) at(idx int) string {
	if s.callback != nil {
		v, ok := s.callback(idx)
		if !ok {
			return ""
		}
		return v
	}
	if idx < 0 || idx >= len(s.slice) {
		return ""
	}
	return s.slice[idx]
}

// MessageArrayCallback returns the builder at idx and whether idx is valid.
type MessageArrayCallback func(idx int) (value *Builder, ok bool)

type messageArraySource struct {
	slice    []*Builder
	callback MessageArrayCallback
	count    int
}

func messageSourceFromSlice(values []*Builder) messageArraySource {
	return messageArraySource{slice: values, count: len(values)}
}

func messageSourceFromCallback(count int, cb MessageArrayCallback) messageArraySource {
	return messageArraySource{callback: cb, count: count}
}

func (s messageArraySource) len() int {
	return s.count
}

func (s messageArraySource) at(idx int) *Builder {
	if s.callback != nil {
		v, ok := s.callback(idx)
		if !ok {
			return nil
		}
		return v
	}
	if idx < 0 || idx >= len(s.slice) {
		return nil
	}
	return s.slice[idx]
}
