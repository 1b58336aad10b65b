// internal/tracker/here.go
package tracker

import "runtime"

// MarkHere marks the caller's source location, using the file name
// without its directory.
func (t *Tracker) MarkHere() {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		t.Mark(0, "")
		return
	}
	t.Mark(int32(line), ShortFile(file))
}

// ShortFile strips everything up to the last '/' or '\'.
// The result shares memory with path.
func ShortFile(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
