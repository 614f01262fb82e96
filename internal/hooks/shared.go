package hooks

// SharedCheckouts records repositories already checked out during a run, so
// plugins built from the same multi-module repository share one checkout.
// The first plugin of a group performs the checkout.
type SharedCheckouts struct {
	dirs map[string]string
}

func NewSharedCheckouts() *SharedCheckouts {
	return &SharedCheckouts{dirs: make(map[string]string)}
}

func sharedKey(url, ref string) string {
	return url + "@" + ref
}

// Lookup returns the directory of an existing checkout of url at ref.
func (s *SharedCheckouts) Lookup(url, ref string) (string, bool) {
	dir, ok := s.dirs[sharedKey(url, ref)]
	return dir, ok
}

// Record remembers a completed checkout.
func (s *SharedCheckouts) Record(url, ref, dir string) {
	s.dirs[sharedKey(url, ref)] = dir
}

// Len returns the number of recorded checkouts.
func (s *SharedCheckouts) Len() int {
	return len(s.dirs)
}
