package build

import (
	"regexp"
	"strings"
)

var (
	// [INFO] --- maven-surefire-plugin:3.1.2:test (default-test) @ git ---
	stepMarker   = regexp.MustCompile(`^\[INFO\] --- (.+?):(.+?):(.+?) \((.+?)\) @ (.+?) ---\s*$`)
	buildSuccess = regexp.MustCompile(`^\[INFO\] BUILD SUCCESS\s*$`)
	testsBanner  = regexp.MustCompile(`^(?:\[INFO\])?\s*T E S T S\s*$`)
	runningTest  = regexp.MustCompile(`^(?:\[INFO\] )?Running (\S+)\s*$`)
)

// housekeepingTests are generated by the test harness and never reported.
var housekeepingTests = map[string]bool{"InjectedTest": true}

// Classifier interprets build tool output one line at a time. A step is only
// confirmed once a later step starts or the build reports success, so the
// step that was open when the process died is never counted. Every
// confirmation is kept, so a tool running several goals appears once per goal.
type Classifier struct {
	succeeded []string
	open      string
	inTests   bool
	tests     []string
	testSeen  map[string]bool
}

func NewClassifier() *Classifier {
	return &Classifier{testSeen: make(map[string]bool)}
}

// Feed consumes one line of output without its terminator.
func (c *Classifier) Feed(line string) {
	line = strings.TrimRight(line, "\r\n")

	if m := stepMarker.FindStringSubmatch(line); m != nil {
		c.confirm()
		c.open = m[1]
		return
	}
	if buildSuccess.MatchString(line) {
		c.confirm()
		return
	}
	if testsBanner.MatchString(line) {
		c.inTests = true
		return
	}
	if !c.inTests {
		return
	}
	if m := runningTest.FindStringSubmatch(line); m != nil {
		id := m[1]
		if housekeepingTests[simpleName(id)] || c.testSeen[id] {
			return
		}
		c.testSeen[id] = true
		c.tests = append(c.tests, id)
	}
}

func (c *Classifier) confirm() {
	if c.open == "" {
		return
	}
	c.succeeded = append(c.succeeded, c.open)
	c.open = ""
}

// SucceededSteps returns the confirmed steps in order.
func (c *Classifier) SucceededSteps() []string {
	out := make([]string, len(c.succeeded))
	copy(out, c.succeeded)
	return out
}

// OpenStep returns the step that started but was never confirmed.
func (c *Classifier) OpenStep() string {
	return c.open
}

// SawTests reports whether the test banner appeared.
func (c *Classifier) SawTests() bool {
	return c.inTests
}

// ExecutedTests returns the test identifiers announced while tests ran.
func (c *Classifier) ExecutedTests() []string {
	out := make([]string, len(c.tests))
	copy(out, c.tests)
	return out
}

func simpleName(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}
