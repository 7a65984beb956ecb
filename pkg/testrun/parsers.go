package testrun

import (
	"regexp"
	"strings"
	"sync"
)

// OutputParser inspects combined test output. passed is false on any failure marker;
// recognized is false when the output carries no marker the parser understands.
type OutputParser func(output string) (passed, recognized bool, failed []string)

//nolint:gochecknoglobals // parser registry, extended through RegisterParser
var (
	parsers = map[string]OutputParser{
		"go":         parseGoOutput,
		"pytest":     parsePytestOutput,
		"unittest":   parseUnittestOutput,
		"jest":       parseJestOutput,
		"mocha":      parseMochaOutput,
		"cargo":      parseCargoOutput,
		"flutter":    parseFlutterOutput,
		"playwright": parsePlaywrightOutput,
		"cypress":    parseCypressOutput,
	}
	parsersMu sync.RWMutex
)

// ParserFor returns the parser registered under name.
func ParserFor(name string) (OutputParser, bool) {
	parsersMu.RLock()
	defer parsersMu.RUnlock()
	p, ok := parsers[name]
	return p, ok
}

// RegisterParser adds or replaces a parser.
func RegisterParser(name string, p OutputParser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parsers[name] = p
}

func lines(output string) []string {
	out := strings.Split(output, "\n")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

var (
	goFailTest    = regexp.MustCompile(`^--- FAIL: (\S+)`)
	goFailPackage = regexp.MustCompile(`^FAIL(\s+|$)`)
	goOKPackage   = regexp.MustCompile(`^(ok\s+|PASS$)`)
	goPanic       = regexp.MustCompile(`^panic:`)
	goBuildFailed = regexp.MustCompile(`\[build failed\]|\[setup failed\]`)
)

func parseGoOutput(output string) (bool, bool, []string) {
	var failed []string
	failure, recognized := false, false
	for _, line := range lines(output) {
		if m := goFailTest.FindStringSubmatch(line); m != nil {
			failed = append(failed, m[1])
			failure = true
		}
		if goFailPackage.MatchString(line) || goPanic.MatchString(line) || goBuildFailed.MatchString(line) {
			failure = true
		}
		if goOKPackage.MatchString(line) {
			recognized = true
		}
	}
	return !failure, recognized || failure, failed
}

var (
	pytestFailedName = regexp.MustCompile(`^(FAILED|ERROR)\s+(\S+)`)
	pytestFailed     = regexp.MustCompile(`\b(\d+) (failed|errors?)\b`)
	pytestPassed     = regexp.MustCompile(`\b(\d+) passed\b`)
	pytestNoTests    = regexp.MustCompile(`no tests ran`)
)

func parsePytestOutput(output string) (bool, bool, []string) {
	var failed []string
	failure, recognized := false, false
	for _, line := range lines(output) {
		if m := pytestFailedName.FindStringSubmatch(line); m != nil {
			failed = append(failed, m[2])
			failure = true
		}
		if pytestFailed.MatchString(line) {
			failure = true
		}
		if pytestPassed.MatchString(line) {
			recognized = true
		}
		if pytestNoTests.MatchString(line) {
			failure = true
		}
	}
	return !failure, recognized || failure, failed
}

var (
	unittestFailedName = regexp.MustCompile(`^(FAIL|ERROR): (\S+)`)
	unittestFailed     = regexp.MustCompile(`^FAILED \(`)
	unittestOK         = regexp.MustCompile(`^OK\b`)
)

func parseUnittestOutput(output string) (bool, bool, []string) {
	var failed []string
	failure, recognized := false, false
	for _, line := range lines(output) {
		if m := unittestFailedName.FindStringSubmatch(line); m != nil {
			failed = append(failed, m[2])
			failure = true
		}
		if unittestFailed.MatchString(line) {
			failure = true
		}
		if unittestOK.MatchString(line) {
			recognized = true
		}
	}
	return !failure, recognized || failure, failed
}

var (
	jestFailMarker = regexp.MustCompile(`^(FAIL\s|✕|×|✗)`)
	jestFailName   = regexp.MustCompile(`^(?:✕|×|✗)\s+(.+?)(?:\s+\(\d+\s*m?s\))?$`)
	jestFailed     = regexp.MustCompile(`^Tests:?\s+(\d+)\s+failed`)
	jestPassed     = regexp.MustCompile(`^Tests:?\s+(\d+)\s+passed`)
	jestPassFile   = regexp.MustCompile(`^(PASS|✓)\s`)
)

// parseJestOutput also handles vitest, whose summary omits the colon after "Tests".
func parseJestOutput(output string) (bool, bool, []string) {
	var failed []string
	failure, recognized := false, false
	for _, line := range lines(output) {
		if m := jestFailName.FindStringSubmatch(line); m != nil {
			failed = append(failed, strings.TrimSpace(m[1]))
		}
		if jestFailMarker.MatchString(line) || jestFailed.MatchString(line) {
			failure = true
		}
		if jestPassed.MatchString(line) || jestPassFile.MatchString(line) {
			recognized = true
		}
	}
	return !failure, recognized || failure, failed
}

var (
	mochaFailing = regexp.MustCompile(`^(\d+) failing`)
	mochaPassing = regexp.MustCompile(`^(\d+) passing`)
	mochaFailed  = regexp.MustCompile(`^\d+\) (.+)$`)
)

func parseMochaOutput(output string) (bool, bool, []string) {
	var failed []string
	failure, recognized := false, false
	for _, line := range lines(output) {
		if mochaFailing.MatchString(line) {
			failure = true
		}
		if failure {
			if m := mochaFailed.FindStringSubmatch(line); m != nil {
				failed = append(failed, m[1])
			}
		}
		if mochaPassing.MatchString(line) {
			recognized = true
		}
	}
	return !failure, recognized || failure, failed
}

var (
	cargoFailedTest = regexp.MustCompile(`^test (\S+) \.\.\. FAILED`)
	cargoResult     = regexp.MustCompile(`^test result: (ok|FAILED)`)
	cargoCompile    = regexp.MustCompile(`^error(\[E\d+\])?:`)
)

func parseCargoOutput(output string) (bool, bool, []string) {
	var failed []string
	failure, recognized := false, false
	for _, line := range lines(output) {
		if m := cargoFailedTest.FindStringSubmatch(line); m != nil {
			failed = append(failed, m[1])
			failure = true
		}
		if m := cargoResult.FindStringSubmatch(line); m != nil {
			recognized = true
			if m[1] == "FAILED" {
				failure = true
			}
		}
		if cargoCompile.MatchString(line) {
			failure = true
		}
	}
	return !failure, recognized || failure, failed
}

var (
	flutterFailed    = regexp.MustCompile(`Some tests failed|\[E\]$|-\d+: Some tests failed`)
	flutterPassed    = regexp.MustCompile(`All tests passed!`)
	flutterLoadError = regexp.MustCompile(`loading .+ \[E\]|Failed to load`)
)

func parseFlutterOutput(output string) (bool, bool, []string) {
	failure, recognized := false, false
	for _, line := range lines(output) {
		if flutterFailed.MatchString(line) || flutterLoadError.MatchString(line) {
			failure = true
		}
		if flutterPassed.MatchString(line) {
			recognized = true
		}
	}
	return !failure, recognized || failure, nil
}

var (
	playwrightFailed     = regexp.MustCompile(`^(\d+) failed`)
	playwrightPassed     = regexp.MustCompile(`^(\d+) passed`)
	playwrightFailedName = regexp.MustCompile(`^\[\w+\] › (.+)$`)
)

func parsePlaywrightOutput(output string) (bool, bool, []string) {
	var failed []string
	failure, recognized := false, false
	for _, line := range lines(output) {
		if playwrightFailed.MatchString(line) {
			failure = true
		}
		if failure {
			if m := playwrightFailedName.FindStringSubmatch(line); m != nil {
				failed = append(failed, m[1])
			}
		}
		if playwrightPassed.MatchString(line) {
			recognized = true
		}
	}
	return !failure, recognized || failure, failed
}

var (
	cypressFailed = regexp.MustCompile(`✖\s+\d+ of \d+ failed|\d+ of \d+ failed`)
	cypressPassed = regexp.MustCompile(`All specs passed!`)
)

func parseCypressOutput(output string) (bool, bool, []string) {
	failure, recognized := false, false
	for _, line := range lines(output) {
		if cypressFailed.MatchString(line) {
			failure = true
		}
		if cypressPassed.MatchString(line) {
			recognized = true
		}
	}
	return !failure, recognized || failure, nil
}
