package build

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ReportType names a family of structured test reports and where the build
// writes them, relative to the build directory.
type ReportType struct {
	Name string
	Dir  string
}

// DefaultReportTypes covers the unit test reports.
var DefaultReportTypes = []ReportType{
	{Name: "unit", Dir: filepath.Join("target", "surefire-reports")},
}

type testSuite struct {
	XMLName xml.Name   `xml:"testsuite"`
	Name    string     `xml:"name,attr"`
	Tests   string     `xml:"tests,attr"`
	Cases   []testCase `xml:"testcase"`
}

type testCase struct {
	Name      string    `xml:"name,attr"`
	ClassName string    `xml:"classname,attr"`
	Failures  []xmlNode `xml:"failure"`
	Errors    []xmlNode `xml:"error"`
}

type xmlNode struct {
	Message string `xml:"message,attr"`
}

func (tc testCase) id() string {
	if tc.ClassName == "" {
		return tc.Name
	}
	return tc.ClassName + "." + tc.Name
}

func (tc testCase) failed() bool {
	return len(tc.Failures) > 0 || len(tc.Errors) > 0
}

// Reconcile reads the TEST-<id>.xml report of every executed test id for each
// report type. Missing directories or files and count mismatches become
// warnings. A report that cannot be parsed is an error.
func Reconcile(dir string, types []ReportType, executed []string) (*TestOutcome, error) {
	passed := set{}
	failed := set{}
	var warnings []string

	for _, rt := range types {
		reportDir := rt.Dir
		if !filepath.IsAbs(reportDir) {
			reportDir = filepath.Join(dir, reportDir)
		}

		if info, err := os.Stat(reportDir); err != nil || !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("%s test report directory %s not found", rt.Name, reportDir))
			continue
		}

		for _, id := range executed {
			path := filepath.Join(reportDir, "TEST-"+id+".xml")
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					warnings = append(warnings, fmt.Sprintf("%s test report for %s not found", rt.Name, id))
					continue
				}
				return nil, fmt.Errorf("read test report %s: %w", path, err)
			}

			var suite testSuite
			if err := xml.Unmarshal(data, &suite); err != nil {
				return nil, fmt.Errorf("parse test report %s: %w", path, err)
			}

			if declared, err := strconv.Atoi(suite.Tests); err == nil && declared != len(suite.Cases) {
				warnings = append(warnings, fmt.Sprintf("%s test report for %s declares %d tests but lists %d",
					rt.Name, id, declared, len(suite.Cases)))
			}

			for _, tc := range suite.Cases {
				if tc.failed() {
					failed.add(tc.id())
				} else {
					passed.add(tc.id())
				}
			}
		}
	}

	return &TestOutcome{
		Executed: passed.sorted(),
		Failed:   failed.sorted(),
		Warnings: warnings,
	}, nil
}
