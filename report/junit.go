package report

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/graphtap/graphtap/trace"
)

type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string      `xml:"name,attr"`
	Classname string      `xml:"classname,attr"`
	Time      string      `xml:"time,attr"`
	Error     *junitError `xml:"error,omitempty"`
}

type junitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

// JUnit renders the trace as JUnit XML: one test suite for the run, one
// test case per node, with an <error> child on errored nodes. CI systems
// consume the result like any other test report.
func JUnit(t *trace.Trace, path string) (string, error) {
	if t == nil {
		t = trace.New()
	}

	suite := junitTestSuite{
		Name:  "graphtap",
		Tests: len(t.Nodes),
		Time:  fmt.Sprintf("%.4f", t.Metadata.DurationMs/1000),
	}
	for _, node := range t.Nodes {
		testCase := junitTestCase{
			Name:      node.NodeName,
			Classname: "graphtap." + node.NodeName,
			Time:      fmt.Sprintf("%.4f", node.DurationMs/1000),
		}
		if node.Status == trace.StatusError {
			suite.Errors++
			message := node.Error
			if message == "" {
				message = "Node execution error"
			}
			testCase.Error = &junitError{
				Message: message,
				Type:    "NodeExecutionError",
				Text:    node.Error,
			}
		}
		suite.Cases = append(suite.Cases, testCase)
	}

	data, err := xml.MarshalIndent(junitTestSuites{Suites: []junitTestSuite{suite}}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode junit xml: %w", err)
	}
	out := xml.Header + string(data)

	if path != "" {
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return "", fmt.Errorf("failed to write junit xml: %w", err)
		}
	}
	return out, nil
}
