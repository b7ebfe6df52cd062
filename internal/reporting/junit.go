package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/physbench/physbench/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one question category.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one model's answer to one question.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure marks a response that ended in an API error.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError marks an iteration that produced no report.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts run results to JUnit XML: one suite per
// category, one testcase per (question, model). Error responses are
// failures; excluded iterations are errors.
func ConvertToJUnit(r *RunResults) *JUnitTestSuites {
	timestamp := r.StartedAt.Format(time.RFC3339)
	props := []JUnitProperty{
		{Name: "run_id", Value: r.RunID},
		{Name: "benchmark", Value: r.Name},
	}

	solvable := JUnitTestSuite{Name: string(models.CategorySolvable), Timestamp: timestamp, Properties: props}
	for _, rep := range r.Solvable {
		for _, resp := range rep.Responses {
			tc := JUnitTestCase{
				Name:      resp.ModelName,
				Classname: rep.QuestionID,
				Time:      resp.GenerationTime.Seconds(),
			}
			if resp.Failed() {
				tc.Failure = apiFailure(resp.ModelName, resp.ResponseText)
			}
			solvable.add(tc)
		}
	}

	unsolvable := JUnitTestSuite{Name: string(models.CategoryUnsolvable), Timestamp: timestamp, Properties: props}
	for _, rep := range r.Unsolvable {
		for _, h := range rep.Hypotheses {
			tc := JUnitTestCase{
				Name:      h.ModelName,
				Classname: rep.QuestionID,
				Time:      h.GenerationTime.Seconds(),
			}
			if h.Failed() {
				tc.Failure = apiFailure(h.ModelName, h.ResponseText)
			}
			unsolvable.add(tc)
		}
	}

	for _, f := range r.Failures {
		suite := &solvable
		if f.Category == models.CategoryUnsolvable {
			suite = &unsolvable
		}
		suite.add(JUnitTestCase{
			Name:      fmt.Sprintf("iteration %d", f.Iteration),
			Classname: string(f.Category),
			Error:     &JUnitError{Message: f.Error, Type: "IterationError"},
		})
	}

	out := &JUnitTestSuites{}
	for _, s := range []JUnitTestSuite{solvable, unsolvable} {
		if s.Tests == 0 {
			continue
		}
		out.Tests += s.Tests
		out.Failures += s.Failures
		out.Errors += s.Errors
		out.Time += s.Time
		out.TestSuites = append(out.TestSuites, s)
	}
	return out
}

func (s *JUnitTestSuite) add(tc JUnitTestCase) {
	s.Tests++
	s.Time += tc.Time
	if tc.Failure != nil {
		s.Failures++
	}
	if tc.Error != nil {
		s.Errors++
	}
	s.TestCases = append(s.TestCases, tc)
}

func apiFailure(model, text string) *JUnitFailure {
	return &JUnitFailure{
		Message: fmt.Sprintf("%s: %s", model, strings.TrimPrefix(text, models.ErrorMarker)),
		Type:    "APIError",
		Body:    text,
	}
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(r *RunResults, path string) error {
	suites := ConvertToJUnit(r)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
