package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseReport reads the "label: value" lines of the text page report.
func parseReport(t *testing.T, out string) map[string]string {
	t.Helper()

	report := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		require.NotEmpty(t, fields)
		report[strings.TrimSuffix(fields[0], ":")] = strings.Join(fields[1:], " ")
	}
	return report
}

func TestFilterNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "collapses whitespace", input: "  owner=admin    rows=10 ", expected: "owner=admin rows=10"},
		{name: "keeps quoting", input: `status="Fix Verified"`, expected: `status="Fix Verified"`},
		{name: "singleton replaced in place", input: "sort=name a=1 sort-reverse=severity", expected: "sort-reverse=severity a=1"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "filter", "normalize", tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected+"\n", out)
		})
	}
}

func TestFilterMerge(t *testing.T) {
	out, err := execute(t, "filter", "merge", "a=1 b=2", "b=3")
	require.NoError(t, err)
	assert.Equal(t, "a=1 b=3\n", out)

	out, err = execute(t, "filter", "merge", "owner=admin rows=25", "owner=ops first=26")
	require.NoError(t, err)
	assert.Equal(t, "owner=ops rows=25 first=26\n", out)
}

func TestFilterMerge_Args(t *testing.T) {
	_, err := execute(t, "filter", "merge", "a=1")
	assert.Error(t, err)
}

func TestFilterPages(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected map[string]string
	}{
		{
			name: "middle page",
			args: []string{"first=11 rows=10", "--filtered", "25"},
			expected: map[string]string{
				"filter":        "first=11 rows=10",
				"first":         "11",
				"last":          "20",
				"length":        "10",
				"filtered":      "25",
				"all":           "25",
				"is_first":      "false",
				"has_previous":  "true",
				"has_next":      "true",
				"is_last":       "false",
				"first_page":    "first=1 rows=10",
				"previous_page": "first=1 rows=10",
				"next_page":     "first=21 rows=10",
				"last_page":     "first=21 rows=10",
			},
		},
		{
			name: "single page with default rows",
			args: []string{"", "--filtered", "3", "--all", "40"},
			expected: map[string]string{
				"filter":        "rows=10",
				"first":         "1",
				"last":          "3",
				"length":        "3",
				"all":           "40",
				"is_first":      "true",
				"is_last":       "true",
				"has_next":      "false",
				"first_page":    "-",
				"previous_page": "-",
				"next_page":     "-",
				"last_page":     "-",
			},
		},
		{
			name: "all rows",
			args: []string{"rows=-1", "--filtered", "25"},
			expected: map[string]string{
				"rows":       "-1",
				"length":     "25",
				"last":       "25",
				"is_first":   "false",
				"is_last":    "false",
				"has_next":   "false",
				"first_page": "-",
				"last_page":  "-",
			},
		},
		{
			name: "explicit short page",
			args: []string{"first=21 rows=10", "--filtered", "30", "--length", "4"},
			expected: map[string]string{
				"last":      "24",
				"has_next":  "true",
				"next_page": "first=31 rows=10",
				"last_page": "first=21 rows=10",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"filter", "pages"}, tt.args...)...)
			require.NoError(t, err)

			report := parseReport(t, out)
			for key, want := range tt.expected {
				assert.Equal(t, want, report[key], key)
			}
		})
	}
}

func TestFilterPages_JSON(t *testing.T) {
	out, err := execute(t, "filter", "pages", "first=11 rows=10", "--filtered", "25", "--format", "json")
	require.NoError(t, err)

	var report pageReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "first=11 rows=10", report.Filter)
	assert.Equal(t, 20, report.Counts.Last())
	assert.True(t, report.HasNext)
	require.NotNil(t, report.Pages.Next)
	assert.Equal(t, "first=21 rows=10", *report.Pages.Next)
}
