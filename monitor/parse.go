package monitor

import (
	"regexp"
	"strings"
)

// FindCluster scans status output for the first cluster whose name carries
// the given prefix, returning its name and state column.
func FindCluster(statusOut, prefix string) (name, state string, ok bool) {
	for _, line := range strings.Split(statusOut, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "NAME") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], prefix) {
			continue
		}
		// Columns: NAME LAUNCHED RESOURCES STATUS ...; the state token is
		// the first all-caps field after the name.
		for _, f := range fields[1:] {
			switch f {
			case "INIT", "UP", "STOPPED", "DOWN":
				return fields[0], f, true
			}
		}
		return fields[0], fields[len(fields)-1], true
	}
	return "", "", false
}

// JobRow is one line of queue output for the watched job.
type JobRow struct {
	Name     string
	Status   string
	Duration string
}

var jobStatuses = map[string]bool{
	"PENDING":       true,
	"SETTING_UP":    true,
	"RUNNING":       true,
	"SUCCEEDED":     true,
	"FAILED":        true,
	"FAILED_SETUP":  true,
	"FAILED_DRIVER": true,
	"CANCELLING":    true,
	"CANCELLED":     true,
}

// FindJobRow locates the named job in queue output. Queue rows have the
// shape: ID NAME SUBMITTED STARTED DURATION RESOURCES STATUS LOG, but the
// SUBMITTED and STARTED columns are multi-word ("3 mins ago"), so the row
// cannot be indexed positionally. The status token is found by keyword; the
// duration sits two tokens before it, across the single-token RESOURCES
// column.
func FindJobRow(queueOut, job string) (JobRow, bool) {
	for _, line := range strings.Split(queueOut, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "ID") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[1] != job {
			continue
		}
		for i := len(fields) - 1; i >= 4; i-- {
			if jobStatuses[fields[i]] {
				return JobRow{Name: job, Duration: fields[i-2], Status: fields[i]}, true
			}
		}
	}
	return JobRow{}, false
}

var (
	hoursRE   = regexp.MustCompile(`(\d+)h`)
	minutesRE = regexp.MustCompile(`(\d+)m`)
	secondsRE = regexp.MustCompile(`(\d+)s`)
)

// ParseDuration converts the queue's compact duration notation ("2h15m",
// "5m30s", "45s") to whole seconds. Unrecognized text yields zero.
func ParseDuration(s string) int {
	total := 0
	if m := hoursRE.FindStringSubmatch(s); m != nil {
		total += atoi(m[1]) * 3600
	}
	if m := minutesRE.FindStringSubmatch(s); m != nil {
		total += atoi(m[1]) * 60
	}
	if m := secondsRE.FindStringSubmatch(s); m != nil {
		total += atoi(m[1])
	}
	return total
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// CompletionKeywords are the phrases a finished deployment prints near the
// end of its log. Any one of them in the recent tail counts as done.
var CompletionKeywords = []string{
	"deployment complete",
	"cluster is running",
	"sensor simulator started",
	"bacalhau compute started",
	"deployment status",
	"node is ready",
}

// ContainsCompletionKeyword reports whether any completion phrase appears
// in the given lines, case-insensitively.
func ContainsCompletionKeyword(lines []string) bool {
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, kw := range CompletionKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// TailLines returns the last n lines of a text block, dropping trailing
// blank lines.
func TailLines(text string, n int) []string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
