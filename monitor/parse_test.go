package monitor

import "testing"

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"5m30s", 330},
		{"2h15m", 8100},
		{"45s", 45},
		{"1h2m3s", 3723},
		{"4m59s", 299},
		{"5m1s", 301},
		{"-", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseDuration(tc.in); got != tc.want {
			t.Errorf("ParseDuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFindCluster(t *testing.T) {
	out := `Clusters
NAME          LAUNCHED     RESOURCES              STATUS  AUTOSTOP  COMMAND
sky-f81a2c    3 mins ago   3x AWS(m6i.large)      UP      -         sky launch deploy.yaml
other-thing   1 hr ago     1x AWS(t3.micro)       INIT    -         sky launch x
`
	name, state, ok := FindCluster(out, "sky-")
	if !ok {
		t.Fatal("cluster not found")
	}
	if name != "sky-f81a2c" || state != "UP" {
		t.Errorf("got %q %q", name, state)
	}

	if _, _, ok := FindCluster("No existing clusters.\n", "sky-"); ok {
		t.Error("found cluster in empty output")
	}
	if _, _, ok := FindCluster(out, "prod-"); ok {
		t.Error("prefix should not match")
	}
}

func TestFindJobRow(t *testing.T) {
	// SUBMITTED and STARTED are multi-word columns, with different widths
	// per row, so positional field indexing cannot work here.
	out := `Fetching and parsing job queue...
ID  NAME       SUBMITTED   STARTED     DURATION  RESOURCES        STATUS        LOG
3   broken     a few secs ago  -       -         1x[cpu]          FAILED_SETUP  ~/sky_logs/sky-3
2   deploy-a1  3 mins ago  2 mins ago  5m30s     3x[m6i.large]    RUNNING       ~/sky_logs/sky-2
1   warmup     1 hr ago    1 hr ago    2s        1x[cpu]          SUCCEEDED     ~/sky_logs/sky-1
`
	cases := []struct {
		job      string
		status   string
		duration string
	}{
		{"deploy-a1", "RUNNING", "5m30s"},
		{"warmup", "SUCCEEDED", "2s"},
		{"broken", "FAILED_SETUP", "-"},
	}
	for _, tc := range cases {
		row, ok := FindJobRow(out, tc.job)
		if !ok {
			t.Fatalf("job %q not found", tc.job)
		}
		if row.Status != tc.status || row.Duration != tc.duration {
			t.Errorf("row for %q = %+v, want status %q duration %q", tc.job, row, tc.status, tc.duration)
		}
	}

	if _, ok := FindJobRow(out, "absent"); ok {
		t.Error("found absent job")
	}
	// Rows too short to carry duration and resources columns never match.
	if _, ok := FindJobRow("2 deploy-a1 RUNNING\n", "deploy-a1"); ok {
		t.Error("short row matched")
	}
}

func TestContainsCompletionKeyword(t *testing.T) {
	if !ContainsCompletionKeyword([]string{"noise", "(worker1, rank=1, pid=9, ip=10.0.0.1) Deployment Complete"}) {
		t.Error("keyword not detected case-insensitively")
	}
	if ContainsCompletionKeyword([]string{"still pulling images", "configuring docker"}) {
		t.Error("false positive")
	}
}

func TestTailLines(t *testing.T) {
	got := TailLines("a\nb\nc\nd\n", 2)
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Errorf("tail = %v", got)
	}
	got = TailLines("only", 10)
	if len(got) != 1 || got[0] != "only" {
		t.Errorf("tail = %v", got)
	}
}
