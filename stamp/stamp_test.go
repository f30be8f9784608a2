package stamp

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransformLabels(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"access log", `127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET / HTTP/1.0" 200 2326`, "2000-10"},
		{"not a date", `host - - [not-a-date] "GET / HTTP/1.0" 404 100`, Sentinel},
		{"no leap day", `host - - [29/Feb/2001:00:00:00 +0000] "GET / HTTP/1.0" 200 0`, Sentinel},
		{"leap day", `host - - [29/Feb/2000:00:00:00 +0000] "GET / HTTP/1.0" 200 0`, "2000-02"},
		{"greedy span", `[x] host [01/Jan/1999:00:00:00 +0000] "GET /"`, Sentinel},
		{"date only", `[05/Mar/2021]`, "2021-03"},
		{"trailing newline", "x [31/Dec/1999:23:59:59 +0000] y\r\n", "1999-12"},
		{"lowercase month", `[10/oct/2000:13:55:36 -0700]`, Sentinel},
		{"unknown month", `[10/Okt/2000:13:55:36 -0700]`, Sentinel},
		{"single digit day", `[1/Oct/2000:13:55:36 -0700]`, Sentinel},
		{"dash separators", `[10-Oct-2000:13:55:36 -0700]`, Sentinel},
		{"day zero", `[00/Oct/2000:13:55:36 -0700]`, Sentinel},
		{"day 32", `[32/Oct/2000:13:55:36 -0700]`, Sentinel},
		{"year zero", `[01/Jan/0000:00:00:00 +0000]`, Sentinel},
		{"signed year", `[01/Jan/+999:00:00:00 +0000]`, Sentinel},
		{"small year", `[01/Jan/0999:00:00:00 +0000]`, "0999-01"},
		{"empty brackets", `host []`, Sentinel},
		{"short field", `[10/Oct/20]`, Sentinel},
		{"multibyte field", `[ü0/Oct/2000:13:55:36]`, Sentinel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Transform(tc.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.Label(); got != tc.want {
				t.Fatalf("label for %q: got %q, want %q", tc.line, got, tc.want)
			}
		})
	}
}

func TestTransformMissingBrackets(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"127.0.0.1 - - 10/Oct/2000:13:55:36 GET /",
		"only [open",
		"only close]",
		"] reversed [",
	} {
		_, err := Transform(line)
		if !errors.Is(err, ErrMissingBrackets) {
			t.Fatalf("line %q: expected ErrMissingBrackets, got %v", line, err)
		}
	}
}

func TestExtractGreedy(t *testing.T) {
	got, err := Extract(`[x] host [01/Jan/1999:00:00:00 +0000] ...`)
	if err != nil {
		t.Fatal(err)
	}
	want := "x] host [01/Jan/1999:00:00:00 +0000"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if c := DateCandidate(got); c != "x] host [01" {
		t.Fatalf("candidate: got %q", c)
	}
}

func TestDateCandidateCountsCharacters(t *testing.T) {
	if got := DateCandidate(strings.Repeat("ä", 14)); got != strings.Repeat("ä", 11) {
		t.Fatalf("got %q", got)
	}
	if got := DateCandidate("abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestParseMonth(t *testing.T) {
	ym, ok := ParseMonth("10/Oct/2000")
	if !ok {
		t.Fatal("expected valid date")
	}
	if ym.Year != 2000 || ym.Month != time.October {
		t.Fatalf("got %+v", ym)
	}
	if _, ok := ParseMonth("10/Oct/2000:"); ok {
		t.Fatal("expected trailing colon to fail")
	}
}

func TestTransformIdempotent(t *testing.T) {
	line := `127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET / HTTP/1.0" 200 2326`
	first, _ := Transform(line)
	for i := 0; i < 50; i++ {
		got, _ := Transform(line)
		if got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestResultLabel(t *testing.T) {
	if got := (Result{}).Label(); got != Sentinel {
		t.Fatalf("zero result: got %q", got)
	}
	r := Result{YearMonth: YearMonth{Year: 2024, Month: time.March}, Valid: true}
	if got := r.Label(); got != "2024-03" {
		t.Fatalf("got %q", got)
	}
}
