package streaming

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emptyOVO/logbucket/stamp"
)

func TestRunMapperScenarios(t *testing.T) {
	in := strings.Join([]string{
		`127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET / HTTP/1.0" 200 2326`,
		`host - - [not-a-date] "GET / HTTP/1.0" 404 100`,
		`host - - [29/Feb/2001:00:00:00 +0000] "GET / HTTP/1.0" 200 0`,
		`[x] host [01/Jan/1999:00:00:00 +0000] "GET / HTTP/1.0" 200 0`,
		`host - - [03/Jan/2001:00:00:00 +0000] "GET / HTTP/1.0" 200 0`,
	}, "\n") + "\n"
	var out bytes.Buffer
	st, err := RunMapper(context.Background(), strings.NewReader(in), &out)
	if err != nil {
		t.Fatal(err)
	}
	want := "2000-10\t1\n" +
		"Bad or Missing Timestamp\t1\n" +
		"Bad or Missing Timestamp\t1\n" +
		"Bad or Missing Timestamp\t1\n" +
		"2001-01\t1\n"
	if out.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), want)
	}
	if st.Lines != 5 || st.BadTimestamps != 3 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestRunMapperEmptyInput(t *testing.T) {
	var out bytes.Buffer
	st, err := RunMapper(context.Background(), strings.NewReader(""), &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 || st.Lines != 0 {
		t.Fatalf("expected no output, got %q (%+v)", out.String(), st)
	}
}

func TestRunMapperMissingBracketsIsFatal(t *testing.T) {
	in := "a [10/Oct/2000:13:55:36 -0700] b\nno brackets here\nc [11/Nov/2000:00:00:00 +0000] d\n"
	var out bytes.Buffer
	st, err := RunMapper(context.Background(), strings.NewReader(in), &out)
	if !errors.Is(err, stamp.ErrMissingBrackets) {
		t.Fatalf("expected ErrMissingBrackets, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
	if out.String() != "2000-10\t1\n" || st.Lines != 1 {
		t.Fatalf("expected only the first record, got %q", out.String())
	}
}

func TestRunMapperCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunMapper(ctx, strings.NewReader("[10/Oct/2000]\n"), &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRunMapperWriteError(t *testing.T) {
	_, err := RunMapper(context.Background(), strings.NewReader("[10/Oct/2000]\n"), errWriter{})
	if err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestMapperStatsReport(t *testing.T) {
	var b strings.Builder
	st := MapperStats{Lines: 5, BadTimestamps: 2}
	if err := st.Report(NewReporter(&b, "logbucket")); err != nil {
		t.Fatal(err)
	}
	want := "reporter:counter:logbucket,lines,5\nreporter:counter:logbucket,bad_timestamp,2\n"
	if b.String() != want {
		t.Fatalf("got %q, want %q", b.String(), want)
	}
}

func TestReporterStatus(t *testing.T) {
	var b strings.Builder
	if err := NewReporter(&b, "g").Status("mapping"); err != nil {
		t.Fatal(err)
	}
	if b.String() != "reporter:status:mapping\n" {
		t.Fatalf("got %q", b.String())
	}
}
