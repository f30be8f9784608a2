package streaming

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunReducerSumsRuns(t *testing.T) {
	in := "1999-12\t1\n2000-10\t1\n2000-10\t1\n\n2000-10\t3\nBad or Missing Timestamp\t1\nBad or Missing Timestamp\t1\n"
	var out bytes.Buffer
	st, err := RunReducer(context.Background(), strings.NewReader(in), &out)
	if err != nil {
		t.Fatal(err)
	}
	want := "1999-12\t1\n2000-10\t5\nBad or Missing Timestamp\t2\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
	if st.Records != 6 || st.Keys != 3 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestRunReducerEmpty(t *testing.T) {
	var out bytes.Buffer
	if _, err := RunReducer(context.Background(), strings.NewReader(""), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestRunReducerBadCount(t *testing.T) {
	in := "2000-10\t1\n2000-10\tone\n"
	_, err := RunReducer(context.Background(), strings.NewReader(in), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error on line 2, got %v", err)
	}
}

func TestMapThenReduce(t *testing.T) {
	in := "a [10/Oct/2000:1] b\nc [not] d\ne [11/Oct/2000:2] f\n"
	var mapped bytes.Buffer
	if _, err := RunMapper(context.Background(), strings.NewReader(in), &mapped); err != nil {
		t.Fatal(err)
	}
	// the shuffle sorts by key; the mapped keys here are already grouped
	// except for the sentinel in the middle.
	lines := strings.Split(strings.TrimSpace(mapped.String()), "\n")
	sorted := lines[0] + "\n" + lines[2] + "\n" + lines[1] + "\n"
	var out bytes.Buffer
	if _, err := RunReducer(context.Background(), strings.NewReader(sorted), &out); err != nil {
		t.Fatal(err)
	}
	want := "2000-10\t2\nBad or Missing Timestamp\t1\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}
