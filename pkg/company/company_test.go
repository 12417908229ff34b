package company

import (
	"bytes"
	"testing"
)

func TestPrintEntries(t *testing.T) {
	entries := []Entry{
		{Name: "A", BpoID: "1", GoogleDriveID: "g1"},
		{Name: "B", BpoID: "2"},
	}

	var buf bytes.Buffer
	if err := PrintEntries(&buf, entries, "nbg", " "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "A 1 g1\nB 2 \n"
	if buf.String() != want {
		t.Fatalf("unexpected output.\nwant: %q\ngot:  %q", want, buf.String())
	}
}

func TestPrintEntries_InvalidFlag(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintEntries(&buf, []Entry{{Name: "A"}}, "nx", ","); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestProjections(t *testing.T) {
	entries := []Entry{
		{Name: "A", BpoID: "1", GoogleDriveID: "g1"},
		{Name: "B", BpoID: "2", GoogleDriveID: ""},
	}
	if got := Names(entries); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("unexpected names %v", got)
	}
	if got := BpoIDs(entries); got[0] != "1" || got[1] != "2" {
		t.Fatalf("unexpected bpo ids %v", got)
	}
	if got := GoogleDriveIDs(entries); got[0] != "g1" || got[1] != "" {
		t.Fatalf("unexpected drive ids %v", got)
	}
	if got := Names(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
