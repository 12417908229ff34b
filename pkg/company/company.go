package company

import (
	"fmt"
	"io"
	"strings"
)

// Entry is one company record from the master app. It doubles as the
// per-option payload read back from the selector.
type Entry struct {
	Name          string `json:"name" yaml:"name"`
	BpoID         string `json:"bpoId" yaml:"bpoId"`
	GoogleDriveID string `json:"googleDriveId" yaml:"googleDriveId"`
}

// Names projects the Name attribute of each entry, preserving order.
func Names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

// BpoIDs projects the BpoID attribute of each entry, preserving order.
func BpoIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.BpoID)
	}
	return out
}

// GoogleDriveIDs projects the GoogleDriveID attribute of each entry, preserving order.
func GoogleDriveIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.GoogleDriveID)
	}
	return out
}

// PrintEntries writes one line per entry. outputFlags picks the columns:
// n = name, b = bpoId, g = googleDriveId.
func PrintEntries(w io.Writer, entries []Entry, outputFlags string, delimiter string) error {
	for _, e := range entries {
		line, err := createLine(e, outputFlags, delimiter)
		if err != nil {
			return err
		}
		if len(line) > 0 {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func createLine(e Entry, outputFlags, delimiter string) (string, error) {
	var line string
	for _, f := range outputFlags {
		switch f {
		case 'n':
			line += e.Name + delimiter
		case 'b':
			line += e.BpoID + delimiter
		case 'g':
			line += e.GoogleDriveID + delimiter
		default:
			return "", fmt.Errorf("invalid print flag %q", f)
		}
	}
	return strings.TrimSuffix(line, delimiter), nil
}
