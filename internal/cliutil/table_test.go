package cliutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableDataHeadersAndRows(t *testing.T) {
	data := NewTableData("NAME", "SIZE")
	data.AddRow("a.txt", "12")
	data.AddRow("b.txt", "34")

	if got := data.Headers(); len(got) != 2 || got[0] != "NAME" || got[1] != "SIZE" {
		t.Errorf("Headers() = %v, want [NAME SIZE]", got)
	}
	rows := data.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(Rows()) = %d, want 2", len(rows))
	}
	if rows[0][0] != "a.txt" || rows[1][1] != "34" {
		t.Errorf("Rows() = %v, unexpected content", rows)
	}
}

func TestNewTableDataWithNoRowsHasEmptyRows(t *testing.T) {
	data := NewTableData("NAME")
	if got := data.Rows(); len(got) != 0 {
		t.Errorf("Rows() = %v, want empty for a freshly built TableData", got)
	}
}

func TestPrintTableRendersHeadersAndRows(t *testing.T) {
	data := NewTableData("NAME", "SIZE")
	data.AddRow("a.txt", "12")
	data.AddRow("b.txt", "34")

	var buf bytes.Buffer
	PrintTable(&buf, data)

	out := buf.String()
	for _, want := range []string{"NAME", "SIZE", "a.txt", "12", "b.txt", "34"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTableWithNoRowsStillRendersHeaders(t *testing.T) {
	data := NewTableData("NAME", "SIZE")

	var buf bytes.Buffer
	PrintTable(&buf, data)

	out := buf.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "SIZE") {
		t.Errorf("rendered table missing headers:\n%s", out)
	}
}
