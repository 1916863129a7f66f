package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Meraki-Client-History-Report/pkg/meraki"
	"Meraki-Client-History-Report/pkg/report"

	"github.com/xuri/excelize/v2"
)

var exportTime = time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)

func TestTruncateSheetName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "short name unchanged",
			input: "HQ",
			want:  "HQ",
		},
		{
			name:  "exactly thirty",
			input: strings.Repeat("a", 30),
			want:  strings.Repeat("a", 30),
		},
		{
			name:  "truncated to thirty",
			input: strings.Repeat("a", 31),
			want:  strings.Repeat("a", 30),
		},
		{
			name:  "long site name",
			input: "Extremely Long Network Name For A Branch Office",
			want:  "Extremely Long Network Name Fo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateSheetName(tt.input)
			if got != tt.want {
				t.Errorf("TruncateSheetName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if len([]rune(got)) > 30 {
				t.Errorf("truncated name is %d runes, want <= 30", len([]rune(got)))
			}
		})
	}
}

func TestExportNetworkWorkbook(t *testing.T) {
	dir := t.TempDir()
	longName := "Extremely Long Network Name For A Branch Office"
	units := []report.NetworkUnit{
		{
			Network: meraki.Network{ID: "n1", Name: "HQ"},
			Clients: []meraki.Client{
				{MAC: "aa:bb:cc:dd:ee:01", IP: "10.0.0.5", SSID: strPtr("Corp")},
				{MAC: "aa:bb:cc:dd:ee:02", IP: "10.0.0.6"},
			},
		},
		{
			Network: meraki.Network{ID: "n2", Name: longName},
			Clients: []meraki.Client{
				{MAC: "aa:bb:cc:dd:ee:03"},
			},
		},
		{
			// empty unit gets no sheet
			Network: meraki.Network{ID: "n3", Name: "Empty Site"},
		},
	}

	path, err := ExportNetworkWorkbook(dir, units, false, exportTime)
	if err != nil {
		t.Fatalf("ExportNetworkWorkbook() error = %v", err)
	}
	wantName := "Client_History_Report_20260830_140509.xlsx"
	if filepath.Base(path) != wantName {
		t.Errorf("filename = %q, want %q", filepath.Base(path), wantName)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := map[string]bool{
		"HQ":                        true,
		TruncateSheetName(longName): true,
		"Summary":                   true,
	}
	for _, s := range sheets {
		if s == "Sheet1" {
			t.Error("default Sheet1 should have been removed")
		}
		delete(want, s)
	}
	if len(want) != 0 {
		t.Errorf("missing sheets %v in %v", want, sheets)
	}

	rows, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows(Summary) error = %v", err)
	}
	// header + 3 client rows across groups, in group order
	if len(rows) != 4 {
		t.Fatalf("Summary has %d rows, want 4", len(rows))
	}
	if rows[0][0] != "Network Name" {
		t.Errorf("Summary header starts with %q, want Network Name", rows[0][0])
	}
	if rows[1][0] != "HQ" || rows[3][0] != longName {
		t.Errorf("Summary group order = %q ... %q, want HQ first, long name last", rows[1][0], rows[3][0])
	}
}

func TestExportNetworkWorkbook_NoData(t *testing.T) {
	dir := t.TempDir()
	units := []report.NetworkUnit{
		{Network: meraki.Network{ID: "n1", Name: "Empty"}},
	}

	path, err := ExportNetworkWorkbook(dir, units, false, exportTime)
	if err != nil {
		t.Fatalf("ExportNetworkWorkbook() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty when there is nothing to export", path)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("report dir has %d entries, want none written", len(entries))
	}
}

func TestExportDeviceWorkbook(t *testing.T) {
	dir := t.TempDir()
	units := []report.DeviceUnit{
		{
			Device: meraki.Device{Serial: "Q2XX-1", Name: "core-sw"},
			Clients: []meraki.Client{
				{MAC: "aa:bb:cc:dd:ee:01"},
			},
		},
		{
			// unnamed device keyed by serial, no clients -> no sheet
			Device: meraki.Device{Serial: "Q2XX-2"},
		},
	}

	path, err := ExportDeviceWorkbook(dir, units, false, exportTime)
	if err != nil {
		t.Fatalf("ExportDeviceWorkbook() error = %v", err)
	}
	wantName := "Client_History_By_Device_20260830_140509.xlsx"
	if filepath.Base(path) != wantName {
		t.Errorf("filename = %q, want %q", filepath.Base(path), wantName)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("core-sw")
	if err != nil {
		t.Fatalf("GetRows(core-sw) error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("core-sw sheet has %d rows, want header + 1 client", len(rows))
	}
	if rows[0][0] != "Device Name" {
		t.Errorf("device sheet header starts with %q, want Device Name", rows[0][0])
	}
	for _, s := range f.GetSheetList() {
		if s == "Q2XX-2" {
			t.Error("device with no clients should not get a sheet")
		}
	}
}

func TestExportNetworkWorkbook_ReservedGroupNames(t *testing.T) {
	dir := t.TempDir()
	units := []report.NetworkUnit{
		{
			Network: meraki.Network{ID: "n1", Name: "Summary"},
			Clients: []meraki.Client{{MAC: "aa:bb:cc:dd:ee:01"}},
		},
		{
			Network: meraki.Network{ID: "n2", Name: "Sheet1"},
			Clients: []meraki.Client{{MAC: "aa:bb:cc:dd:ee:02"}},
		},
	}

	path, err := ExportNetworkWorkbook(dir, units, false, exportTime)
	if err != nil {
		t.Fatalf("ExportNetworkWorkbook() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, s := range f.GetSheetList() {
		sheets[s] = true
	}
	if !sheets["Summary_"] || !sheets["Sheet1_"] {
		t.Errorf("sheets = %v, want the renamed Summary_ and Sheet1_ group sheets", f.GetSheetList())
	}

	// the bookkeeping Summary sheet must keep both client rows
	rows, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows(Summary) error = %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Summary has %d rows, want header + 2 clients", len(rows))
	}
}

func TestExportNetworkWorkbook_Raw(t *testing.T) {
	dir := t.TempDir()
	units := []report.NetworkUnit{
		{
			Network: meraki.Network{ID: "n1", Name: "HQ"},
			Clients: []meraki.Client{
				{MAC: "aa:bb:cc:dd:ee:01", VLAN: 10, SSID: strPtr("Corp")},
			},
		},
	}

	path, err := ExportNetworkWorkbook(dir, units, true, exportTime)
	if err != nil {
		t.Fatalf("ExportNetworkWorkbook() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("HQ")
	if err != nil {
		t.Fatalf("GetRows(HQ) error = %v", err)
	}
	if len(rows[0]) != len(rawColumns)+1 {
		t.Errorf("raw header has %d columns, want %d", len(rows[0]), len(rawColumns)+1)
	}
}
