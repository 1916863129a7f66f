package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Meraki-Client-History-Report/pkg/meraki"
	"Meraki-Client-History-Report/pkg/report"

	"github.com/xuri/excelize/v2"
)

const (
	// NetworkReportLabel prefixes the by-network workbook filename.
	NetworkReportLabel = "Client_History_Report"
	// DeviceReportLabel prefixes the organization-wide workbook filename.
	DeviceReportLabel = "Client_History_By_Device"

	// maxSheetNameLen is the workbook format's sheet-name length ceiling.
	maxSheetNameLen = 30

	filenameTimeLayout = "20060102_150405"
)

// TruncateSheetName caps a group name at the sheet-name ceiling. Two groups
// sharing a 30-character prefix will collide in the workbook; that risk is
// accepted rather than disambiguated.
func TruncateSheetName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxSheetNameLen {
		return name
	}
	return string(runes[:maxSheetNameLen])
}

type sheetGroup struct {
	name string
	rows [][]string
}

// sheetName caps a group name at the sheet-name ceiling and steers it clear
// of the reserved sheets: the combined Summary and the default Sheet1 that
// is removed after writing. Sheet names are case-insensitive in the format,
// so a group named "summary" would otherwise overwrite the Summary rows and
// a group named "sheet1" would be deleted with the default sheet.
func sheetName(name string) string {
	s := TruncateSheetName(name)
	if strings.EqualFold(s, "Summary") || strings.EqualFold(s, "Sheet1") {
		return s + "_"
	}
	return s
}

// ExportNetworkWorkbook writes one sheet per non-empty network plus a
// combined Summary sheet. When no network has any client data, no file is
// written and the returned path is empty.
func ExportNetworkWorkbook(dir string, units []report.NetworkUnit, raw bool, now time.Time) (string, error) {
	groups := make([]sheetGroup, 0, len(units))
	for _, unit := range units {
		groups = append(groups, sheetGroup{
			name: unit.Network.Name,
			rows: clientRows(unit.Network.Name, unit.Clients, raw),
		})
	}
	return writeWorkbook(dir, NetworkReportLabel, "Network Name", groups, raw, now)
}

// ExportDeviceWorkbook writes one sheet per device that saw clients plus a
// combined Summary sheet. When no device has any client data, no file is
// written and the returned path is empty.
func ExportDeviceWorkbook(dir string, units []report.DeviceUnit, raw bool, now time.Time) (string, error) {
	groups := make([]sheetGroup, 0, len(units))
	for _, unit := range units {
		name := unit.Device.DisplayName()
		groups = append(groups, sheetGroup{
			name: name,
			rows: clientRows(name, unit.Clients, raw),
		})
	}
	return writeWorkbook(dir, DeviceReportLabel, "Device Name", groups, raw, now)
}

// clientRows renders the export rows for one group, each led by the group
// name so the Summary sheet keeps its attribution.
func clientRows(groupName string, clients []meraki.Client, raw bool) [][]string {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		var values []string
		if raw {
			values = rawValues(c)
		} else {
			values = summaryValues(report.Summarize(groupName, c))
		}
		rows = append(rows, append([]string{groupName}, values...))
	}
	return rows
}

func writeWorkbook(dir, label, groupColumn string, groups []sheetGroup, raw bool, now time.Time) (string, error) {
	hasData := false
	for _, g := range groups {
		if len(g.rows) > 0 {
			hasData = true
			break
		}
	}
	if !hasData {
		return "", nil
	}

	header := append([]string{groupColumn}, columnSet(raw)...)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	var summaryRows [][]string
	for _, g := range groups {
		if len(g.rows) == 0 {
			continue
		}
		sheet := sheetName(g.name)
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		if err := setRow(f, sheet, 1, header); err != nil {
			return "", err
		}
		for i, row := range g.rows {
			if err := setRow(f, sheet, i+2, row); err != nil {
				return "", err
			}
			summaryRows = append(summaryRows, row)
		}
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return "", fmt.Errorf("create summary sheet: %w", err)
	}
	if err := setRow(f, "Summary", 1, header); err != nil {
		return "", err
	}
	for i, row := range summaryRows {
		if err := setRow(f, "Summary", i+2, row); err != nil {
			return "", err
		}
	}
	_ = f.DeleteSheet("Sheet1")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", label, now.Format(filenameTimeLayout)))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("write workbook %s: %w", path, err)
	}
	return path, nil
}

func columnSet(raw bool) []string {
	if raw {
		return rawColumns
	}
	return summaryColumns
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
