// Package output renders assembled report data as console tables and Excel
// workbooks.
package output

import (
	"fmt"
	"io"
	"strings"

	"Meraki-Client-History-Report/pkg/meraki"
	"Meraki-Client-History-Report/pkg/report"
)

// summaryColumns is the normalized column set for the filtered report.
var summaryColumns = []string{
	"IP", "MAC", "OUI", "Manufacturer", "Description", "SSID", "OS",
	"First Seen", "Last Seen", "Status", "Sent Data", "Received Data",
	"User", "Meraki Device Serial (Connected to)",
}

// rawColumns is the full upstream field set used with the raw flag.
var rawColumns = []string{
	"id", "mac", "ip", "ip6", "description", "firstSeen", "lastSeen",
	"manufacturer", "os", "user", "vlan", "ssid", "switchport",
	"wirelessCapabilities", "smInstalled", "recentDeviceMac", "status",
	"usage", "namedVlan", "adaptivePolicyGroup", "deviceTypePrediction",
	"recentDeviceSerial", "recentDeviceName", "recentDeviceConnection",
	"notes", "ip6Local", "groupPolicy8021x", "pskGroup",
}

// deviceColumns is the organization-wide device inventory column set.
var deviceColumns = []string{
	"Name", "Lat", "Lng", "Address", "Notes", "Tags", "NetworkId",
	"Serial", "Model", "Mac", "LanIp", "Firmware", "ProductType",
}

// WriteSummaryTable writes summary records as an aligned text table.
func WriteSummaryTable(w io.Writer, records []report.SummaryRecord) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, summaryValues(rec))
	}
	writeTable(w, summaryColumns, rows)
}

// WriteRawTable writes every upstream client field as an aligned text table.
func WriteRawTable(w io.Writer, clients []meraki.Client) {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, rawValues(c))
	}
	writeTable(w, rawColumns, rows)
}

// WriteDeviceTable writes the organization device inventory as an aligned
// text table.
func WriteDeviceTable(w io.Writer, devices []meraki.Device) {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{
			d.Name,
			floatValue(d.Lat),
			floatValue(d.Lng),
			d.Address,
			d.Notes,
			strings.Join(d.Tags, ", "),
			d.NetworkID,
			d.Serial,
			d.Model,
			d.MAC,
			d.LanIP,
			d.Firmware,
			d.ProductType,
		})
	}
	writeTable(w, deviceColumns, rows)
}

func summaryValues(rec report.SummaryRecord) []string {
	return []string{
		rec.IP, rec.MAC, rec.OUI, rec.Manufacturer, rec.Description,
		rec.SSID, rec.OS, rec.FirstSeen, rec.LastSeen, rec.Status,
		rec.Sent, rec.Recv, rec.User, rec.RecentDeviceSerial,
	}
}

func rawValues(c meraki.Client) []string {
	return []string{
		c.ID, c.MAC, c.IP, c.IP6, c.Description, c.FirstSeen, c.LastSeen,
		c.Manufacturer, c.OS, c.User, anyValue(c.VLAN), ssidValue(c.SSID),
		c.Switchport, c.WirelessCapabilities, boolValue(c.SmInstalled),
		c.RecentDeviceMAC, c.Status, usageValue(c.Usage), c.NamedVlan,
		c.AdaptivePolicyGroup, c.DeviceTypePrediction, c.RecentDeviceSerial,
		c.RecentDeviceName, c.RecentDeviceConn, c.Notes, c.IP6Local,
		c.GroupPolicy8021x, c.PskGroup,
	}
}

// writeTable writes rows with aligned columns, separated header, and a
// closing rule. Missing values render as empty strings.
func writeTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, v := range row {
			if i < len(widths) && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	separator := strings.Repeat("-", sum(widths)+len(widths)*3-1)
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, formatRow(headers, widths))
	fmt.Fprintln(w, separator)
	for _, row := range rows {
		fmt.Fprintln(w, formatRow(row, widths))
	}
	fmt.Fprintln(w, separator)
}

// formatRow formats a row of values with column widths for text table output.
func formatRow(values []string, widths []int) string {
	var parts []string
	for i, v := range values {
		parts = append(parts, fmt.Sprintf("%-*s", widths[i], v))
	}
	return strings.Join(parts, " | ")
}

// sum calculates the sum of integers in a slice.
func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func anyValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func ssidValue(ssid *string) string {
	if ssid == nil {
		return ""
	}
	return *ssid
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func usageValue(u *meraki.Usage) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf("sent: %v, recv: %v", u.Sent, u.Recv)
}

func floatValue(f float64) string {
	if f == 0 {
		return ""
	}
	return fmt.Sprint(f)
}
