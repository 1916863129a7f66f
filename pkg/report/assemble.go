package report

import (
	"strconv"
	"time"

	"Meraki-Client-History-Report/pkg/filters"
	"Meraki-Client-History-Report/pkg/macaddr"
	"Meraki-Client-History-Report/pkg/meraki"
)

const (
	upstreamTimeLayout = "2006-01-02T15:04:05Z"
	displayTimeLayout  = "2006-01-02 15:04:05"
)

// SummaryRecord is the normalized per-client row used for the console
// summary table and the combined Summary sheet. Absent source fields
// render as empty strings.
type SummaryRecord struct {
	GroupName          string
	IP                 string
	MAC                string
	OUI                string
	Manufacturer       string
	Description        string
	SSID               string
	OS                 string
	FirstSeen          string
	LastSeen           string
	Status             string
	Sent               string
	Recv               string
	User               string
	RecentDeviceSerial string
}

// AssembleNetworks applies the reporting mode to every network unit and
// drops units whose filtered client list is empty. When raw is set the
// clients pass through unfiltered, but empty units are still dropped.
func AssembleNetworks(units []NetworkUnit, mode filters.Mode, raw bool) []NetworkUnit {
	var out []NetworkUnit
	for _, unit := range units {
		clients := unit.Clients
		if !raw {
			clients = filters.ClientsByMode(clients, mode)
		}
		if len(clients) == 0 {
			continue
		}
		out = append(out, NetworkUnit{Network: unit.Network, Clients: clients})
	}
	return out
}

// AssembleDevices applies the reporting mode to every device unit. Unlike
// network assembly, units with no remaining clients are retained so the
// report still shows the full device inventory.
func AssembleDevices(units []DeviceUnit, mode filters.Mode, raw bool) []DeviceUnit {
	out := make([]DeviceUnit, 0, len(units))
	for _, unit := range units {
		clients := unit.Clients
		if !raw {
			clients = filters.ClientsByMode(clients, mode)
		}
		out = append(out, DeviceUnit{Device: unit.Device, Clients: clients})
	}
	return out
}

// Summarize derives the normalized record for one client, attributed to the
// network or device group it was fetched under.
func Summarize(groupName string, c meraki.Client) SummaryRecord {
	rec := SummaryRecord{
		GroupName:          groupName,
		IP:                 c.IP,
		MAC:                c.MAC,
		OUI:                macaddr.OUI(c.MAC),
		Manufacturer:       c.Manufacturer,
		Description:        c.Description,
		OS:                 c.OS,
		FirstSeen:          formatSeen(c.FirstSeen),
		LastSeen:           formatSeen(c.LastSeen),
		Status:             c.Status,
		User:               c.User,
		RecentDeviceSerial: c.RecentDeviceSerial,
	}
	if c.SSID != nil {
		rec.SSID = *c.SSID
	}
	if c.Usage != nil {
		rec.Sent = strconv.FormatFloat(c.Usage.Sent, 'f', -1, 64)
		rec.Recv = strconv.FormatFloat(c.Usage.Recv, 'f', -1, 64)
	}
	return rec
}

// NetworkSummaries flattens assembled network units into summary records in
// group order.
func NetworkSummaries(units []NetworkUnit) []SummaryRecord {
	var records []SummaryRecord
	for _, unit := range units {
		for _, c := range unit.Clients {
			records = append(records, Summarize(unit.Network.Name, c))
		}
	}
	return records
}

// DeviceSummaries flattens assembled device units into summary records in
// group order.
func DeviceSummaries(units []DeviceUnit) []SummaryRecord {
	var records []SummaryRecord
	for _, unit := range units {
		for _, c := range unit.Clients {
			records = append(records, Summarize(unit.Device.DisplayName(), c))
		}
	}
	return records
}

// HasClients reports whether any network unit carries at least one client.
func HasClients(units []NetworkUnit) bool {
	for _, unit := range units {
		if len(unit.Clients) > 0 {
			return true
		}
	}
	return false
}

// HasDeviceClients reports whether any device unit carries at least one client.
func HasDeviceClients(units []DeviceUnit) bool {
	for _, unit := range units {
		if len(unit.Clients) > 0 {
			return true
		}
	}
	return false
}

// formatSeen reformats an upstream timestamp to the display format. An
// empty input stays empty; a value in an unexpected format passes through
// unchanged rather than being lost.
func formatSeen(ts string) string {
	if ts == "" {
		return ""
	}
	parsed, err := time.Parse(upstreamTimeLayout, ts)
	if err != nil {
		return ts
	}
	return parsed.Format(displayTimeLayout)
}
