// Package filters provides product-type filtering for devices and networks
// and the wired/wireless split for connected clients.
package filters

import (
	"fmt"
	"strings"

	"Meraki-Client-History-Report/pkg/meraki"
)

// Mode selects which clients a report includes.
type Mode string

const (
	// ModeAll keeps every client.
	ModeAll Mode = "all"
	// ModeWired keeps clients without an SSID.
	ModeWired Mode = "wired"
	// ModeWireless keeps clients with an SSID.
	ModeWireless Mode = "wireless"
)

// ParseMode validates a mode string from the command line.
// An empty string defaults to ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ModeAll, nil
	case ModeAll:
		return ModeAll, nil
	case ModeWired:
		return ModeWired, nil
	case ModeWireless:
		return ModeWireless, nil
	}
	return "", fmt.Errorf("invalid product type %q: valid options are: all, wired, wireless", s)
}

// DefaultAllowedProductTypes lists the product types whose devices and
// networks support the clients endpoints. Calls against MV cameras and MT
// sensors fail upstream, so both report modes skip them.
func DefaultAllowedProductTypes() []string {
	return []string{"appliance", "switch", "wireless", "cellularGateway"}
}

// DeviceHasAllowedProductType reports whether a device's product type is in
// the allowed set.
func DeviceHasAllowedProductType(d meraki.Device, allowed []string) bool {
	return containsString(allowed, d.ProductType)
}

// NetworkHasAllowedProductType reports whether a network carries at least
// one allowed product type.
func NetworkHasAllowedProductType(n meraki.Network, allowed []string) bool {
	for _, pt := range n.ProductTypes {
		if containsString(allowed, pt) {
			return true
		}
	}
	return false
}

// IsWireless reports whether a client connected over wireless: the
// dashboard includes a non-null ssid field only for wireless clients.
func IsWireless(c meraki.Client) bool {
	return c.SSID != nil
}

// ClientsByMode returns the clients matching the mode. ModeAll returns the
// input unchanged. ModeWired and ModeWireless partition the input: every
// client lands in exactly one of the two.
func ClientsByMode(clients []meraki.Client, mode Mode) []meraki.Client {
	if mode == ModeAll {
		return clients
	}
	var kept []meraki.Client
	for _, c := range clients {
		if IsWireless(c) == (mode == ModeWireless) {
			kept = append(kept, c)
		}
	}
	return kept
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
