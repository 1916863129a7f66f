// Package meraki provides a client for the Cisco Meraki Dashboard API v1.
// It includes methods for querying organizations, networks, devices, and
// connected clients with automatic pagination. Rate limiting is surfaced as
// a typed error so callers can decide their own retry policy.
package meraki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Organization represents a Meraki organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Network represents a Meraki network.
type Network struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ProductTypes []string `json:"productTypes"`
}

// Device represents a Meraki device (appliance, switch, access point, etc.).
type Device struct {
	Serial      string   `json:"serial"`
	Name        string   `json:"name"`
	Model       string   `json:"model"`
	MAC         string   `json:"mac"`
	ProductType string   `json:"productType"`
	NetworkID   string   `json:"networkId"`
	Tags        []string `json:"tags"`
	LanIP       string   `json:"lanIp"`
	Firmware    string   `json:"firmware"`
	Address     string   `json:"address"`
	Notes       string   `json:"notes"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
}

// DisplayName returns the device name, falling back to the serial when the
// device was never named in the dashboard.
func (d Device) DisplayName() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return d.Serial
}

// Usage holds the byte counters reported for a client over the timespan.
type Usage struct {
	Sent float64 `json:"sent"`
	Recv float64 `json:"recv"`
}

// Client represents an end device observed connecting to a device or network.
// SSID is a pointer: the dashboard omits it (or sends null) for wired
// clients, and that presence/absence drives the wired/wireless split.
// VLAN is int or string depending on the reporting device model.
type Client struct {
	ID                   string  `json:"id"`
	MAC                  string  `json:"mac"`
	IP                   string  `json:"ip"`
	IP6                  string  `json:"ip6"`
	Description          string  `json:"description"`
	FirstSeen            string  `json:"firstSeen"`
	LastSeen             string  `json:"lastSeen"`
	Manufacturer         string  `json:"manufacturer"`
	OS                   string  `json:"os"`
	User                 string  `json:"user"`
	VLAN                 any     `json:"vlan"`
	SSID                 *string `json:"ssid"`
	Switchport           string  `json:"switchport"`
	WirelessCapabilities string  `json:"wirelessCapabilities"`
	SmInstalled          bool    `json:"smInstalled"`
	RecentDeviceMAC      string  `json:"recentDeviceMac"`
	Status               string  `json:"status"`
	Usage                *Usage  `json:"usage"`
	NamedVlan            string  `json:"namedVlan"`
	AdaptivePolicyGroup  string  `json:"adaptivePolicyGroup"`
	DeviceTypePrediction string  `json:"deviceTypePrediction"`
	RecentDeviceSerial   string  `json:"recentDeviceSerial"`
	RecentDeviceName     string  `json:"recentDeviceName"`
	RecentDeviceConn     string  `json:"recentDeviceConnection"`
	Notes                string  `json:"notes"`
	IP6Local             string  `json:"ip6Local"`
	GroupPolicy8021x     string  `json:"groupPolicy8021x"`
	PskGroup             string  `json:"pskGroup"`
}

// APIError is a non-2xx response from the Dashboard API.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("meraki API error %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a 429 response from the API.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// Dashboard is an HTTP client wrapper for the Meraki Dashboard API.
type Dashboard struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDashboard creates a new Dashboard API client.
func NewDashboard(apiKey, baseURL string) *Dashboard {
	if baseURL == "" {
		baseURL = "https://api.meraki.com/api/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Dashboard{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GetOrganizations retrieves all organizations accessible by the API key.
func (d *Dashboard) GetOrganizations(ctx context.Context) ([]Organization, error) {
	raws, err := d.getAllPages(ctx, "/organizations", url.Values{"perPage": []string{"1000"}})
	if err != nil {
		return nil, err
	}
	orgs := make([]Organization, 0, len(raws))
	for _, r := range raws {
		var o Organization
		if err := json.Unmarshal(r, &o); err != nil {
			return nil, fmt.Errorf("parse organization record: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, nil
}

// GetOrganizationNetworks retrieves all networks in an organization.
func (d *Dashboard) GetOrganizationNetworks(ctx context.Context, orgID string) ([]Network, error) {
	path := fmt.Sprintf("/organizations/%s/networks", orgID)
	raws, err := d.getAllPages(ctx, path, url.Values{"perPage": []string{"1000"}})
	if err != nil {
		return nil, err
	}
	nets := make([]Network, 0, len(raws))
	for _, r := range raws {
		var n Network
		if err := json.Unmarshal(r, &n); err != nil {
			return nil, fmt.Errorf("parse network record: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// GetOrganizationDevices retrieves all devices in an organization.
func (d *Dashboard) GetOrganizationDevices(ctx context.Context, orgID string) ([]Device, error) {
	path := fmt.Sprintf("/organizations/%s/devices", orgID)
	raws, err := d.getAllPages(ctx, path, url.Values{"perPage": []string{"1000"}})
	if err != nil {
		return nil, err
	}
	devs := make([]Device, 0, len(raws))
	for _, r := range raws {
		var dev Device
		if err := json.Unmarshal(r, &dev); err != nil {
			return nil, fmt.Errorf("parse device record: %w", err)
		}
		devs = append(devs, dev)
	}
	return devs, nil
}

// GetDeviceClients retrieves clients seen by a specific device during the
// timespan (in seconds).
func (d *Dashboard) GetDeviceClients(ctx context.Context, serial string, timespan int) ([]Client, error) {
	path := fmt.Sprintf("/devices/%s/clients", serial)
	return d.getClients(ctx, path, timespan)
}

// GetNetworkClients retrieves clients seen anywhere in a network during the
// timespan (in seconds).
func (d *Dashboard) GetNetworkClients(ctx context.Context, networkID string, timespan int) ([]Client, error) {
	path := fmt.Sprintf("/networks/%s/clients", networkID)
	return d.getClients(ctx, path, timespan)
}

func (d *Dashboard) getClients(ctx context.Context, path string, timespan int) ([]Client, error) {
	params := url.Values{
		"perPage":  []string{"1000"},
		"timespan": []string{strconv.Itoa(timespan)},
	}
	raws, err := d.getAllPages(ctx, path, params)
	if err != nil {
		return nil, err
	}
	clients := make([]Client, 0, len(raws))
	for _, r := range raws {
		var c Client
		if err := json.Unmarshal(r, &c); err != nil {
			return nil, fmt.Errorf("parse client record: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// getAllPages handles pagination for API endpoints that return arrays.
// It follows the Link header with rel="next" until all pages are retrieved,
// so callers always receive a fully materialized list.
func (d *Dashboard) getAllPages(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	fullURL := d.buildURL(path, params)
	var all []json.RawMessage
	for {
		body, next, err := d.doRequest(ctx, http.MethodGet, fullURL)
		if err != nil {
			return nil, err
		}
		var page []json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			break
		}
		fullURL = next
	}
	return all, nil
}

// buildURL constructs a full API URL from a path and query parameters.
func (d *Dashboard) buildURL(path string, params url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base := d.baseURL + path
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}

// doRequest executes a single HTTP request. A 429 comes back as a typed
// *APIError that IsRateLimited recognizes; the retry policy lives with the
// caller. Returns the response body, next page URL (from the Link header),
// and any error.
func (d *Dashboard) doRequest(ctx context.Context, method, fullURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("X-Cisco-Meraki-API-Key", d.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, "", &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	next := parseLinkNext(resp.Header.Get("Link"))
	return body, next, nil
}

// parseLinkNext extracts the next page URL from a Link header.
// Example Link header: <https://api.meraki.com/api/v1/...?page=2>; rel="next"
func parseLinkNext(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		section := strings.TrimSpace(part)
		if !strings.Contains(section, "rel=\"next\"") {
			continue
		}
		start := strings.Index(section, "<")
		end := strings.Index(section, ">")
		if start == -1 || end == -1 || end <= start+1 {
			continue
		}
		return section[start+1 : end]
	}
	return ""
}
