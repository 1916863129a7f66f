package report

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"Meraki-Client-History-Report/pkg/meraki"
)

type scriptedResponse struct {
	clients []meraki.Client
	err     error
}

// fakeDashboard serves scripted per-unit responses and counts calls.
type fakeDashboard struct {
	networks []meraki.Network
	devices  []meraki.Device
	enumErr  error

	responses map[string][]scriptedResponse
	calls     map[string]int
}

func newFakeDashboard() *fakeDashboard {
	return &fakeDashboard{
		responses: make(map[string][]scriptedResponse),
		calls:     make(map[string]int),
	}
}

func (f *fakeDashboard) script(unitID string, rs ...scriptedResponse) {
	f.responses[unitID] = rs
}

func (f *fakeDashboard) next(unitID string) ([]meraki.Client, error) {
	n := f.calls[unitID]
	f.calls[unitID] = n + 1
	rs := f.responses[unitID]
	if len(rs) == 0 {
		return nil, nil
	}
	if n >= len(rs) {
		n = len(rs) - 1
	}
	return rs[n].clients, rs[n].err
}

func (f *fakeDashboard) GetOrganizationNetworks(_ context.Context, _ string) ([]meraki.Network, error) {
	return f.networks, f.enumErr
}

func (f *fakeDashboard) GetOrganizationDevices(_ context.Context, _ string) ([]meraki.Device, error) {
	return f.devices, f.enumErr
}

func (f *fakeDashboard) GetDeviceClients(_ context.Context, serial string, _ int) ([]meraki.Client, error) {
	return f.next(serial)
}

func (f *fakeDashboard) GetNetworkClients(_ context.Context, networkID string, _ int) ([]meraki.Client, error) {
	return f.next(networkID)
}

func rateLimited() error {
	return &meraki.APIError{StatusCode: http.StatusTooManyRequests, Body: "Too many requests"}
}

func testOptions() Options {
	return Options{
		Timespan:            86400,
		MaxRetries:          3,
		RateLimitPause:      time.Millisecond,
		AllowedProductTypes: []string{"appliance", "switch", "wireless", "cellularGateway"},
	}
}

func wirelessNetwork(id, name string) meraki.Network {
	return meraki.Network{ID: id, Name: name, ProductTypes: []string{"wireless"}}
}

func TestFetchByNetwork_RateLimitedThenSuccess(t *testing.T) {
	dash := newFakeDashboard()
	dash.networks = []meraki.Network{wirelessNetwork("n1", "HQ")}
	dash.script("n1",
		scriptedResponse{err: rateLimited()},
		scriptedResponse{err: rateLimited()},
		scriptedResponse{clients: []meraki.Client{{MAC: "aa:bb:cc:dd:ee:01"}}},
	)

	f := NewFetcher(dash, nil, testOptions())
	units, err := f.FetchByNetwork(context.Background(), "org1")
	if err != nil {
		t.Fatalf("FetchByNetwork() error = %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	if len(units[0].Clients) != 1 || units[0].Clients[0].MAC != "aa:bb:cc:dd:ee:01" {
		t.Errorf("unit clients = %+v, want the single client exactly once", units[0].Clients)
	}
	if dash.calls["n1"] != 3 {
		t.Errorf("made %d calls, want 3 (two rate-limited, one success)", dash.calls["n1"])
	}
}

func TestFetchByNetwork_ExhaustsRetriesAndContinues(t *testing.T) {
	dash := newFakeDashboard()
	dash.networks = []meraki.Network{
		wirelessNetwork("n1", "HQ"),
		wirelessNetwork("n2", "Branch"),
	}
	dash.script("n1", scriptedResponse{err: rateLimited()})
	dash.script("n2", scriptedResponse{clients: []meraki.Client{{MAC: "aa:bb:cc:dd:ee:02"}}})

	f := NewFetcher(dash, nil, testOptions())
	units, err := f.FetchByNetwork(context.Background(), "org1")
	if err != nil {
		t.Fatalf("FetchByNetwork() error = %v", err)
	}
	if dash.calls["n1"] != 4 {
		t.Errorf("rate-limited unit got %d attempts, want 4 (1 + 3 retries)", dash.calls["n1"])
	}
	if len(units) != 1 || units[0].Network.ID != "n2" {
		t.Fatalf("units = %+v, want only n2 after n1 failed", units)
	}
}

func TestFetchByNetwork_NonRateLimitErrorAbandonsImmediately(t *testing.T) {
	dash := newFakeDashboard()
	dash.networks = []meraki.Network{wirelessNetwork("n1", "HQ")}
	dash.script("n1", scriptedResponse{err: &meraki.APIError{StatusCode: http.StatusInternalServerError}})

	f := NewFetcher(dash, nil, testOptions())
	units, err := f.FetchByNetwork(context.Background(), "org1")
	if err != nil {
		t.Fatalf("FetchByNetwork() error = %v", err)
	}
	if dash.calls["n1"] != 1 {
		t.Errorf("made %d calls, want 1: non-rate-limit errors are not retried", dash.calls["n1"])
	}
	if len(units) != 0 {
		t.Errorf("got %d units, want 0", len(units))
	}
}

func TestFetchByNetwork_SkipsDisallowedProductTypes(t *testing.T) {
	dash := newFakeDashboard()
	dash.networks = []meraki.Network{
		{ID: "n1", Name: "Cameras", ProductTypes: []string{"camera"}},
		wirelessNetwork("n2", "HQ"),
	}
	dash.script("n2", scriptedResponse{clients: []meraki.Client{{MAC: "aa:bb:cc:dd:ee:03"}}})

	f := NewFetcher(dash, nil, testOptions())
	units, err := f.FetchByNetwork(context.Background(), "org1")
	if err != nil {
		t.Fatalf("FetchByNetwork() error = %v", err)
	}
	if dash.calls["n1"] != 0 {
		t.Errorf("camera-only network was fetched %d times, want 0", dash.calls["n1"])
	}
	if len(units) != 1 || units[0].Network.ID != "n2" {
		t.Errorf("units = %+v, want only n2", units)
	}
}

func TestFetchByNetwork_EnumerationFailureIsFatal(t *testing.T) {
	dash := newFakeDashboard()
	dash.enumErr = errors.New("boom")

	f := NewFetcher(dash, nil, testOptions())
	if _, err := f.FetchByNetwork(context.Background(), "org1"); err == nil {
		t.Fatal("expected enumeration error to propagate")
	}
}

func TestFetchByDevice_FailedUnitRetainedEmpty(t *testing.T) {
	dash := newFakeDashboard()
	dash.devices = []meraki.Device{
		{Serial: "Q1", Name: "sw-1", ProductType: "switch"},
		{Serial: "Q2", Name: "ap-1", ProductType: "wireless"},
	}
	dash.script("Q1", scriptedResponse{err: &meraki.APIError{StatusCode: http.StatusNotFound}})
	dash.script("Q2", scriptedResponse{clients: []meraki.Client{{MAC: "aa:bb:cc:dd:ee:04"}}})

	f := NewFetcher(dash, nil, testOptions())
	units, err := f.FetchByDevice(context.Background(), "org1")
	if err != nil {
		t.Fatalf("FetchByDevice() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2: failed device stays in the inventory", len(units))
	}
	if len(units[0].Clients) != 0 {
		t.Errorf("failed device contributed %d clients, want 0", len(units[0].Clients))
	}
	if len(units[1].Clients) != 1 {
		t.Errorf("healthy device has %d clients, want 1", len(units[1].Clients))
	}
}

func TestFetchByDevice_SkipsDisallowedProductTypes(t *testing.T) {
	dash := newFakeDashboard()
	dash.devices = []meraki.Device{
		{Serial: "Q1", ProductType: "camera"},
		{Serial: "Q2", ProductType: "sensor"},
		{Serial: "Q3", ProductType: "appliance"},
	}
	dash.script("Q3", scriptedResponse{})

	f := NewFetcher(dash, nil, testOptions())
	units, err := f.FetchByDevice(context.Background(), "org1")
	if err != nil {
		t.Fatalf("FetchByDevice() error = %v", err)
	}
	if dash.calls["Q1"] != 0 || dash.calls["Q2"] != 0 {
		t.Error("camera/sensor devices must not be queried")
	}
	if len(units) != 1 || units[0].Device.Serial != "Q3" {
		t.Errorf("units = %+v, want only Q3", units)
	}
}

func TestFetchPacing_AfterBurstAllowance(t *testing.T) {
	dash := newFakeDashboard()
	dash.networks = []meraki.Network{
		wirelessNetwork("n1", "A"),
		wirelessNetwork("n2", "B"),
		wirelessNetwork("n3", "C"),
	}
	for _, id := range []string{"n1", "n2", "n3"} {
		dash.script(id, scriptedResponse{clients: []meraki.Client{{MAC: id}}})
	}

	opts := testOptions()
	opts.PacingDelay = 50 * time.Millisecond
	opts.BurstAllowance = 1

	f := NewFetcher(dash, nil, opts)
	var paced int
	f.sleep = func(time.Duration) { paced++ }

	if _, err := f.FetchByNetwork(context.Background(), "org1"); err != nil {
		t.Fatalf("FetchByNetwork() error = %v", err)
	}
	if paced != 2 {
		t.Errorf("pacing delay applied %d times, want 2 (after the burst allowance of 1)", paced)
	}
}
