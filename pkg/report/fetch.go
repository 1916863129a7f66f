// Package report fetches client history for every device or network in an
// organization and assembles the results into the report shapes the
// presentation layer renders.
package report

import (
	"context"
	"time"

	"Meraki-Client-History-Report/pkg/filters"
	"Meraki-Client-History-Report/pkg/logger"
	"Meraki-Client-History-Report/pkg/meraki"

	"github.com/codeGROOVE-dev/retry"
)

// Dashboard is the slice of the Meraki API the fetcher needs. It is
// satisfied by *meraki.Dashboard and by test fakes.
type Dashboard interface {
	GetOrganizationNetworks(ctx context.Context, orgID string) ([]meraki.Network, error)
	GetOrganizationDevices(ctx context.Context, orgID string) ([]meraki.Device, error)
	GetDeviceClients(ctx context.Context, serial string, timespan int) ([]meraki.Client, error)
	GetNetworkClients(ctx context.Context, networkID string, timespan int) ([]meraki.Client, error)
}

// Options tunes the fetch loop. MaxRetries counts retries after the first
// attempt, so a unit is tried at most MaxRetries+1 times.
type Options struct {
	Timespan            int
	MaxRetries          int
	RateLimitPause      time.Duration
	PacingDelay         time.Duration
	BurstAllowance      int
	AllowedProductTypes []string
}

// DeviceUnit is one device and the clients fetched for it.
type DeviceUnit struct {
	Device  meraki.Device
	Clients []meraki.Client
}

// NetworkUnit is one network and the clients fetched for it.
type NetworkUnit struct {
	Network meraki.Network
	Clients []meraki.Client
}

// Fetcher runs the sequential, rate-limited fetch loop. Units are fetched
// one at a time; a failed unit is logged and the loop moves on.
type Fetcher struct {
	dash  Dashboard
	log   *logger.Logger
	opts  Options
	sleep func(time.Duration)

	successes int
}

// NewFetcher creates a fetcher. A nil logger disables logging.
func NewFetcher(dash Dashboard, log *logger.Logger, opts Options) *Fetcher {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Fetcher{
		dash:  dash,
		log:   log,
		opts:  opts,
		sleep: time.Sleep,
	}
}

// FetchByDevice retrieves the client list of every allowed device in the
// organization. Devices whose product type is outside the allowed set are
// skipped before any call. A device whose fetch fails stays in the result
// with an empty client list so the inventory view remains complete.
// Enumeration failure is fatal and returned to the caller.
func (f *Fetcher) FetchByDevice(ctx context.Context, orgID string) ([]DeviceUnit, error) {
	devices, err := f.dash.GetOrganizationDevices(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var units []DeviceUnit
	for _, device := range devices {
		if !filters.DeviceHasAllowedProductType(device, f.opts.AllowedProductTypes) {
			f.log.Infof("Skipping device %s due to its product type not being in the allowed list.", device.Serial)
			continue
		}
		serial := device.Serial
		clients, err := f.fetchUnit(ctx, func() ([]meraki.Client, error) {
			return f.dash.GetDeviceClients(ctx, serial, f.opts.Timespan)
		})
		if err != nil {
			f.log.Errorf("Failed to get clients for device with serial %s. Error: %v", serial, err)
			units = append(units, DeviceUnit{Device: device})
			continue
		}
		units = append(units, DeviceUnit{Device: device, Clients: clients})
	}
	return units, nil
}

// FetchByNetwork retrieves the client list of every allowed network in the
// organization. Networks carrying none of the allowed product types are
// skipped before any call. A network whose fetch fails is excluded from the
// result. Enumeration failure is fatal and returned to the caller.
func (f *Fetcher) FetchByNetwork(ctx context.Context, orgID string) ([]NetworkUnit, error) {
	networks, err := f.dash.GetOrganizationNetworks(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var units []NetworkUnit
	for _, network := range networks {
		if !filters.NetworkHasAllowedProductType(network, f.opts.AllowedProductTypes) {
			f.log.Infof("Skipping network %s due to not having any of the allowed product types.", network.ID)
			continue
		}
		networkID := network.ID
		clients, err := f.fetchUnit(ctx, func() ([]meraki.Client, error) {
			return f.dash.GetNetworkClients(ctx, networkID, f.opts.Timespan)
		})
		if err != nil {
			f.log.Errorf("Failed to get clients for network with network id: %s. Error: %v", networkID, err)
			continue
		}
		units = append(units, NetworkUnit{Network: network, Clients: clients})
	}
	return units, nil
}

// fetchUnit runs one client-list call under the retry policy: rate-limit
// responses are retried after a fixed pause up to MaxRetries times, any
// other error abandons the unit immediately. After a success past the
// burst allowance a pacing delay keeps the loop under the request-rate
// ceiling.
func (f *Fetcher) fetchUnit(ctx context.Context, call func() ([]meraki.Client, error)) ([]meraki.Client, error) {
	clients, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(uint(f.opts.MaxRetries)+1),
		retry.Delay(f.opts.RateLimitPause),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(meraki.IsRateLimited),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	f.successes++
	if f.successes > f.opts.BurstAllowance && f.opts.PacingDelay > 0 {
		f.sleep(f.opts.PacingDelay)
	}
	return clients, nil
}
