package tinygo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blescope/internal/device"
	"github.com/stretchr/testify/suite"
	"tinygo.org/x/bluetooth"
)

type fakePayload struct {
	bluetooth.AdvertisementPayload
	name string
}

func (p fakePayload) LocalName() string { return p.name }

// fakeAdapter replays results and then blocks like a real scan until StopScan
type fakeAdapter struct {
	enableErr  error
	results    []bluetooth.ScanResult
	connectErr error

	mu          sync.Mutex
	enableCalls int
	stop        chan struct{}
	connected   []bluetooth.Address
}

func (a *fakeAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enableCalls++
	return a.enableErr
}

func (a *fakeAdapter) Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error {
	a.mu.Lock()
	a.stop = make(chan struct{})
	stop := a.stop
	a.mu.Unlock()

	for _, r := range a.results {
		callback(nil, r)
	}
	<-stop
	return nil
}

func (a *fakeAdapter) StopScan() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop == nil {
		return errors.New("not scanning")
	}
	close(a.stop)
	a.stop = nil
	return nil
}

func (a *fakeAdapter) Connect(address bluetooth.Address, _ bluetooth.ConnectionParams) (bluetooth.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = append(a.connected, address)
	return bluetooth.Device{}, a.connectErr
}

type fakePeripheral struct {
	services      []bluetooth.DeviceService
	discoverErr   error
	disconnectErr error
	disconnects   int
}

func (p *fakePeripheral) DiscoverServices(_ []bluetooth.UUID) ([]bluetooth.DeviceService, error) {
	return p.services, p.discoverErr
}

func (p *fakePeripheral) Disconnect() error {
	p.disconnects++
	return p.disconnectErr
}

type TinygoBackendTestSuite struct {
	suite.Suite
	originalFactory func() Adapter
	originalWrap    func(bluetooth.Device) Peripheral
	originalLookup  time.Duration

	adapter    *fakeAdapter
	peripheral *fakePeripheral
	backend    *Backend
	addr       bluetooth.Address
}

func (s *TinygoBackendTestSuite) SetupSuite() {
	s.originalFactory = AdapterFactory
	s.originalWrap = wrapPeripheral
	s.originalLookup = lookupScanTimeout
	lookupScanTimeout = 100 * time.Millisecond
}

func (s *TinygoBackendTestSuite) TearDownSuite() {
	AdapterFactory = s.originalFactory
	wrapPeripheral = s.originalWrap
	lookupScanTimeout = s.originalLookup
}

func (s *TinygoBackendTestSuite) SetupTest() {
	s.addr = bluetooth.Address{}
	s.adapter = &fakeAdapter{
		results: []bluetooth.ScanResult{
			{Address: s.addr, RSSI: -42, AdvertisementPayload: fakePayload{name: "Sensor"}},
			{Address: s.addr, RSSI: -40, AdvertisementPayload: fakePayload{name: "Sensor"}},
		},
	}
	s.peripheral = &fakePeripheral{services: make([]bluetooth.DeviceService, 2)}
	AdapterFactory = func() Adapter { return s.adapter }
	wrapPeripheral = func(bluetooth.Device) Peripheral { return s.peripheral }

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s.backend = NewBackend(logger)
}

func (s *TinygoBackendTestSuite) scan(allowDup bool) ([]device.Advertisement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var mu sync.Mutex
	var got []device.Advertisement
	err := s.backend.Scan(ctx, allowDup, func(adv device.Advertisement) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, adv)
	})
	return got, err
}

func (s *TinygoBackendTestSuite) TestScan_StopsAtDeadline() {
	got, err := s.scan(false)

	s.Require().NoError(err, "reaching the scan deadline MUST NOT be an error")
	s.Require().Len(got, 1, "duplicates MUST be filtered when allowDup is false")
	s.Equal("Sensor", got[0].LocalName())
	s.Equal(s.addr.String(), got[0].Addr())
	s.Equal(-42, got[0].RSSI())
}

func (s *TinygoBackendTestSuite) TestScan_AllowDuplicates() {
	got, err := s.scan(true)

	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *TinygoBackendTestSuite) TestScan_EnableFailure() {
	s.adapter.enableErr = errors.New("bluetooth is turned off")

	_, err := s.scan(false)
	s.ErrorIs(err, device.ErrBluetoothOff)

	_, err = s.scan(false)
	s.ErrorIs(err, device.ErrBluetoothOff)
	s.Equal(1, s.adapter.enableCalls, "adapter MUST be enabled at most once")
}

func (s *TinygoBackendTestSuite) TestScan_Concurrent() {
	first := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		first <- s.backend.Scan(ctx, false, func(device.Advertisement) {})
	}()

	s.Eventually(func() bool {
		s.backend.scanMu.Lock()
		defer s.backend.scanMu.Unlock()
		return s.backend.scanning
	}, time.Second, 5*time.Millisecond)

	err := s.backend.Scan(context.Background(), false, func(device.Advertisement) {})
	s.ErrorIs(err, ErrScanInProgress)

	cancel()
	s.ErrorIs(<-first, context.Canceled)
}

func (s *TinygoBackendTestSuite) TestDial_UsesScanCache() {
	_, err := s.scan(false)
	s.Require().NoError(err)
	s.adapter.results = nil

	cli, err := s.backend.Dial(context.Background(), s.addr.String())
	s.Require().NoError(err)
	s.Equal(s.addr.String(), cli.Address())
	s.Equal([]bluetooth.Address{s.addr}, s.adapter.connected)
}

func (s *TinygoBackendTestSuite) TestDial_ScansForUnknownAddress() {
	cli, err := s.backend.Dial(context.Background(), s.addr.String())

	s.Require().NoError(err)
	s.True(cli.IsConnected())
}

func (s *TinygoBackendTestSuite) TestDial_NotFound() {
	_, err := s.backend.Dial(context.Background(), "de:ad:be:ef:00:01")
	s.ErrorIs(err, device.ErrNotFound)
}

func (s *TinygoBackendTestSuite) TestDial_ConnectFailure() {
	s.adapter.connectErr = errors.New("connection timed out")

	_, err := s.backend.Dial(context.Background(), s.addr.String())
	s.Require().Error(err)
	s.Contains(err.Error(), "connection timed out")
}

func (s *TinygoBackendTestSuite) TestClient_Lifecycle() {
	cli, err := s.backend.Dial(context.Background(), s.addr.String())
	s.Require().NoError(err)

	svcs, err := cli.Services(context.Background())
	s.Require().NoError(err)
	s.Len(svcs, 2)

	s.NoError(cli.Disconnect())
	s.NoError(cli.Disconnect())
	s.Equal(1, s.peripheral.disconnects)
	s.False(cli.IsConnected())

	_, err = cli.Services(context.Background())
	s.ErrorIs(err, device.ErrNotConnected)
}

func TestTinygoBackendTestSuite(t *testing.T) {
	suite.Run(t, new(TinygoBackendTestSuite))
}
