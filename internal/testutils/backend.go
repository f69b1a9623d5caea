package testutils

import (
	"context"
	"sync"

	"github.com/srg/blescope/internal/device"
	"github.com/stretchr/testify/mock"
)

// Advertisement is a canned advertising report
type Advertisement struct {
	Name    string
	Address string
	Signal  int
}

func (a Advertisement) LocalName() string { return a.Name }
func (a Advertisement) Addr() string      { return a.Address }
func (a Advertisement) RSSI() int         { return a.Signal }

// Adv builds an Advertisement with a typical RSSI
func Adv(name, address string) Advertisement {
	return Advertisement{Name: name, Address: address, Signal: -60}
}

// Service is a canned GATT service
type Service string

func (s Service) UUID() string { return string(s) }

// Services converts UUID strings into device services
func Services(uuids ...string) []device.Service {
	result := make([]device.Service, len(uuids))
	for i, u := range uuids {
		result[i] = Service(u)
	}
	return result
}

// MockBackend is a testify mock of device.Backend.
//
// Scan replays the configured advertisements to the handler and then returns
// whatever the "Scan" expectation returns:
//
//	backend := testutils.NewMockBackend("mock").WithAdvertisements(
//	    testutils.Adv("Sensor", "AA:BB:CC:DD:EE:01"),
//	)
//	backend.On("Scan", mock.Anything, true).Return(nil)
type MockBackend struct {
	mock.Mock
	name string

	mu      sync.Mutex
	adverts []device.Advertisement
}

// NewMockBackend creates a mock backend reporting the given name
func NewMockBackend(name string) *MockBackend {
	return &MockBackend{name: name}
}

// WithAdvertisements sets the reports replayed by each Scan call
func (m *MockBackend) WithAdvertisements(advs ...device.Advertisement) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adverts = append([]device.Advertisement(nil), advs...)
	return m
}

func (m *MockBackend) Name() string { return m.name }

func (m *MockBackend) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	args := m.Called(ctx, allowDup)

	m.mu.Lock()
	advs := m.adverts
	m.mu.Unlock()

	for _, adv := range advs {
		handler(adv)
	}
	return args.Error(0)
}

func (m *MockBackend) Dial(ctx context.Context, address string) (device.Client, error) {
	args := m.Called(ctx, address)
	cli, _ := args.Get(0).(device.Client)
	return cli, args.Error(1)
}

// MockClient is a testify mock of device.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Address() string {
	return m.Called().String(0)
}

func (m *MockClient) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *MockClient) Services(ctx context.Context) ([]device.Service, error) {
	args := m.Called(ctx)
	svcs, _ := args.Get(0).([]device.Service)
	return svcs, args.Error(1)
}

func (m *MockClient) Disconnect() error {
	return m.Called().Error(0)
}

// NewConnectedClient returns a client mock that reports a live link,
// lists the given services and disconnects cleanly.
func NewConnectedClient(address string, uuids ...string) *MockClient {
	cli := &MockClient{}
	cli.On("Address").Return(address).Maybe()
	cli.On("IsConnected").Return(true)
	cli.On("Services", mock.Anything).Return(Services(uuids...), nil)
	cli.On("Disconnect").Return(nil)
	return cli
}
