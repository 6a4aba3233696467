package mocks

import (
	"github.com/stretchr/testify/mock"
)

// TransportMock records what a connection is asked to send.
type TransportMock struct {
	mock.Mock
}

func (m *TransportMock) SendJSON(v any) error {
	args := m.Called(v)
	return args.Error(0)
}

func (m *TransportMock) SendText(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *TransportMock) SendBytes(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *TransportMock) Send(v any) error {
	args := m.Called(v)
	return args.Error(0)
}

func (m *TransportMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
