package hc05_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/bluetooth/hc05"
)

type MockSequenceBuilder struct {
	transport *hc05.MockTransport
	calls     []any
}

func NewMockSequence(transport *hc05.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Command expects wire to be transmitted.
func (b *MockSequenceBuilder) Command(wire string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Transmit([]byte(wire), gomock.Any()).Return(nil),
	)
	return b
}

// Exact answers one fixed length Receive with resp. The requested length
// must match.
func (b *MockSequenceBuilder) Exact(resp string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Receive(gomock.Any(), gomock.Any()).DoAndReturn(func(p []byte, _ time.Duration) error {
			if len(p) != len(resp) {
				return fmt.Errorf("receive of %d bytes, script has %d", len(p), len(resp))
			}
			copy(p, resp)
			return nil
		}),
	)
	return b
}

// Bytes answers one ReceiveByte per byte of resp.
func (b *MockSequenceBuilder) Bytes(resp string) *MockSequenceBuilder {
	for i := 0; i < len(resp); i++ {
		b.calls = append(b.calls,
			b.transport.EXPECT().ReceiveByte(gomock.Any()).Return(resp[i], nil),
		)
	}
	return b
}

// Idle answers byte by byte and then goes quiet.
func (b *MockSequenceBuilder) Idle(resp string) *MockSequenceBuilder {
	return b.Bytes(resp).Quiet()
}

// Quiet lets the next ReceiveByte time out.
func (b *MockSequenceBuilder) Quiet() *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().ReceiveByte(gomock.Any()).Return(byte(0), hc05.ErrTimeout),
	)
	return b
}

func (b *MockSequenceBuilder) Ping() *MockSequenceBuilder {
	return b.Command("AT\r\n").Exact("OK\r\n")
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}

// newTestModule returns a Module on top of a fresh MockTransport.
func newTestModule(t *testing.T, ctrl *gomock.Controller) (*hc05.Module, *hc05.MockTransport) {
	t.Helper()
	mockTransport := hc05.NewMockTransport(ctrl)
	return newModuleOn(t, mockTransport), mockTransport
}

func newModuleOn(t *testing.T, transport hc05.Transport) *hc05.Module {
	t.Helper()
	config, err := hc05.NewConfigBuilder().
		WithDialer(hc05.Static(transport)).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	m, err := hc05.New(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to create module: %v", err)
	}
	return m
}
