// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/pkg/types"
)

func TestDelayStrategy_EscalatesAndClamps(t *testing.T) {
	s := NewDelayStrategy(time.Millisecond)

	var got []time.Duration
	for i := 0; i < 12; i++ {
		got = append(got, s.Delay(false))
	}

	want := []time.Duration{2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 1024, 1024}
	for i := range want {
		assert.Equal(t, want[i]*time.Millisecond, got[i], "failure %d", i+1)
	}
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
}

func TestDelayStrategy_SuccessResets(t *testing.T) {
	s := NewDelayStrategy(10 * time.Millisecond)
	s.Delay(false)
	s.Delay(false)
	s.Delay(false)

	assert.Equal(t, 10*time.Millisecond, s.Delay(true))
	assert.Equal(t, 0, s.Failures())
	assert.Equal(t, 20*time.Millisecond, s.Delay(false))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify_Status(t *testing.T) {
	tests := []struct {
		code   int
		hasKey bool
		want   Kind
	}{
		{200, false, OK},
		{400, true, DataDefect},
		{404, false, DataDefect},
		{500, true, DataDefect},
		{403, true, Fatal},
		{429, false, Fatal},
		{429, true, Transient},
		{504, false, Transient},
		{502, true, Unexpected},
		{418, false, Unexpected},
	}
	for _, tt := range tests {
		kind, _ := Classify(&http.Response{StatusCode: tt.code}, nil, tt.hasKey)
		assert.Equal(t, tt.want, kind, "status %d key=%v", tt.code, tt.hasKey)
	}
}

func TestClassify_Messages(t *testing.T) {
	_, msg := Classify(&http.Response{StatusCode: 403}, nil, true)
	assert.Contains(t, msg, "expired")

	_, msg = Classify(&http.Response{StatusCode: 429}, nil, false)
	assert.Contains(t, msg, "API key")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify_TransportErrors(t *testing.T) {
	kind, msg := Classify(nil, &net.OpError{Op: "read", Err: timeoutErr{}}, true)
	assert.Equal(t, Transient, kind)
	assert.Equal(t, "TIMEOUT", msg)

	kind, msg = Classify(nil, &net.OpError{Op: "dial", Err: &net.DNSError{Name: "api.example", Err: "no such host", IsNotFound: true}}, true)
	assert.Equal(t, Fatal, kind)
	assert.Contains(t, msg, "check connectivity")

	kind, _ = Classify(nil, errors.New("connection reset"), true)
	assert.Equal(t, Unexpected, kind)
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := error(&FetchError{Kind: Fatal, Status: 403, Message: "expired", Err: inner})

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, Fatal, fe.Kind)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestNewClient_SetsUserAgent(t *testing.T) {
	var agent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := NewClient(types.HTTPConfig{UserAgent: "snowball-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, client.Timeout)

	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "snowball-test", agent)
}

func TestNewClient_BadProxy(t *testing.T) {
	_, err := NewClient(types.HTTPConfig{Proxy: "://bad"})
	assert.Error(t, err)
}
