// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// mockServer implements HTTPServer with controllable lifecycle.
type mockServer struct {
	serveErr   error
	blockUntil chan struct{} // ListenAndServe blocks until closed

	shutdownCalled bool
	shutdownErr    error
}

func newMockServer() *mockServer {
	return &mockServer{blockUntil: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	<-m.blockUntil
	if m.serveErr != nil {
		return m.serveErr
	}
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(context.Context) error {
	m.shutdownCalled = true
	close(m.blockUntil)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	mock := newMockServer()
	svc := NewHTTPServerService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let the serve goroutine start, then request shutdown.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if !mock.shutdownCalled {
		t.Error("Shutdown was not called")
	}
}

func TestHTTPServiceReportsServeFailure(t *testing.T) {
	mock := newMockServer()
	mock.serveErr = errors.New("bind: address already in use")
	close(mock.blockUntil) // fail immediately

	svc := NewHTTPServerService(mock, time.Second)
	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, mock.serveErr) {
		t.Errorf("Serve = %v, want wrapped bind failure", err)
	}
}

func TestHTTPServiceErrServerClosedIsNotFailure(t *testing.T) {
	mock := newMockServer()
	close(mock.blockUntil) // returns http.ErrServerClosed immediately

	svc := NewHTTPServerService(mock, time.Second)
	if err := svc.Serve(context.Background()); err != nil {
		t.Errorf("Serve = %v, want nil for ErrServerClosed", err)
	}
}

func TestHTTPServiceName(t *testing.T) {
	svc := NewHTTPServerService(newMockServer(), 0)
	if svc.String() != "http-server" {
		t.Errorf("String = %q", svc.String())
	}
}
