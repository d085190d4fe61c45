// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package testutils provides utilities for capturing output, managing test files,
// serving mock HTTP endpoints and making assertions in tests.
package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stdoutLock sync.Mutex
	osArgsLock sync.Mutex
)

// CaptureStdout captures standard output during the execution of the provided function
// and returns it as a string. This function is synchronized to prevent concurrent stdout capture.
func CaptureStdout(t *testing.T, fn func()) (stdout string) {
	SyncCall(&stdoutLock, func() {
		fp, err := os.CreateTemp(t.TempDir(), "*.stdout")
		require.NoError(t, err, "failed to create stdout capture file")
		defer fp.Close()

		originalStdout := os.Stdout
		defer func() { os.Stdout = originalStdout }()
		os.Stdout = fp

		fn()

		require.NoError(t, fp.Sync())
		_, err = fp.Seek(0, io.SeekStart)
		require.NoError(t, err)
		contents, err := io.ReadAll(fp)
		require.NoError(t, err)

		stdout = string(contents)
	})
	return
}

// WithArgs temporarily replaces os.Args with the provided arguments while executing
// the given function. This function is synchronized to prevent concurrent modifications.
func WithArgs(_ *testing.T, fn func(), args ...string) {
	SyncCall(&osArgsLock, func() {
		originalArgs := os.Args
		defer func() { os.Args = originalArgs }()

		os.Args = append([]string{os.Args[0]}, args...)
		fn()
	})
}

// SyncCall executes the provided function while holding the specified mutex lock.
func SyncCall(lock *sync.Mutex, fn func()) {
	lock.Lock()
	defer lock.Unlock()
	fn()
}

// CreateMockFile writes contents to a new file with the given name inside a
// per-test temporary directory and returns the file path.
func CreateMockFile(t *testing.T, name string, contents []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, contents, 0600), "failed to write test file")
	return path
}

// AssertFileContains checks if a file contains all strings from want slice and none from notWant slice.
func AssertFileContains(t *testing.T, filePath string, want []string, notWant []string) {
	if contents := ReadFile(t, filePath); len(want) > 0 {
		require.NotEmpty(t, contents)
		AssertContainsAll(t, string(contents), want)
		AssertContainsNone(t, string(contents), notWant)
	} else {
		assert.Empty(t, contents)
	}
}

// AssertContainsAll verifies that the given contents string contains all specified elements.
func AssertContainsAll(t *testing.T, contents string, elements []string) {
	for i := range elements {
		assert.Contains(t, contents, elements[i])
	}
}

// AssertContainsNone verifies that the given contents string contains none of the specified elements.
func AssertContainsNone(t *testing.T, contents string, elements []string) {
	for i := range elements {
		assert.NotContains(t, contents, elements[i])
	}
}

// ReadFile reads the entire file at the given path and returns its contents.
func ReadFile(t *testing.T, filePath string) []byte {
	contents, err := os.ReadFile(filePath)
	require.NoError(t, err, "failed to read test file")
	return contents
}

// ReadJSONFile decodes the JSON file at the given path into a value of type T.
func ReadJSONFile[T any](t *testing.T, filePath string) (value T) {
	require.NoError(t, json.Unmarshal(ReadFile(t, filePath), &value), "failed to decode %s", filePath)
	return
}

// Ptr returns a pointer to the given value.
func Ptr[T any](value T) *T {
	return &value
}

// MockHTTPResponse defines a mock HTTP response for testing.
type MockHTTPResponse struct {
	StatusCode int
	Content    []byte
	Delay      time.Duration
}

// MockRequest is a request observed by a mock server.
type MockRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// MockServer is a test HTTP server that replays scripted responses per path
// and records every request it receives.
type MockServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string][]MockHTTPResponse
	requests  []MockRequest
}

// CreateMockServer creates a test HTTP server with configurable responses.
// Responses are keyed by path; when a path has several responses they are
// served in order and the last one repeats. Unknown paths yield 404.
// The server is closed when the test finishes.
func CreateMockServer(t *testing.T, responses map[string][]MockHTTPResponse) *MockServer {
	ms := &MockServer{responses: responses}
	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		response, ok := ms.next(MockRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if response.Delay > 0 {
			select {
			case <-time.After(response.Delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(response.StatusCode)
		if response.Content != nil {
			_, _ = w.Write(response.Content)
		}
	}))
	t.Cleanup(ms.Close)
	return ms
}

func (ms *MockServer) next(req MockRequest) (MockHTTPResponse, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = append(ms.requests, req)
	queue := ms.responses[req.Path]
	if len(queue) == 0 {
		return MockHTTPResponse{}, false
	}
	response := queue[0]
	if len(queue) > 1 {
		ms.responses[req.Path] = queue[1:]
	}
	return response, true
}

// Requests returns a copy of all requests received so far.
func (ms *MockServer) Requests() []MockRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]MockRequest, len(ms.requests))
	copy(out, ms.requests)
	return out
}
