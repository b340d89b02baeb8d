package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// newTestS3 creates an S3 struct with a mock HTTP backend for testing.
// The mock server simulates basic S3 API responses.
func newTestS3(t *testing.T, handler http.Handler) (*S3, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(server.URL),
		Region:       "us-east-1",
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
	})

	store := &S3{
		client: client,
		bucket: "test-bucket",
		prefix: "quotify/",
	}

	return store, server
}

func TestS3_Put_Success(t *testing.T) {
	var capturedKey string
	var capturedContentType string
	var capturedBody string

	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// S3 PutObject is a PUT request.
		if r.Method == http.MethodPut {
			capturedKey = r.URL.Path
			capturedContentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			capturedBody = string(body)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	err := store.Put(context.Background(), "quotify_state.json", []byte(`{"version":1}`), "application/json")
	if err != nil {
		t.Fatalf("Put: unexpected error: %v", err)
	}

	if !strings.HasSuffix(capturedKey, "test-bucket/quotify/quotify_state.json") {
		t.Errorf("S3 key: got %q, want prefixed key", capturedKey)
	}
	if capturedContentType != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", capturedContentType, "application/json")
	}
	if capturedBody != `{"version":1}` {
		t.Errorf("body: got %q", capturedBody)
	}
}

func TestS3_Put_Error(t *testing.T) {
	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer server.Close()

	err := store.Put(context.Background(), "forbidden.json", []byte("data"), "application/json")
	if err == nil {
		t.Fatal("expected error for S3 403, got nil")
	}
	if !strings.Contains(err.Error(), "putting object") {
		t.Errorf("error should wrap with context, got: %v", err)
	}
}

func TestS3_Get_Success(t *testing.T) {
	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"version":1}`))
	}))
	defer server.Close()

	data, err := store.Get(context.Background(), "quotify_state.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"version":1}` {
		t.Errorf("Get = %q", data)
	}
}

func TestS3_Get_NoSuchKey(t *testing.T) {
	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
	}))
	defer server.Close()

	_, err := store.Get(context.Background(), "missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestS3_Get_BareNotFound(t *testing.T) {
	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := store.Get(context.Background(), "missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestS3_Get_ServerError(t *testing.T) {
	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<?xml version="1.0"?><Error><Code>InternalError</Code><Message>Server Error</Message></Error>`))
	}))
	defer server.Close()

	_, err := store.Get(context.Background(), "state.json")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected non-404 error, got %v", err)
	}
	if !strings.Contains(err.Error(), "getting object") {
		t.Errorf("error should wrap with context, got: %v", err)
	}
}

func TestS3_Delete_Success(t *testing.T) {
	var capturedMethod string
	var capturedPath string

	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := store.Delete(context.Background(), "quotify_state.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if capturedMethod != http.MethodDelete {
		t.Errorf("method: got %q, want DELETE", capturedMethod)
	}
	if !strings.HasSuffix(capturedPath, "quotify/quotify_state.json") {
		t.Errorf("path: got %q", capturedPath)
	}
}

func TestS3_Delete_Error(t *testing.T) {
	store, server := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<?xml version="1.0"?><Error><Code>InternalError</Code><Message>Server Error</Message></Error>`))
	}))
	defer server.Close()

	err := store.Delete(context.Background(), "error-key.json")
	if err == nil {
		t.Fatal("expected error for S3 500, got nil")
	}
	if !strings.Contains(err.Error(), "deleting object") {
		t.Errorf("error should wrap with context, got: %v", err)
	}
}

func TestS3_EmptyKey(t *testing.T) {
	store := &S3{bucket: "b"}
	if err := store.Put(context.Background(), "", nil, ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put empty key: err = %v, want ErrInvalidKey", err)
	}
}

func TestNewS3_Success(t *testing.T) {
	cfg := S3Config{
		Endpoint:       "https://s3.example.com",
		Region:         "eu-west-1",
		AccessKey:      "AKIA...",
		SecretKey:      "secret",
		ForcePathStyle: true,
		Bucket:         "my-bucket",
		Prefix:         "/snapshots/",
	}

	s, err := NewS3(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	if s.bucket != "my-bucket" {
		t.Errorf("bucket: got %q, want %q", s.bucket, "my-bucket")
	}
	if s.prefix != "snapshots/" {
		t.Errorf("prefix: got %q, want %q", s.prefix, "snapshots/")
	}
	if s.client == nil {
		t.Error("client should not be nil")
	}
}
