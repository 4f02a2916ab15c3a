package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"qcatlas/internal/blob/core"
)

func TestS3StoreAgainstMockTransport(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if s.Driver() != core.DriverS3 || s.Bucket() != "mock-bucket" {
		t.Fatalf("unexpected store identity")
	}
	key := "implementations/i1/files/f1"
	info, err := s.Put(ctx, key, strings.NewReader("OPENQASM 3;"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != key || info.Size != int64(len("OPENQASM 3;")) {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, key, strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	_, rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "OPENQASM 3;" {
		t.Fatalf("unexpected body %q", body)
	}

	if _, err := s.Put(ctx, "implementations/i2/files/f2", strings.NewReader("b"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, err := s.List(ctx, "implementations/i1/")
	if err != nil || len(list) != 1 || list[0].Key != key {
		t.Fatalf("unexpected list %+v %v", list, err)
	}

	url, err := s.PresignURL(ctx, key, core.SignedURLOptions{Expiry: time.Minute})
	if err != nil || !strings.Contains(url, "mock-bucket") {
		t.Fatalf("unexpected presigned url %q %v", url, err)
	}
	if _, err := s.PresignURL(ctx, key, core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}

	if ok, err := s.Delete(ctx, key); !ok || err != nil {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, key); ok || err != nil {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := s.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestNewWithStaticCredentials(t *testing.T) {
	s, err := New(context.Background(), Config{Bucket: "b", AccessKeyID: "id", SecretAccessKey: "secret", Endpoint: "http://localhost:9000", PathStyle: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Bucket() != "b" {
		t.Fatalf("unexpected bucket")
	}
}

func TestDecodeSingleChunk(t *testing.T) {
	got, ok := decodeSingleChunk([]byte("5\r\nhello\r\n0\r\n\r\n"))
	if !ok || string(got) != "hello" {
		t.Fatalf("unexpected decode %q %v", got, ok)
	}
	if _, ok := decodeSingleChunk([]byte("plain body")); ok {
		t.Fatalf("plain body must not decode")
	}
}
