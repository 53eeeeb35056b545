package cache

import (
	"context"
	"testing"
)

func TestNewRedis_EmptyURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestNewRedis_InvalidURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "http://not-redis"); err == nil {
		t.Fatal("expected error for non-redis scheme")
	}
}
