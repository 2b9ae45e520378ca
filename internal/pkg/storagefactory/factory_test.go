package storagefactory

import (
	"context"
	"io"
	"strings"
	"testing"

	"intake/internal/config"
	"intake/internal/pkg/storage"
)

func TestNewStorage(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		cfg      *config.StorageConfig
		wantErr  bool
		wantType string
	}{
		{
			name: "valid local storage config",
			cfg: &config.StorageConfig{
				Type:  "local",
				Local: &config.LocalConfig{BasePath: tmpDir, BaseURL: "/audio"},
			},
			wantType: "local",
		},
		{
			name:    "missing local config",
			cfg:     &config.StorageConfig{Type: "local"},
			wantErr: true,
		},
		{
			name:    "missing oss config",
			cfg:     &config.StorageConfig{Type: "oss"},
			wantErr: true,
		},
		{
			name:    "unsupported storage type",
			cfg:     &config.StorageConfig{Type: "s3"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStorage(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.GetStorageType() != tt.wantType {
				t.Errorf("storage type = %s, want %s", s.GetStorageType(), tt.wantType)
			}
		})
	}
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(ctx, &config.StorageConfig{
		Type:  "local",
		Local: &config.LocalConfig{BasePath: t.TempDir(), BaseURL: "/audio/"},
	})
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	url, err := s.Upload(ctx, "abc.mp3", strings.NewReader("ID3"), storage.ContentTypeByKey("abc.mp3"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/audio/abc.mp3" {
		t.Errorf("url = %q, want /audio/abc.mp3", url)
	}

	ok, err := s.Exists(ctx, "abc.mp3")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	rc, err := s.Download(ctx, "abc.mp3")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "ID3" {
		t.Errorf("content = %q", data)
	}

	// 越界 key 被限制在根目录内
	if _, err := s.Upload(ctx, "../../escape.mp3", strings.NewReader("x"), "audio/mpeg"); err != nil {
		t.Fatalf("Upload traversal: %v", err)
	}
	if ok, _ := s.Exists(ctx, "escape.mp3"); !ok {
		t.Errorf("traversal key should be confined to base path")
	}

	if err := s.Delete(ctx, "abc.mp3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "abc.mp3"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, err := s.Download(ctx, "abc.mp3"); err == nil {
		t.Errorf("expected not found after delete")
	}
}
