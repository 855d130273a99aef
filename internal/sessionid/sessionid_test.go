package sessionid

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	id1, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if id1.IsZero() {
		t.Error("New() returned zero ID")
	}

	id2, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if id1.Equal(id2) {
		t.Error("New() returned duplicate IDs")
	}
}

func TestID_String(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(id.String()) != 16 { // 8 bytes * 2 hex chars
		t.Errorf("String() length = %d, want 16", len(id.String()))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid hex string", input: "a3f8c2d1e5b94a7c", wantErr: false},
		{name: "valid with 0x prefix", input: "0xa3f8c2d1e5b94a7c", wantErr: false},
		{name: "valid with whitespace", input: "  a3f8c2d1e5b94a7c  ", wantErr: false},
		{name: "too short", input: "a3f8c2d1", wantErr: true},
		{name: "too long", input: "a3f8c2d1e5b94a7c00", wantErr: true},
		{name: "invalid hex chars", input: "g3f8c2d1e5b94a7c", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && id.IsZero() {
				t.Error("Parse() returned zero ID for valid input")
			}
		})
	}
}

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{name: "valid 8 bytes", input: make([]byte, 8), wantErr: false},
		{name: "too short", input: make([]byte, 7), wantErr: true},
		{name: "too long", input: make([]byte, 9), wantErr: true},
		{name: "empty", input: []byte{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestID_Uint64RoundTrip(t *testing.T) {
	id, err := FromBytes([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01})
	if err != nil {
		t.Fatalf("FromBytes() error = %v", err)
	}
	if got := id.Uint64(); got != 1 {
		t.Errorf("Uint64() = %d, want 1", got)
	}
}

func TestID_IsZero(t *testing.T) {
	var zero ID
	if !zero.IsZero() {
		t.Error("IsZero() = false for zero ID")
	}

	id, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if id.IsZero() {
		t.Error("IsZero() = true for non-zero ID")
	}
}

func TestID_Equal(t *testing.T) {
	id1, _ := Parse("a3f8c2d1e5b94a7c")
	id2, _ := Parse("a3f8c2d1e5b94a7c")
	id3, _ := Parse("b3f8c2d1e5b94a7c")

	if !id1.Equal(id2) {
		t.Error("Equal() = false for identical IDs")
	}
	if id1.Equal(id3) {
		t.Error("Equal() = true for different IDs")
	}
}

func TestStoreAndLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mtproto-session-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	defer os.RemoveAll(tmpDir)

	original, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := original.Store(tmpDir); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "session_id")); os.IsNotExist(err) {
		t.Error("Store() did not create file")
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !original.Equal(loaded) {
		t.Errorf("Load() = %s, want %s", loaded, original)
	}
}

func TestStore_ZeroID(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mtproto-session-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	defer os.RemoveAll(tmpDir)

	var zero ID
	if err := zero.Store(tmpDir); err == nil {
		t.Error("Store() should fail for zero ID")
	}
}

func TestLoad_NotFound(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mtproto-session-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() should fail when file doesn't exist")
	}
}

func TestLoadOrCreate(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mtproto-session-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	defer os.RemoveAll(tmpDir)

	id1, created1, err := LoadOrCreate(tmpDir)
	if err != nil {
		t.Fatalf("LoadOrCreate() error = %v", err)
	}
	if !created1 {
		t.Error("LoadOrCreate() created = false on first call")
	}

	id2, created2, err := LoadOrCreate(tmpDir)
	if err != nil {
		t.Fatalf("LoadOrCreate() error = %v", err)
	}
	if created2 {
		t.Error("LoadOrCreate() created = true on second call")
	}
	if !id1.Equal(id2) {
		t.Errorf("LoadOrCreate() returned different ID: %s vs %s", id1, id2)
	}
}

func TestExists(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mtproto-session-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if Exists(tmpDir) {
		t.Error("Exists() = true before creating ID")
	}

	id, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := id.Store(tmpDir); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if !Exists(tmpDir) {
		t.Error("Exists() = false after creating ID")
	}
}
