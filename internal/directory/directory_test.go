package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterTOML = `
[[person]]
name = "Nam Nguyen"
email = "nam@example.com"
aliases = ["nammy"]

[[person]]
name = "Ana Lopez"
email = "ana@example.com"

[[person]]
name = "Ana Silva"
email = "silva@example.com"
`

func writeRoster(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "roster.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLookup(t *testing.T) {
	d, err := Load(writeRoster(t, t.TempDir(), rosterTOML))
	require.NoError(t, err)

	tests := []struct {
		name  string
		want  string
		found bool
	}{
		{"Nam Nguyen", "nam@example.com", true},
		{"  nam   NGUYEN ", "nam@example.com", true},
		{"nammy", "nam@example.com", true},
		{"Nam", "nam@example.com", true},
		{"Ana", "", false}, // two Anas
		{"ana silva", "silva@example.com", true},
		{"Unidentified", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Lookup(tt.name)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []string{"Nam Nguyen", "Ana Lopez", "Ana Silva"}, d.Names())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad toml":        `[[person]] name = `,
		"missing email":   "[[person]]\nname = \"Nam\"\n",
		"duplicate alias": "[[person]]\nname = \"A\"\nemail = \"a@x\"\naliases = [\"x\"]\n[[person]]\nname = \"B\"\nemail = \"b@x\"\naliases = [\"x\"]\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeRoster(t, t.TempDir(), content))
			assert.ErrorIs(t, err, ErrInvalidRoster)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	d, err := New(Person{Name: "Bo Chen", Email: "bo@example.com"})
	require.NoError(t, err)
	email, ok := d.Lookup("bo")
	assert.True(t, ok)
	assert.Equal(t, "bo@example.com", email)
	assert.NoError(t, d.Reload(), "reload without file is a no-op")
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeRoster(t, dir, rosterTOML)
	d, err := Load(path)
	require.NoError(t, err)

	writeRoster(t, dir, "not = [valid")
	assert.Error(t, d.Reload())

	_, ok := d.Lookup("Nam Nguyen")
	assert.True(t, ok)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeRoster(t, dir, rosterTOML)
	d, err := Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Watch(ctx, nil) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeRoster(t, dir, rosterTOML+"\n[[person]]\nname = \"Bo Chen\"\nemail = \"bo@example.com\"\n")

	assert.Eventually(t, func() bool {
		_, ok := d.Lookup("Bo Chen")
		return ok
	}, 5*time.Second, 50*time.Millisecond)
}
