package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleZone = `$TTL 3600
$ORIGIN example.com.
www	IN	A	192.0.2.10
@	IN	SOA	ns1 hostmaster 1 2 3 4 5
this line is not a record
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestCheckReportsIgnoredLines(t *testing.T) {
	path := writeFile(t, "example.com.zone", sampleZone)
	cmd, out := newTestCommand()

	require.NoError(t, runCheck(cmd, []string{path}))
	assert.Contains(t, out.String(), path+":5: ignored: this line is not a record")
	assert.Contains(t, out.String(), "example.com. 2 records, 1 ignored")
}

func TestCheckFailsOnBrokenFiles(t *testing.T) {
	good := writeFile(t, "example.com.zone", sampleZone)
	broken := writeFile(t, "broken.zone", "@ IN SOA ns1 hostmaster ( 1 2 3\n")
	cmd, out := newTestCommand()

	err := runCheck(cmd, []string{good, broken, filepath.Join(t.TempDir(), "missing.zone")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 files")
	assert.Contains(t, out.String(), "unterminated")
}

func TestFmtPrintsCanonicalZone(t *testing.T) {
	path := writeFile(t, "example.com.zone", sampleZone)
	cmd, out := newTestCommand()

	require.NoError(t, fmtCmd.RunE(cmd, []string{path}))
	text := out.String()
	assert.Contains(t, text, "$ORIGIN example.com.")
	assert.Contains(t, text, "$TTL 3600")
	assert.Contains(t, text, "\nthis line is not a record\n")
	// SOA sorts before A
	assert.Less(t, bytes.Index(out.Bytes(), []byte("SOA")), bytes.Index(out.Bytes(), []byte("192.0.2.10")))
}

func TestLoadServeConfigFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "zoned.yaml", "zones_dir: /srv/zones\nlisten: :5353\nwatch: true\n")

	cmd := &cobra.Command{}
	addServeFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("listen", "127.0.0.1:53"))
	require.NoError(t, cmd.Flags().Set("geo-types", "A,AAAA"))
	require.NoError(t, cmd.Flags().Set("query-timeout", "1s"))

	cfg, err := loadServeConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "/srv/zones", cfg.ZonesDir)
	assert.Equal(t, "127.0.0.1:53", cfg.Listen)
	assert.True(t, cfg.Watch)
	assert.Equal(t, []string{"A", "AAAA"}, cfg.GeoTypes)
	assert.Equal(t, time.Second, cfg.QueryTimeout)
}

func TestLoadServeConfigRejectsInvalidFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addServeFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("journal-backend", "sqlite"))

	_, err := loadServeConfig(cmd)
	assert.Error(t, err)
}
