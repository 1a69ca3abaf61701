package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", dir)

	return filepath.Join(dir, "batocbz")
}

func TestConfigRootFollowsEnvironment(t *testing.T) {
	root := isolate(t)
	assert.Equal(t, root, ConfigRoot())

	appdata := t.TempDir()
	t.Setenv("APPDATA", appdata)
	assert.Equal(t, filepath.Join(appdata, "batocbz"), ConfigRoot())
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, ".", c.Output)
	assert.True(t, c.Convert)
	assert.True(t, c.Progress)
	assert.False(t, c.KeepFiles)
	assert.False(t, c.UntilLastChapter)
	assert.Equal(t, "cbz", c.ArchiveExt)
	assert.Equal(t, "https://bato.to", c.SiteURL)
	assert.Equal(t, 20, c.PageTimeout)
	assert.Equal(t, 120, c.ImageTimeout)
	assert.Equal(t, 5, c.ImageAttempts)
	assert.Equal(t, 5, c.RetryDelay)
}

func TestLoadMergedWithoutProfile(t *testing.T) {
	isolate(t)

	cfg, source, err := LoadMerged(Options{})
	require.NoError(t, err)
	assert.Contains(t, source, "batocbz config init")
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergedIgnoreConfig(t *testing.T) {
	isolate(t)
	_, err := InitDefaultConfig()
	require.NoError(t, err)

	cfg, source, err := LoadMerged(Options{IgnoreConfig: true, KeepFiles: true})
	require.NoError(t, err)
	assert.Equal(t, "(ignored config)", source)
	assert.True(t, cfg.KeepFiles)
}

func TestLoadMergedPartialProfileKeepsDefaults(t *testing.T) {
	isolate(t)

	src := filepath.Join(t.TempDir(), "mine.yaml")
	require.NoError(t, os.WriteFile(src, []byte("keep_files: true\narchive_ext: .zip\n"), 0644))
	require.NoError(t, AddConfig("mine", src))
	require.NoError(t, SwitchConfig("mine"))

	cfg, source, err := LoadMerged(Options{})
	require.NoError(t, err)

	assert.Equal(t, ProfilePath("mine"), source)
	assert.True(t, cfg.KeepFiles)
	assert.True(t, cfg.Convert)
	assert.Equal(t, "zip", cfg.ArchiveExt)
	assert.Equal(t, 5, cfg.ImageAttempts)
	assert.Equal(t, "https://bato.to", cfg.SiteURL)
}

func TestLoadMergedFlagsOverrideProfile(t *testing.T) {
	isolate(t)
	_, err := InitDefaultConfig()
	require.NoError(t, err)

	cfg, _, err := LoadMerged(Options{
		Output:           "/tmp/out",
		UntilLastChapter: true,
		NoConvert:        true,
		SkipDownload:     true,
		NoProgress:       true,
		UserAgent:        "agent/1.0",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.Output)
	assert.True(t, cfg.UntilLastChapter)
	assert.False(t, cfg.Convert)
	assert.True(t, cfg.SkipDownload)
	assert.False(t, cfg.Progress)
	assert.Equal(t, "agent/1.0", cfg.UserAgent)
}

func TestLoadMergedBrokenProfile(t *testing.T) {
	isolate(t)
	path, err := InitDefaultConfig()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("output: [unterminated"), 0644))

	_, _, err = LoadMerged(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestInitDefaultConfigTwice(t *testing.T) {
	isolate(t)

	path, err := InitDefaultConfig()
	require.NoError(t, err)
	assert.FileExists(t, path)

	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, DefaultLabel, label)

	again, err := InitDefaultConfig()
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Equal(t, path, again)
}

func TestProfileLifecycle(t *testing.T) {
	isolate(t)

	_, err := InitDefaultConfig()
	require.NoError(t, err)

	_, err = CreateEmptyConfig("work")
	require.NoError(t, err)
	_, err = CreateEmptyConfig("work")
	assert.Error(t, err)

	require.NoError(t, SwitchConfig("work"))
	require.NoError(t, RenameConfig("work", "office"))

	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "office", label, "renaming the active profile keeps it active")

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, DefaultLabel, list[0].Label)
	assert.False(t, list[0].Active)
	assert.Equal(t, "office", list[1].Label)
	assert.True(t, list[1].Active)

	switched, err := RemoveConfig("office")
	require.NoError(t, err)
	assert.True(t, switched)
	assert.NoFileExists(t, ProfilePath("office"))

	label, err = CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, DefaultLabel, label)

	_, err = RemoveConfig(DefaultLabel)
	assert.Error(t, err)
}

func TestSwitchUnknownProfile(t *testing.T) {
	isolate(t)
	assert.Error(t, SwitchConfig("nope"))
}

func TestLabelsCannotEscapeConfigDir(t *testing.T) {
	isolate(t)

	for _, label := range []string{"", "  ", "../x", `a\b`, ".."} {
		_, err := CreateEmptyConfig(label)
		assert.Error(t, err, label)
	}
}

func TestAddConfigRejectsInvalidYAML(t *testing.T) {
	isolate(t)

	src := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(src, []byte("keep_files: [1, 2"), 0644))

	assert.Error(t, AddConfig("bad", src))
	assert.NoFileExists(t, ProfilePath("bad"))
}

func TestResetConfig(t *testing.T) {
	isolate(t)

	path, err := CreateEmptyConfig("tweaked")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("keep_files: true\n"), 0644))

	_, err = ResetConfig("tweaked")
	require.NoError(t, err)

	cfg, err := loadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestPrintHidesCookie(t *testing.T) {
	c := DefaultConfig()
	c.Cookie = "session=secret"
	c.KeepFiles = true

	var buf bytes.Buffer
	c.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, " -keep_files: true")
	assert.Contains(t, out, " -cookie: (set)")
	assert.NotContains(t, out, "secret")
}
