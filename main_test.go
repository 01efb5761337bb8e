package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kissaprs/config"
	"kissaprs/device/kiss"
	"kissaprs/endpoint"
)

func TestNewLink(t *testing.T) {
	conf := config.Default()
	link, err := newLink(conf)
	require.NoError(t, err)
	assert.IsType(t, &kiss.Endpoint{}, link)
	assert.Equal(t, endpoint.Idle, link.State())

	conf.Interface.Type = "server"
	conf.Interface.Device = "127.0.0.1:0"
	link, err = newLink(conf)
	require.NoError(t, err)
	assert.IsType(t, &kiss.Server{}, link)

	conf.Interface.Type = "carrier-pigeon"
	_, err = newLink(conf)
	assert.Error(t, err)
}

func TestMissingShapefileShowsError(t *testing.T) {
	conf := config.Default()
	conf.Map.Shapefile = t.TempDir() + "/missing.shp"
	m := initialModel(conf, make(chan tea.Msg))
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "Press any key to quit.")
}

func TestLinkLabel(t *testing.T) {
	assert.Equal(t, "serial /dev/ttyUSB0", linkLabel(config.InterfaceConfig{Type: "SERIAL", Device: "/dev/ttyUSB0"}))
}

func TestLoadConfigValidatesAfterOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kissaprs.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"chatty\"\n\n[interface]\ndevice = \"\"\n"), 0o644))

	_, err := loadConfig(path, "", "")
	assert.Error(t, err)

	_, err = loadConfig(path, "debug", "")
	assert.ErrorContains(t, err, "no device")

	conf, err := loadConfig(path, "debug", "localhost:8001")
	require.NoError(t, err)
	assert.Equal(t, "debug", conf.Log.Level)
	assert.Equal(t, "localhost:8001", conf.Interface.Device)
}

func TestUIQueueDropsWhenFull(t *testing.T) {
	q := newUIQueue(2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			q.post(linkMsg{state: "connect"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("post blocked on a full queue")
	}
	assert.Len(t, q.ch, 2)
	assert.Equal(t, uint64(3), q.dropped.Load())
}
