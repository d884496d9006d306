package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedarr/seedarr/pkg/engine"
	"github.com/seedarr/seedarr/pkg/errors"
)

const ubuntuHash = "3b245504cf5f11bbdbe1201cea6a6bf45aee1bc0"

func TestParseMagnet(t *testing.T) {
	t.Run("hex hash", func(t *testing.T) {
		m, err := engine.ParseMagnet("magnet:?xt=urn:btih:3B245504CF5F11BBDBE1201CEA6A6BF45AEE1BC0&dn=ubuntu.iso&tr=udp://tracker.example:80")
		require.NoError(t, err)
		assert.Equal(t, ubuntuHash, m.InfoHash)
		assert.Equal(t, "ubuntu.iso", m.DisplayName)
		assert.Equal(t, []string{"udp://tracker.example:80"}, m.Trackers)
	})

	t.Run("base32 hash", func(t *testing.T) {
		m, err := engine.ParseMagnet("magnet:?xt=urn:btih:HMSFKBGPL4I3XW7BEAOOU2TL6RNO4G6A")
		require.NoError(t, err)
		assert.Equal(t, ubuntuHash, m.InfoHash)
	})

	t.Run("rejects", func(t *testing.T) {
		for _, uri := range []string{
			"http://example.com",
			"magnet:?dn=nothing",
			"magnet:?xt=urn:btih:zz",
		} {
			_, err := engine.ParseMagnet(uri)
			assert.True(t, errors.IsValidationError(err), uri)
		}
	})
}

func TestValidInfoHash(t *testing.T) {
	assert.True(t, engine.ValidInfoHash(ubuntuHash))
	assert.False(t, engine.ValidInfoHash("not-a-hash"))
	assert.False(t, engine.ValidInfoHash(""))
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 42.35, engine.Torrent{Progress: 0.42349}.ProgressPercent())
	assert.Equal(t, 100.0, engine.Torrent{Progress: 1}.ProgressPercent())
}

func TestAlertHash(t *testing.T) {
	alerts := []engine.Alert{
		engine.TorrentFinished{InfoHash: "h1"},
		engine.PeerConnected{InfoHash: "h1", IP: "10.0.0.1"},
		engine.TorrentError{InfoHash: "h1", Message: "disk full"},
	}
	for _, a := range alerts {
		assert.Equal(t, "h1", a.Hash())
	}
	assert.Empty(t, engine.StateUpdate{}.Hash())
}
