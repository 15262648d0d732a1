package env

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
	"github.com/robotalks/iobus/pkg/slave"
	"github.com/robotalks/iobus/pkg/transport"
)

func TestLoadYAML(t *testing.T) {
	conf := &Config{Bus: "serial:///dev/ttyS0", Retries: 2}
	require.NoError(t, conf.Load([]byte(`
bus: tcp://localhost:7000
timeout: 250ms
idle_warn: 5s
name: line1
`)))
	require.Equal(t, "tcp://localhost:7000", conf.Bus)
	require.Equal(t, 250*time.Millisecond, conf.Timeout)
	require.Equal(t, 5*time.Second, conf.IdleWarn)
	require.Equal(t, 2, conf.Retries)
	require.Equal(t, "line1", conf.NodeName())

	opts := conf.MasterOptions()
	require.Equal(t, 250*time.Millisecond, opts.Timeout)
	require.Equal(t, 2, opts.MaxRetries)

	require.Error(t, conf.Load([]byte("timeout: [")))
}

func TestLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "iobus.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("retries: 5\n"), 0644))
	conf := &Config{}
	require.NoError(t, conf.LoadFile(fn))
	require.Equal(t, 5, conf.Retries)
	require.Error(t, conf.LoadFile(fn+".missing"))
}

func TestUnknownScheme(t *testing.T) {
	conf := &Config{Bus: "carrier-pigeon://coop"}
	_, err := conf.OpenBus(RoleMaster)
	require.Error(t, err)
}

func TestMasterOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s := slave.New(transport.NewStream(conn), 3, protocol.BoardInfo{Type: protocol.TypeRelayLP, Serial: 33})
		s.Run(ctx)
	}()

	capture := filepath.Join(t.TempDir(), "bus.pcap")
	conf := &Config{
		Bus:     "tcp://" + ln.Addr().String(),
		Capture: capture,
		Timeout: 200 * time.Millisecond,
	}
	m, bus, err := conf.NewMaster()
	require.NoError(t, err)
	go m.Run(ctx)

	var info protocol.BoardInfo
	require.Eventually(t, func() bool {
		info, err = m.BoardInfo(ctx, 3)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, uint32(33), info.Serial)
	cancel()
	require.NoError(t, bus.Close())

	f, err := os.Open(capture)
	require.NoError(t, err)
	defer f.Close()
	records, err := transport.ReadCapture(f)
	require.NoError(t, err)
	require.True(t, len(records) >= 2)
	var sawReply bool
	for _, rec := range records {
		fr, _, err := frame.Decode(rec.Data)
		require.NoError(t, err)
		if fr.Dir == frame.SlaveToMaster && fr.Opcode == protocol.OpBoardInfo {
			sawReply = true
		}
	}
	require.True(t, sawReply)
}
