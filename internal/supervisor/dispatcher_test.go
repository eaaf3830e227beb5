package supervisor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/firebuild-go/fbcore/internal/constants"
	"github.com/firebuild-go/fbcore/internal/fbb"
	"github.com/firebuild-go/fbcore/internal/shmq"
	"github.com/firebuild-go/fbcore/internal/sidechannel"
)

// recordingEngine captures every Identify/Observe call so tests can assert
// on what the dispatcher handed the cache engine, without needing a real
// caching policy.
type recordingEngine struct {
	queries  []ProcessQuery
	observed []int32
}

func (e *recordingEngine) Identify(q ProcessQuery) ProcessDecision {
	e.queries = append(e.queries, q)
	return ProcessDecision{Shortcut: false}
}

func (e *recordingEngine) Observe(pid int, tag int32, msg *fbb.Serialized) {
	e.observed = append(e.observed, tag)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "fb.sock")

	listener, err := sidechannel.Listen(sockPath)
	require.NoError(t, err)

	ring, err := NewRing()
	require.NoError(t, err)

	d, err := NewDispatcher(listener, ring, &recordingEngine{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d, sockPath
}

func TestDispatcherScprocQueryRoundTrip(t *testing.T) {
	d, sockPath := newTestDispatcher(t)
	engine := d.engine.(*recordingEngine)

	client, err := sidechannel.Dial(sockPath)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, d.Step(100))

	b := fbb.NewBuilder(fbb.ScprocQuery)
	b.SetInt("pid", 4242)
	b.SetInt("ppid", 1)
	b.SetString("cwd", "/tmp")
	b.SetString("executable", "/usr/bin/true")
	buf := make([]byte, b.Measure())
	b.Serialize(buf)
	require.NoError(t, client.WriteFrame(7, buf))

	require.Eventually(t, func() bool {
		if err := d.Step(100); err != nil {
			return false
		}
		return len(engine.queries) == 1
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, 4242, engine.queries[0].Pid)
	require.Equal(t, "/usr/bin/true", engine.queries[0].Executable)

	ackID, payload, err := client.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, uint32(7), ackID)

	resp, err := fbb.ParseAny(payload)
	require.NoError(t, err)
	require.Equal(t, int64(0), resp.Int("shortcut"))

	require.Len(t, d.conns, 1)
}

func TestDispatcherDrainShmqsObservesAndAcksBarrier(t *testing.T) {
	d, sockPath := newTestDispatcher(t)
	engine := d.engine.(*recordingEngine)

	client, err := sidechannel.Dial(sockPath)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, d.Step(100))
	require.NoError(t, d.Step(100))

	var c *connection
	for _, conn := range d.conns {
		c = conn
	}
	require.NotNil(t, c)
	c.pid = 4242
	c.identified = true

	writer, err := shmq.NewWriter(constants.ShmqRegionName(c.pid))
	require.NoError(t, err)
	defer writer.Close()

	reader, err := shmq.NewReader(constants.ShmqRegionName(c.pid))
	require.NoError(t, err)
	c.shmqReader = reader

	eb := fbb.NewBuilder(fbb.Exit)
	eb.SetInt("status", 0)
	eb.SetInt("utime_us", 0)
	eb.SetInt("stime_us", 0)
	ebuf := make([]byte, eb.Measure())
	eb.Serialize(ebuf)

	msgBuf, err := writer.NewMessage(int32(len(ebuf)))
	require.NoError(t, err)
	copy(msgBuf, ebuf)
	writer.AddMessage(9)

	d.drainShmqs()

	require.Contains(t, engine.observed, fbb.TagExit)

	ackID, _, err := client.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, uint32(9), ackID)
}
