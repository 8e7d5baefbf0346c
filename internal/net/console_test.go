package net

import (
	"bufio"
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/tileworld/internal/input"
	"github.com/l1jgo/tileworld/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestConsole(t *testing.T, hash string) *Console {
	t.Helper()
	c, err := NewConsole(ConsoleOptions{
		PasswordHash:  hash,
		LineQueueSize: 4,
		WriteTimeout:  2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

type client struct {
	conn net.Conn
	r    *bufio.Reader
	done chan struct{}
}

// attach connects a pipe to c and runs Attach in the background.
func attach(t *testing.T, c *Console) *client {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	sess := c.NewSession(serverSide, "pipe", false)
	cl := &client{conn: clientSide, r: bufio.NewReader(clientSide), done: make(chan struct{})}
	go func() {
		defer close(cl.done)
		c.Attach(sess)
	}()
	t.Cleanup(func() {
		clientSide.Close()
		<-cl.done
	})
	return cl
}

func (cl *client) readLine(t *testing.T) string {
	t.Helper()
	cl.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := cl.r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func (cl *client) readN(t *testing.T, n int) string {
	t.Helper()
	cl.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	_, err := io.ReadFull(cl.r, buf)
	require.NoError(t, err)
	return string(buf)
}

func (cl *client) send(t *testing.T, line string) {
	t.Helper()
	cl.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := io.WriteString(cl.conn, line+"\n")
	require.NoError(t, err)
}

func (cl *client) expectEOF(t *testing.T) {
	t.Helper()
	cl.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := cl.r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)
}

func readLine(t *testing.T, c *Console) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	line, err := c.ReadLine(ctx)
	require.NoError(t, err)
	return line
}

func TestConsoleControllerFeedsInput(t *testing.T) {
	c := newTestConsole(t, "")
	cl := attach(t, c)
	assert.Equal(t, greeting, cl.readLine(t))
	require.NotNil(t, c.Controller())

	cl.send(t, "right 3")
	cl.send(t, "up 1\r")
	assert.Equal(t, "right 3", readLine(t, c))
	assert.Equal(t, "up 1", readLine(t, c))
}

func TestConsolePresentsFrames(t *testing.T) {
	c := newTestConsole(t, "")
	cl := attach(t, c)
	assert.Equal(t, greeting, cl.readLine(t))

	errc := make(chan error, 1)
	go func() { errc <- c.Present(render.Frame{Rows: []string{"T.", ".@"}}) }()
	assert.Equal(t, "T.\n", cl.readLine(t))
	assert.Equal(t, ".@\n", cl.readLine(t))
	assert.Equal(t, "\n", cl.readLine(t))
	require.NoError(t, <-errc)
}

func TestConsoleReplaysLastFrame(t *testing.T) {
	c := newTestConsole(t, "")
	require.NoError(t, c.Present(render.Frame{Rows: []string{"ab"}}), "no controller yet")

	cl := attach(t, c)
	assert.Equal(t, greeting, cl.readLine(t))
	assert.Equal(t, "ab\n", cl.readLine(t))
	assert.Equal(t, "\n", cl.readLine(t))
}

func TestConsoleBusy(t *testing.T) {
	c := newTestConsole(t, "")
	first := attach(t, c)
	assert.Equal(t, greeting, first.readLine(t))

	second := attach(t, c)
	assert.Equal(t, busyNotice, second.readLine(t))
	second.expectEOF(t)

	first.send(t, "left")
	assert.Equal(t, "left", readLine(t, c), "first session keeps control")
}

func TestConsoleControlPassesOnDisconnect(t *testing.T) {
	c := newTestConsole(t, "")
	first := attach(t, c)
	assert.Equal(t, greeting, first.readLine(t))
	first.conn.Close()
	<-first.done
	assert.Nil(t, c.Controller())

	second := attach(t, c)
	assert.Equal(t, greeting, second.readLine(t))
}

func TestConsolePassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	c := newTestConsole(t, string(hash))
	assert.True(t, c.RequiresPassword())
	assert.True(t, c.CheckPassword("hunter2"))
	assert.False(t, c.CheckPassword("hunter3"))

	t.Run("denied", func(t *testing.T) {
		cl := attach(t, c)
		assert.Equal(t, "password: ", cl.readN(t, len("password: ")))
		cl.send(t, "nope")
		assert.Equal(t, deniedNotice, cl.readLine(t))
		cl.expectEOF(t)
		assert.Nil(t, c.Controller())
	})

	t.Run("accepted", func(t *testing.T) {
		cl := attach(t, c)
		assert.Equal(t, "password: ", cl.readN(t, len("password: ")))
		cl.send(t, "hunter2")
		assert.Equal(t, greeting, cl.readLine(t))
		cl.send(t, "down 2")
		assert.Equal(t, "down 2", readLine(t, c))
	})
}

func TestConsoleWithoutPassword(t *testing.T) {
	c := newTestConsole(t, "")
	assert.False(t, c.RequiresPassword())
	assert.True(t, c.CheckPassword("anything"))
}

func TestNewConsoleRejectsBadHash(t *testing.T) {
	_, err := NewConsole(ConsoleOptions{PasswordHash: "plaintext"}, zap.NewNop())
	assert.Error(t, err)
}

func TestConsoleClose(t *testing.T) {
	c := newTestConsole(t, "")
	cl := attach(t, c)
	assert.Equal(t, greeting, cl.readLine(t))

	require.NoError(t, c.Close())
	cl.expectEOF(t)

	_, err := c.ReadLine(context.Background())
	assert.ErrorIs(t, err, input.ErrClosed)

	late := attach(t, c)
	assert.Equal(t, busyNotice, late.readLine(t), "closed console accepts no controller")
}

func TestServerAcceptsTCP(t *testing.T) {
	c := newTestConsole(t, "")
	srv, err := NewServer("127.0.0.1:0", c, zap.NewNop())
	require.NoError(t, err)
	go srv.AcceptLoop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	cl := &client{conn: conn, r: bufio.NewReader(conn)}

	assert.Equal(t, greeting, cl.readLine(t))
	cl.send(t, "left 4")
	assert.Equal(t, "left 4", readLine(t, c))

	require.NoError(t, srv.Shutdown())
	cl.expectEOF(t)
}

func TestHostKeyPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "host_ed25519")
	first, err := loadOrCreateHostKey(path, zap.NewNop())
	require.NoError(t, err)
	assert.FileExists(t, path)

	second, err := loadOrCreateHostKey(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey().Marshal(), second.PublicKey().Marshal())
}
