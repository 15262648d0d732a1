package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTransport(t *testing.T) {
	srv := httptest.NewServer(Handler(func(tr *Transport) {
		for {
			b, err := tr.Receive(time.Second)
			if err != nil {
				return
			}
			if err = tr.Send(context.Background(), append(b, 0xff)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	tr, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http") + "/")
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Send(context.Background(), []byte{0xaa, 1}))
	b, err := tr.Receive(time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 1, 0xff}, b)
}
