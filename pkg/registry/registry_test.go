package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func echo(ctx context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func TestRegistry(t *testing.T) {
	r := New("test")
	require.NoError(t, r.Register(0x06, HandlerFunc(echo)))
	err := r.Register(0x06, HandlerFunc(echo))
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, byte(0x06), dup.Opcode)

	out, err := r.Dispatch(context.Background(), 0x06, []byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, out)

	_, err = r.Dispatch(context.Background(), 0x07, nil)
	var unknown *UnknownOpcodeError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, byte(0x07), unknown.Opcode)

	r.Freeze()
	require.Equal(t, ErrFrozen, r.Register(0x08, HandlerFunc(echo)))
	require.Equal(t, []byte{0x06}, r.Opcodes())

	r.Reset()
	require.Empty(t, r.Opcodes())
	require.NoError(t, r.Register(0x08, HandlerFunc(echo)))
}

func TestMustRegisterPanics(t *testing.T) {
	r := New("test").MustRegisterFunc(1, echo)
	require.Panics(t, func() { r.MustRegisterFunc(1, echo) })
}

func TestSubDispatch(t *testing.T) {
	sub := New("digital").
		MustRegisterFunc(0x07, func(ctx context.Context, payload []byte) ([]byte, error) {
			require.Equal(t, []byte{3}, payload)
			return []byte{1}, nil
		})
	top := New("slave").MustRegister(0x06, sub)

	out, err := top.Dispatch(context.Background(), 0x06, []byte{0x07, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{1}, out)

	_, err = top.Dispatch(context.Background(), 0x06, []byte{0x01})
	require.IsType(t, &UnknownOpcodeError{}, err)
	_, err = top.Dispatch(context.Background(), 0x06, nil)
	require.Equal(t, ErrEmptySelector, err)
}

func TestTable(t *testing.T) {
	tbl := NewTable(4)
	var got []byte
	require.NoError(t, tbl.Set(2, func(v []byte) { got = v }))
	ran, err := tbl.Invoke(2, []byte{1})
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, []byte{1}, got)

	ran, err = tbl.Invoke(1, nil)
	require.NoError(t, err)
	require.False(t, ran)

	var rangeErr *RangeError
	require.True(t, errors.As(tbl.Set(4, nil), &rangeErr))
	require.Equal(t, 4, rangeErr.Index)
	_, err = tbl.Invoke(-1, nil)
	require.Error(t, err)

	tbl.ClearAll()
	cb, err := tbl.Get(2)
	require.NoError(t, err)
	require.Nil(t, cb)
}
