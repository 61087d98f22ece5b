package fpgasign

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

// playbackPort returns a SPI port expecting one frame per payload and
// answering each with the matching response.
func playbackPort(t *testing.T, payloads, responses [][]byte) *spitest.Playback {
	t.Helper()
	require.Equal(t, len(payloads), len(responses))

	ops := make([]conntest.IO, len(payloads))
	for i := range payloads {
		w, err := encodeFrame(payloads[i])
		require.NoError(t, err)
		ops[i] = conntest.IO{W: w, R: responses[i]}
	}
	return &spitest.Playback{
		Playback: conntest.Playback{Ops: ops, DontPanic: true},
	}
}

// responseFrame returns an inbound frame with result at the result offset
// and noise everywhere else.
func responseFrame(result []byte) []byte {
	r := bytes.Repeat([]byte{0x5a}, FrameSize)
	copy(r[ResultOffset:], result)
	return r
}

func openPlayback(t *testing.T, port *spitest.Playback) *Session {
	t.Helper()
	s, err := Open(context.Background(), ConfigFPGA_SPIDefault(port))
	require.NoError(t, err)
	return s
}

func TestSessionSignScenario(t *testing.T) {
	ctx := context.Background()
	want := bytes.Repeat([]byte{0xaa}, ResultSize)
	port := playbackPort(t,
		[][]byte{make([]byte, PayloadSize)},
		[][]byte{responseFrame(want)},
	)

	s := openPlayback(t, port)
	require.NoError(t, s.SetKey(DefaultKey))

	got, err := s.Sign(ctx, make([]byte, PayloadSize), []byte("aaaabbbbccccdddd"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.Terminate())
}

func TestSessionSignFrame(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
	}{
		{"zero", make([]byte, PayloadSize)},
		{"ones", bytes.Repeat([]byte{0xff}, PayloadSize)},
		{"hex", []byte("0123456789abcdef0123456789abcdef")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var result [ResultSize]byte
			for i := range result {
				result[i] = byte(i)
			}

			// Playback fails the transfer unless the outbound frame matches
			// exactly, which pins the payload to bytes [0,32).
			port := playbackPort(t, [][]byte{tc.payload}, [][]byte{responseFrame(result[:])})
			s := openPlayback(t, port)

			got, err := s.Sign(context.Background(), tc.payload, DefaultIV)
			require.NoError(t, err)
			assert.Equal(t, result[:], got)
			require.NoError(t, s.Terminate())
		})
	}
}

func TestSessionSignIgnoresIV(t *testing.T) {
	payload := []byte("0000111122223333444455556666777a")
	result := bytes.Repeat([]byte{0x42}, ResultSize)
	port := playbackPort(t,
		[][]byte{payload, payload},
		[][]byte{responseFrame(result), responseFrame(result)},
	)
	s := openPlayback(t, port)

	a, err := s.Sign(context.Background(), payload, []byte("aaaabbbbccccdddd"))
	require.NoError(t, err)
	b, err := s.Sign(context.Background(), payload, []byte("ddddccccbbbbaaaa"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	require.NoError(t, s.Terminate())
}

func TestSessionSignTransferError(t *testing.T) {
	// no ops recorded: the first transfer fails
	port := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	s := openPlayback(t, port)

	_, err := s.Sign(context.Background(), make([]byte, PayloadSize), DefaultIV)
	assert.ErrorIs(t, err, ErrTransfer)
	require.NoError(t, s.Terminate())
}

func TestSessionSignArguments(t *testing.T) {
	port := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	s := openPlayback(t, port)
	ctx := context.Background()

	_, err := s.Sign(ctx, nil, DefaultIV)
	assert.ErrorIs(t, err, ErrNullArgument)
	_, err = s.Sign(ctx, make([]byte, PayloadSize), nil)
	assert.ErrorIs(t, err, ErrNullArgument)
	_, err = s.Sign(ctx, make([]byte, PayloadSize-1), DefaultIV)
	assert.ErrorIs(t, err, ErrInvalidLength)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Sign(cancelled, make([]byte, PayloadSize), DefaultIV)
	assert.ErrorIs(t, err, context.Canceled)

	var nilSession *Session
	_, err = nilSession.Sign(ctx, make([]byte, PayloadSize), DefaultIV)
	assert.ErrorIs(t, err, ErrNullArgument)

	require.NoError(t, s.Terminate())
}

func TestSessionNotInitialized(t *testing.T) {
	ctx := context.Background()
	port := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	hal, err := newHAL(ConfigFPGA_SPIDefault(port))
	require.NoError(t, err)
	s := New(hal, ConfigFPGA_SPIDefault(port))

	_, err = s.Sign(ctx, make([]byte, PayloadSize), DefaultIV)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.SetKey(DefaultKey), ErrNotInitialized)
	_, err = s.Decrypt(make([]byte, aes.BlockSize), DefaultIV)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.Terminate(), ErrNotInitialized)
}

func TestSessionTerminate(t *testing.T) {
	ctx := context.Background()
	port := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	s := openPlayback(t, port)
	require.NoError(t, s.SetKey(DefaultKey))
	require.NoError(t, s.Terminate())

	assert.Equal(t, [KeySize]byte{}, s.secretKey)

	_, err := s.Sign(ctx, make([]byte, PayloadSize), DefaultIV)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.SetKey(DefaultKey), ErrNotInitialized)
	_, err = s.Decrypt(make([]byte, aes.BlockSize), DefaultIV)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.Terminate(), ErrNotInitialized)
}

func TestSessionInitialize(t *testing.T) {
	ctx := context.Background()

	var nilSession *Session
	assert.ErrorIs(t, nilSession.Initialize(ctx), ErrNullArgument)
	assert.ErrorIs(t, New(nil, IfaceConfig{}).Initialize(ctx), ErrNullArgument)

	s, err := Open(ctx, ConfigFPGA_EmulatorDefault())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Initialize(ctx), ErrAlreadyInitialized)

	require.NoError(t, s.SetKey(DefaultKey))
	require.NoError(t, s.Terminate())
	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, [KeySize]byte{}, s.secretKey, "initialize clears the key")
	require.NoError(t, s.Terminate())
}

func TestSessionReinitializeSPI(t *testing.T) {
	ctx := context.Background()
	payload := bytes.Repeat([]byte{0x33}, PayloadSize)
	result := bytes.Repeat([]byte{0x44}, ResultSize)

	first := playbackPort(t, nil, nil)
	second := playbackPort(t, [][]byte{payload}, [][]byte{responseFrame(result)})
	var reopened int

	cfg := ConfigFPGA_SPIDefault(first)
	cfg.SPI.Reopen = func() (spi.PortCloser, error) {
		reopened++
		return second, nil
	}
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Terminate())

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 1, reopened)
	got, err := s.Sign(ctx, payload, DefaultIV)
	require.NoError(t, err)
	assert.Equal(t, result, got)
	require.NoError(t, s.Terminate())
}

func TestSessionReinitializeSPIWithoutReopen(t *testing.T) {
	ctx := context.Background()
	s := openPlayback(t, playbackPort(t, nil, nil))
	require.NoError(t, s.Terminate())

	err := s.Initialize(ctx)
	assert.ErrorIs(t, err, ErrPeripheralInit)
	assert.ErrorContains(t, err, "cannot be reopened")
	assert.ErrorIs(t, s.Terminate(), ErrNotInitialized)
}

func TestSessionInitializeBusError(t *testing.T) {
	port := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	port.Initialized = true // Connect fails when called twice

	_, err := Open(context.Background(), ConfigFPGA_SPIDefault(port))
	assert.ErrorIs(t, err, ErrPeripheralInit)
}

func TestSessionSetKey(t *testing.T) {
	s, err := Open(context.Background(), ConfigFPGA_EmulatorDefault())
	require.NoError(t, err)
	defer s.Terminate()

	assert.ErrorIs(t, s.SetKey(nil), ErrNullArgument)

	require.NoError(t, s.SetKey(DefaultKey))
	assert.ErrorIs(t, s.SetKey([]byte("short")), ErrInvalidLength)
	assert.Equal(t, DefaultKey, s.secretKey[:], "failed set key keeps the previous key")

	// the session holds its own copy
	key := bytes.Repeat([]byte{0x11}, KeySize)
	require.NoError(t, s.SetKey(key))
	key[0] = 0
	assert.Equal(t, byte(0x11), s.secretKey[0])
}

func TestSessionKeyStableAcrossSign(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ConfigFPGA_EmulatorDefault())
	require.NoError(t, err)
	defer s.Terminate()

	key := bytes.Repeat([]byte{0x07}, KeySize)
	require.NoError(t, s.SetKey(key))
	for i := 0; i < 4; i++ {
		_, err := s.Sign(ctx, bytes.Repeat([]byte{byte(i)}, PayloadSize), DefaultIV)
		require.NoError(t, err)
		assert.Equal(t, key, s.secretKey[:])
	}
}

func encryptCBC(t *testing.T, key, iv, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)
	return ciphertext
}

func TestSessionDecrypt(t *testing.T) {
	s, err := Open(context.Background(), ConfigFPGA_EmulatorDefault())
	require.NoError(t, err)
	defer s.Terminate()
	require.NoError(t, s.SetKey(DefaultKey))

	for _, size := range []int{0, 32, 64} {
		plaintext := make([]byte, size)
		for i := range plaintext {
			plaintext[i] = byte(i * 7)
		}
		ciphertext := encryptCBC(t, DefaultKey, DefaultIV, plaintext)

		got, err := s.Decrypt(ciphertext, DefaultIV)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestSessionDecryptErrors(t *testing.T) {
	s, err := Open(context.Background(), ConfigFPGA_EmulatorDefault())
	require.NoError(t, err)
	defer s.Terminate()

	_, err = s.Decrypt(nil, DefaultIV)
	assert.ErrorIs(t, err, ErrNullArgument)
	_, err = s.Decrypt(make([]byte, 32), nil)
	assert.ErrorIs(t, err, ErrNullArgument)
	_, err = s.Decrypt(make([]byte, 31), DefaultIV)
	assert.ErrorIs(t, err, ErrCipherSetup)
	_, err = s.Decrypt(make([]byte, 32), DefaultIV[:8])
	assert.ErrorIs(t, err, ErrCipherSetup)
}

type failingHAL struct{ closeErr error }

func (failingHAL) Open(context.Context) error { return nil }
func (failingHAL) Tx(w, r []byte) error { return errors.New("bus stalled") }
func (h failingHAL) Close() error { return h.closeErr }

func TestSessionTerminateCloseError(t *testing.T) {
	s := New(failingHAL{errors.New("close failed")}, IfaceConfig{})
	require.NoError(t, s.Initialize(context.Background()))

	assert.ErrorIs(t, s.Terminate(), ErrTransfer)
	assert.ErrorIs(t, s.Terminate(), ErrNotInitialized)
}

type countingDecrypter struct {
	calls int
}

func (d *countingDecrypter) Decrypt(dst, src, key, iv []byte) error {
	d.calls++
	return softwareDecrypter{}.Decrypt(dst, src, key, iv)
}

func TestSessionDecrypterReused(t *testing.T) {
	s, err := Open(context.Background(), ConfigFPGA_EmulatorDefault())
	require.NoError(t, err)
	require.NotNil(t, s.dec, "initialize sets up the decrypter")
	require.NoError(t, s.SetKey(DefaultKey))

	d := &countingDecrypter{}
	s.dec = d
	plaintext := make([]byte, 32)
	ciphertext := encryptCBC(t, DefaultKey, DefaultIV, plaintext)
	for i := 0; i < 3; i++ {
		got, err := s.Decrypt(ciphertext, DefaultIV)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
	assert.Equal(t, 3, d.calls)
	assert.Same(t, d, s.dec)

	require.NoError(t, s.Terminate())
	assert.Nil(t, s.dec)
}
