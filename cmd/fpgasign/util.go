package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/northvolt/go-fpgasign"
	"github.com/peterbourgon/ff/v3/ffcli"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	defaultKey = "abcdefghijklmnop"
	defaultIV  = "aaaabbbbccccdddd"
)

var errSignatureMismatch = errors.New("fpgasign: signature does not match payload")

// newSession opens a session on the interface selected by the flags and
// loads the secret key.
func newSession(ctx context.Context, c *rootConfig) (*fpgasign.Session, error) {
	cfg, err := newIfaceConfig(c)
	if err != nil {
		return nil, err
	}

	s, err := fpgasign.Open(ctx, cfg)
	if err != nil {
		if cfg.SPI.Port != nil {
			_ = cfg.SPI.Port.Close()
		}
		return nil, err
	}

	key, err := parseKey(c.key)
	if err == nil {
		err = s.SetKey(key)
	}
	if err != nil {
		_ = s.Terminate()
		return nil, err
	}
	return s, nil
}

func newIfaceConfig(c *rootConfig) (fpgasign.IfaceConfig, error) {
	board, err := fpgasign.BoardFromName(c.board)
	if err != nil {
		return fpgasign.IfaceConfig{}, err
	}
	cipher, err := parseCipher(c.cipher)
	if err != nil {
		return fpgasign.IfaceConfig{}, err
	}

	var cfg fpgasign.IfaceConfig
	switch c.iface {
	case "spi":
		if _, err := host.Init(); err != nil {
			return cfg, err
		}
		port, err := spireg.Open(c.port)
		if err != nil {
			return cfg, fmt.Errorf("fpgasign: failed to open spi port: %w", err)
		}
		cfg = fpgasign.ConfigFPGA_SPIDefault(port)
		name := c.port
		cfg.SPI.Reopen = func() (spi.PortCloser, error) { return spireg.Open(name) }
		cfg.SPI.MaxFreq = board.SPIFrequency()
		if c.hz != 0 {
			cfg.SPI.MaxFreq = c.hz
		}
	case "hid":
		cfg = fpgasign.ConfigFPGA_HIDDefault()
		cfg.HID.DevIndex = c.devIndex
		if c.hz != 0 {
			cfg.HID.BitRate = uint32(c.hz / physic.Hertz)
		}
	case "emu":
		cfg = fpgasign.ConfigFPGA_EmulatorDefault()
		key, err := parseKey(c.key)
		if err != nil {
			return cfg, err
		}
		iv, err := parseIV(c.iv)
		if err != nil {
			return cfg, err
		}
		cfg.Emulator.Key = key
		cfg.Emulator.IV = iv
	default:
		return cfg, errors.New("fpgasign: unknown interface")
	}

	cfg.Board = board
	cfg.Cipher = cipher
	cfg.Debug = newLogger(c.verbose)
	return cfg, nil
}

func parseCipher(name string) (fpgasign.CipherType, error) {
	switch strings.ToLower(name) {
	case "software", "":
		return fpgasign.CipherSoftware, nil
	case "kernel", "afalg":
		return fpgasign.CipherKernel, nil
	default:
		return 0, fmt.Errorf("fpgasign: unknown cipher %q", name)
	}
}

// parseBytes decodes s as text, or as hex when prefixed with "hex:".
func parseBytes(s string) ([]byte, error) {
	if h, ok := strings.CutPrefix(s, "hex:"); ok {
		return hex.DecodeString(h)
	}
	return []byte(s), nil
}

// parseKey returns the key zero padded to the session key size.
func parseKey(s string) ([]byte, error) {
	b, err := parseBytes(s)
	if err != nil {
		return nil, err
	}
	if len(b) > fpgasign.KeySize {
		return nil, fmt.Errorf("fpgasign: key is longer than %d bytes", fpgasign.KeySize)
	}
	key := make([]byte, fpgasign.KeySize)
	copy(key, b)
	return key, nil
}

func parseIV(s string) ([]byte, error) {
	b, err := parseBytes(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 16 {
		return nil, fmt.Errorf("fpgasign: iv is %d bytes, want 16", len(b))
	}
	return b, nil
}

// keepFirst runs release and stores its error in err unless err is
// already set.
func keepFirst(err *error, release func() error) {
	if rerr := release(); rerr != nil && *err == nil {
		*err = rerr
	}
}

// checkSignature decrypts sig on the host and compares it with the digest
// of payload.
func checkSignature(s *fpgasign.Session, payload, sig, iv []byte) error {
	digest, err := s.Decrypt(sig, iv)
	if err != nil {
		return err
	}
	want := sha256.Sum256(payload)
	if !bytes.Equal(digest, want[:]) {
		return errSignatureMismatch
	}
	return nil
}

// readHex reads hex from r, ignoring any whitespace.
func readHex(r io.Reader) ([]byte, error) {
	in, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := strings.Join(strings.Fields(string(in)), "")
	return hex.DecodeString(s)
}

func prettyHex(data []byte) string {
	return prettyHexIndent(data, "    ", "")
}

func prettyHexIndent(data []byte, prefix string, space string) string {
	var buf strings.Builder

	// prefix and space every 16 byte, and 2 hex, and one space/newline
	cols := 16
	size := (len(data)/cols+1)*(len(prefix)+len(space)+1) + len(data)*3
	buf.Grow(size)

	for i := range data {
		if i > 0 {
			switch i % cols {
			case 0:
				buf.WriteByte('\n')
			case cols / 2:
				buf.WriteByte(' ')
				buf.WriteString(space)
			default:
				buf.WriteByte(' ')
			}
		}
		if i%cols == 0 {
			buf.WriteString(prefix)
		}

		fmt.Fprintf(&buf, "%02x", data[i])
	}

	return buf.String()
}

func writeJSON(w io.Writer, data any) error {
	j, err := json.MarshalIndent(data, "", " ")
	if err != nil {
		return err
	}
	j = append(j, '\n')
	_, err = w.Write(j)
	return err
}

func addLongHelp(cmd *ffcli.Command) *ffcli.Command {
	if cmd.LongHelp == "" {
		cmd.LongHelp = cmd.ShortHelp
	}

	cmd.LongHelp += fpgasignLongHelp

	return cmd
}

func newLogger(verbose bool) fpgasign.Logger {
	if verbose {
		return log.New(os.Stderr, "", 0)
	} else {
		return nil
	}
}
