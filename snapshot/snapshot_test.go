package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/encoder"
	"github.com/hupe1980/flash/internal/hash"
	"github.com/hupe1980/flash/internal/registry"
	"github.com/hupe1980/flash/lsh"
)

func testState(t *testing.T) (State, *encoder.Encoder) {
	t.Helper()

	cfg := config.MustPreset(config.Small)
	cfg.NumTables = 16
	cfg.Seed = 42
	cfg.Workers = 1

	bank, err := lsh.New(lsh.Options{
		NumTables:        cfg.NumTables,
		HashesPerTable:   cfg.HashesPerTable,
		RangePow:         cfg.RangePow,
		MaxFeatureWeight: cfg.MaxFeatureWeight,
		Stripes:          cfg.Stripes,
		Workers:          cfg.Workers,
		Seed:             cfg.Seed,
	})
	require.NoError(t, err)

	enc := encoder.New(encoder.Options{FeatureBits: cfg.FeatureBits, CharNGram: cfg.CharNGram, WordNGram: cfg.WordNGram})
	reg := registry.New()
	for _, row := range [][2]string{
		{"cat food", "animals"},
		{"dog leash", "animals"},
		{"laptop charger", "electronics"},
		{"usb c charger cable", "electronics"},
		{"garden hose", "outdoor"},
	} {
		id, err := reg.Mint(row[1])
		require.NoError(t, err)
		bank.Insert(enc.Encode(row[0]), id)
		reg.AddInserts(id, uint64(cfg.NumTables))
	}

	return State{Config: cfg, Labels: reg.Snapshot(), Bank: bank}, enc
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			st, enc := testState(t)

			data, err := Encode(st, c)
			require.NoError(t, err)

			h, err := ReadHeader(data)
			require.NoError(t, err)
			assert.Equal(t, Version, h.Version)
			assert.Equal(t, c, h.Compression)

			got, err := Decode(data, 0)
			require.NoError(t, err)

			assert.Equal(t, st.Config, got.Config)
			assert.Equal(t, st.Labels, got.Labels)
			assert.Equal(t, st.Bank.Stats(), got.Bank.Stats())

			for _, q := range []string{"cat leash", "phone charger", "hose", ""} {
				fs := enc.Encode(q)
				assert.Equal(t, st.Bank.BucketCodes(fs), got.Bank.BucketCodes(fs), q)
				assert.Equal(t, st.Bank.Candidates(fs, nil), got.Bank.Candidates(fs, nil), q)
			}

			for i := range st.Bank.NumTables() {
				var want, have []string
				st.Bank.Table(i).Range(func(code uint32, e []lsh.Entry) bool {
					want = append(want, fmt.Sprint(code, e))
					return true
				})
				got.Bank.Table(i).Range(func(code uint32, e []lsh.Entry) bool {
					have = append(have, fmt.Sprint(code, e))
					return true
				})
				assert.Equal(t, want, have, "table %d", i)
			}
		})
	}
}

func TestDecode_WorkersOverride(t *testing.T) {
	st, _ := testState(t)
	data, err := Encode(st, CompressionNone)
	require.NoError(t, err)

	got, err := Decode(data, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Config.Workers)
}

func TestDecode_Empty(t *testing.T) {
	st, _ := testState(t)
	empty := lsh.NewWithHasher(st.Bank.Hasher(), 4, 1)

	data, err := Encode(State{Config: st.Config, Bank: empty}, CompressionZSTD)
	require.NoError(t, err)

	got, err := Decode(data, 0)
	require.NoError(t, err)
	assert.Empty(t, got.Labels)
	assert.Zero(t, got.Bank.Stats().Entries)
}

func TestDecode_Errors(t *testing.T) {
	st, _ := testState(t)
	data, err := Encode(st, CompressionNone)
	require.NoError(t, err)

	t.Run("BadMagic", func(t *testing.T) {
		_, err := Decode([]byte("NOPE0000000000"), 0)
		assert.ErrorIs(t, err, ErrBadMagic)

		_, err = Decode(nil, 0)
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("Version", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint16(bad[4:], Version+1)
		_, err := Decode(bad, 0)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0xff
		_, err := Decode(bad, 0)
		var ce *hash.ChecksumError
		assert.ErrorAs(t, err, &ce)
	})

	t.Run("Truncated", func(t *testing.T) {
		// Re-seal a truncated body so only the body decoder can notice.
		block, err := compressBlock(data[headerSize+blockHeaderSize:len(data)-5], CompressionNone)
		require.NoError(t, err)
		bad := append(bytes.Clone(data[:headerSize]), block...)
		binary.LittleEndian.PutUint32(bad[8:], hash.CRC32C(block))

		_, err = Decode(bad, 0)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestCompressBlock(t *testing.T) {
	compressible := bytes.Repeat([]byte("charger "), 512)
	random := make([]byte, 256)
	for i := range random {
		random[i] = byte(i * 131)
	}

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		for _, data := range [][]byte{compressible, random, {}} {
			block, err := compressBlock(data, c)
			require.NoError(t, err)
			if c != CompressionNone && len(data) == len(compressible) {
				assert.Less(t, len(block), len(data), c.String())
			}

			got, err := decompressBlock(block, c)
			require.NoError(t, err)
			assert.Equal(t, len(data), len(got))
			assert.True(t, bytes.Equal(data, got), c.String())
		}
	}

	_, err := decompressBlock([]byte{1, 2, 3}, CompressionLZ4)
	assert.Error(t, err)
	_, err = compressBlock(compressible, Compression(9))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "LZ4": CompressionLZ4, "zstd": CompressionZSTD} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}
