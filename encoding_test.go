package shp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEncodingKnownNames(t *testing.T) {
	for _, name := range []string{"UTF-8", "ISO-8859-1", "windows-1252", "utf-16le"} {
		_, err := resolveEncoding(name)
		require.NoError(t, err, name)
	}
}

func TestResolveEncodingUnknown(t *testing.T) {
	_, err := resolveEncoding("definitely-not-a-codepage")
	require.Error(t, err)
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrEncodingError, se.Type)
}

func TestSniffCPGTrimsWhitespace(t *testing.T) {
	name, err := sniffCPG(strings.NewReader("UTF-8\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", name)
}

func TestDecodeBytesLatin1(t *testing.T) {
	enc, err := resolveEncoding("ISO-8859-1")
	require.NoError(t, err)
	s, err := decodeBytes(enc, PolicyStrict, []byte("San Jos\xe9"))
	require.NoError(t, err)
	assert.Equal(t, "San José", s)
}
