package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencurb/curb-cli/internal/model"
)

func TestEncodeSegmentRequiresCenterline(t *testing.T) {
	_, err := encodeSegment(&model.StreetSegment{
		CenterlineID: "cl-1",
		Side:         model.SideLeft,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil geometry")
}

func TestDecodeLineRejectsGarbage(t *testing.T) {
	_, err := decodeLine([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Error(t, err)
}
