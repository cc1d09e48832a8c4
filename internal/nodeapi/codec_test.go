package nodeapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRawPBCodecRoundTrip(t *testing.T) {
	c := rawPBCodec{}
	require.Equal(t, "rawpb", c.Name())

	req := &BucketViewRequest{Name: "my-bucket"}
	data, err := c.Marshal(req)
	require.NoError(t, err)

	var decoded BucketViewRequest
	require.NoError(t, c.Unmarshal(data, &decoded))
	require.Equal(t, req.Name, decoded.Name)
}

func TestRawPBCodecRejectsNonWireMessage(t *testing.T) {
	c := rawPBCodec{}
	_, err := c.Marshal("not a wire message")
	require.Error(t, err)

	err = c.Unmarshal([]byte{}, "not a wire message")
	require.Error(t, err)
}
