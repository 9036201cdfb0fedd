package security

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRemoteURL(t *testing.T) {
	tests := []struct {
		url     string
		blocked bool
		wantErr string
	}{
		{url: "https://www.donneesquebec.ca/api/cas.json"},
		{url: "http://api.example.com/rows"},
		{url: "file:///etc/passwd", wantErr: "scheme must be http or https"},
		{url: "ftp://files.example.com/a.csv", wantErr: "scheme must be http or https"},
		{url: "http:///rows", wantErr: "no host"},
		{url: "http://localhost:8080/rows", blocked: true, wantErr: "localhost"},
		{url: "http://127.0.0.1/rows", blocked: true, wantErr: "loopback"},
		{url: "http://[::1]/rows", blocked: true, wantErr: "loopback"},
		{url: "http://[::ffff:127.0.0.1]/rows", blocked: true, wantErr: "loopback"},
		{url: "http://10.0.0.1/rows", blocked: true, wantErr: "private network"},
		{url: "http://192.168.1.1/rows", blocked: true, wantErr: "private network"},
		{url: "http://169.254.169.254/latest/meta-data", blocked: true, wantErr: "link-local"},
		{url: "http://0.0.0.0/rows", blocked: true, wantErr: "unspecified"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := CheckRemoteURL(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.blocked, errors.Is(err, ErrBlocked))
		})
	}
}

func TestCheckAddrPublic(t *testing.T) {
	assert.NoError(t, CheckAddr(netip.MustParseAddr("8.8.8.8")))
	assert.NoError(t, CheckAddr(netip.MustParseAddr("2001:4860:4860::8888")))
}
