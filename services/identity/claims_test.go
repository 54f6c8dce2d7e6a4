package identity

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildToken assembles a three-segment token whose payload is the JSON
// encoding of claims. Header and signature segments are arbitrary.
func buildToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString(payload) + "." +
		enc.EncodeToString([]byte("sig"))
}

func TestDecodeClaims_ValidToken(t *testing.T) {
	token := buildToken(t, map[string]any{
		"aud":     "api://weather",
		"iss":     "https://login.example.com/tenant",
		"appid":   "11112222-3333-4444-5555-666677778888",
		"oid":     "99990000-aaaa-bbbb-cccc-ddddeeeeffff",
		"tid":     "tenant-1",
		"roles":   []string{"Weather.Read"},
		"iat":     1700000000,
		"exp":     1700003600,
		"xms_frd": "FederatedAgent",
	})

	cs, ok := DecodeClaims(token)

	require.True(t, ok)
	assert.Equal(t, "api://weather", cs.Audience)
	assert.Equal(t, "11112222-3333-4444-5555-666677778888", cs.AppID)
	assert.Equal(t, []string{"Weather.Read"}, cs.Roles)
	assert.Equal(t, int64(1700003600), cs.ExpiresAt)
	assert.True(t, cs.IsAgentIdentity())
}

func TestDecodeClaims_BearerPrefixStripped(t *testing.T) {
	token := buildToken(t, map[string]any{"appid": "abc"})

	cs, ok := DecodeClaims("Bearer " + token)

	require.True(t, ok)
	assert.Equal(t, "abc", cs.AppID)
}

func TestDecodeClaims_PaddingRestored(t *testing.T) {
	// Payload lengths that need 1, 2, and 3 padding characters.
	for _, claims := range []map[string]any{
		{"appid": "a"},
		{"appid": "ab"},
		{"appid": "abc"},
		{"appid": "abcd"},
	} {
		token := buildToken(t, claims)
		cs, ok := DecodeClaims(token)
		require.True(t, ok, "claims %v", claims)
		assert.Equal(t, claims["appid"], cs.AppID)
	}
}

func TestDecodeClaims_MalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "onlyonesegment"},
		{"two segments", "aa.bb"},
		{"four segments", "aa.bb.cc.dd"},
		{"payload not base64url", "aa.!!!not-base64!!!.cc"},
		{"payload not json", "aa." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".cc"},
		{"roles wrong type", "aa." + base64.RawURLEncoding.EncodeToString([]byte(`{"roles":"admin"}`)) + ".cc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, ok := DecodeClaims(tt.token)
			assert.False(t, ok)
			assert.Nil(t, cs)
		})
	}
}

func TestDecodeClaims_NeverPanics(t *testing.T) {
	inputs := []string{
		"..", "...", "Bearer ", "Bearer ..", strings.Repeat(".", 10),
		"\x00.\x00.\x00",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { DecodeClaims(in) }, "input %q", in)
	}
}

func TestClaimSet_DisplaySentinels(t *testing.T) {
	token := buildToken(t, map[string]any{"appid": "abc"})
	cs, ok := DecodeClaims(token)
	require.True(t, ok)

	display := cs.Display()

	// Every expected key is present; missing ones carry the sentinel.
	for _, key := range []string{"aud", "iss", "app_displayname", "appid", "oid", "tid", "roles", "iat", "exp", "xms_frd"} {
		assert.Contains(t, display, key)
	}
	assert.Equal(t, "abc", display["appid"])
	assert.Equal(t, NotAvailable, display["aud"])
	assert.Equal(t, NotAvailable, display["iat"])
	assert.Equal(t, []string{}, display["roles"])
}

func TestClaimSet_IsAgentIdentity(t *testing.T) {
	assert.False(t, (&ClaimSet{}).IsAgentIdentity())
	assert.False(t, (&ClaimSet{FederationType: "Other"}).IsAgentIdentity())
	assert.True(t, (&ClaimSet{FederationType: FederatedAgentMarker}).IsAgentIdentity())

	var nilClaims *ClaimSet
	assert.False(t, nilClaims.IsAgentIdentity())
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "not set", TruncateID(""))
	assert.Equal(t, "short...", TruncateID("short"))
	assert.Equal(t, "12345678...", TruncateID("1234567890abcdef"))
}
