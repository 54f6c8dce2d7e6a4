// Package identity implements the Agent Identity token flow: decoding a
// token's claim set for display and fetching fresh tokens from the broker
// sidecar.
//
// DecodeClaims intentionally performs NO signature verification. The claims
// it returns are derived data for trace display and provenance fields only
// and must never drive an authorization decision. Verifying the broker's
// signature would require its published key material, which this deployment
// does not distribute.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// FederatedAgentMarker is the xms_frd claim value asserting that the token
// was minted for a non-human, federated agent caller.
const FederatedAgentMarker = "FederatedAgent"

// NotAvailable is the display sentinel for claims absent from a token.
// Display output always carries every expected key so the UI never needs
// presence checks.
const NotAvailable = "N/A"

// ClaimSet holds the claims decoded from an Agent Identity token payload.
type ClaimSet struct {
	Audience       string   `json:"aud"`
	Issuer         string   `json:"iss"`
	AppDisplayName string   `json:"app_displayname"`
	AppID          string   `json:"appid"`
	ObjectID       string   `json:"oid"`
	TenantID       string   `json:"tid"`
	Roles          []string `json:"roles"`
	IssuedAt       int64    `json:"iat"`
	ExpiresAt      int64    `json:"exp"`
	FederationType string   `json:"xms_frd"`
}

// IsAgentIdentity reports whether the federation claim marks the caller as
// an agent identity.
func (c *ClaimSet) IsAgentIdentity() bool {
	return c != nil && c.FederationType == FederatedAgentMarker
}

// Display returns the claim set shaped for trace output. Every expected key
// is present; missing string claims become the NotAvailable sentinel and a
// missing role list becomes an empty list.
func (c *ClaimSet) Display() map[string]any {
	roles := c.Roles
	if roles == nil {
		roles = []string{}
	}
	return map[string]any{
		"aud":             orNA(c.Audience),
		"iss":             orNA(c.Issuer),
		"app_displayname": orNA(c.AppDisplayName),
		"appid":           orNA(c.AppID),
		"oid":             orNA(c.ObjectID),
		"tid":             orNA(c.TenantID),
		"roles":           roles,
		"iat":             orNAInt(c.IssuedAt),
		"exp":             orNAInt(c.ExpiresAt),
		"xms_frd":         orNA(c.FederationType),
	}
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func orNAInt(v int64) any {
	if v == 0 {
		return NotAvailable
	}
	return v
}

// DecodeClaims parses the payload segment of a bearer token into a ClaimSet.
//
// The token may arrive with or without a leading "Bearer " prefix. The
// function is pure and total: any malformed input yields (nil, false) and it
// never panics. It is called for observability only, so a failure here must
// never abort the surrounding flow.
func DecodeClaims(token string) (*ClaimSet, bool) {
	token = strings.TrimPrefix(token, "Bearer ")
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}
	payload := parts[1]
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	raw, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	var cs ClaimSet
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, false
	}
	return &cs, true
}

// TruncateID shortens an app ID for logs and health output. Full IDs are
// never emitted.
func TruncateID(id string) string {
	if id == "" {
		return "not set"
	}
	if len(id) <= 8 {
		return id + "..."
	}
	return id[:8] + "..."
}
