// Package domain models identity resolution: the closed set of
// identifier kinds, the identity graph edge, and the resolution result
// every timing decision must reference.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Kind enumerates the closed set of identifier kinds. Modeling the set
// as a tagged variant keeps resolution handling exhaustive at build time.
type Kind int

const (
	// Deterministic keys.
	KindEmailHash Kind = iota
	KindPhoneNumber

	// Probabilistic keys.
	KindESPUserID
	KindKlaviyoID
	KindShopifyCustomerID
	KindDeviceSignature

	// Internal.
	KindUniversalID
)

var kindNames = [...]string{
	KindEmailHash:         "email_hash",
	KindPhoneNumber:       "phone_number",
	KindESPUserID:         "esp_user_id",
	KindKlaviyoID:         "klaviyo_id",
	KindShopifyCustomerID: "shopify_customer_id",
	KindDeviceSignature:   "ip_device_signature",
	KindUniversalID:       "universal_id",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindFromString parses a stored kind name back into the variant.
func KindFromString(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, errors.New("unknown identifier kind: " + s)
}

// Deterministic reports whether a match on this kind resolves with full
// confidence.
func (k Kind) Deterministic() bool {
	return k == KindEmailHash || k == KindPhoneNumber
}

// Identifier is one normalized identity key.
type Identifier struct {
	Kind  Kind
	Value string
}

// Keys are the raw identity keys a caller may supply on a request.
type Keys struct {
	Email             string
	Phone             string
	ESPUserID         string
	KlaviyoID         string
	ShopifyCustomerID string
	DeviceSignature   string
}

// Empty reports whether no key was supplied.
func (k Keys) Empty() bool {
	return k == Keys{}
}

// Normalize hashes and canonicalizes the supplied keys into identifiers,
// deterministic kinds first.
func (k Keys) Normalize() []Identifier {
	var ids []Identifier
	if k.Email != "" {
		ids = append(ids, Identifier{Kind: KindEmailHash, Value: HashEmail(k.Email)})
	}
	if k.Phone != "" {
		ids = append(ids, Identifier{Kind: KindPhoneNumber, Value: NormalizePhone(k.Phone)})
	}
	if k.KlaviyoID != "" {
		ids = append(ids, Identifier{Kind: KindKlaviyoID, Value: k.KlaviyoID})
	}
	if k.ShopifyCustomerID != "" {
		ids = append(ids, Identifier{Kind: KindShopifyCustomerID, Value: k.ShopifyCustomerID})
	}
	if k.ESPUserID != "" {
		ids = append(ids, Identifier{Kind: KindESPUserID, Value: k.ESPUserID})
	}
	if k.DeviceSignature != "" {
		ids = append(ids, Identifier{Kind: KindDeviceSignature, Value: k.DeviceSignature})
	}
	return ids
}

// HashEmail lowercases, trims, and SHA-256 hashes an email address for
// deterministic matching.
func HashEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizePhone reduces a phone number to E.164. Ten-digit numbers are
// assumed to be US numbers missing the country code.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	d := digits.String()
	if len(d) == 10 {
		return "+1" + d
	}
	return "+" + d
}

// NewUniversalID mints a fresh universal recipient identifier.
func NewUniversalID() string {
	return "pl_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
