package chat

import (
	"strings"

	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

// NormalizeNumber strips the network suffix decoration from a contact
// identifier: "5511999999999@s.whatsapp.net" and "5511999999999:12@s.whatsapp.net"
// both normalize to "5511999999999". Plain numbers pass through with
// a leading "+" removed.
func NormalizeNumber(raw string) string {
	number := strings.TrimSpace(raw)
	if at := strings.IndexByte(number, '@'); at >= 0 {
		number = number[:at]
	}
	// Device part of a JID, e.g. "5511999999999:12".
	if colon := strings.IndexByte(number, ':'); colon >= 0 {
		number = number[:colon]
	}
	return strings.TrimPrefix(number, "+")
}

// ResolveContact normalizes the counterparty number and rejects
// self-conversations against the tenant's own number.
func ResolveContact(raw, ownNumber string) (string, error) {
	number := NormalizeNumber(raw)
	if number == "" {
		return "", gatewayerrors.New(gatewayerrors.TypeValidation, "contact number is empty")
	}
	if ownNumber != "" && number == NormalizeNumber(ownNumber) {
		return "", gatewayerrors.New(gatewayerrors.TypeValidation, "self-conversations are not allowed")
	}
	return number, nil
}
