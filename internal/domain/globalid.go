package domain

import (
	"encoding/base64"
	"strings"
)

// NodeKind is the type tag carried by a global ID.
type NodeKind string

const (
	KindAccount     NodeKind = "Account"
	KindTransaction NodeKind = "Transaction"
)

// GlobalID is a decoded opaque identifier.
type GlobalID struct {
	Kind    NodeKind
	LocalID string
}

// EncodeGlobalID builds the opaque identifier base64("<Kind>:<localID>").
func EncodeGlobalID(kind NodeKind, localID string) string {
	return base64.StdEncoding.EncodeToString([]byte(string(kind) + ":" + localID))
}

// DecodeGlobalID splits an opaque identifier into its type tag and local ID.
func DecodeGlobalID(token string) (GlobalID, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return GlobalID{}, ErrInvalidIDType
	}

	kind, localID, ok := strings.Cut(string(raw), ":")
	if !ok || kind == "" || localID == "" {
		return GlobalID{}, ErrInvalidIDType
	}

	return GlobalID{Kind: NodeKind(kind), LocalID: localID}, nil
}

// DecodeAs decodes token and requires it to reference an entity of kind.
func DecodeAs(token string, kind NodeKind) (string, error) {
	id, err := DecodeGlobalID(token)
	if err != nil {
		return "", err
	}

	if id.Kind != kind {
		return "", ErrInvalidIDType
	}

	return id.LocalID, nil
}
