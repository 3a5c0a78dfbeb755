// Package identity implements the content-addressing scheme used
// throughout the cache: a fixed-width digest of a byte stream, printed
// and persisted as lowercase hex.
package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Scheme identifies the digest algorithm used to compute identities.
// It is stored alongside any persisted identity so that identities
// computed under different schemes are never compared.
const Scheme = "sha256"

// Size is the byte length of an Identity under Scheme.
const Size = sha256.Size

// readChunkSize is the buffer size used when streaming content through
// the digest. The exact size is not load-bearing for correctness.
const readChunkSize = 1024

// Identity is an opaque, fixed-width content digest. The zero value
// serves as the unset identity (see IsZero); it is not the digest of
// the empty byte stream.
type Identity [Size]byte

// FromBytes constructs an Identity directly from a previously computed
// raw digest. It does not itself hash anything.
func FromBytes(raw []byte) (Identity, error) {
	var id Identity
	if len(raw) != Size {
		return id, errors.Errorf("invalid identity length: %d (expected %d)", len(raw), Size)
	}
	copy(id[:], raw)
	return id, nil
}

// ParseString parses an Identity from its lowercase-hex string form.
func ParseString(s string) (Identity, error) {
	var id Identity
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, errors.Wrap(err, "unable to decode identity hex")
	}
	return FromBytes(raw)
}

// String renders the identity as lowercase hex.
func (i Identity) String() string {
	return hex.EncodeToString(i[:])
}

// IsZero reports whether the identity is the unset zero value.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

// Compare implements a total order over identities by comparing their
// raw bytes. It returns a negative number, zero, or a positive number
// if i is less than, equal to, or greater than other, respectively.
func (i Identity) Compare(other Identity) int {
	return bytes.Compare(i[:], other[:])
}

// Less reports whether i sorts before other.
func (i Identity) Less(other Identity) bool {
	return i.Compare(other) < 0
}

// MarshalText implements encoding.TextMarshaler so that Identity can
// serve directly as a map key or struct field in the JSON codec.
func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseString(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

var _ json.Marshaler = Identity{}
var _ json.Unmarshaler = (*Identity)(nil)

// MarshalJSON implements json.Marshaler explicitly (rather than relying
// solely on MarshalText) to guarantee the quoted-hex-string wire form
// that the rest of the canonical model assumes.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "unable to decode identity string")
	}
	parsed, err := ParseString(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// IdentifyContent computes the identity of an arbitrary readable
// stream, buffering reads in fixed-size chunks.
func IdentifyContent(reader io.Reader) (Identity, error) {
	hasher := sha256.New()
	buffer := make([]byte, readChunkSize)
	if _, err := io.CopyBuffer(hasher, reader, buffer); err != nil {
		return Identity{}, errors.Wrap(err, "unable to read content")
	}
	return FromBytes(hasher.Sum(nil))
}

// IdentifyFileContent computes the identity of bytes already resident
// in memory, logically associated with a path purely for error
// messages (the path does not enter the digest).
func IdentifyFileContent(path string, content []byte) (Identity, error) {
	id, err := IdentifyContent(bytes.NewReader(content))
	if err != nil {
		return Identity{}, errors.Wrapf(err, "unable to identify content of %q", path)
	}
	return id, nil
}

// Opener is the minimal filesystem capability IdentifyFile needs: open
// a path for reading. internal/fsx.Filesystem satisfies it.
type Opener interface {
	OpenRead(path string) (io.ReadCloser, error)
}

// IdentifyFile streams the named file through the digest.
func IdentifyFile(fs Opener, path string) (Identity, error) {
	reader, err := fs.OpenRead(path)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "unable to open %q", path)
	}
	defer reader.Close()
	id, err := IdentifyContent(reader)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "unable to identify %q", path)
	}
	return id, nil
}

// Format renders an identity for diagnostic output.
func Format(id Identity) string {
	return fmt.Sprintf("%s:%s", Scheme, id.String())
}
