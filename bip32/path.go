package bip32

import (
	"encoding/binary"
	"io"
	"strconv"
	"strings"
)

// MaxPathDepth is the maximum number of components in a derivation path,
// bounded by the single depth byte in serialized extended keys.
const MaxPathDepth = 255

// DerivationPath is a sequence of child indices. Indices at or above
// HardenedOffset are hardened.
type DerivationPath []uint32

// ParsePath parses a derivation path string. The leading "m" (or "M") is
// optional, components are decimal indices separated by "/", and a
// trailing "'", "h" or "H" hardens a component. The empty string and bare
// "m" both parse to the empty path.
func ParsePath(path string) (DerivationPath, error) {
	trimmed := strings.TrimSpace(path)
	trimmed = strings.TrimPrefix(trimmed, "m")
	trimmed = strings.TrimPrefix(trimmed, "M")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return DerivationPath{}, nil
	}

	components := strings.Split(trimmed, "/")
	if len(components) > MaxPathDepth {
		return nil, &PathTooLongError{Length: len(components)}
	}

	parsed := make(DerivationPath, 0, len(components))
	for _, component := range components {
		index, err := parseComponent(component)
		if err != nil {
			return nil, &MalformedPathError{
				Path:      path,
				Component: component,
			}
		}
		parsed = append(parsed, index)
	}
	return parsed, nil
}

func parseComponent(component string) (uint32, error) {
	harden := uint32(0)
	switch {
	case strings.HasSuffix(component, "'"),
		strings.HasSuffix(component, "h"),
		strings.HasSuffix(component, "H"):

		harden = HardenedOffset
		component = component[:len(component)-1]
	}

	index, err := strconv.ParseUint(component, 10, 32)
	if err != nil {
		return 0, err
	}
	if uint32(index) >= HardenedOffset {
		return 0, strconv.ErrRange
	}
	return uint32(index) + harden, nil
}

// String renders the path in the conventional "m/44'/0'/0'" form.
func (p DerivationPath) String() string {
	var sb strings.Builder
	sb.WriteByte('m')
	for _, index := range p {
		sb.WriteByte('/')
		if index >= HardenedOffset {
			sb.WriteString(strconv.FormatUint(
				uint64(index-HardenedOffset), 10,
			))
			sb.WriteByte('\'')
		} else {
			sb.WriteString(strconv.FormatUint(uint64(index), 10))
		}
	}
	return sb.String()
}

// Extend returns a new path with the given indices appended. The receiver
// is not modified.
func (p DerivationPath) Extend(indices ...uint32) DerivationPath {
	extended := make(DerivationPath, 0, len(p)+len(indices))
	extended = append(extended, p...)
	extended = append(extended, indices...)
	return extended
}

// HasPrefix reports whether prefix is a (possibly equal) leading
// subsequence of p.
func (p DerivationPath) HasPrefix(prefix DerivationPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, index := range prefix {
		if p[i] != index {
			return false
		}
	}
	return true
}

// LastHardened returns the position just after the last hardened
// component, and whether any hardened component exists. Everything at or
// beyond the returned position is derivable from a neutered key.
func (p DerivationPath) LastHardened() (int, bool) {
	last := -1
	for i, index := range p {
		if index >= HardenedOffset {
			last = i
		}
	}
	if last == -1 {
		return 0, false
	}
	return last + 1, true
}

// KeyDerivation locates a key in a tree: the fingerprint of the tree's
// root and the path from that root. Because fingerprints collide, a
// KeyDerivation is a strong hint rather than a proof; callers that need
// certainty re-derive and compare keys.
type KeyDerivation struct {
	// Root is the fingerprint of the root key.
	Root KeyFingerprint

	// Path is the derivation path from the root.
	Path DerivationPath
}

// SameRoot reports whether both derivations claim the same root
// fingerprint.
func (d *KeyDerivation) SameRoot(other *KeyDerivation) bool {
	return d.Root == other.Root
}

// IsPossibleAncestorOf reports whether this derivation could describe an
// ancestor of other: same root and this path is a proper-or-equal prefix
// of the other path.
func (d *KeyDerivation) IsPossibleAncestorOf(other *KeyDerivation) bool {
	return d.SameRoot(other) && other.Path.HasPrefix(d.Path)
}

// PathToDescendant returns the path suffix that leads from this
// derivation to the descendant, and whether such a suffix exists.
func (d *KeyDerivation) PathToDescendant(
	descendant *KeyDerivation) (DerivationPath, bool) {

	if !d.IsPossibleAncestorOf(descendant) {
		return nil, false
	}
	suffix := descendant.Path[len(d.Path):]
	out := make(DerivationPath, len(suffix))
	copy(out, suffix)
	return out, true
}

// Extended returns a copy of the derivation with one more child step.
func (d *KeyDerivation) Extended(index uint32) *KeyDerivation {
	return &KeyDerivation{
		Root: d.Root,
		Path: d.Path.Extend(index),
	}
}

// Clone returns a deep copy.
func (d *KeyDerivation) Clone() *KeyDerivation {
	path := make(DerivationPath, len(d.Path))
	copy(path, d.Path)
	return &KeyDerivation{Root: d.Root, Path: path}
}

// SerializedLen returns the byte length of the wire form: the root
// fingerprint followed by one little-endian u32 per path component.
func (d *KeyDerivation) SerializedLen() int {
	return FingerprintLen + 4*len(d.Path)
}

// Encode writes the wire form of the derivation.
func (d *KeyDerivation) Encode(w io.Writer) error {
	if _, err := w.Write(d.Root[:]); err != nil {
		return err
	}
	var buf [4]byte
	for _, index := range d.Path {
		binary.LittleEndian.PutUint32(buf[:], index)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the wire form of the derivation.
func (d *KeyDerivation) Bytes() []byte {
	out := make([]byte, 0, d.SerializedLen())
	out = append(out, d.Root[:]...)
	for _, index := range d.Path {
		out = binary.LittleEndian.AppendUint32(out, index)
	}
	return out
}

// ParseKeyDerivation parses the wire form of a key derivation. The input
// must be exactly a fingerprint plus a whole number of u32 components.
func ParseKeyDerivation(b []byte) (*KeyDerivation, error) {
	if len(b) < FingerprintLen || (len(b)-FingerprintLen)%4 != 0 {
		return nil, ErrMalformedDerivation
	}

	var d KeyDerivation
	copy(d.Root[:], b[:FingerprintLen])

	rest := b[FingerprintLen:]
	d.Path = make(DerivationPath, 0, len(rest)/4)
	for len(rest) > 0 {
		d.Path = append(d.Path, binary.LittleEndian.Uint32(rest[:4]))
		rest = rest[4:]
	}
	return &d, nil
}
