package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sw33tLie/kselect/pkg/company"
	"github.com/sw33tLie/kselect/pkg/config"
)

// ErrMisaligned is returned when the parallel id lists do not have one
// element per stored name.
var ErrMisaligned = errors.New("stored selection fields are not aligned")

// Decode splits raw on delim, trims every token and drops the empty ones.
// An empty raw value yields an empty slice.
func Decode(raw, delim string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	for _, tok := range strings.Split(raw, delim) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// decodeAligned splits an id list without dropping empty tokens, since an
// empty id still occupies its slot. n is the number of stored names.
func decodeAligned(raw, delim string, n int) []string {
	if raw == "" {
		// A single empty id encodes to "", same as no ids at all.
		return make([]string, n)
	}
	parts := strings.Split(raw, delim)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Projections is the three-field encoding of a selection.
type Projections struct {
	Names          string
	BpoIDs         string
	GoogleDriveIDs string
}

// Stored is the raw content of the store fields of a record. A nil
// pointer means the field does not exist on the record.
type Stored struct {
	Names          string
	BpoIDs         *string
	GoogleDriveIDs *string
	Structured     *string
}

// Codec encodes and decodes the stored selection with the delimiters of
// one form.
type Codec struct {
	delims config.Delimiters
}

func New(d config.Delimiters) *Codec {
	return &Codec{delims: d}
}

// Mismatch reports whether the name store is read back with a different
// delimiter than it is written with. Such a codec will not round trip
// selections of more than one company.
func (c *Codec) Mismatch() bool {
	return c.delims.Mismatch()
}

// DecodeNames decodes the name store.
func (c *Codec) DecodeNames(raw string) []string {
	return Decode(raw, c.delims.NameDecode)
}

// Encode joins each attribute of entries into its own field value.
func (c *Codec) Encode(entries []company.Entry) Projections {
	return Projections{
		Names:          strings.Join(company.Names(entries), c.delims.NameEncode),
		BpoIDs:         strings.Join(company.BpoIDs(entries), c.delims.IDs),
		GoogleDriveIDs: strings.Join(company.GoogleDriveIDs(entries), c.delims.IDs),
	}
}

// EncodeStructured renders entries as a JSON array for the structured store.
func (c *Codec) EncodeStructured(entries []company.Entry) (string, error) {
	if entries == nil {
		entries = []company.Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeStored rebuilds the stored selection as entries. A non-empty
// structured store wins over the delimited fields. Id lists that are
// absent from the record are left empty; id lists that are present must
// have exactly one element per name, otherwise ErrMisaligned is returned
// along with the fields that did line up.
func (c *Codec) DecodeStored(s Stored) ([]company.Entry, error) {
	if s.Structured != nil && strings.TrimSpace(*s.Structured) != "" {
		var entries []company.Entry
		if err := json.Unmarshal([]byte(*s.Structured), &entries); err != nil {
			return nil, fmt.Errorf("could not decode structured selection: %w", err)
		}
		return entries, nil
	}

	names := c.DecodeNames(s.Names)
	entries := make([]company.Entry, len(names))
	for i, n := range names {
		entries[i].Name = n
	}

	if s.BpoIDs != nil {
		ids := decodeAligned(*s.BpoIDs, c.delims.IDs, len(names))
		if len(ids) != len(names) {
			return entries, fmt.Errorf("%w: %d names, %d bpo ids", ErrMisaligned, len(names), len(ids))
		}
		for i := range ids {
			entries[i].BpoID = ids[i]
		}
	}
	if s.GoogleDriveIDs != nil {
		ids := decodeAligned(*s.GoogleDriveIDs, c.delims.IDs, len(names))
		if len(ids) != len(names) {
			return entries, fmt.Errorf("%w: %d names, %d google drive ids", ErrMisaligned, len(names), len(ids))
		}
		for i := range ids {
			entries[i].GoogleDriveID = ids[i]
		}
	}
	return entries, nil
}
