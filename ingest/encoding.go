/*
encoding.go - Text encoding detection

PURPOSE:
  Central-lab exports arrive in whatever encoding the lab's LIMS produced;
  in practice UTF-8, Latin-1 or a Windows code page. DecodeText tries an
  ordered candidate list and keeps the first that decodes without error.

CANDIDATE ORDER:
  UTF-8, Latin-1, CP1252, ISO-8859-1, Windows-1252. The single-byte maps
  overlap heavily; order only matters for the 0x80-0x9F range where CP1252
  assigns printable characters. UTF-8 goes first because a valid UTF-8
  file decoded as Latin-1 silently mangles every multi-byte character.
*/
package ingest

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/warp/recon-engine/recon"
)

type encodingCandidate struct {
	name    string
	decoder *encoding.Decoder // nil means UTF-8 validation
}

var encodingCandidates = []encodingCandidate{
	{name: "utf-8"},
	{name: "latin-1", decoder: charmap.ISO8859_1.NewDecoder()},
	{name: "cp1252", decoder: charmap.Windows1252.NewDecoder()},
	{name: "iso-8859-1", decoder: charmap.ISO8859_1.NewDecoder()},
	{name: "windows-1252", decoder: charmap.Windows1252.NewDecoder()},
}

// DecodeText decodes raw input bytes using the first candidate encoding
// that succeeds. Returns an EncodingError naming every tried candidate if
// all fail.
func DecodeText(source string, data []byte) (string, error) {
	var tried []string
	for _, c := range encodingCandidates {
		tried = append(tried, c.name)
		if c.decoder == nil {
			if utf8.Valid(data) {
				return string(data), nil
			}
			continue
		}
		decoded, err := c.decoder.Bytes(data)
		if err != nil {
			continue
		}
		return string(decoded), nil
	}
	return "", &recon.EncodingError{Source: source, Tried: tried}
}
