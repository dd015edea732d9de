package workspace

import (
	"github.com/wasilibs/go-re2"
	"golang.org/x/text/unicode/norm"
)

// Filler replaces every character that is not a letter, digit or underscore.
const Filler = "_"

var nonWord = re2.MustCompile(`[^\p{L}\p{N}_]`)

// Normalize maps a job name to the token shared by its script and log file.
// Distinct names may collide; that is accepted.
func Normalize(name string) string {
	return nonWord.ReplaceAllString(norm.NFC.String(name), Filler)
}
