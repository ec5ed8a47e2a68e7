package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

var (
	lineComment  = regexp.MustCompile(`(?m)//.*$`)
	blockComment = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// NormalizeCode strips line and block comments, collapses whitespace and
// lowercases, so cosmetically different submissions share a key.
func NormalizeCode(code string) string {
	code = lineComment.ReplaceAllString(code, "")
	code = blockComment.ReplaceAllString(code, "")
	code = whitespace.ReplaceAllString(code, " ")
	return strings.ToLower(strings.TrimSpace(code))
}

// CodeHash is the hex md5 of the normalized code. Both cache tiers key on it.
func CodeHash(code string) string {
	sum := md5.Sum([]byte(NormalizeCode(code)))
	return hex.EncodeToString(sum[:])
}

// CodeKey is the memory tier key for a submission
func CodeKey(code string, exerciseID int64) string {
	return fmt.Sprintf("code_%d_%s", exerciseID, CodeHash(code))
}

// QuestionsKey is the memory tier key for a subtopic question pool
func QuestionsKey(subtopicID int64, difficulty domain.Difficulty) string {
	if difficulty == "" {
		difficulty = domain.DifficultyIntermediate
	}
	return fmt.Sprintf("questions_%d_%s", subtopicID, difficulty)
}
