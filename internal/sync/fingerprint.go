package sync

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/spec-kit/dialog-console/internal/domain"
)

// Fingerprint computes a deterministic summary of the fields that matter for
// rendering. Tickets are keyed and sorted by id before hashing so server-side
// reordering of an otherwise identical payload cannot produce a false change.
func Fingerprint(tickets []domain.Ticket) string {
	lines := make([]string, 0, len(tickets))
	for i := range tickets {
		lines = append(lines, fingerprintLine(&tickets[i]))
	}
	sort.Strings(lines)

	h := blake3.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func fingerprintLine(t *domain.Ticket) string {
	categories := append([]string(nil), t.Categories...)
	sort.Strings(categories)

	rating := ""
	if t.Rating != nil {
		rating = strconv.Itoa(*t.Rating)
	}
	last := ""
	if !t.LastMessageAt.IsZero() {
		last = strconv.FormatInt(t.LastMessageAt.UnixMilli(), 10)
	}

	return strings.Join([]string{
		t.ID,
		t.RequestNumber,
		t.ChannelID,
		string(t.Status),
		strconv.Itoa(t.UnreadCount),
		last,
		strings.Join(categories, ","),
		rating,
	}, "|")
}
