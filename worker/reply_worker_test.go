package worker

import (
	"bytes"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawReply = "From: billing@acme.test\r\n" +
	"To: reminders@duechaser.test\r\n" +
	"Subject: Re: Invoice INV-001\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"We are settling INV-001 this week, please hold off.\r\n"

// The fetch response keys Body with its own section pointers, so the
// lookup has to match by section value, not identity.
func TestExtractTextReadsBodyKeyedByForeignSectionPointer(t *testing.T) {
	key := &imap.BodySectionName{}
	msg := &imap.Message{
		Body: map[*imap.BodySectionName]imap.Literal{
			key: bytes.NewBufferString(rawReply),
		},
	}

	text, err := extractText(msg)
	require.NoError(t, err)
	assert.Contains(t, text, "INV-001")
	assert.Contains(t, text, "hold off")
}

func TestExtractTextEmptyWhenNoBodyFetched(t *testing.T) {
	text, err := extractText(&imap.Message{})
	require.NoError(t, err)
	assert.Empty(t, text)
}
