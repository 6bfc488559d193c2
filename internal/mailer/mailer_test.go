package mailer

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := map[string]any{
		"name":          "Sam",
		"amount":        "460.26",
		"tableNumber":   7,
		"reservationID": "res-1",
		"invoiceID":     "pi_1",
	}

	for _, tmpl := range []string{ReservationConfirmedTemplate, TableChangePaidTemplate} {
		t.Run(tmpl, func(t *testing.T) {
			subject, plainBody, htmlBody, err := render(tmpl, data)

			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.Contains(t, plainBody, "res-1")
			assert.Contains(t, htmlBody, "<strong>7</strong>")
		})
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := render("missing.tmpl", nil)

	assert.Error(t, err)
}

func TestMockMailerRecordsEmails(t *testing.T) {
	m := NewMockMailer()

	require.NoError(t, m.Send("sam@example.com", ReservationConfirmedTemplate, nil))

	emails := m.GetSentEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "sam@example.com", emails[0].Recipient)

	m.Reset()
	assert.Empty(t, m.GetSentEmails())
}

func TestLogMailerRendersTemplate(t *testing.T) {
	m := NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := m.Send("sam@example.com", TableChangePaidTemplate, map[string]any{
		"name":          "Sam",
		"amount":        "75.00",
		"tableNumber":   2,
		"reservationID": "res-1",
		"invoiceID":     "pi_change",
	})
	assert.NoError(t, err)

	assert.Error(t, m.Send("sam@example.com", "missing.tmpl", nil))
}
