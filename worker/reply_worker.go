package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"duechaser/config"
	"duechaser/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReplyWorker polls the reply mailbox for answers to reminder mail.
// When a client writes back about an open invoice, nudging them further
// does more harm than good, so every pending reminder of the invoices
// mentioned in the reply is cancelled.
type ReplyWorker struct {
	DB     *gorm.DB
	Config config.IMAPConfig
	Logger *logrus.Entry
}

func NewReplyWorker(db *gorm.DB, cfg config.IMAPConfig, logger *logrus.Entry) *ReplyWorker {
	return &ReplyWorker{
		DB:     db,
		Config: cfg,
		Logger: logger,
	}
}

func (rw *ReplyWorker) Start(ctx context.Context) {
	rw.Logger.Info("reply worker started")
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Info("reply worker shutting down")
			return
		case <-ticker.C:
			if err := rw.fetchReplies(); err != nil {
				rw.Logger.WithError(err).Error("failed to fetch replies")
			}
		}
	}
}

func (rw *ReplyWorker) fetchReplies() error {
	addr := fmt.Sprintf("%s:%d", rw.Config.Host, rw.Config.Port)
	imapClient, err := client.DialTLS(addr, &tls.Config{ServerName: rw.Config.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(rw.Config.Username, rw.Config.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	mailbox := rw.Config.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := imapClient.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox %s: %w", mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	for msg := range messages {
		if err := rw.processReply(msg); err != nil {
			rw.Logger.WithError(err).WithField("seq", msg.SeqNum).Warn("failed to process reply")
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %w", err)
	}
	return nil
}

func (rw *ReplyWorker) processReply(msg *imap.Message) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return nil
	}
	from := msg.Envelope.From[0]
	sender := strings.ToLower(from.MailboxName + "@" + from.HostName)

	var cl models.Client
	if err := rw.DB.Where("LOWER(email) = ?", sender).First(&cl).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil // not from a known client
		}
		return err
	}

	body, err := extractText(msg)
	if err != nil {
		return err
	}
	haystack := msg.Envelope.Subject + "\n" + body

	// Open invoices of this client whose number shows up in the reply.
	var invoices []models.Invoice
	err = rw.DB.
		Where("client_id = ? AND status NOT IN ?", cl.ID,
			[]string{models.InvoiceStatusDraft, models.InvoiceStatusPaid}).
		Find(&invoices).Error
	if err != nil {
		return err
	}

	for _, inv := range invoices {
		if inv.Number == "" || !strings.Contains(haystack, inv.Number) {
			continue
		}
		res := rw.DB.Model(&models.Reminder{}).
			Where("invoice_id = ? AND status = ?", inv.ID, models.ReminderStatusPending).
			Update("status", models.ReminderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			rw.Logger.WithFields(logrus.Fields{
				"invoice_id": inv.ID,
				"client_id":  cl.ID,
				"cancelled":  res.RowsAffected,
			}).Info("client replied, pending reminders cancelled")
		}
	}
	return nil
}

// extractText pulls the plain-text parts out of a fetched message.
func extractText(msg *imap.Message) (string, error) {
	if msg.Body == nil {
		return "", nil
	}
	// Body is keyed by the pointers the fetch response was parsed
	// with, so a map lookup with our own section never matches.
	// GetBody compares sections by value.
	section := imap.BodySectionName{}
	literal := msg.GetBody(&section)
	if literal == nil {
		return "", nil
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", fmt.Errorf("failed to create message reader: %w", err)
	}

	var text strings.Builder
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			if strings.Contains(contentType, "text/plain") {
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read body: %w", err)
				}
				text.Write(b)
				text.WriteByte('\n')
			}
		}
	}
	return text.String(), nil
}
