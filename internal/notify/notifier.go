package notify

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"daan-backend/internal/models"
)

// Notifier informs a donor about ledger activity on their entries.
// Calls are fire-and-forget: delivery failure must never abort the
// payment transaction, so implementations log and swallow errors.
type Notifier interface {
	NotifyEntryCreated(user *models.User, entry *models.Entry)
	NotifyPaymentRecorded(user *models.User, entry *models.Entry, payment *models.PaymentRecord)
	NotifyPaymentStatusChanged(user *models.User, entry *models.Entry, oldStatus, newStatus string)
}

// Fast2SMSNotifier sends transactional SMS via Fast2SMS (India).
type Fast2SMSNotifier struct {
	APIKey string
	Client *http.Client
}

func NewFast2SMSNotifier(apiKey string) *Fast2SMSNotifier {
	return &Fast2SMSNotifier{
		APIKey: apiKey,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Fast2SMSNotifier) NotifyEntryCreated(user *models.User, entry *models.Entry) {
	msg := fmt.Sprintf("Namaste %s, your boli of Rs.%d for %s has been recorded. Receipt follows on payment.",
		user.Name, entry.TotalAmount, entry.Item)
	n.send(user.Phone, msg)
}

func (n *Fast2SMSNotifier) NotifyPaymentRecorded(user *models.User, entry *models.Entry, payment *models.PaymentRecord) {
	msg := fmt.Sprintf("Namaste %s, payment of Rs.%d received against %s. Receipt %s. Pending Rs.%d.",
		user.Name, payment.Amount, entry.Item, payment.ReceiptNo, entry.PendingAmount)
	n.send(user.Phone, msg)
}

func (n *Fast2SMSNotifier) NotifyPaymentStatusChanged(user *models.User, entry *models.Entry, oldStatus, newStatus string) {
	if newStatus != models.StatusFull {
		return
	}
	msg := fmt.Sprintf("Namaste %s, your boli for %s of Rs.%d is now fully paid. Thank you.",
		user.Name, entry.Item, entry.TotalAmount)
	n.send(user.Phone, msg)
}

func (n *Fast2SMSNotifier) send(phone, message string) {
	if phone == "" {
		return
	}
	go func() {
		apiURL := fmt.Sprintf(
			"https://www.fast2sms.com/dev/bulkV2?authorization=%s&route=q&message=%s&language=english&flash=0&numbers=%s",
			url.QueryEscape(n.APIKey),
			url.QueryEscape(message),
			url.QueryEscape(phone),
		)
		resp, err := n.Client.Get(apiURL)
		if err != nil {
			log.Printf("[Notify] SMS to %s failed: %v", phone, err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			log.Printf("[Notify] SMS to %s returned status %d", phone, resp.StatusCode)
		}
	}()
}

// LogNotifier prints notifications to the log. Used when no SMS API key
// is configured, and in tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) NotifyEntryCreated(user *models.User, entry *models.Entry) {
	log.Printf("[Notify] entry created: user=%s item=%s total=%d", user.Name, entry.Item, entry.TotalAmount)
}

func (n *LogNotifier) NotifyPaymentRecorded(user *models.User, entry *models.Entry, payment *models.PaymentRecord) {
	log.Printf("[Notify] payment recorded: user=%s receipt=%s amount=%d", user.Name, payment.ReceiptNo, payment.Amount)
}

func (n *LogNotifier) NotifyPaymentStatusChanged(user *models.User, entry *models.Entry, oldStatus, newStatus string) {
	log.Printf("[Notify] status changed: user=%s entry=%d %s -> %s", user.Name, entry.ID, oldStatus, newStatus)
}
