package notifier

import (
	"context"
	"fmt"
	"ogio/internal/core/domain"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

const (
	TelegramMessageLimit = 4096
	DefaultSendTimeout   = 10 * time.Second
	DefaultQueueSize     = 32
)

//go:generate mockery --name TelegramBot

type TelegramBot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier forwards error entries to an operator chat. Delivery is best
// effort: a single worker drains a bounded queue and entries are dropped while
// it is full.
type TelegramNotifier struct {
	bot     TelegramBot
	chatID  int64
	timeout time.Duration
	queue   chan domain.ErrorEntry
	dropped atomic.Int64
}

// NewTelegramNotifier starts the delivery worker, which stops with ctx.
func NewTelegramNotifier(ctx context.Context, bot TelegramBot, chatID int64, timeout time.Duration) *TelegramNotifier {
	n := newTelegramNotifier(bot, chatID, timeout, DefaultQueueSize)
	go n.run(ctx)
	return n
}

func newTelegramNotifier(bot TelegramBot, chatID int64, timeout time.Duration, queueSize int) *TelegramNotifier {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		timeout: timeout,
		queue:   make(chan domain.ErrorEntry, queueSize),
	}
}

// Record queues the entry without blocking the request.
func (n *TelegramNotifier) Record(_ context.Context, entry domain.ErrorEntry) {
	select {
	case n.queue <- entry:
	default:
		dropped := n.dropped.Add(1)
		log.Warn().Str("requestID", entry.RequestID).Int64("dropped", dropped).Msg("alert queue full, dropping alert")
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (n *TelegramNotifier) Dropped() int64 {
	return n.dropped.Load()
}

func (n *TelegramNotifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-n.queue:
			n.deliver(ctx, entry)
		}
	}
}

func (n *TelegramNotifier) deliver(ctx context.Context, entry domain.ErrorEntry) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.Notify(ctx, entry); err != nil {
		log.Warn().Err(err).Str("requestID", entry.RequestID).Msg("failed to deliver error alert")
	}
}

// Notify sends the entry synchronously, splitting it if it exceeds the message limit.
func (n *TelegramNotifier) Notify(ctx context.Context, entry domain.ErrorEntry) error {
	for _, chunk := range chunks(Format(entry), TelegramMessageLimit) {
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: n.chatID,
			Text:   chunk,
		})
		if err != nil {
			return fmt.Errorf("error sending alert %w", err)
		}
	}

	return nil
}

// Format renders an entry as plain text.
func Format(entry domain.ErrorEntry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "og image failure: %s\n", entry.Kind)
	if entry.Category != "" {
		fmt.Fprintf(&sb, "category: %s\n", entry.Category)
	}
	fmt.Fprintf(&sb, "time: %s\n", entry.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "request: %s\n", entry.RequestID)
	fmt.Fprintf(&sb, "content: %s\n", entry.ContentID)
	if entry.Stage != "" {
		fmt.Fprintf(&sb, "stage: %s\n", entry.Stage)
	}
	if entry.Role != "" {
		fmt.Fprintf(&sb, "role: %s\n", entry.Role)
	}
	if entry.RecoveryAttempted {
		sb.WriteString("recovery attempted: true\n")
	}
	sb.WriteString(entry.Message)

	return sb.String()
}

// chunks splits text into pieces of at most limit bytes, never inside a rune.
func chunks(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var out []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}

	return out
}
