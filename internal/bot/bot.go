package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gemini-assistant/internal/service"
)

const (
	btnShareContact   = "Share Contact"
	maxMessageRunes   = 4096
	msgDownloadFailed = "Sorry, I couldn't download the file."
	msgUnknownCommand = "Unknown command. Send /help for the list of commands."
	msgHelp           = "Commands:\n" +
		"/start - register and share your contact\n" +
		"/websearch <query> - search the web\n" +
		"/history - your latest chats and files\n" +
		"/help - this message\n\n" +
		"Send any text to chat, or upload a JPG, PNG or PDF document for analysis."
)

type eventKind int

const (
	eventIgnored eventKind = iota
	eventStart
	eventWebSearch
	eventHistory
	eventHelp
	eventUnknownCommand
	eventContact
	eventDocument
	eventText
)

// Bot polls Telegram and hands every message to the assistant on its own goroutine.
type Bot struct {
	api         *tgbotapi.BotAPI
	assistant   *service.Assistant
	downloadDir string
	httpClient  *http.Client
	handle      func(ctx context.Context, msg *tgbotapi.Message) error
	wg          sync.WaitGroup
}

func New(token string, assistant *service.Assistant, downloadDir string, httpTimeout time.Duration) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := &Bot{
		api:         api,
		assistant:   assistant,
		downloadDir: downloadDir,
		httpClient:  &http.Client{Timeout: httpTimeout},
	}
	b.handle = b.handleMessage
	return b, nil
}

// Start begins polling updates until ctx is cancelled, then waits for in-flight handlers.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		b.dispatch(ctx, update.Message)
	}

	b.wg.Wait()
	return ctx.Err()
}

// dispatch runs the handler on its own goroutine. Cancelling ctx stops polling
// only: handlers already running keep their backend and store calls alive.
func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	handlerCtx := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[error] handle message: panic: %v", r)
			}
		}()
		if err := b.handle(handlerCtx, msg); err != nil {
			log.Printf("[error] handle message: %v", err)
		}
	}()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	kind := classify(msg)
	if kind == eventIgnored {
		return nil
	}

	from := service.Sender{
		ID:        msg.From.ID,
		FirstName: msg.From.FirstName,
		Username:  msg.From.UserName,
	}
	chatID := msg.Chat.ID

	switch kind {
	case eventStart:
		log.Printf("[info] command from %d: /start", from.ID)
		return b.send(chatID, b.assistant.Start(ctx, from), nil)
	case eventWebSearch:
		log.Printf("[info] command from %d: /websearch %s", from.ID, msg.CommandArguments())
		return b.send(chatID, b.assistant.WebSearch(ctx, from, msg.CommandArguments()), nil)
	case eventHistory:
		return b.send(chatID, b.assistant.History(ctx, from), nil)
	case eventHelp:
		return b.send(chatID, service.Reply{Text: msgHelp}, nil)
	case eventUnknownCommand:
		return b.send(chatID, service.Reply{Text: msgUnknownCommand}, nil)
	case eventContact:
		reply := b.assistant.ShareContact(ctx, from, msg.Contact.PhoneNumber)
		return b.send(chatID, reply, tgbotapi.NewRemoveKeyboard(true))
	case eventDocument:
		return b.handleDocument(ctx, chatID, from, msg.Document)
	case eventText:
		return b.send(chatID, b.assistant.HandleText(ctx, from, msg.Text), nil)
	}
	return nil
}

func (b *Bot) handleDocument(ctx context.Context, chatID int64, from service.Sender, doc *tgbotapi.Document) error {
	log.Printf("[info] document from %d: %q (%d bytes)", from.ID, doc.FileName, doc.FileSize)

	path, err := b.download(ctx, doc)
	if err != nil {
		log.Printf("[error] download %q for user %d: %v", doc.FileName, from.ID, err)
		return b.send(chatID, service.Reply{Text: msgDownloadFailed}, nil)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[warn] remove download %s: %v", path, err)
		}
	}()

	return b.send(chatID, b.assistant.HandleDocument(ctx, from, doc.FileName, path), nil)
}

// download stores the document in the download dir and returns its local path.
// The stored name keeps the original extension.
func (b *Bot) download(ctx context.Context, doc *tgbotapi.Document) (string, error) {
	fileURL, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return "", fmt.Errorf("resolve telegram file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("download file status: %d", resp.StatusCode)
	}

	return saveDownload(b.downloadDir, doc.FileName, resp.Body)
}

func saveDownload(dir, fileName string, body io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "*-"+safeFileName(fileName))
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write download file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close download file: %w", err)
	}
	return f.Name(), nil
}

func safeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "*", "_")
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// classify maps a message to the handler that should process it.
// Commands win over payloads, then contact, document and plain text.
func classify(msg *tgbotapi.Message) eventKind {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return eventIgnored
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return eventStart
		case "websearch":
			return eventWebSearch
		case "history":
			return eventHistory
		case "help":
			return eventHelp
		default:
			return eventUnknownCommand
		}
	}
	switch {
	case msg.Contact != nil:
		return eventContact
	case msg.Document != nil:
		return eventDocument
	case msg.Text != "":
		return eventText
	default:
		return eventIgnored
	}
}

// send delivers a reply as plain text, split to fit the Telegram message limit.
// The markup, or the share-contact keyboard, is attached to the first chunk.
func (b *Bot) send(chatID int64, reply service.Reply, markup interface{}) error {
	if reply.RequestContact {
		markup = contactKeyboard()
	}
	for i, chunk := range splitMessage(reply.Text, maxMessageRunes) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 && markup != nil {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact(btnShareContact),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
