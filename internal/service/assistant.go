package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode"

	"gemini-assistant/internal/model"
)

// Fixed replies and fallback strings shown to users.
const (
	MsgSharePhone        = "Please share your phone number to proceed."
	MsgContactThanks     = "Thank you for sharing your contact!"
	MsgNumberEcho        = "Thank you! You've entered the number: %s"
	MsgFileAnalysis      = "File analysis: %s"
	MsgSearchUsage       = "Please provide a search query after /websearch."
	MsgNoHistory         = "No history yet."
	FallbackReply        = "Sorry, I couldn't generate a response at the moment."
	FallbackImage        = "Sorry, I couldn't analyze the image at the moment."
	FallbackSummary      = "Sorry, I couldn't summarize the text at the moment."
	FallbackSearch       = "Sorry, I couldn't perform the web search at the moment."
	DescPDFExtractFailed = "Failed to extract text from PDF."
	DescUnsupported      = "Unsupported file format."
)

const historyLimit = 5

type UserStore interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	Register(ctx context.Context, userID int64, firstName, username string, phone *string) error
}

type ChatStore interface {
	Append(ctx context.Context, userID int64, input, output string) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]model.Chat, error)
}

type FileStore interface {
	Append(ctx context.Context, userID int64, fileName, description string) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]model.File, error)
}

// Backend is the set of generative calls the assistant relies on.
type Backend interface {
	GenerateReply(ctx context.Context, text string) (string, error)
	DescribeImage(ctx context.Context, path string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

type Searcher interface {
	WebSearch(ctx context.Context, query string) (string, error)
}

type PDFExtractor interface {
	ExtractText(path string) (string, error)
}

// Sender identifies the Telegram user behind an event.
type Sender struct {
	ID        int64
	FirstName string
	Username  string
}

// Reply is the outbound message for one handled event.
type Reply struct {
	Text string
	// RequestContact asks the transport to show a share-contact button.
	RequestContact bool
}

type fileKind int

const (
	fileUnsupported fileKind = iota
	fileImage
	filePDF
)

// Assistant decides which backend and store calls an event needs and builds the reply.
// It holds no per-user state, so handlers may run concurrently.
type Assistant struct {
	users    UserStore
	chats    ChatStore
	files    FileStore
	backend  Backend
	searcher Searcher
	pdf      PDFExtractor
}

func NewAssistant(users UserStore, chats ChatStore, files FileStore, backend Backend, searcher Searcher, pdf PDFExtractor) *Assistant {
	return &Assistant{
		users:    users,
		chats:    chats,
		files:    files,
		backend:  backend,
		searcher: searcher,
		pdf:      pdf,
	}
}

// Start registers first-time users without a phone and asks for their contact.
func (a *Assistant) Start(ctx context.Context, from Sender) Reply {
	exists, err := a.users.Exists(ctx, from.ID)
	if err != nil {
		log.Printf("[error] %v", err)
	}
	if err == nil && !exists {
		if err := a.users.Register(ctx, from.ID, from.FirstName, from.Username, nil); err != nil {
			log.Printf("[error] %v", err)
		} else {
			log.Printf("[info] user %d registered", from.ID)
		}
	}
	return Reply{Text: MsgSharePhone, RequestContact: true}
}

func (a *Assistant) ShareContact(ctx context.Context, from Sender, phone string) Reply {
	if err := a.users.Register(ctx, from.ID, from.FirstName, from.Username, &phone); err != nil {
		log.Printf("[error] %v", err)
	} else {
		log.Printf("[info] user %d shared contact", from.ID)
	}
	return Reply{Text: MsgContactThanks}
}

// HandleText echoes digit-only input and forwards anything else to the model.
func (a *Assistant) HandleText(ctx context.Context, from Sender, text string) Reply {
	if isDigits(text) {
		return Reply{Text: fmt.Sprintf(MsgNumberEcho, text)}
	}

	reply, err := a.backend.GenerateReply(ctx, text)
	if err != nil {
		log.Printf("[error] user %d: %v", from.ID, err)
		reply = FallbackReply
	}

	if err := a.chats.Append(ctx, from.ID, text, reply); err != nil {
		log.Printf("[error] %v", err)
	}
	return Reply{Text: reply}
}

// HandleDocument analyses a downloaded upload and always records the outcome.
func (a *Assistant) HandleDocument(ctx context.Context, from Sender, fileName, localPath string) Reply {
	description := a.describeFile(ctx, from, fileName, localPath)

	if err := a.files.Append(ctx, from.ID, fileName, description); err != nil {
		log.Printf("[error] %v", err)
	}
	return Reply{Text: fmt.Sprintf(MsgFileAnalysis, description)}
}

func (a *Assistant) describeFile(ctx context.Context, from Sender, fileName, localPath string) string {
	switch classifyFile(fileName) {
	case fileImage:
		description, err := a.backend.DescribeImage(ctx, localPath)
		if err != nil {
			log.Printf("[error] user %d image %q: %v", from.ID, fileName, err)
			return FallbackImage
		}
		return description
	case filePDF:
		text, err := a.pdf.ExtractText(localPath)
		if err != nil {
			log.Printf("[error] user %d pdf %q: %v", from.ID, fileName, err)
			return DescPDFExtractFailed
		}
		summary, err := a.backend.Summarize(ctx, text)
		if err != nil {
			log.Printf("[error] user %d summarize %q: %v", from.ID, fileName, err)
			return FallbackSummary
		}
		return summary
	default:
		log.Printf("[info] user %d uploaded unsupported file %q", from.ID, fileName)
		return DescUnsupported
	}
}

// WebSearch runs a search for the /websearch command. Nothing is persisted.
func (a *Assistant) WebSearch(ctx context.Context, from Sender, query string) Reply {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{Text: MsgSearchUsage}
	}

	results, err := a.searcher.WebSearch(ctx, query)
	if err != nil {
		log.Printf("[error] user %d search %q: %v", from.ID, query, err)
		return Reply{Text: FallbackSearch}
	}
	return Reply{Text: results}
}

// History lists the caller's latest chats and analysed files.
func (a *Assistant) History(ctx context.Context, from Sender) Reply {
	chats, err := a.chats.RecentByUser(ctx, from.ID, historyLimit)
	if err != nil {
		log.Printf("[error] %v", err)
	}
	files, err := a.files.RecentByUser(ctx, from.ID, historyLimit)
	if err != nil {
		log.Printf("[error] %v", err)
	}
	if len(chats) == 0 && len(files) == 0 {
		return Reply{Text: MsgNoHistory}
	}

	var sb strings.Builder
	if len(chats) > 0 {
		sb.WriteString("Recent chats:\n")
		for _, c := range chats {
			sb.WriteString(fmt.Sprintf("%s  %s\n   → %s\n", c.Timestamp.Format("2006-01-02 15:04"), shorten(c.UserInput, 60), shorten(c.BotResponse, 80)))
		}
	}
	if len(files) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("Recent files:\n")
		for _, f := range files {
			sb.WriteString(fmt.Sprintf("%s  %s\n   → %s\n", f.Timestamp.Format("2006-01-02 15:04"), f.FileName, shorten(f.Description, 80)))
		}
	}
	return Reply{Text: strings.TrimSpace(sb.String())}
}

// digitSigns holds runes with Numeric_Type=Digit that are not decimal digits
// (superscripts, subscripts, circled and parenthesized digits, and the like).
var digitSigns = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00B2, Hi: 0x00B3, Stride: 1},
		{Lo: 0x00B9, Hi: 0x00B9, Stride: 1},
		{Lo: 0x1369, Hi: 0x1371, Stride: 1},
		{Lo: 0x2070, Hi: 0x2070, Stride: 1},
		{Lo: 0x2074, Hi: 0x2079, Stride: 1},
		{Lo: 0x2080, Hi: 0x2089, Stride: 1},
		{Lo: 0x2460, Hi: 0x2468, Stride: 1},
		{Lo: 0x2474, Hi: 0x247C, Stride: 1},
		{Lo: 0x2488, Hi: 0x2490, Stride: 1},
		{Lo: 0x24EA, Hi: 0x24EA, Stride: 1},
		{Lo: 0x24F5, Hi: 0x24FD, Stride: 1},
		{Lo: 0x24FF, Hi: 0x24FF, Stride: 1},
		{Lo: 0x2776, Hi: 0x277E, Stride: 1},
		{Lo: 0x2780, Hi: 0x2788, Stride: 1},
		{Lo: 0x278A, Hi: 0x2792, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x10A40, Hi: 0x10A43, Stride: 1},
		{Lo: 0x11052, Hi: 0x1105A, Stride: 1},
		{Lo: 0x1F100, Hi: 0x1F10A, Stride: 1},
	},
	LatinOffset: 2,
}

// isDigits reports whether text is non-empty and made only of digit runes:
// decimal digits of any script plus the digit signs above.
// The digits are echoed as typed, never parsed into a number.
func isDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsDigit(r) && !unicode.Is(digitSigns, r) {
			return false
		}
	}
	return true
}

func classifyFile(fileName string) fileKind {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png":
		return fileImage
	case ".pdf":
		return filePDF
	default:
		return fileUnsupported
	}
}

func shorten(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
