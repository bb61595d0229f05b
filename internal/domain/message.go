package domain

import "strings"

// MessageRef адресует сообщение в чате.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero сообщает, что ссылка не заполнена.
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// ContentKind: тип содержимого входящего сообщения.
type ContentKind string

const (
	ContentText      ContentKind = "text"
	ContentPhoto     ContentKind = "photo"
	ContentVoice     ContentKind = "voice"
	ContentAudio     ContentKind = "audio"
	ContentVideo     ContentKind = "video"
	ContentAnimation ContentKind = "animation"
	ContentSticker   ContentKind = "sticker"
	ContentPoll      ContentKind = "poll"
	ContentDocument  ContentKind = "document"
	ContentOther     ContentKind = "other"
)

var allowedSubmissionKinds = map[ContentKind]struct{}{
	ContentText:      {},
	ContentPhoto:     {},
	ContentVoice:     {},
	ContentAudio:     {},
	ContentVideo:     {},
	ContentAnimation: {},
	ContentSticker:   {},
	ContentPoll:      {},
}

// AllowedForSubmission сообщает, можно ли отправить такой контент на модерацию.
func (k ContentKind) AllowedForSubmission() bool {
	_, ok := allowedSubmissionKinds[k]
	return ok
}

// ChatType: тип чата на платформе.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// Entity: форматирование фрагмента текста.
type Entity struct {
	Type   string
	Offset int
	Length int
	URL    string
}

// Message: входящее сообщение в терминах домена.
type Message struct {
	ID                   int
	ChatID               int64
	ChatType             ChatType
	From                 *User
	SenderChatID         int64
	Kind                 ContentKind
	Text                 string
	Entities             []Entity
	ReplyTo              *Message
	IsAutomaticForward   bool
	ForwardFromChatID    int64
	ForwardFromMessageID int
}

// Ref возвращает ссылку на сообщение.
func (m Message) Ref() MessageRef {
	return MessageRef{ChatID: m.ChatID, MessageID: m.ID}
}

// IsPrivate сообщает, что сообщение пришло в личный чат.
func (m Message) IsPrivate() bool {
	return m.ChatType == ChatPrivate
}

// HasURL сообщает, содержит ли сообщение ссылки.
func (m Message) HasURL() bool {
	for _, e := range m.Entities {
		if e.Type == "url" || e.Type == "text_link" {
			return true
		}
	}
	return false
}

// Command возвращает команду без слеша и суффикса @bot, а также её аргументы.
func (m Message) Command() (string, string) {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	name, args, _ := strings.Cut(text, " ")
	name = strings.TrimPrefix(name, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

// Content описывает исходящее текстовое сообщение.
type Content struct {
	Text           string
	Entities       []Entity
	HTML           bool
	DisablePreview bool
}

// Text создаёт простой текстовый контент.
func Text(s string) Content {
	return Content{Text: s}
}

// HTML создаёт контент с HTML-разметкой.
func HTML(s string) Content {
	return Content{Text: s, HTML: true}
}

// Interaction: нажатие инлайн-кнопки.
type Interaction struct {
	ID      string
	From    User
	Message MessageRef
	// ChatType чата, в котором находится сообщение с кнопкой.
	ChatType ChatType
	Data     string
}

// ChatInfo: сведения о чате, возвращаемые платформой.
type ChatInfo struct {
	ID        int64
	Username  string
	FirstName string
}

// Handle возвращает ник чата с @ или пустую строку.
func (c ChatInfo) Handle() string {
	if c.Username == "" {
		return ""
	}
	return "@" + c.Username
}

// Document: файл для отправки.
type Document struct {
	Name string
	Path string
}
