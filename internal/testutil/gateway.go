package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"spot-bot/internal/domain"
)

// Sent: исходящее сообщение, записанное фейковым шлюзом.
type Sent struct {
	Ref      domain.MessageRef
	Content  domain.Content
	Opts     domain.SendOptions
	CopyOf   domain.MessageRef
	Forward  bool
	Document *domain.Document
}

// Edit: изменение сообщения.
type Edit struct {
	Ref      domain.MessageRef
	Text     *domain.Content
	Keyboard *domain.Keyboard
}

// Restriction: изменение прав участника.
type Restriction struct {
	ChatID, UserID int64
	Perms          domain.Permissions
	Until          time.Time
}

// Ack: ответ на нажатие кнопки.
type Ack struct {
	ID, Text string
}

// Gateway: фейковый domain.Gateway, записывающий все вызовы.
type Gateway struct {
	mu     sync.Mutex
	nextID map[int64]int

	Sent         []Sent
	Edits        []Edit
	Deleted      []domain.MessageRef
	Restrictions []Restriction
	Acks         []Ack

	// Forbidden: чаты, в которые бот не может писать.
	Forbidden map[int64]bool
	// Chats: ответы GetChat.
	Chats map[int64]domain.ChatInfo
	// Members хранит участников чатов для IsMember (chatID → userID).
	Members map[int64]map[int64]bool
	// FailCopy: ошибка для всех вызовов Copy.
	FailCopy error
	// Missing: сообщения, которых уже нет на платформе.
	Missing map[domain.MessageRef]bool
}

var _ domain.Gateway = (*Gateway)(nil)

// NewGateway создаёт фейковый шлюз.
func NewGateway() *Gateway {
	return &Gateway{
		nextID:    make(map[int64]int),
		Forbidden: make(map[int64]bool),
		Chats:     make(map[int64]domain.ChatInfo),
		Members:   make(map[int64]map[int64]bool),
		Missing:   make(map[domain.MessageRef]bool),
	}
}

// AddMember отмечает пользователя участником чата.
func (g *Gateway) AddMember(chatID, userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Members[chatID] == nil {
		g.Members[chatID] = make(map[int64]bool)
	}
	g.Members[chatID][userID] = true
}

func (g *Gateway) ref(chatID int64) domain.MessageRef {
	g.nextID[chatID]++
	return domain.MessageRef{ChatID: chatID, MessageID: 1000 + g.nextID[chatID]}
}

func (g *Gateway) check(op string, chatID int64) error {
	if g.Forbidden[chatID] {
		return &domain.PlatformError{Kind: domain.PlatformForbidden, Op: op, Err: fmt.Errorf("bot was blocked by the user %d", chatID)}
	}
	return nil
}

// Send реализует domain.Gateway.
func (g *Gateway) Send(_ context.Context, chatID int64, content domain.Content, opts domain.SendOptions) (domain.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("send", chatID); err != nil {
		return domain.MessageRef{}, err
	}
	ref := g.ref(chatID)
	g.Sent = append(g.Sent, Sent{Ref: ref, Content: content, Opts: opts})
	return ref, nil
}

// EditText реализует domain.Gateway.
func (g *Gateway) EditText(_ context.Context, msg domain.MessageRef, content domain.Content, keyboard *domain.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Missing[msg] {
		return &domain.PlatformError{Kind: domain.PlatformNotFound, Op: "edit_text", Err: fmt.Errorf("message to edit not found")}
	}
	c := content
	g.Edits = append(g.Edits, Edit{Ref: msg, Text: &c, Keyboard: keyboard})
	return nil
}

// EditKeyboard реализует domain.Gateway.
func (g *Gateway) EditKeyboard(_ context.Context, msg domain.MessageRef, keyboard *domain.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Missing[msg] {
		return &domain.PlatformError{Kind: domain.PlatformNotFound, Op: "edit_keyboard", Err: fmt.Errorf("message to edit not found")}
	}
	g.Edits = append(g.Edits, Edit{Ref: msg, Keyboard: keyboard})
	return nil
}

// Delete реализует domain.Gateway.
func (g *Gateway) Delete(_ context.Context, msg domain.MessageRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Missing[msg] {
		return &domain.PlatformError{Kind: domain.PlatformNotFound, Op: "delete", Err: fmt.Errorf("message to delete not found")}
	}
	g.Deleted = append(g.Deleted, msg)
	g.Missing[msg] = true
	return nil
}

// Copy реализует domain.Gateway.
func (g *Gateway) Copy(_ context.Context, src domain.MessageRef, dstChatID int64, opts domain.SendOptions) (domain.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCopy != nil {
		return domain.MessageRef{}, g.FailCopy
	}
	if err := g.check("copy", dstChatID); err != nil {
		return domain.MessageRef{}, err
	}
	ref := g.ref(dstChatID)
	g.Sent = append(g.Sent, Sent{Ref: ref, Opts: opts, CopyOf: src})
	return ref, nil
}

// Forward реализует domain.Gateway.
func (g *Gateway) Forward(_ context.Context, src domain.MessageRef, dstChatID int64) (domain.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("forward", dstChatID); err != nil {
		return domain.MessageRef{}, err
	}
	ref := g.ref(dstChatID)
	g.Sent = append(g.Sent, Sent{Ref: ref, CopyOf: src, Forward: true})
	return ref, nil
}

// RestrictMember реализует domain.Gateway.
func (g *Gateway) RestrictMember(_ context.Context, chatID, userID int64, perms domain.Permissions, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Restrictions = append(g.Restrictions, Restriction{ChatID: chatID, UserID: userID, Perms: perms, Until: until})
	return nil
}

// AckButton реализует domain.Gateway.
func (g *Gateway) AckButton(_ context.Context, id, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Acks = append(g.Acks, Ack{ID: id, Text: text})
	return nil
}

// GetChat реализует domain.Gateway.
func (g *Gateway) GetChat(_ context.Context, chatID int64) (domain.ChatInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if info, ok := g.Chats[chatID]; ok {
		return info, nil
	}
	return domain.ChatInfo{ID: chatID}, nil
}

// SendDocument реализует domain.Gateway.
func (g *Gateway) SendDocument(_ context.Context, chatID int64, doc domain.Document, caption string) (domain.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("send_document", chatID); err != nil {
		return domain.MessageRef{}, err
	}
	ref := g.ref(chatID)
	d := doc
	g.Sent = append(g.Sent, Sent{Ref: ref, Content: domain.Text(caption), Document: &d})
	return ref, nil
}

// IsMember реализует domain.Gateway.
func (g *Gateway) IsMember(_ context.Context, chatID, userID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Members[chatID][userID], nil
}

// SentTo возвращает сообщения, отправленные в чат.
func (g *Gateway) SentTo(chatID int64) []Sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Sent
	for _, s := range g.Sent {
		if s.Ref.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// TextsTo возвращает тексты сообщений, отправленных в чат.
func (g *Gateway) TextsTo(chatID int64) []string {
	var out []string
	for _, s := range g.SentTo(chatID) {
		if s.Content.Text != "" {
			out = append(out, s.Content.Text)
		}
	}
	return out
}

// HasTextTo сообщает, было ли в чат отправлено сообщение, содержащее substr.
func (g *Gateway) HasTextTo(chatID int64, substr string) bool {
	for _, text := range g.TextsTo(chatID) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// LastEdit возвращает последнее изменение сообщения.
func (g *Gateway) LastEdit(ref domain.MessageRef) (Edit, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.Edits) - 1; i >= 0; i-- {
		if g.Edits[i].Ref == ref {
			return g.Edits[i], true
		}
	}
	return Edit{}, false
}

// LastAck возвращает последний ответ на кнопку.
func (g *Gateway) LastAck() (Ack, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Acks) == 0 {
		return Ack{}, false
	}
	return g.Acks[len(g.Acks)-1], true
}
