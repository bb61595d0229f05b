package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCallback возвращается для нераспознанных данных кнопки.
var ErrUnknownCallback = errors.New("unknown callback")

// Семейства callback-данных.
const (
	FamilyPostConfirm   = "post_confirm"
	FamilyPostPreview   = "post_preview"
	FamilySettings      = "settings"
	FamilyApproveYes    = "approve_yes"
	FamilyApproveNo     = "approve_no"
	FamilyApproveStatus = "approve_status"
	FamilyAutoReply     = "autoreply"
	FamilyFollow        = "follow_"
	FamilyReportSpot    = "report_spot"
	FamilyNone          = "none"
)

// Callback: данные нажатой кнопки, разобранные в типизированный вариант.
type Callback interface {
	Family() string
	Encode() string
}

// PostConfirmCallback: подтверждение или отмена отправки поста.
type PostConfirmCallback struct{ Submit bool }

// PostPreviewCallback: выбор показа превью ссылок.
type PostPreviewCallback struct{ Accept bool }

// SettingsCallback: выбор режима подписи.
type SettingsCallback struct{ Credited bool }

// VoteCallback: голос админа.
type VoteCallback struct{ Approve bool }

// StatusCallback: пауза или возобновление голосования. Page задаёт страницу автоответов.
type StatusCallback struct {
	Pause bool
	Page  int
}

// AutoReplyCallback: выбор автоответа.
type AutoReplyCallback struct{ Key string }

// FollowCallback: переключение подписки на обсуждение.
type FollowCallback struct{}

// ReportSpotCallback: жалоба на опубликованный пост.
type ReportSpotCallback struct{}

// NoopCallback: информационная кнопка без действия.
type NoopCallback struct{}

func (PostConfirmCallback) Family() string { return FamilyPostConfirm }
func (PostPreviewCallback) Family() string { return FamilyPostPreview }
func (SettingsCallback) Family() string    { return FamilySettings }
func (StatusCallback) Family() string      { return FamilyApproveStatus }
func (AutoReplyCallback) Family() string   { return FamilyAutoReply }
func (FollowCallback) Family() string      { return FamilyFollow }
func (ReportSpotCallback) Family() string  { return FamilyReportSpot }
func (NoopCallback) Family() string        { return FamilyNone }

func (c VoteCallback) Family() string {
	if c.Approve {
		return FamilyApproveYes
	}
	return FamilyApproveNo
}

func (c PostConfirmCallback) Encode() string {
	return encode(c.Family(), choose(c.Submit, "submit", "cancel"))
}

func (c PostPreviewCallback) Encode() string {
	return encode(c.Family(), choose(c.Accept, "accept", "reject"))
}

func (c SettingsCallback) Encode() string {
	return encode(c.Family(), choose(c.Credited, "credited", "anonimo"))
}

func (c VoteCallback) Encode() string { return encode(c.Family(), "") }

func (c StatusCallback) Encode() string {
	if c.Pause {
		return encode(c.Family(), "pause", strconv.Itoa(c.Page))
	}
	return encode(c.Family(), "play")
}

func (c AutoReplyCallback) Encode() string  { return encode(c.Family(), c.Key) }
func (c FollowCallback) Encode() string     { return encode(c.Family(), "") }
func (c ReportSpotCallback) Encode() string { return encode(c.Family(), "") }
func (c NoopCallback) Encode() string       { return encode(c.Family(), "") }

// ParseCallback разбирает строку вида <family>,<arg>[,<arg>…].
func ParseCallback(data string) (Callback, error) {
	parts := strings.Split(data, ",")
	family := parts[0]
	args := parts[1:]
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	switch family {
	case FamilyPostConfirm:
		switch arg(0) {
		case "submit":
			return PostConfirmCallback{Submit: true}, nil
		case "cancel":
			return PostConfirmCallback{Submit: false}, nil
		}
	case FamilyPostPreview:
		switch arg(0) {
		case "accept":
			return PostPreviewCallback{Accept: true}, nil
		case "reject":
			return PostPreviewCallback{Accept: false}, nil
		}
	case FamilySettings:
		switch arg(0) {
		case "credited":
			return SettingsCallback{Credited: true}, nil
		case "anonimo":
			return SettingsCallback{Credited: false}, nil
		}
	case FamilyApproveYes:
		return VoteCallback{Approve: true}, nil
	case FamilyApproveNo:
		return VoteCallback{Approve: false}, nil
	case FamilyApproveStatus:
		switch arg(0) {
		case "pause":
			page := 0
			if raw := arg(1); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%w: bad page %q", ErrUnknownCallback, raw)
				}
				page = n
			}
			return StatusCallback{Pause: true, Page: page}, nil
		case "play":
			return StatusCallback{Pause: false}, nil
		}
	case FamilyAutoReply:
		if key := strings.Join(args, ","); key != "" {
			return AutoReplyCallback{Key: key}, nil
		}
	case FamilyFollow:
		return FollowCallback{}, nil
	case FamilyReportSpot:
		return ReportSpotCallback{}, nil
	case FamilyNone:
		return NoopCallback{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
}

func encode(family string, args ...string) string {
	return family + "," + strings.Join(args, ",")
}

func choose(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
