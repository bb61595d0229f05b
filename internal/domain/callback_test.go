package domain

import (
	"errors"
	"testing"
)

func TestParseCallbackRoundTrip(t *testing.T) {
	cases := []Callback{
		PostConfirmCallback{Submit: true},
		PostConfirmCallback{Submit: false},
		PostPreviewCallback{Accept: true},
		PostPreviewCallback{Accept: false},
		SettingsCallback{Credited: true},
		SettingsCallback{Credited: false},
		VoteCallback{Approve: true},
		VoteCallback{Approve: false},
		StatusCallback{Pause: true, Page: 3},
		StatusCallback{Pause: false},
		AutoReplyCallback{Key: "repost"},
		FollowCallback{},
		ReportSpotCallback{},
		NoopCallback{},
	}
	for _, want := range cases {
		got, err := ParseCallback(want.Encode())
		if err != nil {
			t.Fatalf("%s: не ожидали ошибку: %v", want.Encode(), err)
		}
		if got != want {
			t.Fatalf("%s: ожидали %#v, получили %#v", want.Encode(), want, got)
		}
	}
}

func TestParseCallbackWireFormat(t *testing.T) {
	cases := map[string]Callback{
		"approve_yes,":         VoteCallback{Approve: true},
		"approve_no,":          VoteCallback{Approve: false},
		"approve_status,pause": StatusCallback{Pause: true},
		"approve_status,play":  StatusCallback{},
		"autoreply,a,b":        AutoReplyCallback{Key: "a,b"},
		"post_confirm,submit":  PostConfirmCallback{Submit: true},
		"settings,anonimo":     SettingsCallback{},
		"follow_,":             FollowCallback{},
		"report_spot,":         ReportSpotCallback{},
	}
	for data, want := range cases {
		got, err := ParseCallback(data)
		if err != nil {
			t.Fatalf("%s: %v", data, err)
		}
		if got != want {
			t.Fatalf("%s: ожидали %#v, получили %#v", data, want, got)
		}
	}
}

func TestParseCallbackUnknown(t *testing.T) {
	for _, data := range []string{"", "digest_now", "post_confirm,maybe", "approve_status,pause,-1", "autoreply,"} {
		if _, err := ParseCallback(data); !errors.Is(err, ErrUnknownCallback) {
			t.Fatalf("%q: ожидали ErrUnknownCallback, получили %v", data, err)
		}
	}
}

func TestMessageCommand(t *testing.T) {
	cases := []struct {
		text, name, args string
	}{
		{"/spot", "spot", ""},
		{"/Warn@spotbot  spam ripetuto ", "warn", "spam ripetuto"},
		{"/sban #1 42", "sban", "#1 42"},
		{"ciao", "", ""},
	}
	for _, tc := range cases {
		name, args := Message{Text: tc.text}.Command()
		if name != tc.name || args != tc.args {
			t.Fatalf("%q: ожидали (%q, %q), получили (%q, %q)", tc.text, tc.name, tc.args, name, args)
		}
	}
}

func TestMessageHasURL(t *testing.T) {
	if (Message{Entities: []Entity{{Type: "bold"}}}).HasURL() {
		t.Fatal("bold не является ссылкой")
	}
	if !(Message{Entities: []Entity{{Type: "text_link", URL: "https://example.org"}}}).HasURL() {
		t.Fatal("text_link должен считаться ссылкой")
	}
}

func TestPlatformErrorHelpers(t *testing.T) {
	forbidden := &PlatformError{Kind: PlatformForbidden, Op: "send", Err: errors.New("blocked")}
	if !IsForbidden(forbidden) || IsNotFound(forbidden) {
		t.Fatal("неверная классификация Forbidden")
	}
	notFound := &PlatformError{Kind: PlatformNotFound, Op: "delete", Err: errors.New("gone")}
	if IgnoreNotFound(notFound) != nil {
		t.Fatal("NotFound должен игнорироваться")
	}
	if IgnoreNotFound(ErrNotFound) != nil {
		t.Fatal("ErrNotFound должен игнорироваться")
	}
	if IgnoreNotFound(forbidden) == nil {
		t.Fatal("Forbidden не должен игнорироваться")
	}
}
