package presenter

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"spot-bot/internal/domain"
)

// Presenter формирует тексты и клавиатуры бота.
type Presenter struct {
	channelTag string
	botTag     string
	intn       func(n int) int
}

// New создаёт Presenter.
func New(channelTag, botTag string) *Presenter {
	return &Presenter{channelTag: channelTag, botTag: botTag, intn: rand.IntN}
}

// WithRand подменяет источник случайности.
func (p *Presenter) WithRand(intn func(n int) int) *Presenter {
	cp := *p
	cp.intn = intn
	return &cp
}

// ChannelTag возвращает метку канала.
func (p *Presenter) ChannelTag() string { return p.channelTag }

var signs = []string{
	"by: 🦊 una volpe anonima",
	"by: 🐙 un polpo curioso",
	"by: 🦉 un gufo notturno",
	"by: 🐢 una tartaruga saggia",
	"by: 🐝 un'ape operosa",
	"by: 🦔 un riccio timido",
	"by: 🐧 un pinguino elegante",
	"by: 🦄 un unicorno misterioso",
}

var farewells = []string{
	"Va bene, alla prossima 🙃",
	"Post annullato, ci vediamo presto 👋",
	"Nessun problema, sarà per un'altra volta 🌙",
	"Ok, il post non verrà inviato 🤐",
}

// Sign возвращает подпись поста: ник автора или случайную анонимную подпись.
func (p *Presenter) Sign(credited bool, handle string) string {
	if credited && handle != "" {
		return "by: " + handle
	}
	return signs[p.intn(len(signs))]
}

// IsAnonymousSign сообщает, что подпись не раскрывает автора.
func IsAnonymousSign(sign string) bool {
	for _, s := range signs {
		if s == sign {
			return true
		}
	}
	return false
}

// Farewell возвращает случайную прощальную фразу.
func (p *Presenter) Farewell() string {
	return farewells[p.intn(len(farewells))]
}

// Start: приветствие.
func (p *Presenter) Start() string {
	return fmt.Sprintf("Ciao! Sono %s, il bot di %s.\nUsa /spot per inviare un post anonimo, /help per l'elenco dei comandi.", p.botTag, p.channelTag)
}

// Help: справка по командам.
func (p *Presenter) Help() string {
	return strings.Join([]string{
		"Comandi disponibili:",
		"/spot - invia un post anonimo",
		"/cancel - annulla l'operazione in corso o il post in approvazione",
		"/report - segnala un utente",
		"/settings - scegli se firmare i tuoi post",
		"/rules - regole del canale",
	}, "\n")
}

// Rules: правила канала.
func (p *Presenter) Rules() string {
	return strings.Join([]string{
		"Regole di " + p.channelTag + ":",
		"1. Niente contenuti offensivi, discriminatori o illegali.",
		"2. Niente dati personali di altre persone.",
		"3. Niente spam o pubblicità.",
		"4. Gli admin possono rifiutare qualsiasi post senza doverlo motivare.",
	}, "\n")
}

const (
	TextNotPrivate       = "Questo comando è disponibile solo in chat privata con il bot"
	TextBanned           = "Sei stato bannato 🌚"
	TextAlreadyPending   = "Hai già un post in approvazione 🧐"
	TextSpotPrompt       = "Invia il post che vuoi pubblicare.\nPuoi annullare in qualsiasi momento con /cancel"
	TextInvalidFormat    = "Questo tipo di messaggio non è supportato.\nSono ammessi testo, foto, vocali, audio, video, gif, sticker e sondaggi"
	TextPreviewQuestion  = "Il post contiene un link. Vuoi mostrare l'anteprima?"
	TextConfirmQuestion  = "Sei sicuro di voler pubblicare questo post?"
	TextSubmitted        = "Il tuo post è in fase di valutazione.\nRiceverai un messaggio quando verrà approvato o rifiutato"
	TextCancelled        = "Operazione annullata"
	TextPendingDeleted   = "Il tuo post in approvazione è stato eliminato"
	TextNothingToCancel  = "Non c'è nulla da annullare"
	TextGenericError     = "Si è verificato un errore, riprova più tardi"
	TextRejected         = "Il tuo ultimo post è stato rifiutato.\nPuoi controllare le regole con /rules"
	TextExpired          = "Gli admin erano troppo impegnati e non sono riusciti a valutare il tuo post in tempo 😴\nPuoi riprovare con /spot"
	TextAlreadyVoted     = "Hai già votato"
	TextVoted            = "Voto registrato"
	TextStale            = "Questo post non è più in approvazione"
	TextPostGone         = "Questo post non è più disponibile"
	TextAutoReplySent    = "Autoreply inviata"
	TextUnknownAutoReply = "Autoreply non trovata"
	TextReportPrompt     = "Scrivi il motivo della segnalazione.\nPuoi annullare con /cancel"
	TextReportAck        = "Scrivi il motivo della segnalazione in privato"
	TextReportDuplicate  = "Hai già segnalato questo post"
	TextReportSent       = "Segnalazione inviata, grazie!"
	TextReportEmpty      = "Il motivo non può essere vuoto, riprova"
	TextHandlePrompt     = "Invia il nickname dell'utente da segnalare (es. @utente)"
	TextHandleInvalid    = "Il nickname deve iniziare con @ e non contenere spazi, riprova"
	TextUserReasonPrompt = "Ora scrivi il motivo della segnalazione"
	TextFollowing        = "Stai seguendo questo post. Riceverai qui i nuovi commenti"
	TextUnfollowed       = "Non stai più seguendo questo post"
	TextFollowAck        = "👁"
	TextNoComments       = "I commenti non sono disponibili per questo post"
	TextNotAdmin         = "Solo gli admin possono usare questo comando"
	TextReplyNeeded      = "Rispondi al messaggio a cui si riferisce il comando"
	TextSettingsPrompt   = "Vuoi che i tuoi post siano firmati con il tuo nickname o anonimi?"
	TextCredited         = "I tuoi prossimi post saranno firmati con il tuo nickname"
	TextAnonymous        = "I tuoi prossimi post saranno anonimi"
	TextSettingsSame     = "L'impostazione era già attiva"
	TextSbanned          = "Sei stato sbannato, puoi tornare a inviare post"
	TextNoBanned         = "Non ci sono utenti bannati"
	TextNoMuted          = "Non ci sono utenti mutati"
	TextAdminReplyHeader = "COMUNICAZIONE DEGLI ADMIN"
	TextBackupOK         = "Backup del database completato ✅"
	TextReplySent        = "Messaggio inviato"
	TextUserUnavailable  = "L'utente ha bloccato il bot o non lo ha mai avviato"
)

// StartBotFirst: ответ на кнопку, когда бот не может написать пользователю.
func (p *Presenter) StartBotFirst() string {
	return fmt.Sprintf("Prima devi avviare il bot: %s", p.botTag)
}

// Published: уведомление автору об одобрении.
func (p *Presenter) Published() string {
	return fmt.Sprintf("Il tuo post è stato pubblicato su %s 🎉", p.channelTag)
}

// ExpiredReport: отчёт админам о снятых с модерации постах.
func ExpiredReport(n int) string {
	return fmt.Sprintf("Sono stati eliminati %d messaggi rimasti in sospeso", n)
}

// PostReportCard: карточка жалобы на пост.
func PostReportCard(reason string) string {
	return "🚨🚨 SEGNALAZIONE 🚨🚨\n\n" + reason
}

// UserReportCard: карточка жалобы на пользователя.
func UserReportCard(target, reason string) string {
	return fmt.Sprintf("🚨🚨 SEGNALAZIONE UTENTE 🚨🚨\n\nUtente: %s\n\n%s", target, reason)
}

// ReportTooSoon: отказ при слишком частых жалобах.
func ReportTooSoon(wait time.Duration) string {
	mins := int(wait.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("Hai già inviato una segnalazione di recente, riprova tra %d minuti", mins)
}

// AdminReply: сообщение админов автору.
func AdminReply(text string) string {
	return TextAdminReplyHeader + ":\n" + text
}

// BanNotice: уведомление в группу админов о бане.
func BanNotice(user string) string {
	return fmt.Sprintf("L'utente %s è stato bannato", user)
}

// AlreadyBanned: пользователь уже забанен.
func AlreadyBanned(user string) string {
	return fmt.Sprintf("L'utente %s era già bannato", user)
}

// SbanResult: результат снятия бана.
func SbanResult(userID int64, ok bool) string {
	if ok {
		return fmt.Sprintf("Sban effettuato per %d", userID)
	}
	return fmt.Sprintf("L'utente %d non era bannato", userID)
}

// MuteNotice: уведомление о мьюте.
func MuteNotice(user string, days int) string {
	return fmt.Sprintf("L'utente %s è stato mutato per %d giorni", user, days)
}

// MutedUser: уведомление пользователю о мьюте.
func MutedUser(days int) string {
	return fmt.Sprintf("Sei stato mutato nel gruppo dei commenti per %d giorni", days)
}

// UnmuteResult: результат снятия мьюта.
func UnmuteResult(userID int64, ok bool) string {
	if ok {
		return fmt.Sprintf("Unmute effettuato per %d", userID)
	}
	return fmt.Sprintf("L'utente %d non era mutato", userID)
}

// WarnNotice: уведомление админам о предупреждении.
func WarnNotice(user string, count, max int, reason string) string {
	s := fmt.Sprintf("L'utente %s ha ricevuto un warn (%d/%d)", user, count, max)
	if reason != "" {
		s += "\nMotivo: " + reason
	}
	return s
}

// WarnedUser: уведомление пользователю о предупреждении.
func WarnedUser(count, max int, reason string) string {
	s := fmt.Sprintf("Hai ricevuto un warn (%d/%d)", count, max)
	if reason != "" {
		s += "\nMotivo: " + reason
	}
	return s + "\nAl raggiungimento del limite verrai bannato"
}

// WarnBanNotice: бан за превышение предупреждений.
func WarnBanNotice(user string) string {
	return fmt.Sprintf("L'utente %s è stato bannato per aver raggiunto il numero massimo di warn", user)
}

// BackupFailed: ошибка резервного копирования.
func BackupFailed(err error) string {
	return fmt.Sprintf("Backup del database non riuscito: %v", err)
}

// BannedList: пронумерованный список забаненных.
func BannedList(bans []domain.Ban) string {
	if len(bans) == 0 {
		return TextNoBanned
	}
	lines := []string{"Utenti bannati:"}
	for i, b := range bans {
		lines = append(lines, fmt.Sprintf("#%d %d (%s)", i+1, b.UserID, b.BannedAt.Format("2006-01-02 15:04")))
	}
	return strings.Join(lines, "\n")
}

// MutedList: пронумерованный список замьюченных.
func MutedList(mutes []domain.Mute) string {
	if len(mutes) == 0 {
		return TextNoMuted
	}
	lines := []string{"Utenti mutati:"}
	for i, m := range mutes {
		lines = append(lines, fmt.Sprintf("#%d %d (fino al %s)", i+1, m.UserID, m.ExpiresAt.Format("2006-01-02 15:04")))
	}
	return strings.Join(lines, "\n")
}

// SortedKeys возвращает ключи автоответов в стабильном порядке.
func SortedKeys(autoreplies map[string]string) []string {
	keys := make([]string, 0, len(autoreplies))
	for k := range autoreplies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InvalidTarget: аргумент команды, который не удалось разобрать.
func InvalidTarget(arg string) string {
	return fmt.Sprintf("Argomento non valido: %s", arg)
}
