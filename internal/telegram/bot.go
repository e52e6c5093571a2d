// Package telegram runs the interpreter as a Telegram bot. Every text message
// is interpreted against the current week and the events are stored for the
// configured user.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"planos/internal/app"
	"planos/internal/calendar"
	"planos/internal/config"
	"planos/internal/interpreter"
	"planos/internal/llm"
	appLog "planos/internal/log"
)

// maxMessage stays under Telegram's 4096 character limit.
const maxMessage = 4000

// Planner is the part of *app.App the bot needs.
type Planner interface {
	Plan(ctx context.Context, owner, utterance string, week int, apply bool) (interpreter.Result, []calendar.Event, error)
	Week(owner string, offset int) app.WeekView
}

type Bot struct {
	bot     *tele.Bot
	planner Planner
	owner   string
	lang    string
	allowed map[int64]struct{}
}

// NewBot connects to Telegram with cfg.Telegram.Token.
func NewBot(cfg *config.Config, planner Planner) (*Bot, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram token is required (telegram.token or PLANOS_TELEGRAM_TOKEN)")
	}
	pref := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b := newBot(cfg, planner)
	b.bot = tb
	b.setupHandlers()
	return b, nil
}

func newBot(cfg *config.Config, planner Planner) *Bot {
	b := &Bot{
		planner: planner,
		owner:   cfg.Telegram.User,
		lang:    cfg.Language,
		allowed: make(map[int64]struct{}, len(cfg.Telegram.AllowedChats)),
	}
	for _, id := range cfg.Telegram.AllowedChats {
		b.allowed[id] = struct{}{}
	}
	return b
}

// Start polls until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	appLog.Info("starting telegram bot", "bot", b.bot.Me.Username, "user", b.owner)
	go func() {
		<-ctx.Done()
		appLog.Info("shutting down telegram bot")
		b.bot.Stop()
	}()
	b.bot.Start()
	return nil
}

func (b *Bot) setupHandlers() {
	b.bot.Handle("/start", func(c tele.Context) error {
		if !b.permitted(c.Chat().ID) {
			return nil
		}
		return c.Send(b.greeting(c.Sender()))
	})
	b.bot.Handle("/week", func(c tele.Context) error {
		if !b.permitted(c.Chat().ID) {
			return nil
		}
		return sendLong(c, b.week(c.Message().Payload))
	})
	b.bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleText(c tele.Context) error {
	chatID := c.Chat().ID
	if !b.permitted(chatID) {
		appLog.Warn("telegram: message from chat not in allowed_chats", "chat", chatID)
		return nil
	}
	_ = c.Notify(tele.Typing)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return sendLong(c, b.reply(ctx, c.Text()))
}

// permitted allows every chat when allowed_chats is empty.
func (b *Bot) permitted(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

func (b *Bot) greeting(u *tele.User) string {
	name := ""
	if u != nil {
		name = u.FirstName
	}
	if b.lang == "en" {
		return strings.TrimSpace(fmt.Sprintf("Hi %s! Tell me what to schedule, for example \"gym on saturday evening\". /week shows your week.", name))
	}
	return strings.TrimSpace(fmt.Sprintf("Привет, %s! Напишите, что запланировать, например «спортзал в субботу вечером». /week покажет неделю.", name))
}

// week renders the week named by payload, an optional offset like "1" or "-1".
func (b *Bot) week(payload string) string {
	offset, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		offset = 0
	}
	return app.FormatWeek(b.planner.Week(b.owner, offset), b.lang)
}

// reply interprets text for the current week and describes what was stored.
func (b *Bot) reply(ctx context.Context, text string) string {
	res, saved, err := b.planner.Plan(ctx, b.owner, text, 0, true)
	lang := interpreter.DetectLanguage(text, b.lang)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		if lang == "en" {
			return "The assistant has no API key configured."
		}
		return "Для ассистента не настроен API-ключ."
	case err != nil && res.Message != "":
		return res.Message
	case err != nil:
		appLog.Error("telegram: plan failed", err)
		return interpreter.UnavailableMessage(lang)
	}

	var sb strings.Builder
	for _, e := range saved {
		fmt.Fprintf(&sb, "%s %s  %s\n", calendar.WeekdayShort(e.Day, lang), e.Interval(), e.Title)
	}
	if res.Message != "" {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(res.Message)
	}
	if sb.Len() == 0 {
		return interpreter.AmbiguousMessage(lang)
	}
	return strings.TrimSpace(sb.String())
}

func sendLong(c tele.Context, text string) error {
	for _, chunk := range split(text, maxMessage) {
		if err := c.Send(chunk); err != nil {
			return err
		}
	}
	return nil
}

// split cuts text into chunks of at most n runes, preferring line breaks.
func split(text string, n int) []string {
	var out []string
	r := []rune(text)
	for len(r) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if r[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimRight(string(r[:cut]), "\n"))
		r = r[cut:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
