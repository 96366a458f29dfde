package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pettai/petbot/core/logger"
	"github.com/pettai/petbot/core/telegram/keyboard"
	"github.com/pettai/petbot/internal/flow"
	"github.com/pettai/petbot/internal/pets"
	"log/slog"

	tghelpers "github.com/pettai/petbot/core/telegram/helpers"
	tele "gopkg.in/telebot.v4"
)

const (
	cbPetRefresh = "pet_refresh"

	msgWelcome = "Welcome to Session Creator Bot\n\nI can help you create Telegram sessions\n\nClick below to begin:"
	msgNoPet   = "You Need a pet boss? I made you one — here it is:"
)

func messageRefOf(c tele.Context) flow.MessageRef {
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return flow.MessageRef{}
	}
	return flow.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}

func sessionKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Get Session 🧩", Unique: flow.CallbackGetSession},
	})
}

func petKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🔄 Refresh", Unique: cbPetRefresh},
	})
}

// handleStart tears down any active flow and presents the welcome message.
// The original command message and the welcome itself are short-lived.
func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	a.coordinator.OnCommandStart(ctx, userID)
	_ = c.Delete()

	msg, err := c.Bot().Send(c.Recipient(), msgWelcome, sessionKeyboard())
	if err != nil {
		return fmt.Errorf("app: send welcome: %w", err)
	}
	a.coordinator.ScheduleDeletion(
		flow.MessageRef{ChatID: c.Chat().ID, MessageID: msg.ID},
		a.coordinator.NoticeTTL(),
	)
	return nil
}

// handleGetSession starts the phone→code→session flow. The message carrying
// the button becomes ephemeral once the flow begins.
func (a *App) handleGetSession(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.coordinator.OnCallback(ctx, c.Sender().ID, flow.CallbackGetSession, messageRefOf(c))
}

// handleFlowText forwards text to the active flow. Provider failures are also
// appended to the user's error log so /errors can surface them.
func (a *App) handleFlowText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	err := a.coordinator.OnText(ctx, userID, c.Text(), messageRefOf(c))

	var perr *flow.ProviderError
	if errors.As(err, &perr) {
		if logErr := a.profiles.LogError(ctx, userID, perr.Err.Error()); logErr != nil {
			logger.Warn(ctx, "service.profile", "error_log.fail",
				slog.Int64("user_id", userID),
				slog.String("err", logErr.Error()),
			)
		}
	}
	return err
}

func (a *App) renderPet(c tele.Context) (string, error) {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	stats, err := a.petStats.Get(ctx, userID)
	if errors.Is(err, pets.ErrNoStats) {
		stats = pets.Stats{
			UserID:    userID,
			Clean:     100,
			Energy:    100,
			Happiness: 100,
			Health:    100,
			Hunger:    0,
		}
		if err := a.petStats.Save(ctx, stats); err != nil {
			return "", err
		}
		return msgNoPet + "\n\n" + stats.Render(), nil
	}
	if err != nil {
		return "", err
	}
	return "Bot: Pet_Ai\nStats:\n" + stats.Render(), nil
}

// handlePet shows the pet dashboard, adopting a fresh pet on first use.
func (a *App) handlePet(c tele.Context) error {
	text, err := a.renderPet(c)
	if err != nil {
		return tghelpers.SendText(c, "⚠️ Failed to load user stats")
	}
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: petKeyboard()})
}

// handlePetRefresh re-renders the dashboard in place.
func (a *App) handlePetRefresh(c tele.Context) error {
	text, err := a.renderPet(c)
	if err != nil {
		return tghelpers.SendText(c, "⚠️ Failed to load user stats")
	}
	return c.EditOrSend(text, petKeyboard())
}

// handleWordle saves today's wordle (`/wordle crane`) or reports it.
func (a *App) handleWordle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	now := nowUTC()

	word := strings.TrimSpace(strings.Join(c.Args(), " "))
	if word != "" {
		if err := a.wordles.Save(ctx, c.Sender().ID, word, now); err != nil {
			return err
		}
		return tghelpers.SendText(c, "📝 Wordle of the day saved: "+word)
	}

	w, ok, err := a.wordles.Today(ctx, now)
	if err != nil {
		return err
	}
	if !ok {
		return tghelpers.SendText(c, "No wordle submitted today. Send /wordle <word> to set one.")
	}
	return tghelpers.SendText(c, fmt.Sprintf("📅 Today's wordle: %s (%s)", w.Word, w.Status))
}

// handleErrors shows the caller's most recent flow errors. Admin-only.
func (a *App) handleErrors(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	userID := c.Sender().ID
	if len(c.Args()) == 1 {
		if id, err := parseUserID(c.Args()[0]); err == nil {
			userID = id
		}
	}

	entries, err := a.profiles.RecentErrors(ctx, userID, 5)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return tghelpers.SendText(c, "No errors recorded.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d errors for %d:\n", len(entries), userID)
	for _, e := range entries {
		fmt.Fprintf(&b, "• %s — %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Message)
	}
	return tghelpers.SendText(c, b.String())
}

func parseUserID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &id); err != nil {
		return 0, err
	}
	return id, nil
}

// fsmAdapter exposes the coordinator to the text router.
type fsmAdapter struct {
	app *App
}

func (f *fsmAdapter) InProgress(userID int64) bool {
	return f.app.coordinator.InProgress(userID)
}

func (f *fsmAdapter) ManagerHandler(c tele.Context) error {
	return f.app.handleFlowText(c)
}
